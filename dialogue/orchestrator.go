package dialogue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/internal/ctxkeys"
	"github.com/dlorp/synapse-engine-sub010/internal/metrics"
	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/llm/observability"
	"github.com/dlorp/synapse-engine-sub010/llm/retry"
	"github.com/dlorp/synapse-engine-sub010/persona"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// CompletionService is the orchestrator's only dependency on the model
// layer: one prompt in, one reply out, routed by participant ID.
type CompletionService interface {
	Complete(ctx context.Context, participantID, prompt string, maxTokens int, temperature float64) (*llm.CompletionResult, error)
}

// Config carries the engine-level defaults applied to every session.
type Config struct {
	// TurnTimeout is the wall-clock budget for one turn, the retry included.
	// A retried attempt only gets whatever time is left.
	TurnTimeout time.Duration
	// RetryPolicy governs the automatic retry of failed completion calls.
	// Nil uses retry.DefaultPolicy: at most one retry, and never after a
	// timeout or a cancellation.
	RetryPolicy *retry.Policy
	// DefaultTemperature applies when the request does not set one.
	DefaultTemperature float64
	// DefaultMaxTokens caps one turn's reply when the request does not.
	DefaultMaxTokens int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:        30 * time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1024,
	}
}

// Orchestrator drives dialogue sessions through their state machine. One
// orchestrator serves any number of concurrent sessions; all per-session
// state lives in the DialogueSession created per run.
type Orchestrator struct {
	svc       CompletionService
	personas  *persona.Manager
	synth     *Synthesizer
	synthSet  bool
	config    Config
	retryer   retry.Retryer
	obs       *observability.Metrics
	collector *metrics.Collector
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the engine defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.config = cfg }
}

// WithPersonaManager sets the persona resolver.
func WithPersonaManager(m *persona.Manager) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.personas = m
		}
	}
}

// WithSynthesizer sets the closing-summary generator. Nil disables
// synthesis; results then carry SynthesisAvailable=false.
func WithSynthesizer(s *Synthesizer) Option {
	return func(o *Orchestrator) {
		o.synth = s
		o.synthSet = true
	}
}

// WithObservability attaches tracing to sessions and turns.
func WithObservability(obs *observability.Metrics) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

// WithCollector attaches the Prometheus session collector.
func WithCollector(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator over the given completion service. Unless
// overridden, sessions resolve personas from the built-in profiles and
// synthesize through the same completion service.
func New(svc CompletionService, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:    svc,
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.personas == nil {
		o.personas = persona.NewManager(nil, o.logger)
	}
	if o.synth == nil && !o.synthSet {
		o.synth = NewSynthesizer(svc, WithSynthesisLogger(o.logger))
	}
	o.retryer = retry.NewBackoffRetryer(o.config.RetryPolicy, o.logger)
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o
}

// Run validates the request, assigns a fresh session ID, and drives the
// dialogue to a terminal state.
func (o *Orchestrator) Run(ctx context.Context, req types.DialogueRequest) (*types.DialogueResult, error) {
	return o.RunSession(ctx, uuid.New().String(), req)
}

// RunSession executes one dialogue session under the caller's context.
//
// The loop is strictly sequential: schedule the speaker, compose the prompt,
// call the backend under the per-turn budget, append the turn, then consult
// the termination detector. The session ends COMPLETED when the turn budget
// is exhausted or a detector fires, FAILED on the first unrecovered backend
// error, and CANCELLED when the caller's context dies. FAILED and CANCELLED
// results still carry the partial transcript.
//
// Synthesis runs only for COMPLETED sessions. A synthesis failure degrades
// the result (SynthesisAvailable=false) instead of failing the session.
func (o *Orchestrator) RunSession(ctx context.Context, sessionID string, req types.DialogueRequest) (*types.DialogueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resolved, err := o.personas.Resolve(&req)
	if err != nil {
		return nil, err
	}
	// Stamp resolved personas onto a copy; the caller's slice stays intact.
	participants := make([]types.Participant, len(req.Participants))
	copy(participants, req.Participants)
	for i := range participants {
		participants[i].Persona = resolved[participants[i].ID]
	}
	req.Participants = participants

	session := types.NewDialogueSession(sessionID, req)
	ctx = ctxkeys.WithSessionID(ctx, sessionID)

	var sessionSpan trace.Span
	if o.obs != nil {
		ctx, sessionSpan = o.obs.StartSession(ctx, sessionID, string(session.Mode))
		defer sessionSpan.End()
	}
	if o.collector != nil {
		o.collector.SessionStarted(string(session.Mode))
		defer o.collector.SessionEnded(string(session.Mode))
	}

	logger := o.logger.With(zap.String("session_id", sessionID))
	logger.Info("dialogue session started",
		zap.String("topic", session.Topic),
		zap.String("mode", string(session.Mode)),
		zap.String("order_policy", string(session.OrderPolicy)),
		zap.Int("participants", len(session.Participants)),
		zap.Int("max_turns", session.MaxTurns),
		zap.Bool("dynamic_termination", session.DynamicTermination),
	)

	sched := NewScheduler(session.OrderPolicy, session.Participants)
	start := time.Now()

	var reason types.TerminationReason
	for turnIndex := 0; turnIndex < session.MaxTurns; turnIndex++ {
		if ctx.Err() != nil {
			return o.abort(logger, session, start, types.StatusCancelled, types.NewCancellationError())
		}

		speaker := sched.Next(turnIndex)
		turnNumber := turnIndex + 1
		prompt := ComposePrompt(PromptInput{
			Topic:           session.Topic,
			Mode:            session.Mode,
			Speaker:         speaker,
			Participants:    session.Participants,
			Transcript:      session.Transcript,
			TurnNumber:      turnNumber,
			ExternalContext: req.ExternalContext,
		})

		turn, err := o.executeTurn(ctx, logger, speaker, prompt, turnNumber, req)
		if err != nil {
			if types.IsErrorCode(err, types.ErrCancelled) {
				return o.abort(logger, session, start, types.StatusCancelled, err)
			}
			return o.abort(logger, session, start, types.StatusFailed,
				types.NewTurnFailure(turnNumber, speaker.ID, err))
		}
		session.AppendTurn(*turn)
		if o.collector != nil {
			o.collector.TurnCompleted(string(session.Mode), speaker.ID, turn.TokensUsed, turn.FinishedAt.Sub(turn.StartedAt))
		}

		if session.DynamicTermination && len(session.Transcript) >= detectionWindow {
			if r, ok := DetectTermination(session.Transcript); ok {
				reason = r
				logger.Info("dynamic termination triggered",
					zap.String("reason", string(r)),
					zap.Int("turns", len(session.Transcript)))
				break
			}
		}
	}
	if reason == "" {
		reason = types.TerminationMaxTurns
	}
	session.TerminationReason = reason
	_ = session.TransitionTo(types.StatusCompleted)

	var (
		synthesis   string
		synthesisOK bool
	)
	if o.synth != nil {
		syn, tokens, err := o.synth.Synthesize(ctx, session)
		if err != nil {
			logger.Warn("synthesis unavailable, result degraded", zap.Error(err))
		} else {
			synthesis = syn
			synthesisOK = true
			session.TotalTokens += tokens
		}
	}

	session.TotalElapsed = time.Since(start)
	result := session.Result()
	result.Synthesis = synthesis
	result.SynthesisAvailable = synthesisOK

	if o.collector != nil {
		o.collector.SessionCompleted(string(session.Mode), string(session.Status), string(reason), session.TotalElapsed)
	}
	logger.Info("dialogue session completed",
		zap.String("reason", string(reason)),
		zap.Int("turns", len(result.Turns)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", session.TotalElapsed),
		zap.Bool("synthesis", synthesisOK),
	)
	return result, nil
}

// abort moves the session into FAILED or CANCELLED and snapshots the
// partial transcript. The cause is returned alongside the result so callers
// can inspect both.
func (o *Orchestrator) abort(logger *zap.Logger, session *types.DialogueSession, start time.Time, status types.SessionStatus, cause error) (*types.DialogueResult, error) {
	session.TotalElapsed = time.Since(start)
	_ = session.TransitionTo(status)

	result := session.Result()
	if cause != nil {
		result.Error = cause.Error()
	}
	if o.collector != nil {
		o.collector.SessionCompleted(string(session.Mode), string(session.Status), "", session.TotalElapsed)
	}
	logger.Warn("dialogue session aborted",
		zap.String("status", string(status)),
		zap.Int("turns", len(result.Turns)),
		zap.Error(cause),
	)
	return result, cause
}

// executeTurn runs one completion call under the per-turn budget and wraps
// the reply into a transcript turn.
func (o *Orchestrator) executeTurn(ctx context.Context, logger *zap.Logger, speaker types.Participant, prompt string, turnNumber int, req types.DialogueRequest) (*types.DialogueTurn, error) {
	turnCtx := ctxkeys.WithTurnNumber(ctx, turnNumber)

	var turnSpan trace.Span
	if o.obs != nil {
		turnCtx, turnSpan = o.obs.StartTurn(turnCtx, turnNumber, speaker.ID)
		defer turnSpan.End()
	}
	if o.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(turnCtx, o.config.TurnTimeout)
		defer cancel()
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = o.config.DefaultTemperature
	}
	maxTokens := req.MaxTokensPerTurn
	if maxTokens <= 0 {
		maxTokens = o.config.DefaultMaxTokens
	}

	logger.Debug("turn started",
		zap.Int("turn", turnNumber),
		zap.String("speaker", speaker.ID),
		zap.String("role", string(speaker.Role)))

	var res *llm.CompletionResult
	started := time.Now()
	err := o.retryer.Do(turnCtx, func() error {
		r, err := o.svc.Complete(turnCtx, speaker.ID, prompt, maxTokens, temperature)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if turnSpan != nil {
			turnSpan.RecordError(err)
		}
		return nil, err
	}
	finished := time.Now()

	logger.Debug("turn finished",
		zap.Int("turn", turnNumber),
		zap.String("speaker", speaker.ID),
		zap.Int("tokens", res.TokensUsed),
		zap.Duration("elapsed", finished.Sub(started)))

	return &types.DialogueTurn{
		TurnNumber: turnNumber,
		SpeakerID:  speaker.ID,
		Role:       speaker.Role,
		Content:    res.Content,
		TokensUsed: res.TokensUsed,
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}
