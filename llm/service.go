package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/internal/ctxkeys"
	"github.com/dlorp/synapse-engine-sub010/llm/observability"
	"github.com/dlorp/synapse-engine-sub010/llm/tokenizer"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// Binding maps a dialogue participant to a registered provider and model.
type Binding struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// CompletionResult is the engine-facing reply for one completion call.
type CompletionResult struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultTimeout sets the timeout applied when the caller's context
// carries no deadline of its own.
func WithDefaultTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithTokenCounter sets the fallback counter used when a backend reports
// no usage numbers.
func WithTokenCounter(counter tokenizer.Tokenizer) ServiceOption {
	return func(s *Service) { s.counter = counter }
}

// WithObservability attaches tracing and metrics to every completion call.
func WithObservability(obs *observability.Metrics) ServiceOption {
	return func(s *Service) { s.obs = obs }
}

// Service routes participant completion calls to registered providers. It is
// the engine's only gateway to model backends: the orchestrator knows
// participant IDs, the Service knows which provider and model serve each one.
type Service struct {
	registry *Registry
	counter  tokenizer.Tokenizer
	obs      *observability.Metrics
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewService creates a Service over the given registry.
func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		bindings: make(map[string]Binding),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "completion_service"))
	return s
}

// Bind routes a participant ID to a provider and model. Participants without
// a binding fall back to the provider registered under their own ID.
func (s *Service) Bind(participantID, providerName, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[participantID] = Binding{Provider: providerName, Model: model}
}

// Binding returns the explicit binding for a participant, if any.
func (s *Service) Binding(participantID string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[participantID]
	return b, ok
}

// resolve maps a participant ID to its provider and model.
func (s *Service) resolve(participantID string) (Provider, string, error) {
	s.mu.RLock()
	binding, bound := s.bindings[participantID]
	s.mu.RUnlock()

	name := participantID
	model := ""
	if bound {
		name = binding.Provider
		model = binding.Model
	}
	p, ok := s.registry.Get(name)
	if !ok {
		return nil, "", types.NewError(types.ErrInvalidParticipant,
			fmt.Sprintf("no provider registered for participant %q", participantID))
	}
	return p, model, nil
}

// Complete executes one prompt for the given participant and returns the
// generated content with its token usage. Failures carry TIMED_OUT,
// SERVICE_UNAVAILABLE, or INVALID_PARTICIPANT codes.
func (s *Service) Complete(ctx context.Context, participantID, prompt string, maxTokens int, temperature float64) (*CompletionResult, error) {
	provider, model, err := s.resolve(participantID)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
	}

	req := &CompletionRequest{
		Model:       model,
		Messages:    []types.Message{types.NewUserMessage(prompt)},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if traceID, ok := ctxkeys.TraceID(ctx); ok {
		req.TraceID = traceID
	}
	if sessionID, ok := ctxkeys.SessionID(ctx); ok {
		req.SessionID = sessionID
	}

	var end observability.EndFunc
	if s.obs != nil {
		ctx, end = s.obs.StartRequest(ctx, provider.Name(), model)
	}

	start := time.Now()
	resp, err := provider.Completion(ctx, req)
	if err != nil {
		err = s.mapCallError(err, provider.Name())
		if end != nil {
			end(err, 0)
		}
		s.logger.Warn("completion call failed",
			zap.String("participant", participantID),
			zap.String("provider", provider.Name()),
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 && s.counter != nil {
		// 后端未上报用量时按本地估算兜底
		tokens = s.counter.CountTokens(prompt) + s.counter.CountTokens(resp.Content)
	}
	if end != nil {
		end(nil, tokens)
	}

	s.logger.Debug("completion call succeeded",
		zap.String("participant", participantID),
		zap.String("provider", provider.Name()),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &CompletionResult{
		Content:    resp.Content,
		TokensUsed: tokens,
		Provider:   provider.Name(),
		Model:      resp.Model,
	}, nil
}

// mapCallError normalizes provider failures into coded errors. Providers
// usually return *types.Error already; raw context errors from transports
// are translated here.
func (s *Service) mapCallError(err error, providerName string) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewTimeoutError(providerName)
	case errors.Is(err, context.Canceled):
		return types.NewCancellationError()
	}
	return types.WrapError(types.ErrServiceUnavailable, "completion backend call failed", err).
		WithProvider(providerName).
		WithRetryable(true)
}

// Health probes every registered provider and returns the statuses keyed by
// provider name.
func (s *Service) Health(ctx context.Context) map[string]*HealthStatus {
	statuses := make(map[string]*HealthStatus)
	for _, name := range s.registry.List() {
		p, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		status, err := p.HealthCheck(ctx)
		if err != nil {
			statuses[name] = &HealthStatus{Healthy: false}
			continue
		}
		statuses[name] = status
	}
	return statuses
}
