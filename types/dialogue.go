package types

import (
	"fmt"
	"time"
)

// Mode selects the dialogue shape: a two-party debate or an N-party panel.
type Mode string

const (
	ModeAdversarial Mode = "ADVERSARIAL"
	ModeConsensus   Mode = "CONSENSUS"
)

// DefaultOrderPolicy returns the turn-order policy implied by the mode.
func (m Mode) DefaultOrderPolicy() OrderPolicy {
	if m == ModeAdversarial {
		return OrderAlternating
	}
	return OrderRoundRobin
}

// OrderPolicy decides which participant speaks at a given turn index.
type OrderPolicy string

const (
	OrderAlternating OrderPolicy = "ALTERNATING"
	OrderRoundRobin  OrderPolicy = "ROUND_ROBIN"
)

// DialogueRole identifies a participant's position within a session.
// Adversarial sessions use the fixed PRO/CON pair; consensus sessions
// carry free-form role names ("pragmatist", "skeptic", ...).
type DialogueRole string

const (
	RolePro DialogueRole = "PRO"
	RoleCon DialogueRole = "CON"
)

// SessionStatus is the lifecycle state of a dialogue session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusFailed    SessionStatus = "FAILED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TerminationReason tags why a dialogue loop stopped.
type TerminationReason string

const (
	TerminationMaxTurns      TerminationReason = "max_turns_reached"
	TerminationConcession    TerminationReason = "concession_detected"
	TerminationRepetition    TerminationReason = "stalemate_repetition"
	TerminationDisengagement TerminationReason = "stalemate_disengagement"
)

// Turn budget bounds for a single session.
const (
	MinTurnBudget = 2
	MaxTurnBudget = 20
)

// Participant is one speaker in a dialogue session. Immutable for the
// session lifetime.
type Participant struct {
	// ID is the opaque identifier the completion service routes on.
	ID string `json:"id"`
	// Role is PRO/CON for adversarial sessions or a free-form role name
	// for consensus sessions.
	Role DialogueRole `json:"role"`
	// Persona is the natural-language role description injected into the
	// participant's prompts. Resolved before the loop starts.
	Persona string `json:"persona,omitempty"`
}

// DialogueTurn is one speaker's single response. Created once per successful
// completion call and never mutated afterwards.
type DialogueTurn struct {
	TurnNumber int          `json:"turn_number"`
	SpeakerID  string       `json:"speaker_id"`
	Role       DialogueRole `json:"role"`
	Content    string       `json:"content"`
	TokensUsed int          `json:"tokens_used"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// DialogueRequest is the caller-facing request that starts a session.
type DialogueRequest struct {
	Topic              string            `json:"topic"`
	Participants       []Participant     `json:"participants"`
	Mode               Mode              `json:"mode"`
	OrderPolicy        OrderPolicy       `json:"order_policy,omitempty"`
	MaxTurns           int               `json:"max_turns"`
	DynamicTermination bool              `json:"dynamic_termination"`
	Personas           map[string]string `json:"personas,omitempty"`
	ProfileName        string            `json:"profile_name,omitempty"`
	Temperature        float64           `json:"temperature,omitempty"`
	MaxTokensPerTurn   int               `json:"max_tokens_per_turn,omitempty"`
	// ExternalContext is an opaque pre-formatted block inserted verbatim
	// into every prompt. The engine never interprets it.
	ExternalContext string `json:"external_context,omitempty"`
}

// Validate checks the request shape. All violations surface before any
// external call is made.
func (r *DialogueRequest) Validate() error {
	if r.Topic == "" {
		return NewConfigurationError("topic must not be empty")
	}
	switch r.Mode {
	case ModeAdversarial:
		if len(r.Participants) != 2 {
			return NewConfigurationError(fmt.Sprintf(
				"adversarial mode requires exactly 2 participants, got %d", len(r.Participants)))
		}
		roles := map[DialogueRole]bool{}
		for _, p := range r.Participants {
			roles[p.Role] = true
		}
		if !roles[RolePro] || !roles[RoleCon] {
			return NewConfigurationError("adversarial mode requires one PRO and one CON participant")
		}
	case ModeConsensus:
		if len(r.Participants) < 3 {
			return NewConfigurationError(fmt.Sprintf(
				"consensus mode requires at least 3 participants, got %d", len(r.Participants)))
		}
	default:
		return NewConfigurationError(fmt.Sprintf("unknown mode %q", r.Mode))
	}
	if r.MaxTurns < MinTurnBudget || r.MaxTurns > MaxTurnBudget {
		return NewConfigurationError(fmt.Sprintf(
			"maxTurns must be in [%d,%d], got %d", MinTurnBudget, MaxTurnBudget, r.MaxTurns))
	}
	seen := make(map[string]bool, len(r.Participants))
	for _, p := range r.Participants {
		if p.ID == "" {
			return NewConfigurationError("participant ID must not be empty")
		}
		if seen[p.ID] {
			return NewConfigurationError(fmt.Sprintf("duplicate participant ID %q", p.ID))
		}
		seen[p.ID] = true
	}
	if r.Temperature < 0 {
		return NewConfigurationError("temperature must not be negative")
	}
	if r.MaxTokensPerTurn < 0 {
		return NewConfigurationError("maxTokensPerTurn must not be negative")
	}
	return nil
}

// DialogueSession is the state machine driven by one orchestrator instance.
// Mutated only by its owner; sessions share no state with one another.
type DialogueSession struct {
	ID                 string            `json:"id"`
	Topic              string            `json:"topic"`
	Mode               Mode              `json:"mode"`
	Participants       []Participant     `json:"participants"`
	OrderPolicy        OrderPolicy       `json:"order_policy"`
	Transcript         []DialogueTurn    `json:"transcript"`
	MaxTurns           int               `json:"max_turns"`
	DynamicTermination bool              `json:"dynamic_termination"`
	Status             SessionStatus     `json:"status"`
	TerminationReason  TerminationReason `json:"termination_reason,omitempty"`
	TotalTokens        int               `json:"total_tokens"`
	TotalElapsed       time.Duration     `json:"total_elapsed"`
	StartedAt          time.Time         `json:"started_at"`
}

// NewDialogueSession builds an ACTIVE session from an accepted request.
// The request must already be validated.
func NewDialogueSession(id string, req DialogueRequest) *DialogueSession {
	policy := req.OrderPolicy
	if policy == "" {
		policy = req.Mode.DefaultOrderPolicy()
	}
	participants := make([]Participant, len(req.Participants))
	copy(participants, req.Participants)
	return &DialogueSession{
		ID:                 id,
		Topic:              req.Topic,
		Mode:               req.Mode,
		Participants:       participants,
		OrderPolicy:        policy,
		Transcript:         make([]DialogueTurn, 0, req.MaxTurns),
		MaxTurns:           req.MaxTurns,
		DynamicTermination: req.DynamicTermination,
		Status:             StatusActive,
		StartedAt:          time.Now(),
	}
}

// AppendTurn appends a completed turn and accumulates its token usage.
// The transcript is append-only; turns are never rewritten.
func (s *DialogueSession) AppendTurn(turn DialogueTurn) {
	s.Transcript = append(s.Transcript, turn)
	s.TotalTokens += turn.TokensUsed
}

// LastTurns returns the most recent n turns in chronological order.
func (s *DialogueSession) LastTurns(n int) []DialogueTurn {
	if n <= 0 || len(s.Transcript) == 0 {
		return nil
	}
	if n > len(s.Transcript) {
		n = len(s.Transcript)
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// TransitionTo moves the session into a terminal status. Transitions are
// forward-only: once a session leaves ACTIVE it never changes again.
func (s *DialogueSession) TransitionTo(next SessionStatus) error {
	if s.Status != StatusActive {
		return NewError(ErrInternalError, fmt.Sprintf(
			"invalid transition %s -> %s: session already terminal", s.Status, next))
	}
	if !next.Terminal() {
		return NewError(ErrInternalError, fmt.Sprintf(
			"invalid transition %s -> %s: target is not terminal", s.Status, next))
	}
	s.Status = next
	return nil
}

// Result snapshots the session into its terminal artifact. The transcript is
// copied so the result stays immutable once handed to the caller.
func (s *DialogueSession) Result() *DialogueResult {
	turns := make([]DialogueTurn, len(s.Transcript))
	copy(turns, s.Transcript)
	return &DialogueResult{
		SessionID:         s.ID,
		Topic:             s.Topic,
		Mode:              s.Mode,
		Status:            s.Status,
		Turns:             turns,
		TerminationReason: s.TerminationReason,
		TotalTokens:       s.TotalTokens,
		TotalTimeMs:       s.TotalElapsed.Milliseconds(),
	}
}

// DialogueResult is the terminal artifact of a session. For FAILED and
// CANCELLED sessions Turns holds the partial transcript accumulated before
// the abort.
type DialogueResult struct {
	SessionID string         `json:"session_id"`
	Topic     string         `json:"topic"`
	Mode      Mode           `json:"mode"`
	Status    SessionStatus  `json:"status"`
	Turns     []DialogueTurn `json:"turns"`
	// Synthesis is the neutral closing summary. Empty when unavailable.
	Synthesis string `json:"synthesis,omitempty"`
	// SynthesisAvailable is false when the synthesis call failed and the
	// result degraded rather than failing the session.
	SynthesisAvailable bool              `json:"synthesis_available"`
	TerminationReason  TerminationReason `json:"termination_reason,omitempty"`
	// Error describes why a FAILED or CANCELLED session stopped. Empty for
	// COMPLETED sessions.
	Error       string `json:"error,omitempty"`
	TotalTokens int    `json:"total_tokens"`
	TotalTimeMs int64  `json:"total_time_ms"`
}
