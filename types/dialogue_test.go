package types

import (
	"testing"
	"time"
)

func validAdversarialRequest() DialogueRequest {
	return DialogueRequest{
		Topic: "Should serverless replace containers?",
		Mode:  ModeAdversarial,
		Participants: []Participant{
			{ID: "backend-a", Role: RolePro},
			{ID: "backend-b", Role: RoleCon},
		},
		MaxTurns: 4,
	}
}

func TestDialogueRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*DialogueRequest)
		wantErr bool
	}{
		{"valid adversarial", func(r *DialogueRequest) {}, false},
		{"empty topic", func(r *DialogueRequest) { r.Topic = "" }, true},
		{"unknown mode", func(r *DialogueRequest) { r.Mode = "DUEL" }, true},
		{"adversarial with one participant", func(r *DialogueRequest) {
			r.Participants = r.Participants[:1]
		}, true},
		{"adversarial with three participants", func(r *DialogueRequest) {
			r.Participants = append(r.Participants, Participant{ID: "backend-c"})
		}, true},
		{"consensus with two participants", func(r *DialogueRequest) {
			r.Mode = ModeConsensus
		}, true},
		{"maxTurns below minimum", func(r *DialogueRequest) { r.MaxTurns = 1 }, true},
		{"maxTurns above maximum", func(r *DialogueRequest) { r.MaxTurns = 21 }, true},
		{"adversarial without CON role", func(r *DialogueRequest) {
			r.Participants[1].Role = RolePro
		}, true},
		{"duplicate participant IDs", func(r *DialogueRequest) {
			r.Participants[1].ID = r.Participants[0].ID
		}, true},
		{"empty participant ID", func(r *DialogueRequest) { r.Participants[0].ID = "" }, true},
		{"negative temperature", func(r *DialogueRequest) { r.Temperature = -0.1 }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validAdversarialRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected validation error")
				}
				if GetErrorCode(err) != ErrConfiguration {
					t.Fatalf("expected CONFIGURATION code, got %s", GetErrorCode(err))
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDialogueRequest_ValidateConsensus(t *testing.T) {
	t.Parallel()

	req := DialogueRequest{
		Topic: "How should we roll out the migration?",
		Mode:  ModeConsensus,
		Participants: []Participant{
			{ID: "a", Role: "pragmatist"},
			{ID: "b", Role: "skeptic"},
			{ID: "c", Role: "optimist"},
		},
		MaxTurns: 6,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMode_DefaultOrderPolicy(t *testing.T) {
	t.Parallel()

	if got := ModeAdversarial.DefaultOrderPolicy(); got != OrderAlternating {
		t.Fatalf("expected ALTERNATING, got %s", got)
	}
	if got := ModeConsensus.DefaultOrderPolicy(); got != OrderRoundRobin {
		t.Fatalf("expected ROUND_ROBIN, got %s", got)
	}
}

func TestDialogueSession_TransitionForwardOnly(t *testing.T) {
	t.Parallel()

	s := NewDialogueSession("s1", validAdversarialRequest())
	if s.Status != StatusActive {
		t.Fatalf("new session must be ACTIVE, got %s", s.Status)
	}
	if err := s.TransitionTo(StatusCompleted); err != nil {
		t.Fatalf("ACTIVE -> COMPLETED should succeed: %v", err)
	}
	if err := s.TransitionTo(StatusFailed); err == nil {
		t.Fatalf("terminal session must not transition again")
	}

	s2 := NewDialogueSession("s2", validAdversarialRequest())
	if err := s2.TransitionTo(StatusActive); err == nil {
		t.Fatalf("ACTIVE -> ACTIVE must be rejected")
	}
}

func TestDialogueSession_AppendTurnAccumulatesTokens(t *testing.T) {
	t.Parallel()

	s := NewDialogueSession("s1", validAdversarialRequest())
	s.AppendTurn(DialogueTurn{TurnNumber: 1, SpeakerID: "backend-a", TokensUsed: 120})
	s.AppendTurn(DialogueTurn{TurnNumber: 2, SpeakerID: "backend-b", TokensUsed: 80})

	if s.TotalTokens != 200 {
		t.Fatalf("expected 200 total tokens, got %d", s.TotalTokens)
	}
	if len(s.Transcript) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(s.Transcript))
	}
}

func TestDialogueSession_LastTurns(t *testing.T) {
	t.Parallel()

	s := NewDialogueSession("s1", validAdversarialRequest())
	for i := 1; i <= 3; i++ {
		s.AppendTurn(DialogueTurn{TurnNumber: i})
	}

	last := s.LastTurns(2)
	if len(last) != 2 || last[0].TurnNumber != 2 || last[1].TurnNumber != 3 {
		t.Fatalf("expected turns [2 3], got %+v", last)
	}
	if got := s.LastTurns(10); len(got) != 3 {
		t.Fatalf("expected all 3 turns when n exceeds length, got %d", len(got))
	}
	if got := s.LastTurns(0); got != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestDialogueSession_ResultSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	s := NewDialogueSession("s1", validAdversarialRequest())
	s.AppendTurn(DialogueTurn{TurnNumber: 1, Content: "opening"})
	s.TotalElapsed = 1500 * time.Millisecond
	s.TerminationReason = TerminationMaxTurns
	if err := s.TransitionTo(StatusCompleted); err != nil {
		t.Fatalf("transition: %v", err)
	}

	res := s.Result()
	s.Transcript[0].Content = "mutated"

	if res.Turns[0].Content != "opening" {
		t.Fatalf("result transcript must be an independent copy")
	}
	if res.TotalTimeMs != 1500 {
		t.Fatalf("expected 1500ms, got %d", res.TotalTimeMs)
	}
	if res.TerminationReason != TerminationMaxTurns {
		t.Fatalf("expected max_turns_reached, got %s", res.TerminationReason)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", res.Status)
	}
}
