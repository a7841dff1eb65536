package dialogue

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dlorp/synapse-engine-sub010/testutil"
	"github.com/dlorp/synapse-engine-sub010/types"
)

func TestProperty_FixedBudgetFillsExactly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("transcript length equals the turn budget", prop.ForAll(
		func(maxTurns int) bool {
			mock := testutil.NewMockCompletion().WithContent(fiftyWords).WithTokens(7)
			orch := New(mock)

			req := debateRequest()
			req.MaxTurns = maxTurns

			result, err := orch.Run(context.Background(), req)
			if err != nil {
				t.Logf("Run failed: %v", err)
				return false
			}
			if result.Status != types.StatusCompleted {
				t.Logf("Expected COMPLETED, got %s", result.Status)
				return false
			}
			if len(result.Turns) != maxTurns {
				t.Logf("Expected %d turns, got %d", maxTurns, len(result.Turns))
				return false
			}
			if result.TerminationReason != types.TerminationMaxTurns {
				t.Logf("Expected max_turns_reached, got %s", result.TerminationReason)
				return false
			}

			// one synthesis call on top of the turns
			expectedTokens := 7 * (maxTurns + 1)
			if result.TotalTokens != expectedTokens {
				t.Logf("Expected %d total tokens, got %d", expectedTokens, result.TotalTokens)
				return false
			}

			return true
		},
		gen.IntRange(types.MinTurnBudget, types.MaxTurnBudget),
	))

	properties.Property("two-party sessions alternate strictly", prop.ForAll(
		func(maxTurns int) bool {
			mock := testutil.NewMockCompletion().WithContent(fiftyWords)
			orch := New(mock)

			req := debateRequest()
			req.MaxTurns = maxTurns

			result, err := orch.Run(context.Background(), req)
			if err != nil {
				t.Logf("Run failed: %v", err)
				return false
			}

			for i, turn := range result.Turns {
				if turn.TurnNumber != i+1 {
					t.Logf("Turn %d numbered %d", i+1, turn.TurnNumber)
					return false
				}
				if i > 0 && turn.SpeakerID == result.Turns[i-1].SpeakerID {
					t.Logf("Speaker %s repeated at turn %d", turn.SpeakerID, i+1)
					return false
				}
			}

			return true
		},
		gen.IntRange(types.MinTurnBudget, types.MaxTurnBudget),
	))

	properties.TestingRun(t)
}

func TestProperty_RoundRobinFollowsIndex(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("panel speakers follow turn index modulo panel size", prop.ForAll(
		func(panelSize int, maxTurns int) bool {
			participants := make([]types.Participant, panelSize)
			for i := range participants {
				participants[i] = types.Participant{ID: fmt.Sprintf("panelist-%d", i)}
			}
			req := types.DialogueRequest{
				Topic:        "How should the team prioritize the platform roadmap?",
				Mode:         types.ModeConsensus,
				Participants: participants,
				MaxTurns:     maxTurns,
			}

			mock := testutil.NewMockCompletion().WithContent(fiftyWords)
			orch := New(mock)

			result, err := orch.Run(context.Background(), req)
			if err != nil {
				t.Logf("Run failed: %v", err)
				return false
			}
			if len(result.Turns) != maxTurns {
				t.Logf("Expected %d turns, got %d", maxTurns, len(result.Turns))
				return false
			}

			for i, turn := range result.Turns {
				if turn.SpeakerID != participants[i%panelSize].ID {
					t.Logf("Expected %s at turn %d, got %s", participants[i%panelSize].ID, i+1, turn.SpeakerID)
					return false
				}
			}

			return true
		},
		gen.IntRange(3, 6),
		gen.IntRange(types.MinTurnBudget, types.MaxTurnBudget),
	))

	properties.TestingRun(t)
}
