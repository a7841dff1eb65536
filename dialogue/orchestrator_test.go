package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlorp/synapse-engine-sub010/llm/retry"
	"github.com/dlorp/synapse-engine-sub010/testutil"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// fiftyWords is a fixed 50-word reply. Long enough to stay clear of the
// disengagement detector, and free of concession phrases.
const fiftyWords = "Serverless platforms fundamentally change operational economics because capacity planning shifts to the provider, letting teams deploy functions without provisioning clusters, while cold starts, vendor lock-in, and opaque pricing models remain genuine concerns that any serious architecture review must weigh carefully against the undeniable convenience of managed scaling infrastructure offerings today."

func debateRequest() types.DialogueRequest {
	return types.DialogueRequest{
		Topic: "Should serverless replace containers?",
		Mode:  types.ModeAdversarial,
		Participants: []types.Participant{
			{ID: "backend-a", Role: types.RolePro},
			{ID: "backend-b", Role: types.RoleCon},
		},
		MaxTurns: 4,
	}
}

// fastRetryPolicy keeps retry delays out of the test clock.
func fastRetryPolicy(maxRetries int) *retry.Policy {
	return &retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRun_MaxTurnsReached(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, types.TerminationMaxTurns, result.TerminationReason)
	require.Len(t, result.Turns, 4)
	assert.True(t, result.SynthesisAvailable)
	assert.NotEmpty(t, result.Synthesis)
	assert.Empty(t, result.Error)
	assert.Equal(t, 5, mock.CallCount(), "four turns plus one synthesis call")

	// 50 tokens per turn and 50 for the synthesis
	assert.Equal(t, 250, result.TotalTokens)
	assert.NotEmpty(t, result.SessionID)
}

func TestRun_StrictAlternation(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)

	require.Len(t, result.Turns, 4)
	for i, turn := range result.Turns {
		assert.Equal(t, i+1, turn.TurnNumber)
		if i%2 == 0 {
			assert.Equal(t, "backend-a", turn.SpeakerID)
			assert.Equal(t, types.RolePro, turn.Role)
		} else {
			assert.Equal(t, "backend-b", turn.SpeakerID)
			assert.Equal(t, types.RoleCon, turn.Role)
		}
		assert.False(t, turn.FinishedAt.Before(turn.StartedAt))
	}
}

func TestRun_PromptsCarryTranscript(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	req := debateRequest()
	req.ExternalContext = "Benchmark data: cold start p99 = 840ms."
	_, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	calls := mock.Calls()
	require.GreaterOrEqual(t, len(calls), 3)

	first := calls[0].Prompt
	assert.Contains(t, first, "Topic: Should serverless replace containers?")
	assert.Contains(t, first, "(no messages yet; you are giving the opening statement)")
	assert.Contains(t, first, "Benchmark data: cold start p99 = 840ms.")

	// turn 3 sees both previous turns and is told to rebut the CON side
	third := calls[2].Prompt
	assert.Contains(t, third, "[Turn 1] PRO:")
	assert.Contains(t, third, "[Turn 2] CON:")
	assert.Contains(t, third, "Address the most recent points made by CON directly")
}

func TestRun_PersonasAppearInPrompts(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	req := debateRequest()
	req.Personas = map[string]string{
		"backend-a": "a veteran site reliability engineer",
		"backend-b": "a cloud cost analyst",
	}
	_, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	calls := mock.Calls()
	assert.Contains(t, calls[0].Prompt, "Your persona: a veteran site reliability engineer")
	assert.Contains(t, calls[1].Prompt, "Your persona: a cloud cost analyst")
}

func TestRun_DoesNotMutateCallerParticipants(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	req := debateRequest()
	_, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	assert.Empty(t, req.Participants[0].Persona,
		"resolved personas must not leak into the caller's request")
}

func TestRun_RequestParamsPropagate(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	req := debateRequest()
	req.Temperature = 0.4
	req.MaxTokensPerTurn = 256
	_, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 5)
	assert.InDelta(t, 0.4, calls[0].Temperature, 1e-9)
	assert.Equal(t, 256, calls[0].MaxTokens)
	// synthesis keeps its own low temperature
	assert.InDelta(t, 0.3, calls[4].Temperature, 1e-9)
}

func TestRun_DefaultParams(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	_, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)

	calls := mock.Calls()
	assert.InDelta(t, 0.7, calls[0].Temperature, 1e-9)
	assert.Equal(t, 1024, calls[0].MaxTokens)
}

func TestRun_FixedBudgetIgnoresDetectors(t *testing.T) {
	// identical turns would trip the repetition detector, but with
	// DynamicTermination off the session must fill the whole budget
	mock := testutil.NewMockCompletion().WithContent(repetitiveContent)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)
	assert.Len(t, result.Turns, 4)
	assert.Equal(t, types.TerminationMaxTurns, result.TerminationReason)
}

func TestRun_DynamicTerminationConcession(t *testing.T) {
	req := debateRequest()
	req.MaxTurns = 8
	req.DynamicTermination = true

	mock := testutil.NewMockCompletion().WithScript(
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		"You're right, I hadn't considered that.",
	)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Len(t, result.Turns, 4)
	assert.Equal(t, types.TerminationConcession, result.TerminationReason)
	assert.True(t, result.SynthesisAvailable, "an early stop still gets a synthesis")
}

func TestRun_DynamicTerminationRepetition(t *testing.T) {
	req := debateRequest()
	req.MaxTurns = 8
	req.DynamicTermination = true

	mock := testutil.NewMockCompletion().WithContent(repetitiveContent)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	assert.Len(t, result.Turns, 4, "repetition is detectable at the first full window")
	assert.Equal(t, types.TerminationRepetition, result.TerminationReason)
}

func TestRun_DynamicTerminationDisengagement(t *testing.T) {
	req := debateRequest()
	req.MaxTurns = 8
	req.DynamicTermination = true

	mock := testutil.NewMockCompletion().WithScript(
		distinctTurnContents[0],
		distinctTurnContents[1],
		"Fine.",
		"Whatever you say.",
	)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	assert.Len(t, result.Turns, 4)
	assert.Equal(t, types.TerminationDisengagement, result.TerminationReason)
}

func TestRun_ConcessionBeforeWindowIgnored(t *testing.T) {
	req := debateRequest()
	req.MaxTurns = 5
	req.DynamicTermination = true

	// a concession phrase in turn 1 must not stop anything: the detector
	// needs a full window and only reads the phrase off the latest turn
	mock := testutil.NewMockCompletion().WithScript(
		"I agree with parts of this framing, though the deployment questions deserve separate scrutiny from the operational cost analysis we started with.",
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		distinctTurnContents[3],
	)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	assert.Len(t, result.Turns, 5)
	assert.Equal(t, types.TerminationMaxTurns, result.TerminationReason)
}

func TestRun_BackendFailureFailsSession(t *testing.T) {
	mock := testutil.NewMockCompletion().
		WithContent(fiftyWords).
		WithErrorOn(3, types.NewError(types.ErrUpstreamError, "backend exploded"))
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrTurnFailed, types.GetErrorCode(err))

	require.NotNil(t, result, "a failed session still reports its partial transcript")
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Len(t, result.Turns, 2)
	assert.NotEmpty(t, result.Error)
	assert.False(t, result.SynthesisAvailable)
	assert.Empty(t, result.Synthesis)
	assert.Equal(t, 3, mock.CallCount(), "no retry for a non-retryable error, no synthesis after failure")

	terr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Contains(t, terr.Message, "turn 3")
	assert.Contains(t, terr.Message, "backend-a")
}

func TestRun_TransientErrorRetriedOnce(t *testing.T) {
	transient := types.NewError(types.ErrServiceUnavailable, "connection reset").WithRetryable(true)
	mock := testutil.NewMockCompletion().WithContent(fiftyWords).WithErrorOn(2, transient)

	cfg := DefaultConfig()
	cfg.RetryPolicy = fastRetryPolicy(1)
	orch := New(mock, WithConfig(cfg))

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Len(t, result.Turns, 4)
	assert.Equal(t, 6, mock.CallCount(), "four turns, one retried attempt, one synthesis")
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	transient := types.NewError(types.ErrServiceUnavailable, "connection reset").WithRetryable(true)
	mock := testutil.NewMockCompletion().
		WithContent(fiftyWords).
		WithErrorOn(2, transient).
		WithErrorOn(3, transient)

	cfg := DefaultConfig()
	cfg.RetryPolicy = fastRetryPolicy(1)
	orch := New(mock, WithConfig(cfg))

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrTurnFailed, types.GetErrorCode(err))
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Len(t, result.Turns, 1)
	assert.Equal(t, 3, mock.CallCount(), "turn 2 gets exactly one retry")
}

func TestRun_RetryDisabled(t *testing.T) {
	transient := types.NewError(types.ErrServiceUnavailable, "connection reset").WithRetryable(true)
	mock := testutil.NewMockCompletion().WithContent(fiftyWords).WithErrorOn(2, transient)

	cfg := DefaultConfig()
	cfg.RetryPolicy = fastRetryPolicy(0)
	orch := New(mock, WithConfig(cfg))

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Len(t, result.Turns, 1)
	assert.Equal(t, 2, mock.CallCount(), "MaxRetries=0 means a single attempt per turn")
}

func TestRun_TurnTimeoutFailsSession(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords).WithDelay(200 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.TurnTimeout = 30 * time.Millisecond
	cfg.RetryPolicy = fastRetryPolicy(1)
	orch := New(mock, WithConfig(cfg))

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrTurnFailed, types.GetErrorCode(err))

	terr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrTimedOut, types.GetErrorCode(terr.Cause),
		"the turn failure must preserve the timeout cause")

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Empty(t, result.Turns)
	assert.Equal(t, 1, mock.CallCount(), "a timed-out turn must not be retried")
}

func TestRun_CancellationDuringSecondTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := testutil.NewMockCompletion().
		WithContent(fiftyWords).
		WithDelay(20 * time.Millisecond).
		WithOnCall(func(call int) {
			if call == 2 {
				cancel()
			}
		})
	orch := New(mock)

	result, err := orch.Run(ctx, debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrCancelled, types.GetErrorCode(err))

	require.NotNil(t, result)
	assert.Equal(t, types.StatusCancelled, result.Status)
	assert.Len(t, result.Turns, 1, "only the completed turn survives into the transcript")
	assert.NotEmpty(t, result.Error)
	assert.False(t, result.SynthesisAvailable)
}

func TestRun_PreCancelledContext(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	result, err := orch.Run(testutil.CancelledContext(), debateRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrCancelled, types.GetErrorCode(err))
	assert.Equal(t, types.StatusCancelled, result.Status)
	assert.Empty(t, result.Turns)
	assert.Zero(t, mock.CallCount())
}

func TestRun_SynthesisFailureDegrades(t *testing.T) {
	mock := testutil.NewMockCompletion().
		WithContent(fiftyWords).
		WithErrorOn(5, types.NewError(types.ErrServiceUnavailable, "synthesis backend down"))
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err, "a synthesis failure must not fail the session")

	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Len(t, result.Turns, 4)
	assert.Equal(t, types.TerminationMaxTurns, result.TerminationReason)
	assert.False(t, result.SynthesisAvailable)
	assert.Empty(t, result.Synthesis)
	assert.Empty(t, result.Error, "degraded is not failed")
}

func TestRun_SynthesisDisabled(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock, WithSynthesizer(nil))

	result, err := orch.Run(testutil.TestContext(t), debateRequest())
	require.NoError(t, err)
	assert.False(t, result.SynthesisAvailable)
	assert.Equal(t, 4, mock.CallCount(), "no synthesis call when disabled")
}

func TestRun_InvalidRequest(t *testing.T) {
	mock := testutil.NewMockCompletion()
	orch := New(mock)

	req := debateRequest()
	req.Participants = req.Participants[:1]
	result, err := orch.Run(testutil.TestContext(t), req)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
	assert.Zero(t, mock.CallCount())
}

func TestRun_IncompletePersonaMapRejected(t *testing.T) {
	mock := testutil.NewMockCompletion()
	orch := New(mock)

	req := debateRequest()
	req.Personas = map[string]string{"backend-a": "an optimist"}
	result, err := orch.Run(testutil.TestContext(t), req)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
	assert.Zero(t, mock.CallCount())
}

func TestRunSession_UsesCallerSessionID(t *testing.T) {
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	result, err := orch.RunSession(testutil.TestContext(t), "session-fixed-id", debateRequest())
	require.NoError(t, err)
	assert.Equal(t, "session-fixed-id", result.SessionID)
}

func TestRun_ConsensusRoundRobin(t *testing.T) {
	req := types.DialogueRequest{
		Topic: "How should the team prioritize the platform roadmap?",
		Mode:  types.ModeConsensus,
		Participants: []types.Participant{
			{ID: "panelist-a"},
			{ID: "panelist-b"},
			{ID: "panelist-c"},
		},
		MaxTurns: 7,
	}
	mock := testutil.NewMockCompletion().WithContent(fiftyWords)
	orch := New(mock)

	result, err := orch.Run(testutil.TestContext(t), req)
	require.NoError(t, err)

	require.Len(t, result.Turns, 7)
	order := []string{"panelist-a", "panelist-b", "panelist-c"}
	for i, turn := range result.Turns {
		assert.Equal(t, order[i%3], turn.SpeakerID)
	}
}
