package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// 四段关键词互不重叠的长发言，构成不含任何终止信号的窗口。
var distinctTurnContents = []string{
	"Elephants wander across African savannah during annual migration, following ancient routes toward seasonal watering holes that sustain entire herds through drought months.",
	"Quantum processors exploit superposition phenomena, enabling parallel computation paths impossible for classical hardware, though decoherence remains challenging when scaling qubit counts upward significantly.",
	"Medieval cathedrals required generations of craftsmen, combining flying buttresses with stained glass engineering techniques passed down verbally between master builders over centuries.",
	"Deep ocean trenches harbor bizarre bioluminescent creatures adapted to crushing pressures, where submersible expeditions regularly discover previously unknown species thriving near hydrothermal vents.",
}

// 超过 20 词且不含让步短语的固定发言，四轮重复即触发重复僵局。
const repetitiveContent = "Serverless platforms reduce operational burden because managed infrastructure scales automatically without manual capacity tuning, which keeps the total ownership cost predictable for typical workloads."

func turnsOf(contents ...string) []types.DialogueTurn {
	turns := make([]types.DialogueTurn, len(contents))
	for i, content := range contents {
		role := types.RolePro
		if i%2 == 1 {
			role = types.RoleCon
		}
		turns[i] = types.DialogueTurn{TurnNumber: i + 1, Role: role, Content: content}
	}
	return turns
}

func TestDetectTermination_TooFewTurns(t *testing.T) {
	// 不足四轮时即使出现让步短语也不触发
	transcript := turnsOf(
		distinctTurnContents[0],
		distinctTurnContents[1],
		"You're right, I hadn't considered that.",
	)

	reason, done := DetectTermination(transcript)
	assert.False(t, done)
	assert.Empty(t, reason)
}

func TestDetectTermination_Concession(t *testing.T) {
	transcript := turnsOf(
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		"You're right, I hadn't considered that.",
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationConcession, reason)
}

func TestDetectTermination_ConcessionPhrases(t *testing.T) {
	phrases := []string{
		"you're right",
		"i agree",
		"fair point",
		"i concede",
		"you've convinced me",
		"i accept your argument",
		"you make a valid point",
	}

	for _, phrase := range phrases {
		t.Run(phrase, func(t *testing.T) {
			transcript := turnsOf(
				distinctTurnContents[0],
				distinctTurnContents[1],
				distinctTurnContents[2],
				"Honestly, "+phrase+" about the operational rollout risks here.",
			)

			reason, done := DetectTermination(transcript)
			require.True(t, done)
			assert.Equal(t, types.TerminationConcession, reason)
		})
	}
}

func TestDetectTermination_ConcessionCaseInsensitive(t *testing.T) {
	transcript := turnsOf(
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		"YOU'RE RIGHT, that changes my assessment of the tradeoff entirely.",
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationConcession, reason)
}

func TestDetectTermination_ConcessionOnlyInLatestTurn(t *testing.T) {
	// 让步短语出现在窗口中间而非最新一轮时不算让步
	transcript := turnsOf(
		distinctTurnContents[0],
		"You're right, I hadn't considered that.",
		distinctTurnContents[1],
		distinctTurnContents[2],
	)

	reason, done := DetectTermination(transcript)
	assert.False(t, done)
	assert.Empty(t, reason)
}

func TestDetectTermination_StalemateRepetition(t *testing.T) {
	transcript := turnsOf(
		repetitiveContent,
		repetitiveContent,
		repetitiveContent,
		repetitiveContent,
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationRepetition, reason)
}

func TestDetectTermination_DistinctTurnsNoSignal(t *testing.T) {
	transcript := turnsOf(distinctTurnContents...)

	reason, done := DetectTermination(transcript)
	assert.False(t, done)
	assert.Empty(t, reason)
}

func TestDetectTermination_EmptyKeywordSidesKeepDenominator(t *testing.T) {
	// 两轮完全重复 (相似度 1.0)，两轮只含短词 (关键词集为空)。
	// 空集对按 0 计入且分母恒为 6，均值 1/6 不足以判定重复僵局；
	// 若错误地跳过空集对，均值会变成 1.0 并抢先触发重复判定。
	transcript := turnsOf(
		repetitiveContent,
		repetitiveContent,
		"Ok fine.",
		"So be it.",
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationDisengagement, reason,
		"empty keyword pairs must stay in the denominator")
}

func TestDetectTermination_Disengagement(t *testing.T) {
	transcript := turnsOf(
		distinctTurnContents[0],
		distinctTurnContents[1],
		"Fine.",
		"Whatever you say.",
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationDisengagement, reason)
}

func TestDetectTermination_DisengagementNeedsBothShort(t *testing.T) {
	// 仅最新一轮偏短不构成脱离
	transcript := turnsOf(
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		"Fine.",
	)

	reason, done := DetectTermination(transcript)
	assert.False(t, done)
	assert.Empty(t, reason)
}

func TestDetectTermination_ConcessionBeatsRepetition(t *testing.T) {
	// 最新一轮同时满足让步与重复条件时，让步优先
	transcript := turnsOf(
		repetitiveContent,
		repetitiveContent,
		repetitiveContent,
		repetitiveContent+" Still, I agree with your framing.",
	)

	reason, done := DetectTermination(transcript)
	require.True(t, done)
	assert.Equal(t, types.TerminationConcession, reason)
}

func TestDetectTermination_WindowIsLastFour(t *testing.T) {
	// 窗口外的旧信号 (重复、让步) 必须被忽略
	transcript := turnsOf(
		repetitiveContent,
		"You're right, I hadn't considered that.",
		distinctTurnContents[0],
		distinctTurnContents[1],
		distinctTurnContents[2],
		distinctTurnContents[3],
	)

	reason, done := DetectTermination(transcript)
	assert.False(t, done)
	assert.Empty(t, reason)
}

func TestProperty_DetectorDependsOnlyOnLastFour(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(4, 10).Draw(rt, "turns")
		contents := make([]string, n)
		for i := range contents {
			contents[i] = rapid.StringMatching(`[A-Za-z ,.']{0,120}`).Draw(rt, "content")
		}

		full := turnsOf(contents...)
		window := turnsOf(contents[n-detectionWindow:]...)

		fullReason, fullDone := DetectTermination(full)
		windowReason, windowDone := DetectTermination(window)
		assert.Equal(t, windowDone, fullDone,
			"turns before the window must not change the outcome")
		assert.Equal(t, windowReason, fullReason)

		againReason, againDone := DetectTermination(full)
		assert.Equal(t, fullDone, againDone, "detection must be deterministic")
		assert.Equal(t, fullReason, againReason)
	})
}

func TestProperty_DetectorNeverFiresBelowWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, detectionWindow-1).Draw(rt, "turns")
		contents := make([]string, n)
		for i := range contents {
			contents[i] = rapid.StringMatching(`[A-Za-z ,.']{0,80}`).Draw(rt, "content")
		}

		reason, done := DetectTermination(turnsOf(contents...))
		assert.False(t, done)
		assert.Empty(t, reason)
	})
}
