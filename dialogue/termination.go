package dialogue

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// 终止检测参数。窗口固定为最近四轮：两方对话中恰好覆盖双方各两次发言。
const (
	detectionWindow        = 4
	repetitionThreshold    = 0.6
	disengagementWordLimit = 20
)

// concessionPhrases 让步信号短语，匹配时在最新一轮的小写文本中查找子串。
var concessionPhrases = []string{
	"you're right",
	"i agree",
	"fair point",
	"i concede",
	"you've convinced me",
	"i accept your argument",
	"you make a valid point",
}

// DetectTermination 检查最近四轮是否出现提前终止信号，按优先级依次检测：
//
//  1. 让步：最新一轮包含任一让步短语
//  2. 重复僵局：四轮两两关键词 Jaccard 相似度的平均值超过阈值
//  3. 脱离僵局：最近两轮都短于 20 词
//
// 纯函数，只依赖最近四轮的文本内容。不足四轮时不触发。
func DetectTermination(transcript []types.DialogueTurn) (types.TerminationReason, bool) {
	if len(transcript) < detectionWindow {
		return "", false
	}
	window := transcript[len(transcript)-detectionWindow:]

	latest := strings.ToLower(window[detectionWindow-1].Content)
	for _, phrase := range concessionPhrases {
		if strings.Contains(latest, phrase) {
			return types.TerminationConcession, true
		}
	}

	if meanPairwiseSimilarity(window) > repetitionThreshold {
		return types.TerminationRepetition, true
	}

	if wordCount(window[detectionWindow-1].Content) < disengagementWordLimit &&
		wordCount(window[detectionWindow-2].Content) < disengagementWordLimit {
		return types.TerminationDisengagement, true
	}

	return "", false
}

// meanPairwiseSimilarity 计算窗口内全部 C(4,2)=6 个轮次对的 Jaccard
// 相似度均值。任一侧关键词集为空的对按相似度 0 计入，分母恒为 6。
func meanPairwiseSimilarity(window []types.DialogueTurn) float64 {
	sets := make([]map[string]struct{}, len(window))
	for i, turn := range window {
		sets[i] = keywordSet(turn.Content)
	}

	var total float64
	pairs := 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			pairs++
			total += jaccard(sets[i], sets[j])
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

// keywordSet 提取一轮文本的关键词集合：小写化后按非字母数字切分，
// 只保留长度超过 4 个字符的词。
func keywordSet(content string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) > 4 {
			set[w] = struct{}{}
		}
	}
	return set
}

// jaccard 返回两个关键词集合的交并比，空集一侧记 0。
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// wordCount 按空白切分统计词数
func wordCount(content string) int {
	return len(strings.Fields(content))
}
