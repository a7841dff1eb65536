package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/cache"
	"github.com/dlorp/synapse-engine-sub010/llm/observability"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// Synthesizer 在会话正常完成后生成中立综述。
// 综述输入确定（完整转写 + 低温度），是引擎里唯一值得缓存的补全调用。
type Synthesizer struct {
	svc    CompletionService
	cache  cache.SynthesisCache
	obs    *observability.Metrics
	logger *zap.Logger

	backendID   string
	maxTokens   int
	temperature float64
}

// SynthesizerOption 配置 Synthesizer
type SynthesizerOption func(*Synthesizer)

// WithSynthesisCache 启用综述缓存
func WithSynthesisCache(c cache.SynthesisCache) SynthesizerOption {
	return func(s *Synthesizer) { s.cache = c }
}

// WithSynthesisBackend 指定执行综述的参与者后端。
// 未指定时使用会话的第一个参与者。
func WithSynthesisBackend(participantID string) SynthesizerOption {
	return func(s *Synthesizer) { s.backendID = participantID }
}

// WithSynthesisMaxTokens 设置综述的 token 上限
func WithSynthesisMaxTokens(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithSynthesisTemperature 设置综述温度。默认 0.3，保持输出稳定中立。
func WithSynthesisTemperature(t float64) SynthesizerOption {
	return func(s *Synthesizer) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithSynthesisObservability 接入指标采集
func WithSynthesisObservability(obs *observability.Metrics) SynthesizerOption {
	return func(s *Synthesizer) { s.obs = obs }
}

// WithSynthesisLogger 设置日志器
func WithSynthesisLogger(logger *zap.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynthesizer 创建综述生成器
func NewSynthesizer(svc CompletionService, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		svc:         svc,
		maxTokens:   1024,
		temperature: 0.3,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "synthesizer"))
	return s
}

// Synthesize 为已完成的会话生成综述，返回综述文本与消耗的 token 数。
// 失败返回 SYNTHESIS_UNAVAILABLE，由调用方降级处理，不改变会话状态。
func (s *Synthesizer) Synthesize(ctx context.Context, session *types.DialogueSession) (string, int, error) {
	if session == nil || len(session.Transcript) == 0 {
		return "", 0, types.NewSynthesisUnavailableError(errors.New("no transcript to synthesize"))
	}

	backend := s.backendID
	if backend == "" {
		backend = session.Participants[0].ID
	}

	key := cache.Key(session.Topic, session.Mode, backend, session.Transcript)
	if s.cache != nil {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			if s.obs != nil {
				s.obs.RecordCacheHit(ctx, "multi")
			}
			s.logger.Debug("synthesis cache hit",
				zap.String("session_id", session.ID),
				zap.String("key", key))
			return entry.Synthesis, 0, nil
		}
		if s.obs != nil {
			s.obs.RecordCacheMiss(ctx)
		}
	}

	prompt := synthesisPrompt(session)
	res, err := s.svc.Complete(ctx, backend, prompt, s.maxTokens, s.temperature)
	if err != nil {
		return "", 0, types.NewSynthesisUnavailableError(err)
	}
	if strings.TrimSpace(res.Content) == "" {
		return "", 0, types.NewSynthesisUnavailableError(errors.New("backend returned an empty synthesis"))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &cache.Entry{
			Synthesis:  res.Content,
			Model:      res.Model,
			TokensUsed: res.TokensUsed,
		}); err != nil {
			// 缓存写失败只降级，不影响综述结果
			s.logger.Warn("synthesis cache write failed", zap.Error(err))
		}
	}

	s.logger.Debug("synthesis generated",
		zap.String("session_id", session.ID),
		zap.Int("tokens", res.TokensUsed))
	return res.Content, res.TokensUsed, nil
}

// synthesisPrompt 构造综述提示词：完整转写 + 中立总结指令
func synthesisPrompt(session *types.DialogueSession) string {
	var b strings.Builder

	b.WriteString("You are a neutral moderator. The dialogue below has concluded.\n\n")
	b.WriteString("Topic: ")
	b.WriteString(session.Topic)
	b.WriteString("\n\nTranscript:\n")
	for _, turn := range session.Transcript {
		fmt.Fprintf(&b, "[Turn %d] %s: %s\n", turn.TurnNumber, speakerLabel(turn), turn.Content)
	}

	b.WriteString("\nWrite a balanced, neutral synthesis of the dialogue:\n")
	b.WriteString("1. Identify the strongest points made by each side.\n")
	b.WriteString("2. Note any explicit concessions.\n")
	if session.Mode == types.ModeAdversarial {
		b.WriteString("3. If one side argued more convincingly overall, say which one and why.\n")
	} else {
		b.WriteString("3. State the main areas of agreement and the open disagreements.\n")
	}
	b.WriteString("Do not introduce new arguments of your own.")

	return b.String()
}
