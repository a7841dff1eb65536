// =============================================================================
// 🎭 Mock 补全后端
// =============================================================================
// 可编排的补全服务替身：按脚本返回内容、注入错误、模拟延迟，
// 并记录每次调用的入参供断言。满足 dialogue.CompletionService 契约。
//
// 使用方法:
//
//	backend := testutil.NewMockCompletion().
//		WithScript("opening statement", "first rebuttal").
//		WithErrorOn(3, types.NewError(types.ErrServiceUnavailable, "boom"))
// =============================================================================
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// CompletionCall 记录一次补全调用的入参
type CompletionCall struct {
	Number        int
	ParticipantID string
	Prompt        string
	MaxTokens     int
	Temperature   float64
}

// MockCompletion 按脚本应答的补全后端。并发安全。
type MockCompletion struct {
	mu             sync.Mutex
	defaultContent string
	perParticipant map[string]string
	script         []string
	scriptPos      int
	errOn          map[int]error
	errAll         error
	delay          time.Duration
	tokens         int
	onCall         func(call int)
	calls          []CompletionCall
}

// NewMockCompletion 创建默认应答的 Mock 后端
func NewMockCompletion() *MockCompletion {
	return &MockCompletion{
		defaultContent: "This is a stub reply.",
		perParticipant: make(map[string]string),
		errOn:          make(map[int]error),
	}
}

// WithContent 设置所有调用的默认应答内容
func (m *MockCompletion) WithContent(content string) *MockCompletion {
	m.defaultContent = content
	return m
}

// WithParticipantContent 为指定参与者设置固定应答
func (m *MockCompletion) WithParticipantContent(participantID, content string) *MockCompletion {
	m.perParticipant[participantID] = content
	return m
}

// WithScript 设置按调用顺序逐条消费的应答脚本。
// 脚本耗尽后回落到参与者应答或默认应答。
func (m *MockCompletion) WithScript(contents ...string) *MockCompletion {
	m.script = append(m.script, contents...)
	return m
}

// WithErrorOn 在第 n 次调用（从 1 起始）注入错误
func (m *MockCompletion) WithErrorOn(call int, err error) *MockCompletion {
	m.errOn[call] = err
	return m
}

// WithError 所有调用都返回该错误
func (m *MockCompletion) WithError(err error) *MockCompletion {
	m.errAll = err
	return m
}

// WithDelay 每次调用前的等待时长，期间监听 context 取消
func (m *MockCompletion) WithDelay(d time.Duration) *MockCompletion {
	m.delay = d
	return m
}

// WithTokens 固定每次调用上报的 token 用量（默认按内容词数估算）
func (m *MockCompletion) WithTokens(n int) *MockCompletion {
	m.tokens = n
	return m
}

// WithOnCall 注册每次调用开始时的回调，用于测试中精确触发取消
func (m *MockCompletion) WithOnCall(fn func(call int)) *MockCompletion {
	m.onCall = fn
	return m
}

// Complete 实现补全契约。错误映射与真实服务层保持一致：
// 截止时间到期返回 TIMED_OUT，调用方取消返回 CANCELLED。
func (m *MockCompletion) Complete(ctx context.Context, participantID, prompt string, maxTokens int, temperature float64) (*llm.CompletionResult, error) {
	m.mu.Lock()
	n := len(m.calls) + 1
	m.calls = append(m.calls, CompletionCall{
		Number:        n,
		ParticipantID: participantID,
		Prompt:        prompt,
		MaxTokens:     maxTokens,
		Temperature:   temperature,
	})

	content := m.defaultContent
	if c, ok := m.perParticipant[participantID]; ok {
		content = c
	}
	if m.scriptPos < len(m.script) {
		content = m.script[m.scriptPos]
		m.scriptPos++
	}
	injected := m.errAll
	if e, ok := m.errOn[n]; ok {
		injected = e
	}
	delay := m.delay
	tokens := m.tokens
	onCall := m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, mapContextError(ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, mapContextError(err)
	}
	if injected != nil {
		return nil, injected
	}

	if tokens == 0 {
		tokens = len(strings.Fields(content))
	}
	return &llm.CompletionResult{
		Content:    content,
		TokensUsed: tokens,
		Provider:   "mock",
		Model:      "mock-model",
	}, nil
}

// Calls 返回已记录调用的副本
func (m *MockCompletion) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回累计调用次数
func (m *MockCompletion) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func mapContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError("mock")
	}
	return types.NewCancellationError()
}
