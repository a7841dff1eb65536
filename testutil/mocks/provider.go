// Package mocks 提供对话后端的测试模拟实现。
//
// MockProvider 支持固定响应、逐轮脚本与错误注入场景，所有配置方法
// 可链式调用且并发安全。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dlorp/synapse-engine-sub010/llm"
)

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	name string

	// 响应配置
	response string
	script   []string
	err      error

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 行为控制
	delay          time.Duration
	failAfter      int // 前 N 次成功，之后返回 err（0 表示不启用）
	healthy        bool
	healthErr      error
	completionFunc func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

	// 调用记录
	calls []llm.CompletionRequest
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:             "mock",
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
		healthy:          true,
	}
}

// WithName 设置 Provider 名称
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithScript 设置逐次响应脚本。第 i 次调用返回第 i 条内容，
// 脚本耗尽后重复最后一条。
func (m *MockProvider) WithScript(responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = responses
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter 设置前 N 次调用成功，之后返回 WithError 配置的错误
func (m *MockProvider) WithFailAfter(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithHealth 设置健康检查结果
func (m *MockProvider) WithHealth(healthy bool, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	m.healthErr = err
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数，优先于其余配置
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Completion 按配置返回模拟响应并记录调用
func (m *MockProvider) Completion(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	n := len(m.calls)
	fn := m.completionFunc
	delay := m.delay
	err := m.err
	failAfter := m.failAfter
	content := m.response
	if len(m.script) > 0 {
		idx := n - 1
		if idx >= len(m.script) {
			idx = len(m.script) - 1
		}
		content = m.script[idx]
	}
	usage := llm.CompletionUsage{
		PromptTokens:     m.promptTokens,
		CompletionTokens: m.completionTokens,
		TotalTokens:      m.promptTokens + m.completionTokens,
	}
	name := m.name
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil && (failAfter == 0 || n > failAfter) {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &llm.CompletionResponse{
		ID:           "mock-" + uuid.NewString(),
		Provider:     name,
		Model:        model,
		Content:      content,
		FinishReason: "stop",
		Usage:        usage,
		CreatedAt:    time.Now(),
	}, nil
}

// HealthCheck 返回配置的健康状态
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthErr != nil {
		return nil, m.healthErr
	}
	return &llm.HealthStatus{Healthy: m.healthy, Latency: 10 * time.Millisecond}, nil
}

// Calls 返回已记录的调用副本
func (m *MockProvider) Calls() []llm.CompletionRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]llm.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回累计调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
