// Package llm defines the completion-service layer: a uniform Provider
// contract over heterogeneous LLM backends, a thread-safe registry, and the
// participant-routing Service consumed by the dialogue engine.
package llm

import (
	"context"
	"time"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// CompletionRequest carries one prompt to a backend together with its
// sampling parameters.
type CompletionRequest struct {
	TraceID     string            `json:"trace_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Model       string            `json:"model"`
	Messages    []types.Message   `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	TopP        float64           `json:"top_p,omitempty"`
	Stop        []string          `json:"stop,omitempty"`
	Timeout     time.Duration     `json:"timeout,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompletionUsage reports token consumption for a single call.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// CompletionResponse is the full backend answer to one request.
type CompletionResponse struct {
	ID           string          `json:"id,omitempty"`
	Provider     string          `json:"provider,omitempty"`
	Model        string          `json:"model"`
	Content      string          `json:"content"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        CompletionUsage `json:"usage,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
}

// HealthStatus reports the outcome of a provider health probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider adapts one LLM backend to the engine. Implementations must be
// safe for concurrent use: many sessions call the same provider at once.
type Provider interface {
	// Completion issues a synchronous chat request and returns the full
	// response. Errors are *types.Error values carrying a code and a
	// retryable flag.
	Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck performs a lightweight liveness probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider's unique identifier.
	Name() string
}
