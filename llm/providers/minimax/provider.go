// Package minimax adapts the MiniMax API as a dialogue backend. MiniMax
// accepts the OpenAI request shape but serves it from a nonstandard path,
// /v1/text/chatcompletion_v2.
package minimax

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the MiniMax backend.
type Config struct {
	// APIKey is the MiniMax API key.
	APIKey string

	// BaseURL defaults to https://api.minimax.io.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the MiniMax provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.minimax.io"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "minimax",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "abab6.5s-chat",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/v1/text/chatcompletion_v2",
	}, logger)
}
