// Package grok adapts the xAI Grok API as a dialogue backend. The xAI API
// follows the OpenAI wire format under the standard /v1 layout.
package grok

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the Grok backend.
type Config struct {
	// APIKey is the xAI API key.
	APIKey string

	// BaseURL defaults to https://api.x.ai.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the Grok provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "grok",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "grok-beta",
		Timeout:       cfg.Timeout,
	}, logger)
}
