// Package kimi adapts the Moonshot Kimi API as a dialogue backend. Moonshot
// speaks the OpenAI wire format under the standard /v1 layout.
package kimi

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the Kimi backend.
type Config struct {
	// APIKey is the Moonshot API key.
	APIKey string

	// BaseURL defaults to https://api.moonshot.cn.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the Kimi provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.cn"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "kimi",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "moonshot-v1-8k",
		Timeout:       cfg.Timeout,
	}, logger)
}
