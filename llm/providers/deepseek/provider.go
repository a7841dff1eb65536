// Package deepseek adapts the DeepSeek API as a dialogue backend. DeepSeek
// speaks the OpenAI wire format; only the endpoint layout and the default
// model differ.
package deepseek

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the DeepSeek backend.
type Config struct {
	// APIKey is the DeepSeek API key.
	APIKey string

	// BaseURL defaults to https://api.deepseek.com.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the DeepSeek provider. DeepSeek serves chat completions at
// /chat/completions without the /v1 prefix.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "deepseek",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "deepseek-chat",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/chat/completions",
		HealthPath:    "/models",
	}, logger)
}
