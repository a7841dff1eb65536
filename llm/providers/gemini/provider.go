// Package gemini adapts Google Gemini as a dialogue backend. Instead of the
// native generateContent protocol this goes through Google's OpenAI
// compatibility endpoint under /v1beta/openai, which covers everything a
// turn-based dialogue needs.
package gemini

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the Gemini backend.
type Config struct {
	// APIKey is the Google AI Studio API key.
	APIKey string

	// BaseURL defaults to https://generativelanguage.googleapis.com.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the Gemini provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "gemini",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "gemini-3-pro",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/v1beta/openai/chat/completions",
		HealthPath:    "/v1beta/openai/models",
	}, logger)
}
