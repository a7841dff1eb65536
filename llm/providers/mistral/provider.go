// Package mistral adapts the Mistral AI API as a dialogue backend. Mistral
// speaks the OpenAI wire format under the standard /v1 layout.
package mistral

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the Mistral backend.
type Config struct {
	// APIKey is the Mistral API key.
	APIKey string

	// BaseURL defaults to https://api.mistral.ai.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the Mistral provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "mistral",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "mistral-small-latest",
		Timeout:       cfg.Timeout,
	}, logger)
}
