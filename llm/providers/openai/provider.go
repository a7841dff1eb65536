package openai

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config configures the OpenAI backend.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// BaseURL defaults to https://api.openai.com. Point it at a proxy or an
	// Azure-style gateway when needed.
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Organization is sent as the OpenAI-Organization header when set.
	Organization string

	// Timeout is the HTTP client timeout, 30s when zero.
	Timeout time.Duration
}

// New creates the OpenAI provider. OpenAI speaks its own compat format
// natively, so this is the shared base with OpenAI endpoints and the
// organization header on top.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	compat := openaicompat.Config{
		ProviderName:  "openai",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "gpt-4o-mini",
		Timeout:       cfg.Timeout,
	}
	if cfg.Organization != "" {
		org := cfg.Organization
		compat.BuildHeaders = func(req *http.Request, apiKey string) {
			providers.BearerTokenHeaders(req, apiKey)
			req.Header.Set("OpenAI-Organization", org)
		}
	}
	return openaicompat.New(compat, logger)
}
