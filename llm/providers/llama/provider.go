// Package llama 通过第三方推理托管适配 Meta Llama 系列模型。Llama 本身
// 没有官方 API，这里按托管方选择 OpenAI 兼容网关。
package llama

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// 支持的托管方。
const (
	HostTogether   = "together"
	HostOpenRouter = "openrouter"
)

// Config 配置 Llama 后端。
type Config struct {
	// APIKey 为托管方的 API 密钥。
	APIKey string

	// Host 选择托管方，支持 together 与 openrouter，零值时默认 together。
	Host string

	// BaseURL 覆盖托管方的默认网关地址。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 30s。
	Timeout time.Duration
}

// New 创建 Llama Provider。Provider 名称带托管方后缀，便于在健康检查
// 输出里区分流量走向。
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	host := cfg.Host
	if host == "" {
		host = HostTogether
	}

	baseURL := cfg.BaseURL
	fallback := "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	if host == HostOpenRouter {
		fallback = "meta-llama/llama-3.3-70b-instruct"
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api"
		}
	}
	if baseURL == "" {
		baseURL = "https://api.together.xyz"
	}

	return openaicompat.New(openaicompat.Config{
		ProviderName:  "llama-" + host,
		APIKey:        cfg.APIKey,
		BaseURL:       baseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: fallback,
		Timeout:       cfg.Timeout,
	}, logger)
}
