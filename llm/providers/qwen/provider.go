// Package qwen 适配阿里云通义千问后端。DashScope 提供 OpenAI 兼容模式，
// 补全端点挂在 /compatible-mode/v1 下，其余协议与 OpenAI 一致。
package qwen

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config 配置通义千问后端。
type Config struct {
	// APIKey 为 DashScope API 密钥。
	APIKey string

	// BaseURL 零值时默认 https://dashscope.aliyuncs.com。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 30s。
	Timeout time.Duration
}

// New 创建通义千问 Provider。
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "qwen",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "qwen-plus",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/compatible-mode/v1/chat/completions",
		HealthPath:    "/compatible-mode/v1/models",
	}, logger)
}
