// Package glm 适配智谱 GLM 后端。开放平台暴露 OpenAI 兼容协议，
// 补全端点挂在 /api/paas/v4 下。
package glm

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config 配置 GLM 后端。
type Config struct {
	// APIKey 为智谱开放平台 API 密钥。
	APIKey string

	// BaseURL 零值时默认 https://open.bigmodel.cn。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 30s。
	Timeout time.Duration
}

// New 创建 GLM Provider。
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.bigmodel.cn"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "glm",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "glm-4-plus",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/api/paas/v4/chat/completions",
		HealthPath:    "/api/paas/v4/models",
	}, logger)
}
