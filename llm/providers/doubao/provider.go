// Package doubao 适配字节跳动豆包（火山方舟）后端。方舟网关暴露 OpenAI
// 兼容协议，补全端点挂在 /api/v3 下。
package doubao

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config 配置豆包后端。
type Config struct {
	// APIKey 为火山方舟 API 密钥。
	APIKey string

	// BaseURL 零值时默认 https://ark.cn-beijing.volces.com。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。方舟侧通常填推理接入点 ID。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 30s。
	Timeout time.Duration
}

// New 创建豆包 Provider。
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ark.cn-beijing.volces.com"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "doubao",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "Doubao-1.5-pro-32k",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/api/v3/chat/completions",
		HealthPath:    "/api/v3/models",
	}, logger)
}
