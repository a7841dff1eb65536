// Package hunyuan 适配腾讯混元后端。混元的 OpenAI 兼容网关把 /v1 直接并入
// 域名，补全端点因此不再带版本前缀。
package hunyuan

import (
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
)

// Config 配置混元后端。
type Config struct {
	// APIKey 为混元 OpenAI 兼容网关密钥。
	APIKey string

	// BaseURL 零值时默认 https://api.hunyuan.cloud.tencent.com/v1。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 30s。
	Timeout time.Duration
}

// New 创建混元 Provider。
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.hunyuan.cloud.tencent.com/v1"
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  "hunyuan",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.DefaultModel,
		FallbackModel: "hunyuan-pro",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/chat/completions",
		HealthPath:    "/models",
	}, logger)
}
