package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/internal/tlsutil"
	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/llm/providers"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// Provider 实现 Anthropic Messages API 的后端适配。
// 与 OpenAI 格式的主要差异：
// 1. 认证使用 x-api-key 请求头而非 Bearer Token
// 2. system 消息从 messages 数组提取，单独传递到 system 字段
// 3. max_tokens 为必填字段
// 4. content 为数组形式，文本分块返回
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// Config 配置 Anthropic 后端。
type Config struct {
	// APIKey 为 Anthropic API 密钥。
	APIKey string

	// BaseURL 零值时默认 https://api.anthropic.com。
	BaseURL string

	// DefaultModel 在请求未指定模型时使用。
	DefaultModel string

	// Timeout 为 HTTP 客户端超时，零值时默认 60s。
	Timeout time.Duration

	// Version 为 anthropic-version 请求头，零值时默认 2023-06-01。
	Version string
}

// New 创建 Anthropic Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Claude 响应可能较慢
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2023-06-01"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger,
	}
}

func (p *Provider) Name() string { return "anthropic" }

// Anthropic 的消息结构与 OpenAI 不同
type message struct {
	Role    string         `json:"role"` // user 或 assistant
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"` // text
	Text string `json:"text,omitempty"`
}

type apiRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"` // system 消息单独传递
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	StopSeq     []string  `json:"stop_sequences,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      *apiUsage      `json:"usage,omitempty"`
}

type apiErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	// Anthropic 使用 x-api-key 认证
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", p.cfg.Version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

// convertMessages 将引擎消息转换为 Anthropic 格式。
// system 消息提取到顶层 system 字段，其余按 user/assistant 传递。
func convertMessages(msgs []types.Message) (string, []message) {
	var system string
	out := make([]message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == types.RoleSystem {
			system = m.Content
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, message{
			Role:    string(m.Role),
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return system, out
}

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint("/v1/models"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrMsg(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("anthropic health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) Completion(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "completion request has no messages").
			WithProvider(p.Name())
	}

	system, msgs := convertMessages(req.Messages)
	body := apiRequest{
		Model:       chooseModel(req.Model, p.cfg.DefaultModel),
		Messages:    msgs,
		System:      system,
		MaxTokens:   chooseMaxTokens(req.MaxTokens),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		StopSeq:     req.Stop,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint("/v1/messages"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}
	return toCompletionResponse(ar, p.Name()), nil
}

// toCompletionResponse 拼接 content 数组中的文本块。
func toCompletionResponse(ar apiResponse, provider string) *llm.CompletionResponse {
	var sb strings.Builder
	for _, block := range ar.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	resp := &llm.CompletionResponse{
		ID:           ar.ID,
		Provider:     provider,
		Model:        ar.Model,
		Content:      sb.String(),
		FinishReason: ar.StopReason,
		CreatedAt:    time.Now(),
	}
	if ar.Usage != nil {
		resp.Usage = llm.CompletionUsage{
			PromptTokens:     ar.Usage.InputTokens,
			CompletionTokens: ar.Usage.OutputTokens,
			TotalTokens:      ar.Usage.InputTokens + ar.Usage.OutputTokens,
		}
	}
	return resp
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 8<<10))
	var errResp apiErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return strings.TrimSpace(string(data))
}

func chooseModel(requested, defaultModel string) string {
	if requested != "" {
		return requested
	}
	if defaultModel != "" {
		return defaultModel
	}
	return "claude-3-5-sonnet-20241022"
}

func chooseMaxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	// Anthropic 要求必须提供 max_tokens
	return 4096
}
