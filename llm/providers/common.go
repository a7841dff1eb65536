package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// MapHTTPError converts an HTTP error status from a backend API into a
// *types.Error with the matching code and retryable flag. Context-length
// failures are detected from the message body because most OpenAI-compatible
// backends report them as a plain 400.
func MapHTTPError(status int, msg, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrAuthentication, msg).
			WithHTTPStatus(status).WithProvider(provider)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	case http.StatusNotFound:
		return types.NewError(types.ErrModelNotFound, msg).
			WithHTTPStatus(status).WithProvider(provider)
	case http.StatusBadRequest:
		if isContextLengthMessage(msg) {
			return types.NewError(types.ErrContextTooLong, msg).
				WithHTTPStatus(status).WithProvider(provider)
		}
		return types.NewError(types.ErrInvalidRequest, msg).
			WithHTTPStatus(status).WithProvider(provider)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return types.NewError(types.ErrServiceUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	case 529: // Anthropic overloaded_error
		return types.NewError(types.ErrServiceUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	default:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(provider)
	}
}

func isContextLengthMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "context length") ||
		strings.Contains(m, "maximum context") ||
		strings.Contains(m, "context window") ||
		strings.Contains(m, "prompt is too long")
}

// TransportError wraps a client-side transport failure (connection refused,
// DNS, TLS) as a retryable SERVICE_UNAVAILABLE error.
func TransportError(err error, provider string) *types.Error {
	return types.WrapError(types.ErrServiceUnavailable, "backend unreachable", err).
		WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(provider)
}

// DecodeError wraps a malformed response body as a retryable UPSTREAM_ERROR.
func DecodeError(err error, provider string) *types.Error {
	return types.WrapError(types.ErrUpstreamError, "malformed backend response", err).
		WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(provider)
}

// errorEnvelope matches the OpenAI-style error body:
//
//	{"error": {"message": "...", "type": "...", "code": "..."}}
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ReadErrorMessage extracts a human-readable message from an error response
// body, falling back to the raw body when it is not the standard envelope.
func ReadErrorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 8<<10))
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// OpenAICompatMessage is one chat message in the OpenAI wire format.
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// OpenAICompatRequest is the request body for /v1/chat/completions.
type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float64               `json:"temperature,omitempty"`
	TopP        float64               `json:"top_p,omitempty"`
	Stop        []string              `json:"stop,omitempty"`
}

// OpenAICompatChoice is one generated candidate in the response.
type OpenAICompatChoice struct {
	Index        int                 `json:"index"`
	Message      OpenAICompatMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

// OpenAICompatUsage mirrors the usage block of the response.
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse is the response body for /v1/chat/completions.
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   OpenAICompatUsage    `json:"usage"`
}

// ConvertMessages maps engine messages onto the OpenAI wire format.
func ConvertMessages(msgs []types.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, OpenAICompatMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return out
}

// ToCompletionResponse converts an OpenAI-compatible response into the engine
// response, taking the first choice.
func ToCompletionResponse(oa OpenAICompatResponse, provider string) *llm.CompletionResponse {
	resp := &llm.CompletionResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Usage: llm.CompletionUsage{
			PromptTokens:     oa.Usage.PromptTokens,
			CompletionTokens: oa.Usage.CompletionTokens,
			TotalTokens:      oa.Usage.TotalTokens,
		},
	}
	if len(oa.Choices) > 0 {
		resp.Content = oa.Choices[0].Message.Content
		resp.FinishReason = oa.Choices[0].FinishReason
	}
	if oa.Created != 0 {
		resp.CreatedAt = time.Unix(oa.Created, 0)
	}
	return resp
}

// ChooseModel picks the first non-empty of the requested, the configured
// default, and the provider fallback model.
func ChooseModel(requested, defaultModel, fallback string) string {
	if requested != "" {
		return requested
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}

// BearerTokenHeaders sets the default Authorization and Content-Type headers.
func BearerTokenHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}
