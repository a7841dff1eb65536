package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/types"
)

func TestCompletion_Success(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 验证 Anthropic 专有请求头
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(apiResponse{
			ID:    "msg_01",
			Type:  "message",
			Role:  "assistant",
			Model: "claude-3-5-sonnet-20241022",
			Content: []contentBlock{
				{Type: "text", Text: "第一段。"},
				{Type: "text", Text: "第二段。"},
			},
			StopReason: "end_turn",
			Usage:      &apiUsage{InputTokens: 30, OutputTokens: 12},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-ant-test", BaseURL: srv.URL, DefaultModel: "claude-3-5-sonnet-20241022"}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &llm.CompletionRequest{
		Messages: []types.Message{
			types.NewSystemMessage("你是正方辩手"),
			types.NewUserMessage("请陈述观点"),
		},
		MaxTokens:   512,
		Temperature: 0.5,
	})
	require.NoError(t, err)

	// system 消息提取到顶层字段，正文只保留 user/assistant
	assert.Equal(t, "你是正方辩手", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, 512, got.MaxTokens)

	// 文本块按序拼接，usage 合并输入输出
	assert.Equal(t, "第一段。第二段。", resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestCompletion_DefaultMaxTokens(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(apiResponse{
			ID:      "msg_02",
			Content: []contentBlock{{Type: "text", Text: "ok"}},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.CompletionRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, 4096, got.MaxTokens, "max_tokens 为必填，未指定时使用默认值")
	assert.Equal(t, "claude-3-5-sonnet-20241022", got.Model)
}

func TestCompletion_OverloadedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.CompletionRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err), "529 应映射为可重试的服务不可用")
	assert.True(t, types.IsRetryable(err))
}

func TestCompletion_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "bad", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.CompletionRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))

	terr, ok := types.AsError(err)
	require.True(t, ok)
	assert.Contains(t, terr.Message, "invalid x-api-key")
	assert.Contains(t, terr.Message, "authentication_error", "错误信息应包含 Anthropic 错误类型")
}

func TestConvertMessages(t *testing.T) {
	system, msgs := convertMessages([]types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("u1"),
		types.NewAssistantMessage("a1"),
		{Role: types.RoleUser, Content: ""}, // 空内容跳过
	})
	assert.Equal(t, "sys", system)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "u1", msgs[0].Content[0].Text)
}

func TestHealthCheck_Unreachable(t *testing.T) {
	p := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	hs, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, hs.Healthy)
}
