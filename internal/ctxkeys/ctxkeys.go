package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey    contextKey = "trace_id"
	sessionIDKey  contextKey = "session_id"
	turnNumberKey contextKey = "turn_number"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithSessionID 设置会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionID 获取会话 ID
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithTurnNumber 设置当前轮次（从 1 起始）
func WithTurnNumber(ctx context.Context, turn int) context.Context {
	return context.WithValue(ctx, turnNumberKey, turn)
}

// TurnNumber 获取当前轮次
func TurnNumber(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(turnNumberKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
