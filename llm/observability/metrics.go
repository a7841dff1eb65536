package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dlorp/synapse-engine-sub010/types"
)

const instrumentationName = "github.com/dlorp/synapse-engine-sub010/llm"

// Metrics 补全层指标收集器
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter

	// 计数器
	requestTotal   metric.Int64Counter
	tokenTotal     metric.Int64Counter
	errorTotal     metric.Int64Counter
	cacheHitTotal  metric.Int64Counter
	cacheMissTotal metric.Int64Counter

	// 直方图
	requestDuration metric.Float64Histogram

	// 活跃请求
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics 创建指标收集器
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	var err error

	m.requestTotal, err = m.meter.Int64Counter("completion.request.total",
		metric.WithDescription("Total number of completion requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.tokenTotal, err = m.meter.Int64Counter("completion.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = m.meter.Int64Counter("completion.error.total",
		metric.WithDescription("Total number of completion errors"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.cacheHitTotal, err = m.meter.Int64Counter("synthesis.cache.hit.total",
		metric.WithDescription("Total synthesis cache hits"),
		metric.WithUnit("{hit}"))
	if err != nil {
		return nil, err
	}

	m.cacheMissTotal, err = m.meter.Int64Counter("synthesis.cache.miss.total",
		metric.WithDescription("Total synthesis cache misses"),
		metric.WithUnit("{miss}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = m.meter.Float64Histogram("completion.request.duration",
		metric.WithDescription("Completion request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter("completion.request.active",
		metric.WithDescription("Number of in-flight completion requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// EndFunc 结束一次请求的追踪，记录结果与用量。
type EndFunc func(err error, totalTokens int)

// StartRequest 开始一次补全请求的追踪。返回的 EndFunc 必须恰好调用一次。
func (m *Metrics) StartRequest(ctx context.Context, provider, model string) (context.Context, EndFunc) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("model", model),
	}

	ctx, span := m.tracer.Start(ctx, "completion.request",
		trace.WithAttributes(attrs...))
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error, totalTokens int) {
		defer span.End()

		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
		m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.requestDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attrs...))

		if totalTokens > 0 {
			m.tokenTotal.Add(ctx, int64(totalTokens), metric.WithAttributes(attrs...))
			span.SetAttributes(attribute.Int("completion.tokens", totalTokens))
		}

		if err != nil {
			code := string(types.GetErrorCode(err))
			m.errorTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("model", model),
				attribute.String("error_code", code)))
			span.SetAttributes(attribute.String("error.code", code))
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// StartSession 开始一个对话会话 span。
func (m *Metrics) StartSession(ctx context.Context, sessionID string, mode string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "dialogue.session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.mode", mode)))
}

// StartTurn 开始一个对话轮次 span。
func (m *Metrics) StartTurn(ctx context.Context, turnNumber int, speakerID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "dialogue.turn",
		trace.WithAttributes(
			attribute.Int("turn.number", turnNumber),
			attribute.String("turn.speaker", speakerID)))
}

// RecordCacheHit 记录综述缓存命中
func (m *Metrics) RecordCacheHit(ctx context.Context, level string) {
	m.cacheHitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level)))
}

// RecordCacheMiss 记录综述缓存未命中
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	m.cacheMissTotal.Add(ctx, 1)
}

// Tracer 获取底层 Tracer
func (m *Metrics) Tracer() trace.Tracer {
	return m.tracer
}
