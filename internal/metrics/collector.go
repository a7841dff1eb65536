// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 会话指标收集器，注册到默认 Prometheus registry
type Collector struct {
	// 会话指标
	sessionsTotal   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	activeSessions  *prometheus.GaugeVec
	terminations    *prometheus.CounterVec

	// 轮次指标
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	tokensUsed   *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 会话指标
	c.sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_sessions_total",
			Help:      "Total number of finished dialogue sessions",
		},
		[]string{"mode", "status"},
	)

	c.sessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialogue_session_duration_seconds",
			Help:      "Dialogue session duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	c.activeSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dialogue_sessions_active",
			Help:      "Number of dialogue sessions currently running",
		},
		[]string{"mode"},
	)

	c.terminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_terminations_total",
			Help:      "Total number of sessions by termination reason",
		},
		[]string{"mode", "reason"},
	)

	// 轮次指标
	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_turns_total",
			Help:      "Total number of completed dialogue turns",
		},
		[]string{"mode", "speaker"},
	)

	c.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialogue_turn_duration_seconds",
			Help:      "Single turn duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode", "speaker"},
	)

	c.tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_tokens_used_total",
			Help:      "Total tokens consumed across dialogue turns",
		},
		[]string{"mode", "speaker"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 会话指标记录
// =============================================================================

// SessionStarted 记录会话开始，活跃数加一
func (c *Collector) SessionStarted(mode string) {
	c.activeSessions.WithLabelValues(mode).Inc()
}

// SessionEnded 会话退出（无论终态），活跃数减一
func (c *Collector) SessionEnded(mode string) {
	c.activeSessions.WithLabelValues(mode).Dec()
}

// SessionCompleted 记录会话终态。reason 为空时不记终止原因。
func (c *Collector) SessionCompleted(mode, status, reason string, duration time.Duration) {
	c.sessionsTotal.WithLabelValues(mode, status).Inc()
	c.sessionDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if reason != "" {
		c.terminations.WithLabelValues(mode, reason).Inc()
	}
}

// =============================================================================
// 🔄 轮次指标记录
// =============================================================================

// TurnCompleted 记录一轮完成
func (c *Collector) TurnCompleted(mode, speaker string, tokens int, duration time.Duration) {
	c.turnsTotal.WithLabelValues(mode, speaker).Inc()
	c.turnDuration.WithLabelValues(mode, speaker).Observe(duration.Seconds())
	if tokens > 0 {
		c.tokensUsed.WithLabelValues(mode, speaker).Add(float64(tokens))
	}
}
