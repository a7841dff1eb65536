package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.sessionsTotal)
	assert.NotNil(t, collector.sessionDuration)
	assert.NotNil(t, collector.activeSessions)
	assert.NotNil(t, collector.terminations)
	assert.NotNil(t, collector.turnsTotal)
	assert.NotNil(t, collector.tokensUsed)
}

func TestCollector_SessionLifecycle(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	// 开始两个会话
	collector.SessionStarted("ADVERSARIAL")
	collector.SessionStarted("ADVERSARIAL")
	assert.InDelta(t, 2.0, testutil.ToFloat64(collector.activeSessions.WithLabelValues("ADVERSARIAL")), 0.001)

	// 一个完成，一个退出
	collector.SessionCompleted("ADVERSARIAL", "COMPLETED", "max_turns_reached", 12*time.Second)
	collector.SessionEnded("ADVERSARIAL")
	collector.SessionEnded("ADVERSARIAL")

	assert.InDelta(t, 0.0, testutil.ToFloat64(collector.activeSessions.WithLabelValues("ADVERSARIAL")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(collector.sessionsTotal.WithLabelValues("ADVERSARIAL", "COMPLETED")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(collector.terminations.WithLabelValues("ADVERSARIAL", "max_turns_reached")), 0.001)
}

func TestCollector_SessionCompletedWithoutReason(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	// 中止的会话没有终止原因
	collector.SessionCompleted("CONSENSUS", "CANCELLED", "", 3*time.Second)

	assert.InDelta(t, 1.0, testutil.ToFloat64(collector.sessionsTotal.WithLabelValues("CONSENSUS", "CANCELLED")), 0.001)
	assert.Equal(t, 0, testutil.CollectAndCount(collector.terminations))
}

func TestCollector_TurnCompleted(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.TurnCompleted("ADVERSARIAL", "backend-a", 120, 800*time.Millisecond)
	collector.TurnCompleted("ADVERSARIAL", "backend-a", 80, 600*time.Millisecond)
	collector.TurnCompleted("ADVERSARIAL", "backend-b", 95, 700*time.Millisecond)

	assert.InDelta(t, 2.0, testutil.ToFloat64(collector.turnsTotal.WithLabelValues("ADVERSARIAL", "backend-a")), 0.001)
	assert.InDelta(t, 200.0, testutil.ToFloat64(collector.tokensUsed.WithLabelValues("ADVERSARIAL", "backend-a")), 0.001)
	assert.InDelta(t, 95.0, testutil.ToFloat64(collector.tokensUsed.WithLabelValues("ADVERSARIAL", "backend-b")), 0.001)
}

func TestCollector_ZeroTokensNotCounted(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.TurnCompleted("CONSENSUS", "backend-a", 0, 500*time.Millisecond)

	assert.InDelta(t, 1.0, testutil.ToFloat64(collector.turnsTotal.WithLabelValues("CONSENSUS", "backend-a")), 0.001)
	assert.Equal(t, 0, testutil.CollectAndCount(collector.tokensUsed))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.SessionStarted("ADVERSARIAL")
			collector.TurnCompleted("ADVERSARIAL", "backend-a", 50, 100*time.Millisecond)
			collector.SessionCompleted("ADVERSARIAL", "COMPLETED", "concession_detected", time.Second)
			collector.SessionEnded("ADVERSARIAL")
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.InDelta(t, 10.0, testutil.ToFloat64(collector.sessionsTotal.WithLabelValues("ADVERSARIAL", "COMPLETED")), 0.001)
	assert.InDelta(t, 500.0, testutil.ToFloat64(collector.tokensUsed.WithLabelValues("ADVERSARIAL", "backend-a")), 0.001)
	assert.InDelta(t, 0.0, testutil.ToFloat64(collector.activeSessions.WithLabelValues("ADVERSARIAL")), 0.001)
}
