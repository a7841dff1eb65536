package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlorp/synapse-engine-sub010/llm/circuitbreaker"
	"github.com/dlorp/synapse-engine-sub010/llm/retry"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// flakyStub fails the first failN completion calls, then succeeds.
type flakyStub struct {
	mu       sync.Mutex
	failN    int
	calls    int
	healthN  int
	failWith error
}

func (f *flakyStub) Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return nil, f.failWith
	}
	return &CompletionResponse{Provider: "flaky", Content: "recovered"}, nil
}

func (f *flakyStub) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthN++
	return &HealthStatus{Healthy: true}, nil
}

func (f *flakyStub) Name() string { return "flaky" }

func (f *flakyStub) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func retryableFailure() error {
	return types.NewError(types.ErrServiceUnavailable, "backend hiccup").WithRetryable(true)
}

func TestResilientProvider_PassThrough(t *testing.T) {
	inner := &flakyStub{}
	rp := NewResilientProvider(inner, nil, nil)

	resp, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, "flaky", rp.Name())
	assert.Equal(t, circuitbreaker.StateClosed, rp.BreakerState())
}

func TestResilientProvider_BreakerOpensAfterThreshold(t *testing.T) {
	inner := &flakyStub{failN: 100, failWith: retryableFailure()}
	rp := NewResilientProvider(inner, &ResilienceConfig{
		Breaker: &circuitbreaker.Config{Threshold: 2, ResetTimeout: time.Hour},
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := rp.Completion(context.Background(), &CompletionRequest{})
		require.Error(t, err)
		assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err))
	}
	assert.Equal(t, circuitbreaker.StateOpen, rp.BreakerState())

	// 熔断后请求被直接拒绝，不再触达后端
	_, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "circuit open")
	assert.False(t, types.IsRetryable(err), "an open circuit is not worth retrying")
	assert.Equal(t, 2, inner.callCount())
}

func TestResilientProvider_HealthShortCircuitsWhenOpen(t *testing.T) {
	inner := &flakyStub{failN: 100, failWith: retryableFailure()}
	rp := NewResilientProvider(inner, &ResilienceConfig{
		Breaker: &circuitbreaker.Config{Threshold: 1, ResetTimeout: time.Hour},
	}, nil)

	_, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	require.Equal(t, circuitbreaker.StateOpen, rp.BreakerState())

	status, err := rp.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.Zero(t, inner.healthN, "open breaker must not probe the backend")
}

func TestResilientProvider_RetriesTransientFailure(t *testing.T) {
	inner := &flakyStub{failN: 1, failWith: retryableFailure()}
	rp := NewResilientProvider(inner, &ResilienceConfig{
		RetryPolicy: &retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, Jitter: false},
		Breaker:     &circuitbreaker.Config{Threshold: 10, ResetTimeout: time.Hour},
	}, nil)

	resp, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, inner.callCount(), "one failure plus one successful retry")
}

func TestResilientProvider_RetryStopsOnNonRetryable(t *testing.T) {
	inner := &flakyStub{failN: 100,
		failWith: types.NewError(types.ErrAuthentication, "bad key")}
	rp := NewResilientProvider(inner, &ResilienceConfig{
		RetryPolicy: &retry.Policy{MaxRetries: 3, InitialDelay: time.Millisecond, Jitter: false},
		Breaker:     &circuitbreaker.Config{Threshold: 10, ResetTimeout: time.Hour},
	}, nil)

	_, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))
	assert.Equal(t, 1, inner.callCount(), "non-retryable failures burn exactly one call")
}

func TestResilientProvider_BreakerRecoversThroughHalfOpen(t *testing.T) {
	inner := &flakyStub{failN: 1, failWith: retryableFailure()}
	rp := NewResilientProvider(inner, &ResilienceConfig{
		Breaker: &circuitbreaker.Config{
			Threshold:        1,
			ResetTimeout:     20 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	}, nil)

	_, err := rp.Completion(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	require.Equal(t, circuitbreaker.StateOpen, rp.BreakerState())

	// 经过 ResetTimeout 后进入半开，探测成功则闭合
	assert.Eventually(t, func() bool {
		resp, err := rp.Completion(context.Background(), &CompletionRequest{})
		return err == nil && resp.Content == "recovered"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, circuitbreaker.StateClosed, rp.BreakerState())
}
