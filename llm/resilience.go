package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/llm/circuitbreaker"
	"github.com/dlorp/synapse-engine-sub010/llm/retry"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// ResilienceConfig configures the decorator layers around a provider.
type ResilienceConfig struct {
	// RetryPolicy enables provider-level retries when non-nil. Leave nil
	// when the orchestrator owns the per-turn retry, otherwise a single
	// turn can multiply its call count.
	RetryPolicy *retry.Policy

	// Breaker configures the circuit breaker. Nil uses defaults.
	Breaker *circuitbreaker.Config
}

// ResilientProvider decorates a Provider with a circuit breaker and an
// optional retry policy. The breaker sits closest to the backend so retries
// observe open-circuit failures and stop immediately.
type ResilientProvider struct {
	inner   Provider
	retryer retry.Retryer
	breaker circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResilientProvider wraps a provider with resilience layers.
func NewResilientProvider(inner Provider, cfg *ResilienceConfig, logger *zap.Logger) *ResilientProvider {
	if cfg == nil {
		cfg = &ResilienceConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("component", "resilient_provider"),
		zap.String("provider", inner.Name()),
	)

	rp := &ResilientProvider{
		inner:   inner,
		breaker: circuitbreaker.NewCircuitBreaker(cfg.Breaker, logger),
		logger:  logger,
	}
	if cfg.RetryPolicy != nil {
		rp.retryer = retry.NewBackoffRetryer(cfg.RetryPolicy, logger)
	}
	return rp
}

// Completion executes the request through the breaker and, when configured,
// the retryer.
func (rp *ResilientProvider) Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	var resp *CompletionResponse

	call := func() error {
		err := rp.breaker.Call(ctx, func() error {
			var innerErr error
			resp, innerErr = rp.inner.Completion(ctx, req)
			return innerErr
		})
		return rp.mapBreakerError(err)
	}

	var err error
	if rp.retryer != nil {
		err = rp.retryer.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// mapBreakerError translates breaker sentinels into coded errors. Open
// circuits are not retryable: the breaker stays open regardless.
func (rp *ResilientProvider) mapBreakerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen),
		errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen):
		return types.WrapError(types.ErrServiceUnavailable, "provider circuit open", err).
			WithProvider(rp.inner.Name())
	}
	return err
}

// HealthCheck reports unhealthy immediately while the breaker is open,
// otherwise probes the wrapped provider.
func (rp *ResilientProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if rp.breaker.State() == circuitbreaker.StateOpen {
		return &HealthStatus{Healthy: false}, nil
	}
	return rp.inner.HealthCheck(ctx)
}

// Name returns the wrapped provider's name.
func (rp *ResilientProvider) Name() string {
	return rp.inner.Name()
}

// BreakerState exposes the breaker state for health surfaces.
func (rp *ResilientProvider) BreakerState() circuitbreaker.State {
	return rp.breaker.State()
}
