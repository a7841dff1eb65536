package dialogue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// Outcome pairs a finished session's result with its terminal error.
type Outcome struct {
	Result *types.DialogueResult
	Err    error
}

// Manager runs sessions concurrently with a bounded degree of parallelism
// and tracks in-flight sessions so callers can cancel them by ID. Sessions
// share no mutable state; the only coordination point is the concurrency cap.
type Manager struct {
	orch   *Orchestrator
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewManager wraps an orchestrator with a concurrency cap. A cap of zero or
// less means unbounded.
func NewManager(orch *Orchestrator, maxConcurrent int64, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		orch:   orch,
		logger: logger.With(zap.String("component", "session_manager")),
		active: make(map[string]context.CancelFunc),
	}
	if maxConcurrent > 0 {
		m.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return m
}

// Run executes a session synchronously and returns its terminal result.
func (m *Manager) Run(ctx context.Context, req types.DialogueRequest) (*types.DialogueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.run(ctx, uuid.New().String(), req)
}

// RunAsync starts a session in the background and returns its ID along with
// a buffered channel delivering the single terminal outcome. The caller's
// context governs the session; Cancel aborts it independently.
func (m *Manager) RunAsync(ctx context.Context, req types.DialogueRequest) (string, <-chan Outcome, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}
	sessionID := uuid.New().String()
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		result, err := m.run(ctx, sessionID, req)
		out <- Outcome{Result: result, Err: err}
	}()
	return sessionID, out, nil
}

// run registers the session as cancellable before waiting on the concurrency
// cap, so queued sessions can be aborted too.
func (m *Manager) run(ctx context.Context, sessionID string, req types.DialogueRequest) (*types.DialogueResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	m.active[sessionID] = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.active, sessionID)
		m.mu.Unlock()
	}()

	if m.sem != nil {
		if err := m.sem.Acquire(runCtx, 1); err != nil {
			return nil, types.NewCancellationError()
		}
		defer m.sem.Release(1)
	}

	return m.orch.RunSession(runCtx, sessionID, req)
}

// Cancel aborts an in-flight session. Unknown IDs, including sessions that
// already finished, return SESSION_NOT_FOUND.
func (m *Manager) Cancel(sessionID string) error {
	m.mu.Lock()
	cancel, ok := m.active[sessionID]
	m.mu.Unlock()
	if !ok {
		return types.NewError(types.ErrSessionNotFound,
			fmt.Sprintf("no active session %q", sessionID))
	}
	cancel()
	m.logger.Info("session cancel requested", zap.String("session_id", sessionID))
	return nil
}

// Active returns the IDs of sessions currently in flight, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}
