package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/fedsql/fedsql/engine"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
	"github.com/fedsql/fedsql/telemetry"
)

// Executor runs one request's query plan to a Result. The manager calls it
// from a spawned background goroutine per submitted request. It returns
// the plan's step trail even when execution fails after planning, so such
// a request can still answer get_query_plan; a request whose parsing or
// planning failed has no steps.
type Executor interface {
	Execute(ctx context.Context, req *Request) (engine.Result, []planner.PlanStep, error)
}

// Manager tracks every submitted request's metadata in memory, runs its
// pipeline in the background, and periodically expires completed results.
// In-progress, completed and failed counts are kept in go.uber.org/atomic
// counters, updated without taking the request-table lock; no method
// exposes them.
type Manager struct {
	mu       sync.RWMutex
	requests map[string]*Request

	spillDir string
	expiry   time.Duration
	deadline time.Duration
	executor Executor
	logger   *zap.Logger
	hook     telemetry.Hook

	inProgress atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
}

// NewManager constructs a Manager and purges any spill files left behind by
// a prior process, since no request in this process's table can reference
// them (spec §4.7's startup sweep). A nil hook wires telemetry.NopHook.
func NewManager(spillDir string, expiry, deadline time.Duration, executor Executor, logger *zap.Logger, hook telemetry.Hook) (*Manager, error) {
	if hook == nil {
		hook = telemetry.NopHook{}
	}
	m := &Manager{
		requests: map[string]*Request{},
		spillDir: spillDir,
		expiry:   expiry,
		deadline: deadline,
		executor: executor,
		logger:   logger,
		hook:     hook,
	}
	if err := m.sweepResidualSpillFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) sweepResidualSpillFiles() error {
	entries, err := os.ReadDir(m.spillDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(m.spillDir, e.Name())
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			m.logger.Warn("failed to remove residual spill file", zap.String("path", path), zap.Error(rerr))
		}
	}
	return nil
}

// Submit assigns a fresh request id, records it IN_PROGRESS, and spawns the
// pipeline in the background, returning the id immediately (spec §4.7).
func (m *Manager) Submit(query, model, endpoint, username string) string {
	req := &Request{
		ID:        newRequestID(),
		Status:    InProgress,
		StartTime: time.Now(),
		Model:     model,
		Endpoint:  endpoint,
		Query:     query,
		Username:  username,
	}
	m.mu.Lock()
	m.requests[req.ID] = req
	m.mu.Unlock()
	m.inProgress.Inc()
	m.hook.RequestSubmitted(req.ID)

	go m.run(req)
	return req.ID
}

func (m *Manager) run(req *Request) {
	ctx := context.Background()
	if m.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
		defer cancel()
	}
	logger := m.logger.With(zap.String("request_id", req.ID))

	res, steps, err := m.executor.Execute(ctx, req)
	m.mu.Lock()
	req.Steps = steps
	m.mu.Unlock()
	if err != nil {
		stage := stageOf(err)
		logger.Warn("request failed", zap.Error(err), zap.String("stage", stage))
		m.finish(req, Failed, "", err.Error())
		m.hook.RequestFailed(req.ID, stage, time.Since(req.StartTime))
		return
	}

	if err := engine.Spill(m.spillDir, req.ID, res); err != nil {
		logger.Warn("spill write failed", zap.Error(err))
		m.finish(req, Failed, "", err.Error())
		m.hook.RequestFailed(req.ID, "spill", time.Since(req.StartTime))
		return
	}
	path := filepath.Join(m.spillDir, req.ID+".json")
	m.finish(req, Completed, path, "")
	m.hook.RequestCompleted(req.ID, time.Since(req.StartTime))
}

func stageOf(err error) string {
	if qe, ok := err.(*qerr.Error); ok {
		return qe.Stage
	}
	return ""
}

func (m *Manager) finish(req *Request, status Status, spillPath, errMsg string) {
	m.mu.Lock()
	req.Status = status
	req.EndTime = time.Now()
	req.SpillPath = spillPath
	req.Error = errMsg
	m.mu.Unlock()

	m.inProgress.Dec()
	if status == Completed {
		m.completed.Inc()
	} else {
		m.failed.Inc()
	}
}

// Poll returns a copy of the request's metadata, never its rows.
func (m *Manager) Poll(id string) (Request, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// GetQueryPlan returns the planner's step trail for a request (spec §6.1's
// get_query_plan). The trail is stored once the executor returns, whether
// or not the request succeeded; it is empty while the request is in
// progress and for a request whose parsing or planning failed.
func (m *Manager) GetQueryPlan(id string) ([]planner.PlanStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, qerr.E(qerr.NotFound, "unknown request id: "+id)
	}
	return req.Steps, nil
}

// GetResult returns the spill file's bytes iff the request is completed and
// unexpired.
func (m *Manager) GetResult(id string) ([]byte, error) {
	m.mu.RLock()
	req, ok := m.requests[id]
	m.mu.RUnlock()
	if !ok {
		return nil, qerr.E(qerr.NotFound, "unknown request id: "+id)
	}
	if req.Status != Completed || req.Expired {
		return nil, qerr.E(qerr.NotFound, "result not available for request: "+id)
	}
	return os.ReadFile(req.SpillPath)
}

// Sweep marks every completed request whose end_time is older than the
// configured expiry as expired, removing its spill file. Failed requests
// have no spill to reclaim and are left alone (spec §4.7).
func (m *Manager) Sweep() {
	cutoff := time.Now().Add(-m.expiry)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.Status != Completed || req.Expired {
			continue
		}
		if req.EndTime.After(cutoff) {
			continue
		}
		if req.SpillPath != "" {
			if err := os.Remove(req.SpillPath); err != nil && !os.IsNotExist(err) {
				m.logger.Warn("failed to remove expired spill file", zap.String("path", req.SpillPath), zap.Error(err))
			}
		}
		req.Expired = true
		req.SpillPath = ""
		req.Error = "result expired"
	}
}

// RunSweeper blocks, calling Sweep every interval, until ctx is canceled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

