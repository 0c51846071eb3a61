package lifecycle

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fedsql/fedsql/engine"
	"github.com/fedsql/fedsql/planner"
)

type stubExecutor struct {
	res   engine.Result
	steps []planner.PlanStep
	err   error
}

func (s *stubExecutor) Execute(ctx context.Context, req *Request) (engine.Result, []planner.PlanStep, error) {
	return s.res, s.steps, s.err
}

func newTestManager(t *testing.T, exec Executor) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(dir, time.Hour, 5*time.Second, exec, zap.NewNop(), nil)
	require.NoError(t, err)
	return m
}

func waitForTerminal(t *testing.T, m *Manager, id string) Request {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req, ok := m.Poll(id)
		require.True(t, ok)
		if req.Status != InProgress {
			return req
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request never left IN_PROGRESS")
	return Request{}
}

func TestSubmitCompletesAndSpills(t *testing.T) {
	exec := &stubExecutor{res: engine.Result{Columns: []string{"name"}, Rows: [][]interface{}{{"alice"}}}}
	m := newTestManager(t, exec)

	id := m.Submit("SELECT csv.name FROM csv.people csv", "", "", "tester")
	req := waitForTerminal(t, m, id)
	require.Equal(t, Completed, req.Status)
	require.FileExists(t, req.SpillPath)

	body, err := m.GetResult(id)
	require.NoError(t, err)
	var envelope struct {
		Data engine.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Equal(t, []string{"name"}, envelope.Data.Columns)
}

func TestSubmitFailurePath(t *testing.T) {
	exec := &stubExecutor{err: os.ErrInvalid}
	m := newTestManager(t, exec)

	id := m.Submit("garbage", "", "", "tester")
	req := waitForTerminal(t, m, id)
	require.Equal(t, Failed, req.Status)
	require.Empty(t, req.SpillPath)
	require.NotEmpty(t, req.Error)
}

func TestGetQueryPlanReturnsStepsAfterCompletion(t *testing.T) {
	exec := &stubExecutor{
		res:   engine.Result{Columns: []string{"x"}},
		steps: []planner.PlanStep{{Stage: "pre-validate", Detail: "ok"}},
	}
	m := newTestManager(t, exec)

	id := m.Submit("SELECT csv.x FROM csv.t csv", "", "", "tester")
	waitForTerminal(t, m, id)

	steps, err := m.GetQueryPlan(id)
	require.NoError(t, err)
	require.Equal(t, []planner.PlanStep{{Stage: "pre-validate", Detail: "ok"}}, steps)
}

func TestGetResultNotFoundForUnknownID(t *testing.T) {
	m := newTestManager(t, &stubExecutor{})
	_, err := m.GetResult("does-not-exist")
	require.Error(t, err)
}

func TestSweepExpiresOldCompletedRequests(t *testing.T) {
	exec := &stubExecutor{res: engine.Result{Columns: []string{"x"}, Rows: nil}}
	m := newTestManager(t, exec)
	m.expiry = 10 * time.Millisecond

	id := m.Submit("SELECT csv.x FROM csv.t csv", "", "", "tester")
	req := waitForTerminal(t, m, id)
	require.Equal(t, Completed, req.Status)
	spillPath := req.SpillPath

	time.Sleep(20 * time.Millisecond)
	m.Sweep()

	polled, ok := m.Poll(id)
	require.True(t, ok)
	require.True(t, polled.Expired)
	require.Empty(t, polled.SpillPath)
	require.NoFileExists(t, spillPath)
}

func TestStartupSweepPurgesResidualSpillFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover.json"), []byte("{}"), 0o644))

	_, err := NewManager(dir, time.Hour, time.Second, &stubExecutor{}, zap.NewNop(), nil)
	require.NoError(t, err)

	require.NoFileExists(t, filepath.Join(dir, "leftover.json"))
}
