// Package lifecycle runs a submitted query asynchronously and tracks its
// request record to completion, per spec §4.7. It owns request-id
// assignment, status transitions, spill-file bookkeeping, and the expiry
// sweep that reclaims completed results after a configured delay.
package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/fedsql/fedsql/planner"
)

// Status is a request's position in its IN_PROGRESS -> COMPLETED|FAILED
// lifecycle (spec §3.4). Transitions are monotonic: once COMPLETED or
// FAILED, a request never moves again.
type Status string

const (
	InProgress Status = "IN_PROGRESS"
	Completed  Status = "COMPLETED"
	Failed     Status = "FAILED"
)

// Request is one submitted query or endpoint invocation's metadata. Rows
// are never held here; completed output lives in the spill file at
// SpillPath.
type Request struct {
	ID        string
	Status    Status
	StartTime time.Time
	EndTime   time.Time
	Model     string
	Endpoint  string
	Query     string
	Username  string
	Error     string
	Expired   bool
	SpillPath string
	Steps     []planner.PlanStep
}

func newRequestID() string {
	return uuid.New().String()
}
