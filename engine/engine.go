package engine

import (
	"context"

	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
)

// Run executes a planned query end to end: fetch every resource, merge a
// JOIN if one is present, filter, evaluate platform scalar functions,
// reduce aggregates, sort, limit, and project to the final result shape.
// It never spills to disk itself — callers (the lifecycle package) decide
// when and where to persist the Result.
func Run(ctx context.Context, p *planner.Plan, resolver ConnectorResolver) (Result, FetchStats, error) {
	fetched, stats, err := fetchAll(ctx, p, resolver)
	if err != nil {
		return Result{}, FetchStats{}, err
	}

	rs, err := mergeResources(fetched)
	if err != nil {
		return Result{}, stats, qerr.WithStage("join", err)
	}

	rs, err = applyWhere(rs, p.Where)
	if err != nil {
		return Result{}, stats, qerr.WithStage("filter", err)
	}

	rs, err = applyScalarFuncs(rs, p.ScalarPlatform)
	if err != nil {
		return Result{}, stats, qerr.WithStage("functions", err)
	}

	if p.Aggregation != nil {
		rs, err = runAggregation(rs, p.Aggregation)
		if err != nil {
			return Result{}, stats, qerr.WithStage("aggregate", err)
		}
	}

	rs, err = applyOrderBy(rs, p.OrderBy)
	if err != nil {
		return Result{}, stats, qerr.WithStage("order", err)
	}
	rs = applyLimit(rs, p.Limit)

	res, err := project(rs, p)
	if err != nil {
		return Result{}, stats, qerr.WithStage("project", err)
	}
	return res, stats, nil
}

// mergeResources combines the base resource's row set with the single JOIN
// resource's, if one was planned. With no JOIN, the base resource's row set
// passes through unchanged. The planner always puts the base (SELECT)
// resource first and the JOIN resource second, with Merge set on the JOIN
// resource's own plan entry.
func mergeResources(fetched []fetchResult) (RowSet, error) {
	switch len(fetched) {
	case 0:
		return RowSet{Cols: newColumnIndex(nil)}, nil
	case 1:
		return fetched[0].set, nil
	}
	base, other := fetched[0], fetched[1]
	if other.plan.Merge == nil {
		return RowSet{}, qerr.E(qerr.InternalError, "join resource missing merge spec")
	}
	return runJoin(base.plan.Alias, other.plan.Alias, base.set, other.set, other.plan.Merge.Type, other.plan.Merge.Clause)
}
