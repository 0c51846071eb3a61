package engine

import (
	"context"

	"github.com/pbnjay/memory"
	"golang.org/x/sync/errgroup"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
)

// ConnectorResolver binds a resource's data source name to the connector
// implementation and connection constants the registry holds.
type ConnectorResolver interface {
	Resolve(resource planner.ResourcePlan) (conn connector.Connector, props, constants map[string]string, err error)
}

// lowMemoryCeiling is the floor of free system memory below which fetch
// reports LowMemory in its FetchStats instead of silently running out;
// the engine still holds both join sides in memory either way (spec
// §4.6.1's accepted limitation), but a caller wiring telemetry can surface
// this threshold as a signal to force a smaller per-request deadline.
const lowMemoryCeiling = 256 * 1024 * 1024

// fetchResult pairs one resource's materialized rows with its resolved
// plan entry.
type fetchResult struct {
	plan planner.ResourcePlan
	set  RowSet
}

// FetchStats reports ambient conditions the engine observed while
// materializing sources, for the telemetry observation hook.
type FetchStats struct {
	LowMemory bool // free system memory was below lowMemoryCeiling at fetch start
}

// fetchAll runs prepare+stream for every resource in p.Resources. When
// there are exactly two (a base SELECT resource plus one JOIN resource)
// they are fetched concurrently via errgroup, matching spec §5's note
// that awaiting a row from a source stream is a suspension point with no
// shared mutable state between distinct requests.
func fetchAll(ctx context.Context, p *planner.Plan, resolver ConnectorResolver) ([]fetchResult, FetchStats, error) {
	stats := FetchStats{LowMemory: memory.FreeMemory() < lowMemoryCeiling}
	results := make([]fetchResult, len(p.Resources))
	g, gctx := errgroup.WithContext(ctx)
	for i, rp := range p.Resources {
		i, rp := i, rp
		g.Go(func() error {
			set, err := fetchOne(gctx, rp, resolver)
			if err != nil {
				return qerr.WithStage("fetch", err)
			}
			results[i] = fetchResult{plan: rp, set: set}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, FetchStats{}, err
	}
	return results, stats, nil
}

func fetchOne(ctx context.Context, rp planner.ResourcePlan, resolver ConnectorResolver) (RowSet, error) {
	conn, props, constants, err := resolver.Resolve(rp)
	if err != nil {
		return RowSet{}, err
	}
	handle, err := conn.Connect(ctx, props, constants)
	if err != nil {
		return RowSet{}, qerr.E(qerr.ConnectError, err)
	}
	defer handle.Close()

	spec := connector.FetchSpec{
		DataSource: rp.Resource.DataSource,
		Src:        rp.Resource.Src,
		Alias:      rp.Alias,
		Attributes: rp.Attributes,
	}
	resultHandle, err := conn.Prepare(ctx, handle, spec)
	if err != nil {
		return RowSet{}, qerr.E(qerr.ConnectError, err)
	}
	iter, err := conn.Stream(ctx, resultHandle)
	if err != nil {
		return RowSet{}, qerr.E(qerr.FetchError, err)
	}
	defer iter.Close()

	var rows []Row
	for {
		item, ok := iter.Next(ctx)
		if !ok {
			break
		}
		if item.Err != nil {
			return RowSet{}, qerr.E(qerr.FetchError, item.Err)
		}
		rows = append(rows, Row{Cells: item.Row.Cells})
	}
	return RowSet{Cols: newColumnIndex(resultHandle.Columns()), Rows: rows}, nil
}
