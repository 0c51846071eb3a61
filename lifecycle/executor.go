package lifecycle

import (
	"context"

	"github.com/fedsql/fedsql/engine"
	"github.com/fedsql/fedsql/metadata"
	"github.com/fedsql/fedsql/parser"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
	"github.com/fedsql/fedsql/registry"
	"github.com/fedsql/fedsql/telemetry"
)

// EndpointResolver resolves submit_endpoint's indirection to query text:
// endpoint name -> model name -> query. metadata.Client satisfies this.
type EndpointResolver interface {
	Endpoint(ctx context.Context, name string) (metadata.EndpointSpec, error)
	Model(ctx context.Context, name string) (metadata.ModelSpec, error)
}

// PipelineExecutor wires the parser, planner, and execution engine into the
// Executor interface Manager drives. A request with Endpoint set resolves
// through Endpoints to its bound model's query text (spec §6.1's
// submit_endpoint); a request with Query set runs that text directly.
type PipelineExecutor struct {
	Registry  *registry.Registry
	Resolver  engine.ConnectorResolver
	Endpoints EndpointResolver
	Hook      telemetry.Hook // nil is valid; low-memory observations are simply dropped
}

// Execute returns the plan's step trail alongside the result, and also
// when the engine fails after planning succeeded, so Manager can serve
// get_query_plan for such a request. A request that fails to resolve,
// parse or plan returns no steps.
func (p *PipelineExecutor) Execute(ctx context.Context, req *Request) (engine.Result, []planner.PlanStep, error) {
	query := req.Query
	if req.Endpoint != "" {
		ep, err := p.Endpoints.Endpoint(ctx, req.Endpoint)
		if err != nil {
			return engine.Result{}, nil, qerr.WithStage("resolve-endpoint", err)
		}
		model, err := p.Endpoints.Model(ctx, ep.Model)
		if err != nil {
			return engine.Result{}, nil, qerr.WithStage("resolve-endpoint", err)
		}
		query = model.Query
	}
	segments, err := parser.Parse(query)
	if err != nil {
		return engine.Result{}, nil, qerr.WithStage("parse", qerr.E(qerr.ParseError, err))
	}
	plan, err := planner.BuildPlan(segments, p.Registry)
	if err != nil {
		return engine.Result{}, nil, err
	}
	res, stats, err := engine.Run(ctx, plan, p.Resolver)
	if err != nil {
		return engine.Result{}, plan.Steps, err
	}
	if stats.LowMemory && p.Hook != nil {
		p.Hook.LowMemoryObserved(req.ID)
	}
	return res, plan.Steps, nil
}
