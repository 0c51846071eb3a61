package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/metadata"
)

type stubEndpoints struct {
	endpoints map[string]metadata.EndpointSpec
	models    map[string]metadata.ModelSpec
}

func (s *stubEndpoints) Endpoint(_ context.Context, name string) (metadata.EndpointSpec, error) {
	ep, ok := s.endpoints[name]
	if !ok {
		return metadata.EndpointSpec{}, errNotFound(name)
	}
	return ep, nil
}

func (s *stubEndpoints) Model(_ context.Context, name string) (metadata.ModelSpec, error) {
	m, ok := s.models[name]
	if !ok {
		return metadata.ModelSpec{}, errNotFound(name)
	}
	return m, nil
}

type notFoundErr string

func (e notFoundErr) Error() string { return "not found: " + string(e) }
func errNotFound(name string) error { return notFoundErr(name) }

func TestExecuteResolvesEndpointToModelQuery(t *testing.T) {
	p := &PipelineExecutor{
		Registry: nil,
		Endpoints: &stubEndpoints{
			endpoints: map[string]metadata.EndpointSpec{"daily": {Name: "daily", Model: "m1"}},
			models:    map[string]metadata.ModelSpec{"m1": {Name: "m1", Query: "not valid sql"}},
		},
	}
	req := &Request{ID: "r1", Endpoint: "daily"}
	_, _, err := p.Execute(context.Background(), req)
	// Expect a parse-stage failure (proves the model's query text was the
	// one actually parsed), not an endpoint-resolution failure.
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}

func TestExecuteEndpointNotFound(t *testing.T) {
	p := &PipelineExecutor{Endpoints: &stubEndpoints{
		endpoints: map[string]metadata.EndpointSpec{},
		models:    map[string]metadata.ModelSpec{},
	}}
	req := &Request{ID: "r1", Endpoint: "missing"}
	_, _, err := p.Execute(context.Background(), req)
	require.Error(t, err)
}
