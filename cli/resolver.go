package cli

import (
	"context"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/metadata"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/registry"
)

// connectorResolver binds a planned resource to its connector (from the
// registry, resolved by data-source name per spec §4.2) and its
// connection properties (from the metadata façade, per spec §6.3). It
// implements engine.ConnectorResolver.
type connectorResolver struct {
	registry *registry.Registry
	metadata *metadata.Client
}

func (r *connectorResolver) Resolve(resource planner.ResourcePlan) (connector.Connector, map[string]string, map[string]string, error) {
	name := resource.Resource.DataSource
	entry, err := r.registry.ByName(name)
	if err != nil {
		return nil, nil, nil, err
	}
	spec, err := r.metadata.DataSource(context.Background(), name)
	if err != nil {
		return nil, nil, nil, err
	}
	return entry.Connector, spec.Props, entry.Constants, nil
}
