package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fedsql/fedsql/pkg/fs"
)

// MemStore is a Store backed by in-memory maps, loaded once at startup from
// configuration (spec §6.4's connectors list). Result-set entries exist only
// where PutResultSet added them; the request lifecycle does not call it.
// Deployments needing a durable external store
// implement Store themselves; MemStore is the default for a single-process
// deployment.
type MemStore struct {
	mu          sync.RWMutex
	dataSources map[string]DataSourceSpec
	models      map[string]ModelSpec
	endpoints   map[string]EndpointSpec
	resultSets  map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		dataSources: map[string]DataSourceSpec{},
		models:      map[string]ModelSpec{},
		endpoints:   map[string]EndpointSpec{},
		resultSets:  map[string]string{},
	}
}

func (m *MemStore) PutDataSource(spec DataSourceSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataSources[strings.ToLower(spec.Name)] = spec
}

func (m *MemStore) PutModel(spec ModelSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[strings.ToLower(spec.Name)] = spec
}

func (m *MemStore) PutEndpoint(spec EndpointSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[strings.ToLower(spec.Name)] = spec
}

func (m *MemStore) PutResultSet(requestID, spillPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultSets[strings.ToLower(requestID)] = spillPath
}

func (m *MemStore) DataSource(_ context.Context, name string) (DataSourceSpec, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.dataSources[name]
	return spec, ok, nil
}

func (m *MemStore) Model(_ context.Context, name string) (ModelSpec, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.models[name]
	return spec, ok, nil
}

func (m *MemStore) Endpoint(_ context.Context, name string) (EndpointSpec, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.endpoints[name]
	return spec, ok, nil
}

func (m *MemStore) ResultSetPath(_ context.Context, requestID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.resultSets[requestID]
	return path, ok, nil
}

type modelsFile struct {
	Models []ModelSpec `json:"models"`
}

type endpointsFile struct {
	Endpoints []EndpointSpec `json:"endpoints"`
}

// LoadFromDir seeds models and endpoints from {dir}/models.json and
// {dir}/endpoints.json (spec §6.3's metadata_base_dir), the only way a
// single-process deployment gives submit_endpoint something to resolve
// since neither file has a registration operation of its own. A missing
// file is not an error: a deployment may run with data sources only.
func (m *MemStore) LoadFromDir(dir string) error {
	var mf modelsFile
	if err := loadOptionalJSON(filepath.Join(dir, "models.json"), &mf); err != nil {
		return err
	}
	for _, spec := range mf.Models {
		m.PutModel(spec)
	}
	var ef endpointsFile
	if err := loadOptionalJSON(filepath.Join(dir, "endpoints.json"), &ef); err != nil {
		return err
	}
	for _, spec := range ef.Endpoints {
		m.PutEndpoint(spec)
	}
	return nil
}

func loadOptionalJSON(path string, v interface{}) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fs.UnmarshalJSONFile(path, v)
}
