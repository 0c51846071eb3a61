package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataSourceLookupLowercasesKeys(t *testing.T) {
	store := NewMemStore()
	store.PutDataSource(DataSourceSpec{Name: "CSV", Class: "file", Type: "csv"})
	client, err := New(store, 0, nil)
	require.NoError(t, err)

	spec, err := client.DataSource(context.Background(), "CsV")
	require.NoError(t, err)
	require.Equal(t, "file", spec.Class)
}

func TestDataSourceCacheHitAvoidsStoreCall(t *testing.T) {
	store := NewMemStore()
	store.PutDataSource(DataSourceSpec{Name: "oracle", Class: "relational"})
	client, err := New(store, 0, nil)
	require.NoError(t, err)

	_, err = client.DataSource(context.Background(), "oracle")
	require.NoError(t, err)
	store.mu.Lock()
	delete(store.dataSources, "oracle")
	store.mu.Unlock()

	spec, err := client.DataSource(context.Background(), "oracle")
	require.NoError(t, err)
	require.Equal(t, "relational", spec.Class)
}

func TestUnknownModelIsNotFound(t *testing.T) {
	client, err := New(NewMemStore(), 0, nil)
	require.NoError(t, err)
	_, err = client.Model(context.Background(), "absent")
	require.Error(t, err)
}

func TestResultSetPathRoundTrip(t *testing.T) {
	store := NewMemStore()
	store.PutResultSet("REQ-1", "/tmp/req-1.json")
	client, err := New(store, 0, nil)
	require.NoError(t, err)

	path, err := client.ResultSetPath(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, "/tmp/req-1.json", path)
}

func TestLoadFromDirSeedsModelsAndEndpoints(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "models.json"), map[string]interface{}{
		"models": []map[string]string{{"name": "daily-sales", "query": "SELECT csv.x FROM csv.t csv"}},
	})
	writeJSON(t, filepath.Join(dir, "endpoints.json"), map[string]interface{}{
		"endpoints": []map[string]string{{"name": "sales", "model": "daily-sales"}},
	})

	store := NewMemStore()
	require.NoError(t, store.LoadFromDir(dir))
	client, err := New(store, 0, nil)
	require.NoError(t, err)

	ep, err := client.Endpoint(context.Background(), "SALES")
	require.NoError(t, err)
	require.Equal(t, "daily-sales", ep.Model)

	model, err := client.Model(context.Background(), ep.Model)
	require.NoError(t, err)
	require.Equal(t, "SELECT csv.x FROM csv.t csv", model.Query)
}

func TestLoadFromDirToleratesMissingFiles(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.LoadFromDir(t.TempDir()))
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
