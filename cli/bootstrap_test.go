package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/config"
)

func testConfig() config.Config {
	return config.Config{
		MetadataBaseDir: "/var/lib/fedsql/metadata",
		ResultTmpDir:    "/var/lib/fedsql/results",
		ResultSetExpiry: 30,
		Connectors: []config.ConnectorConfig{
			{Name: "csv", Class: "file", Type: "csv", Props: map[string]string{"base_dir": "/data/csv"}},
		},
	}
}

func TestSplitEndpointKey(t *testing.T) {
	src, field, ok := splitEndpointKey("endpoint.customers.url")
	require.True(t, ok)
	require.Equal(t, "customers", src)
	require.Equal(t, "url", field)

	_, _, ok = splitEndpointKey("base_dir")
	require.False(t, ok)
}

func TestEndpointMappingsBuildsPerSrcTable(t *testing.T) {
	props := map[string]string{
		"endpoint.customers.url":         "https://api.example.com/customers",
		"endpoint.customers.result_path": "$.data",
		"endpoint.orders.url":            "https://api.example.com/orders",
		"unrelated":                      "ignored",
	}
	mappings := endpointMappings(props)
	require.Len(t, mappings, 2)
	require.Equal(t, "https://api.example.com/customers", mappings["customers"].URL)
	require.Equal(t, "$.data", mappings["customers"].ResultPath)
	require.Equal(t, "https://api.example.com/orders", mappings["orders"].URL)
}

func TestBuildRegistryRejectsUnknownClass(t *testing.T) {
	cfg := testConfig()
	cfg.Connectors[0].Class = "quantum"
	_, err := buildRegistry(cfg, nil)
	require.Error(t, err)
}
