package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
metadata_base_dir: /var/lib/fedsql/metadata
result_tmp_dir: /var/lib/fedsql/results
result_set_expiry: 30
spill_max_size: 10MB
connectors:
  - name: csv
    class: file
    type: csv
    props:
      base_dir: /data/csv
  - name: oracle
    class: relational
    type: oracle
    version: "19"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesClosedOptionSet(t *testing.T) {
	c, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "/var/lib/fedsql/metadata", c.MetadataBaseDir)
	require.Len(t, c.Connectors, 2)
	require.Equal(t, "csv", c.Connectors[0].Name)
	require.Equal(t, "/data/csv", c.Connectors[0].Props["base_dir"])
}

func TestExpiryDurationConvertsMinutes(t *testing.T) {
	c, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, int64(30), int64(c.ExpiryDuration().Minutes()))
}

func TestSpillMaxSizeBytesParsesUnits(t *testing.T) {
	c, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	b, err := c.SpillMaxSizeBytes()
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), b)
}

func TestLoadRejectsMissingMetadataBaseDir(t *testing.T) {
	_, err := Load(writeTemp(t, "result_tmp_dir: /tmp\nresult_set_expiry: 10\n"))
	require.Error(t, err)
}

func TestLoadRejectsIncompleteConnector(t *testing.T) {
	bad := `
metadata_base_dir: /md
result_tmp_dir: /tmp
result_set_expiry: 10
connectors:
  - name: csv
`
	_, err := Load(writeTemp(t, bad))
	require.Error(t, err)
}
