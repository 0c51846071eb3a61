// Package config loads the closed option set of spec §6.4 from a YAML
// file, following the teacher's zqd.Config/yaml.v3 pattern. Byte-size
// options use alecthomas/units so "10MB"/"4GiB"-style values parse the
// way the CLI's own flags do.
package config

import (
	"os"
	"time"

	"github.com/alecthomas/units"
	"gopkg.in/yaml.v3"

	"github.com/fedsql/fedsql/qerr"
)

// ConnectorConfig describes one configured data source entry: its name,
// backend class/type/version, and connector-specific properties (host,
// base dir, endpoint URL, etc. — opaque to config itself).
type ConnectorConfig struct {
	Name    string            `yaml:"name"`
	Class   string            `yaml:"class"`
	Type    string            `yaml:"type"`
	Version string            `yaml:"version"`
	Props   map[string]string `yaml:"props"`
}

// Config is the closed option set spec §6.4 names plus two ambient keys,
// SpillMaxSize and LogFile: no other keys are read or consumed by the core.
type Config struct {
	MetadataBaseDir      string            `yaml:"metadata_base_dir"`
	ResultTmpDir         string            `yaml:"result_tmp_dir"`
	ResultSetExpiry      int               `yaml:"result_set_expiry"` // minutes
	Connectors           []ConnectorConfig `yaml:"connectors"`
	KerberosClientKeytab string            `yaml:"kerberos_client_keytab"`
	KerberosClientUID    string            `yaml:"kerberos_client_uid"`

	// SpillMaxSize is an ambient operability knob the core config surface
	// doesn't name in spec §6.4 but the teacher's CLI always exposes
	// alongside a result directory: a byte-size limit, parsed by
	// SpillMaxSizeBytes. The spill writer does not read or enforce it.
	SpillMaxSize string `yaml:"spill_max_size"`

	// LogFile is "stderr", "stdout", or a path to rotate via lumberjack.
	// Empty defaults to stderr.
	LogFile string `yaml:"log_file"`
}

// ExpiryDuration converts ResultSetExpiry minutes to a time.Duration.
func (c Config) ExpiryDuration() time.Duration {
	return time.Duration(c.ResultSetExpiry) * time.Minute
}

// SpillMaxSizeBytes parses SpillMaxSize ("10MB", "4GiB", ...), defaulting to
// 0 (no limit) when unset.
func (c Config) SpillMaxSizeBytes() (int64, error) {
	if c.SpillMaxSize == "" {
		return 0, nil
	}
	b, err := units.ParseStrictBytes(c.SpillMaxSize)
	if err != nil {
		return 0, qerr.E(qerr.ValidationError, err)
	}
	return b, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, qerr.E(qerr.ValidationError, err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.MetadataBaseDir == "" {
		return qerr.E(qerr.ValidationError, "metadata_base_dir is required")
	}
	if c.ResultTmpDir == "" {
		return qerr.E(qerr.ValidationError, "result_tmp_dir is required")
	}
	if c.ResultSetExpiry <= 0 {
		return qerr.E(qerr.ValidationError, "result_set_expiry must be a positive number of minutes")
	}
	for _, conn := range c.Connectors {
		if conn.Name == "" || conn.Class == "" || conn.Type == "" {
			return qerr.E(qerr.ValidationError, "connector entries require name, class, and type")
		}
	}
	return nil
}
