// Package config holds pysoc settings loaded from file, environment and defaults.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Defaults
const (
	DefaultLogFormat     = "console"
	DefaultOutput        = "table"
	DefaultVerifyTimeout = 30 * time.Second
	DefaultMinSeverity   = "low"
	DefaultIndexTimeout  = 10 * time.Second
)

var (
	logFormats    = []string{"console", "json"}
	outputFormats = []string{"table", "yaml", "json", "toml"}
	severities    = []string{"unknown", "low", "medium", "high", "critical"}
)

// Config is the root configuration
type Config struct {
	// Descriptor is a descriptor file to use instead of the embedded one
	Descriptor string       `mapstructure:"descriptor"`
	Output     string       `mapstructure:"output"`
	Log        LogConfig    `mapstructure:"log"`
	Check      CheckConfig  `mapstructure:"check"`
	Verify     VerifyConfig `mapstructure:"verify"`
	Audit      AuditConfig  `mapstructure:"audit"`
	Index      IndexConfig  `mapstructure:"index"`
}

// LogConfig configures logging
type LogConfig struct {
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`
}

// CheckConfig configures the installation check
type CheckConfig struct {
	SitePackages  string `mapstructure:"site_packages"`
	BinDir        string `mapstructure:"bin_dir"`
	VerifyRecords bool   `mapstructure:"verify_records"`
}

// VerifyConfig configures signature verification
type VerifyConfig struct {
	Keyservers []string      `mapstructure:"keyservers"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// AuditConfig configures the vulnerability audit
type AuditConfig struct {
	OSVURL      string        `mapstructure:"osv_url"`
	MinSeverity string        `mapstructure:"min_severity"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// IndexConfig configures the package index used by outdated
type IndexConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Validate checks enumerated values and ranges
func (c *Config) Validate() error {
	if !slices.Contains(logFormats, c.Log.Format) {
		return errors.Errorf("log.format: %q is not one of %v", c.Log.Format, logFormats)
	}
	if !slices.Contains(outputFormats, c.Output) {
		return errors.Errorf("output: %q is not one of %v", c.Output, outputFormats)
	}
	if c.Verify.Timeout <= 0 {
		return errors.Errorf("verify.timeout: must be positive, got %s", c.Verify.Timeout)
	}
	if !slices.Contains(severities, strings.ToLower(c.Audit.MinSeverity)) {
		return errors.Errorf("audit.min_severity: %q is not one of %v", c.Audit.MinSeverity, severities)
	}
	if c.Audit.Timeout <= 0 {
		return errors.Errorf("audit.timeout: must be positive, got %s", c.Audit.Timeout)
	}
	if c.Index.Timeout <= 0 {
		return errors.Errorf("index.timeout: must be positive, got %s", c.Index.Timeout)
	}
	return nil
}
