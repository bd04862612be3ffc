package config

import (
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/viper"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	"github.com/codekansas/soc/internal/external-adapters/gpg"
)

const (
	configName = ".pysoc"
	configType = "yaml"
	envPrefix  = "PYSOC"
)

// Load reads configuration from file, PYSOC_* environment variables and
// defaults. An explicit configPath must exist; otherwise .pysoc.yaml is
// searched in the working directory and $HOME, and a missing file is not an error.
// Overrides run before validation.
func Load(configPath string, overrides ...func(*Config)) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	for _, apply := range overrides {
		apply(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("descriptor", "")
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.verbose", false)

	v.SetDefault("check.site_packages", "")
	v.SetDefault("check.bin_dir", "")
	v.SetDefault("check.verify_records", false)

	v.SetDefault("verify.keyservers", gpg.DefaultKeyservers)
	v.SetDefault("verify.timeout", DefaultVerifyTimeout)

	v.SetDefault("audit.osv_url", gateways.DefaultOSVURL)
	v.SetDefault("audit.min_severity", DefaultMinSeverity)
	v.SetDefault("audit.timeout", DefaultVerifyTimeout)

	v.SetDefault("index.url", gateways.DefaultIndexURL)
	v.SetDefault("index.timeout", DefaultIndexTimeout)
}
