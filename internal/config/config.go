// Package config loads tool-level settings from file and environment.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Settings are the tool-level knobs that are not per-run flags. Flags
// always win over these.
type Settings struct {
	// OutputFormat is the default when neither flag nor schema names one.
	OutputFormat string `mapstructure:"output_format"`
	// Workers bounds parallel document extraction. 0 means NumCPU.
	Workers int `mapstructure:"workers"`
	// BudgetSeconds caps a run's wall time. 0 means unbounded.
	BudgetSeconds int `mapstructure:"budget_seconds"`
	// JournalPath enables the run journal when non-empty.
	JournalPath string `mapstructure:"journal_path"`
	// JSONLogs switches log output to machine-readable encoding.
	JSONLogs bool `mapstructure:"json_logs"`
}

// Load reads settings from loom.yaml/loom.toml in the working directory
// (when present) and LOOM_* environment variables, over the defaults.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("loom")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "")
	v.SetDefault("workers", 0)
	v.SetDefault("budget_seconds", 0)
	v.SetDefault("journal_path", "")
	v.SetDefault("json_logs", false)
}
