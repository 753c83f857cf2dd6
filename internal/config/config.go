// Package config loads gateway and CLI configuration from flags, an
// optional config file and STRATUM_* environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds everything the CLI needs to build an operator.
type Config struct {
	// Scheme selects the storage service.
	Scheme string `mapstructure:"scheme"`
	// Options carries service-specific settings (root, datadir, bucket...).
	Options map[string]string `mapstructure:"options"`

	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`

	// Layer toggles.
	EnableMetrics bool `mapstructure:"enable_metrics"`
	EnableLogging bool `mapstructure:"enable_logging"`
	RetryAttempts int  `mapstructure:"retry_attempts"`
}

// Load resolves the configuration for cmd.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("STRATUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Options == nil {
		cfg.Options = map[string]string{}
	}

	// -o key=value flags override file and environment options.
	if pairs, _ := cmd.Flags().GetStringArray("option"); len(pairs) > 0 {
		for _, pair := range pairs {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid option %q, expected key=value", pair)
			}
			cfg.Options[key] = value
		}
	}
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Options["root"] = root
	}

	if cfg.Scheme == "" {
		return nil, fmt.Errorf("scheme is required: specify via --scheme flag, config file, or STRATUM_SCHEME environment variable")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("enable_metrics", true)
	v.SetDefault("enable_logging", true)
	v.SetDefault("retry_attempts", 3)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"scheme":    "scheme",
		"listen":    "listen",
		"log-level": "log_level",
	}
	for flag, key := range flags {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}
