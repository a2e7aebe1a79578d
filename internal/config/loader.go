package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the configuration. Precedence, lowest to highest:
// defaults, optional config file (ORCHARD_CONFIG or ./orchard.yaml),
// ORCHARD_* environment variables, then runtime overrides.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	_ = ctx

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ORCHARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("orchard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, override := range overrides {
		if err := v.MergeConfigMap(override); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("workspace.root", ".")
	v.SetDefault("workspace.vars_file", "vars/user_vars.yml")

	v.SetDefault("cache.auth_ttl", "30s")
	v.SetDefault("cache.hub_ttl", "60s")

	v.SetDefault("limits.jobs_per_second", 1.0)
	v.SetDefault("limits.jobs_burst", 5)

	v.SetDefault("events.file", "")
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	switch cfg.Logging.Profile {
	case "STRUCTURED", "CONSOLE":
	default:
		return fmt.Errorf("logging.profile %q: must be STRUCTURED or CONSOLE", cfg.Logging.Profile)
	}
	if cfg.Limits.JobsPerSecond <= 0 {
		return fmt.Errorf("limits.jobs_per_second must be positive")
	}
	return nil
}
