// Package config loads the service configuration from defaults, an
// optional YAML file, environment variables, and runtime overrides, in
// ascending precedence.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Events    EventsConfig    `mapstructure:"events"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`

	// File enables a rotating file sink when non-empty.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// WorkspaceConfig locates the automation workspace.
type WorkspaceConfig struct {
	Root     string `mapstructure:"root"`
	VarsFile string `mapstructure:"vars_file"`
}

// CacheConfig sets probe TTLs.
type CacheConfig struct {
	AuthTTL time.Duration `mapstructure:"auth_ttl"`
	HubTTL  time.Duration `mapstructure:"hub_ttl"`
}

// LimitsConfig bounds job creation.
type LimitsConfig struct {
	// JobsPerSecond is the sustained job-creation rate per client.
	JobsPerSecond float64 `mapstructure:"jobs_per_second"`

	// JobsBurst is the burst allowance.
	JobsBurst int `mapstructure:"jobs_burst"`
}

// EventsConfig controls the JSONL transition stream.
type EventsConfig struct {
	// File receives one JSON record per job transition; empty
	// disables the stream.
	File string `mapstructure:"file"`
}
