// Package config holds the dcman configuration: where to scan for compose
// projects and how long each class of docker command may run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

const (
	// DefaultFileName is the config file looked up in the working directory
	// when no explicit path is given.
	DefaultFileName = "dcman.config.json"

	defaultLogLevel     = "info"
	defaultLogTailLines = 100

	defaultStatusTimeoutSeconds = 5
	defaultActionTimeoutSeconds = 60
	defaultBuildTimeoutSeconds  = 300
	defaultLogsTimeoutSeconds   = 10

	// defaultBuildLogMaxLines caps the retained output of a streaming build.
	defaultBuildLogMaxLines = 500
	// defaultBuildLogRetentionSeconds keeps a finished build's output
	// readable for a short window after completion.
	defaultBuildLogRetentionSeconds = 5

	// shutdownGrace bounds how long in-flight cancellations may settle
	// before shutdown forces its way through.
	shutdownGrace = 100 * time.Millisecond
)

// Config holds the application configuration.
type Config struct {
	// RootPath is the directory scanned recursively for compose files.
	RootPath string `json:"root_path,omitempty"`
	// LogLevel is the minimum level written to stderr (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`
	// LogTailLines is how many trailing log lines a log fetch requests.
	LogTailLines int `json:"log_tail_lines,omitempty"`

	StatusTimeoutSeconds int `json:"status_timeout_seconds,omitempty"`
	ActionTimeoutSeconds int `json:"action_timeout_seconds,omitempty"`
	BuildTimeoutSeconds  int `json:"build_timeout_seconds,omitempty"`
	LogsTimeoutSeconds   int `json:"logs_timeout_seconds,omitempty"`

	BuildLogMaxLines         int `json:"build_log_max_lines,omitempty"`
	BuildLogRetentionSeconds int `json:"build_log_retention_seconds,omitempty"`
}

// prepareConfig applies defaults to every unset field.
func prepareConfig(cfg *Config) {
	if cfg.RootPath == "" {
		cfg.RootPath = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogTailLines <= 0 {
		cfg.LogTailLines = defaultLogTailLines
	}
	if cfg.StatusTimeoutSeconds <= 0 {
		cfg.StatusTimeoutSeconds = defaultStatusTimeoutSeconds
	}
	if cfg.ActionTimeoutSeconds <= 0 {
		cfg.ActionTimeoutSeconds = defaultActionTimeoutSeconds
	}
	if cfg.BuildTimeoutSeconds <= 0 {
		cfg.BuildTimeoutSeconds = defaultBuildTimeoutSeconds
	}
	if cfg.LogsTimeoutSeconds <= 0 {
		cfg.LogsTimeoutSeconds = defaultLogsTimeoutSeconds
	}
	if cfg.BuildLogMaxLines <= 0 {
		cfg.BuildLogMaxLines = defaultBuildLogMaxLines
	}
	if cfg.BuildLogRetentionSeconds <= 0 {
		cfg.BuildLogRetentionSeconds = defaultBuildLogRetentionSeconds
	}
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	cfg := &Config{}
	prepareConfig(cfg)
	return cfg
}

// LoadConfig loads the configuration from a JSON file. A missing file yields
// the defaults rather than an error, so dcman works without any config at all.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			prepareConfig(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	prepareConfig(cfg)
	return cfg, nil
}

// SaveConfig writes the configuration atomically so a crash mid-write never
// leaves a truncated config behind.
func SaveConfig(cfg *Config, configPath string) error {
	prepareConfig(cfg)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := renameio.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) GetStatusTimeout() time.Duration {
	return time.Duration(c.StatusTimeoutSeconds) * time.Second
}

func (c *Config) GetActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutSeconds) * time.Second
}

func (c *Config) GetBuildTimeout() time.Duration {
	return time.Duration(c.BuildTimeoutSeconds) * time.Second
}

func (c *Config) GetLogsTimeout() time.Duration {
	return time.Duration(c.LogsTimeoutSeconds) * time.Second
}

func (c *Config) GetBuildLogRetention() time.Duration {
	return time.Duration(c.BuildLogRetentionSeconds) * time.Second
}

func (c *Config) GetBuildLogMaxLines() int {
	return c.BuildLogMaxLines
}

func (c *Config) GetLogTailLines() int {
	return c.LogTailLines
}

// GetShutdownGrace returns the grace period allowed for in-flight
// cancellations to settle during shutdown.
func (c *Config) GetShutdownGrace() time.Duration {
	return shutdownGrace
}
