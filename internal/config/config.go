package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/parley/internal/logger"
)

// ServerConfig controls the HTTP API surface.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// LogConfig controls the orchestrator's own diagnostic log.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ConferenceConfig points at the external conferencing service. All three
// fields are required at startup.
type ConferenceConfig struct {
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	CACert    string `mapstructure:"ca_cert"`
	Insecure  bool   `mapstructure:"insecure"`
}

// AgentConfig carries the worker command plus opaque model/voice
// parameters that are passed through to the worker without interpretation.
type AgentConfig struct {
	WorkerCommand string `mapstructure:"worker_command"`
	Model         string `mapstructure:"model"`
	Voice         string `mapstructure:"voice"`
	Instructions  string `mapstructure:"instructions"`
}

// LauncherConfig controls artifact placement and the post-spawn grace
// period.
type LauncherConfig struct {
	ScratchDir  string        `mapstructure:"scratch_dir"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// RoomConfig holds defaults applied when the orchestrator creates a room.
type RoomConfig struct {
	EmptyTimeoutSec int `mapstructure:"empty_timeout_sec"`
	MaxParticipants int `mapstructure:"max_participants"`
}

// JournalConfig selects launch journal sinks by DSN.
type JournalConfig struct {
	DSNs []string `mapstructure:"dsns"`
}

// Config is the top-level TOML structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Conference ConferenceConfig `mapstructure:"conference"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Launcher   LauncherConfig   `mapstructure:"launcher"`
	LaunchLog  logger.Config    `mapstructure:"launch_log"`
	Room       RoomConfig       `mapstructure:"room"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Env        []string         `mapstructure:"env"`
}

// Load reads and validates the TOML config at path. Missing required keys
// are a startup-time configuration error, surfaced synchronously and never
// retried.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api"
	}
	if c.Launcher.ScratchDir == "" {
		c.Launcher.ScratchDir = filepath.Join(os.TempDir(), "parley-agents")
	}
	if c.Launcher.GracePeriod <= 0 {
		c.Launcher.GracePeriod = time.Second
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var missing []string
	if c.Conference.URL == "" {
		missing = append(missing, "conference.url")
	}
	if c.Conference.APIKey == "" {
		missing = append(missing, "conference.api_key")
	}
	if c.Conference.APISecret == "" {
		missing = append(missing, "conference.api_secret")
	}
	if c.Agent.WorkerCommand == "" {
		missing = append(missing, "agent.worker_command")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %v", missing)
	}
	return nil
}
