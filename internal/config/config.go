// Package config provides configuration loading and defaults for the
// discordrpcd daemon.
//
// Configuration is loaded from a TOML file in the user's data directory.
// The package handles the engine's connection tunables (application ID,
// endpoint target, queue capacities, backoff bounds, event dispatch mode)
// and privacy controls governing when presence updates are suppressed.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/discordrpc/internal/atomicfile"
	"tools.zach/dev/discordrpc/internal/migrate"
	"tools.zach/dev/discordrpc/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Discord holds the connection engine's tunables.
	Discord DiscordConfig `toml:"discord"`
	// Queues holds the outbound/inbound bounded-queue capacities.
	Queues QueuesConfig `toml:"queues"`
	// Backoff holds the reconnect backoff bounds.
	Backoff BackoffConfig `toml:"backoff"`
	// Privacy holds presence-suppression settings.
	Privacy PrivacyConfig `toml:"privacy"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// DiscordConfig holds the connection engine's tunables.
type DiscordConfig struct {
	// ApplicationID is the Discord application ID sent in the handshake.
	ApplicationID string `toml:"application_id"`
	// Target pins endpoint index 0-9; -1 probes in ascending order.
	Target int `toml:"target"`
	// EventMode selects dispatch: "auto" invokes the callback on the
	// worker goroutine, "manual" requires the caller to poll Invoke.
	EventMode string `toml:"event_mode"`
	// SkipIdenticalPresence suppresses SetPresence calls that deep-equal
	// the last presence actually transmitted.
	SkipIdenticalPresence bool `toml:"skip_identical_presence"`
}

// QueuesConfig holds the outbound/inbound bounded-queue capacities. Zero
// means "never buffer; deliver only via callback" for the inbound queue;
// the outbound queue treats zero the same way, though in practice a
// disabled outbound queue means no command is ever transmitted.
type QueuesConfig struct {
	// OutboundCapacity bounds the command queue. Default 512.
	OutboundCapacity int `toml:"outbound_capacity"`
	// InboundCapacity bounds the message queue. Default 128.
	InboundCapacity int `toml:"inbound_capacity"`
}

// BackoffConfig holds the reconnect backoff bounds, in milliseconds.
type BackoffConfig struct {
	// MinMS is the delay after the first failed connect. Default 500.
	MinMS int64 `toml:"min_ms"`
	// MaxMS is the delay the curve saturates at. Default 60000.
	MaxMS int64 `toml:"max_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// PrivacyConfig holds presence-suppression settings.
type PrivacyConfig struct {
	// Ignore is a list of glob patterns; a presence update whose working
	// directory matches one is suppressed rather than sent.
	Ignore []string `toml:"ignore"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Discord: DiscordConfig{
			ApplicationID:         "",
			Target:                -1,
			EventMode:             "auto",
			SkipIdenticalPresence: true,
		},
		Queues: QueuesConfig{
			OutboundCapacity: 512,
			InboundCapacity:  128,
		},
		Backoff: BackoffConfig{
			MinMS: 500,
			MaxMS: 60000,
		},
		Privacy: PrivacyConfig{
			Ignore: []string{},
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
// The only field worth calling out is ApplicationID: the default is empty
// since every host application has its own.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Discord.ApplicationID = "123456789012345678"
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)

	// Apply migrations if needed.
	shouldMigrate := version != migrate.Config.CurrentVersion
	if shouldMigrate {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	if migrate.Config.HasDev() {
		var devErr error
		data, devErr = migrate.Config.RunDev(data)
		if devErr != nil {
			return nil, fmt.Errorf("apply dev transforms: %w", devErr)
		}
		shouldMigrate = true
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	switch c.Discord.EventMode {
	case "auto", "manual":
	default:
		return fmt.Errorf("invalid discord.event_mode %q: must be auto or manual", c.Discord.EventMode)
	}

	if c.Discord.Target < -1 || c.Discord.Target > 9 {
		return fmt.Errorf("invalid discord.target %d: must be -1 (probe) or 0-9", c.Discord.Target)
	}

	if c.Queues.OutboundCapacity < 0 {
		return fmt.Errorf("queues.outbound_capacity must be >= 0, got %d", c.Queues.OutboundCapacity)
	}
	if c.Queues.InboundCapacity < 0 {
		return fmt.Errorf("queues.inbound_capacity must be >= 0, got %d", c.Queues.InboundCapacity)
	}

	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0, got %d", c.Backoff.MinMS)
	}
	if c.Backoff.MaxMS < c.Backoff.MinMS {
		return fmt.Errorf("backoff.max_ms (%d) must be >= backoff.min_ms (%d)", c.Backoff.MaxMS, c.Backoff.MinMS)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	return nil
}

// ///////////////////////////////////////////////
// Privacy Helpers
// ///////////////////////////////////////////////

// IsIgnored reports whether cwd matches any of the configured ignore
// patterns, meaning a presence update for it should be suppressed.
func (c *Config) IsIgnored(cwd string) bool {
	for _, pattern := range c.Privacy.Ignore {
		matched, err := doublestar.Match(pattern, cwd)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
