// Package paths centralizes file and directory names used across the
// project. All data directory file names are defined here as the single
// source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile        = "daemon.pid"
	ConfigFile     = "config.toml"
	LogFile        = "daemon.log"
	TokenCacheFile = "oauth-token.json"
	EventLogFile   = "events.jsonl"
)

// BinaryName and DataDirRel name the reference daemon binary and its default
// data directory, relative to $HOME.
const (
	BinaryName = "discordrpcd"
	DataDirRel = ".discordrpc"
)

// ReleaseManifest is the remote-fetched manifest path consumed by
// internal/update.
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// TokenCache returns the full path to the OAuth2 token cache file.
func (d DataDir) TokenCache() string { return filepath.Join(d.Root, TokenCacheFile) }

// EventLog returns the full path to the append-only event log.
func (d DataDir) EventLog() string { return filepath.Join(d.Root, EventLogFile) }
