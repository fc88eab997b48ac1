// Package discordrpc provides embedded assets for the discordrpcd daemon.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. cmd/discordrpcd writes it to the data directory as
// config.toml when none exists there, to seed first-run defaults.
package discordrpc

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. cmd/discordrpcd writes these bytes to the data directory on
// first run.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
