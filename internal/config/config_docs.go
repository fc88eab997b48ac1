package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "discord.event_mode")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate
// the generated config.default.toml with inline comments and alternative
// examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version — do not edit.",
	},

	// ── Discord ──────────────────────────────────────────────────
	"discord.application_id": {
		Comment: "Your Discord application's ID (from the Developer Portal).\nRequired — there is no usable default.",
	},
	"discord.target": {
		Comment: "Local IPC endpoint index to connect to, 0-9.\n-1 probes 0..9 in order and uses the first that accepts a connection.",
		Alternatives: []string{
			`target = 0`,
		},
	},
	"discord.event_mode": {
		Comment: "How inbound messages are dispatched. Options: \"auto\", \"manual\"\n  auto:   OnMessage is invoked on the worker goroutine as messages arrive\n  manual: the caller polls Client.Invoke to drain the inbound queue",
		Alternatives: []string{
			`event_mode = "manual"`,
		},
	},
	"discord.skip_identical_presence": {
		Comment: "Suppress SetPresence calls that deep-equal the last presence actually sent.",
	},

	// ── Queues ───────────────────────────────────────────────────
	"queues.outbound_capacity": {
		Comment: "Bound on the outbound command queue. Drop-oldest overflow once full.",
	},
	"queues.inbound_capacity": {
		Comment: "Bound on the inbound message queue. 0 means never buffer — deliver\nonly via the configured callback (auto mode only).",
	},

	// ── Backoff ──────────────────────────────────────────────────
	"backoff.min_ms": {
		Comment: "Reconnect delay after the first failed connect attempt, in milliseconds.",
	},
	"backoff.max_ms": {
		Comment: "Reconnect delay the backoff curve saturates at, in milliseconds.",
	},

	// ── Privacy ──────────────────────────────────────────────────
	"privacy.ignore": {
		Comment: "Working directories to suppress presence updates for entirely.\nGlob patterns, matched against the host application's reported cwd.",
		Alternatives: []string{
			`# ignore = [`,
			`#   "/home/me/work/secret-project",`,
			`#   "/home/me/company/*",`,
			`# ]`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
