// Package main implements discordrpcd, a reference daemon built on top of
// internal/discord. It loads a data directory's config.toml, brings up a
// discord.Client, registers the host's URI scheme, advertises a static
// example presence, subscribes to join/spectate events when the scheme is
// registered, logs every inbound message at debug level, and re-authenticates
// when the OAuth2 token cache is rewritten externally, until it receives a
// shutdown signal. It sends no replies to join requests.
//
// It exists to exercise the library end to end, the way a real host
// application would wire it up — not as a polished product in its own
// right.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "tools.zach/dev/discordrpc"
	"tools.zach/dev/discordrpc/internal/config"
	"tools.zach/dev/discordrpc/internal/discord"
	"tools.zach/dev/discordrpc/internal/eventlog"
	"tools.zach/dev/discordrpc/internal/logger"
	"tools.zach/dev/discordrpc/internal/oauth"
	"tools.zach/dev/discordrpc/internal/paths"
	"tools.zach/dev/discordrpc/internal/registrar"
	"tools.zach/dev/discordrpc/internal/tokencache"
	"tools.zach/dev/discordrpc/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [removePID] only deletes the file if this instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID creates or opens the PID file at [DataPaths.PID], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file handle
// must be kept open for the lifetime of the daemon to hold the lock; pass it to
// [removePID] on shutdown.
func writePID(paths DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(paths.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the advisory lock, closes the file handle, and removes the
// PID file only if the stored token matches, preventing accidental removal of a
// file owned by a different daemon instance.
func removePID(paths DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(paths.PID())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(paths.PID())
	}
}

// checkStalePID checks whether another daemon instance is running. It attempts
// to acquire the advisory lock on the PID file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStalePID(paths DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(paths.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(paths.PID())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(paths.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for discordrpcd data,
// typically ~/.discordrpc. Falls back to ./.discordrpc if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Example Presence
// ///////////////////////////////////////////////

// examplePresence builds the static placeholder presence this daemon
// advertises once connected, standing in for whatever state a real host
// application would compute.
func examplePresence(daemonStart time.Time) *discord.RichPresence {
	return &discord.RichPresence{
		Details: "Idling",
		State:   "discordrpcd reference daemon",
		Timestamps: &discord.Timestamps{
			Start: daemonStart.Unix(),
		},
		Instance: false,
	}
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, logs, and the token cache")
	appIDFlag := flag.String("app-id", "", "Override discord.application_id from config.toml")
	flag.Parse()

	dataPaths := DataPaths{Root: *dataDir}

	if err := os.MkdirAll(dataPaths.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(dataPaths); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dataPaths.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dataPaths.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dataPaths.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}
	if *appIDFlag != "" {
		cfg.Discord.ApplicationID = *appIDFlag
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(dataPaths.Log(), logLevel, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("discordrpcd starting", "version", ver, "data_dir", dataPaths.Root)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("update check panic", "error", r)
			}
		}()
		update.Check(ver)
	}()

	token := pidToken()
	pidFile, err := writePID(dataPaths, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(dataPaths, token, pidFile)

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	registered, regErr := registrar.Register(cfg.Discord.ApplicationID, "", exe)
	if regErr != nil {
		slog.Warn("URI scheme registration failed; join/spectate subscriptions disabled", "error", regErr)
	} else if !registered {
		slog.Info("URI scheme registration unsupported on this platform; join/spectate subscriptions disabled")
	}

	eventWriter, err := eventlog.NewWriter(dataPaths.EventLog())
	if err != nil {
		slog.Warn("failed to open event log, continuing without one", "error", err)
	} else {
		defer eventWriter.Close()
	}

	cachedToken, err := tokencache.Load(dataPaths.TokenCache())
	if err != nil {
		slog.Warn("token cache unreadable, starting unauthenticated", "error", err)
	}

	watcher, watchErr := tokencache.NewWatcher(dataPaths.TokenCache())
	if watchErr != nil {
		slog.Warn("could not watch token cache for external refresh", "error", watchErr)
	} else {
		defer watcher.Close()
		if watcher.Polling() {
			slog.Info("using polling mode for token cache watch")
		}
	}

	daemonStart := time.Now()

	client := discord.NewClient(discord.ClientOptions{
		ApplicationID:         cfg.Discord.ApplicationID,
		Target:                cfg.Discord.Target,
		OutboundCapacity:      cfg.Queues.OutboundCapacity,
		InboundCapacity:       cfg.Queues.InboundCapacity,
		BackoffMinMS:          cfg.Backoff.MinMS,
		BackoffMaxMS:          cfg.Backoff.MaxMS,
		Mode:                  eventModeFromConfig(cfg.Discord.EventMode),
		SkipIdenticalPresence: cfg.Discord.SkipIdenticalPresence,
		URISchemeRegistered:   registered,
		Logger:                log,
		EventLog:              eventWriterAsSink(eventWriter),
		RefreshedToken:        refreshedTokenProvider(dataPaths.TokenCache(), cachedToken),
		OnMessage:             func(m discord.Message) { logInboundMessage(log, m) },
	})

	if err := client.Initialize(); err != nil {
		slog.Error("failed to initialize client", "error", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		slog.Warn("could not determine working directory, privacy ignore-globs won't apply", "error", err)
	}
	if err := client.SetPresenceIgnoringGlobs(examplePresence(daemonStart), cwd, cfg.IsIgnored); err != nil {
		slog.Warn("failed to set initial presence", "error", err)
	}

	if registered {
		if err := client.Subscribe(discord.EventSetJoin | discord.EventSetSpectate | discord.EventSetJoinRequest); err != nil {
			slog.Warn("failed to subscribe to activity events", "error", err)
		}
	}

	run(client, cfg, dataPaths, watcher)
}

// eventModeFromConfig maps the config string to discord.EventMode, defaulting
// to AutoEvents for any value other than "manual" (config.Validate already
// rejects anything else).
func eventModeFromConfig(mode string) discord.EventMode {
	if mode == "manual" {
		return discord.ManualEvents
	}
	return discord.AutoEvents
}

// eventWriterAsSink adapts a possibly-nil *eventlog.Writer to a possibly-nil
// discord.EventSink, since a typed nil pointer stored in an interface is not
// itself nil.
func eventWriterAsSink(w *eventlog.Writer) discord.EventSink {
	if w == nil {
		return nil
	}
	return w
}

// refreshedTokenProvider returns the discord.ClientOptions.RefreshedToken
// callback: it returns the cached access token exactly once (on the first
// Ready after startup), matching the common case of resuming a session that
// authenticated in a previous run. initial may be nil.
func refreshedTokenProvider(path string, initial *oauth.Token) func() (string, bool) {
	delivered := false
	return func() (string, bool) {
		if delivered || initial == nil || initial.AccessToken == "" {
			return "", false
		}
		delivered = true
		if initial.Expired() {
			slog.Debug("cached token expired, skipping auto-authenticate", "path", path)
			return "", false
		}
		return initial.AccessToken, true
	}
}

// logInboundMessage logs every inbound message at debug level, keyed by its
// dynamic type name via Type().
func logInboundMessage(log *slog.Logger, m discord.Message) {
	log.Debug("inbound message", "type", m.Type())
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// run blocks until an OS interrupt/terminate signal arrives, periodically
// reloading the token cache when internal/tokencache.Watcher reports an
// external change, and draining the inbound queue when the client is
// configured for manual event dispatch.
func run(client *discord.Client, cfg *config.Config, dataPaths DataPaths, watcher *tokencache.Watcher) {
	sigCh := signalChannel()

	var manualTicker *time.Ticker
	var manualEvents <-chan time.Time
	if cfg.Discord.EventMode == "manual" {
		manualTicker = time.NewTicker(250 * time.Millisecond)
		defer manualTicker.Stop()
		manualEvents = manualTicker.C
	}

	var tokenEvents <-chan struct{}
	if watcher != nil {
		tokenEvents = watcher.Events()
	}

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			if err := client.Shutdown(); err != nil {
				slog.Warn("graceful shutdown request failed", "error", err)
			}
			time.Sleep(500 * time.Millisecond)
			client.Dispose()
			return

		case <-tokenEvents:
			token, err := tokencache.Load(dataPaths.TokenCache())
			if err != nil {
				slog.Warn("token cache reload failed", "error", err)
				continue
			}
			if token != nil && !token.Expired() {
				slog.Info("token cache changed externally, re-authenticating")
				if err := client.Authenticate(token.AccessToken); err != nil {
					slog.Warn("re-authenticate failed", "error", err)
				}
			}

		case <-manualEvents:
			messages, err := client.Invoke()
			if err != nil {
				slog.Warn("invoke failed", "error", err)
				continue
			}
			for _, m := range messages {
				logInboundMessage(slog.Default(), m)
			}
		}
	}
}
