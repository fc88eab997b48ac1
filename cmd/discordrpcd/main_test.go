package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tools.zach/dev/discordrpc/internal/discord"
	"tools.zach/dev/discordrpc/internal/oauth"
)

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	got := resolveVersion()
	if got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	if got == "" {
		t.Error("resolveVersion() returned empty string")
	}
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// PID Management Tests
// ///////////////////////////////////////////////

func TestWriteAndRemovePID(t *testing.T) {
	dir := t.TempDir()
	paths := DataPaths{Root: dir}

	token := pidToken()
	f, err := writePID(paths, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}

	data, err := os.ReadFile(paths.PID())
	if err != nil {
		t.Fatalf("read PID file: %v", err)
	}
	if !strings.Contains(string(data), token) {
		t.Errorf("PID file content %q does not contain token %q", data, token)
	}

	removePID(paths, token, f)
	if _, err := os.Stat(paths.PID()); !os.IsNotExist(err) {
		t.Errorf("PID file still exists after removePID")
	}
}

func TestRemovePIDWrongTokenLeavesFile(t *testing.T) {
	dir := t.TempDir()
	paths := DataPaths{Root: dir}

	f, err := writePID(paths, "correct-token")
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}

	removePID(paths, "wrong-token", f)
	if _, err := os.Stat(paths.PID()); err != nil {
		t.Errorf("PID file removed despite token mismatch: %v", err)
	}
}

func TestCheckStalePIDNoFile(t *testing.T) {
	dir := t.TempDir()
	paths := DataPaths{Root: dir}

	alive, pid := checkStalePID(paths)
	if alive {
		t.Errorf("checkStalePID() reported alive=%v pid=%d with no PID file", alive, pid)
	}
}

func TestCheckStalePIDHeldLock(t *testing.T) {
	dir := t.TempDir()
	paths := DataPaths{Root: dir}

	token := pidToken()
	f, err := writePID(paths, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}
	defer removePID(paths, token, f)

	alive, pid := checkStalePID(paths)
	if !alive {
		t.Error("checkStalePID() reported not alive while the lock is held")
	}
	if pid != os.Getpid() {
		t.Errorf("checkStalePID() pid = %d, want %d", pid, os.Getpid())
	}
}

func TestCheckStalePIDCleansUpAfterRelease(t *testing.T) {
	dir := t.TempDir()
	paths := DataPaths{Root: dir}

	token := pidToken()
	f, err := writePID(paths, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}
	// Release the lock (as if the prior process exited) without removing the file.
	unlockFile(f)
	f.Close()

	alive, _ := checkStalePID(paths)
	if alive {
		t.Error("checkStalePID() reported alive for a released lock")
	}
	if _, err := os.Stat(paths.PID()); !os.IsNotExist(err) {
		t.Error("stale PID file was not cleaned up")
	}
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

func TestDefaultDataDirNonEmpty(t *testing.T) {
	dir := defaultDataDir()
	if dir == "" {
		t.Error("defaultDataDir() returned empty string")
	}
	if !strings.HasSuffix(filepath.ToSlash(dir), ".discordrpc") {
		t.Errorf("defaultDataDir() = %q, want suffix .discordrpc", dir)
	}
}

// ///////////////////////////////////////////////
// Example Presence
// ///////////////////////////////////////////////

func TestExamplePresence(t *testing.T) {
	start := time.Now()
	p := examplePresence(start)
	if p.Timestamps == nil || p.Timestamps.Start != start.Unix() {
		t.Errorf("examplePresence() timestamps = %+v, want Start=%d", p.Timestamps, start.Unix())
	}
	if p.Details == "" || p.State == "" {
		t.Error("examplePresence() left Details or State empty")
	}
}

// ///////////////////////////////////////////////
// Event Mode Mapping
// ///////////////////////////////////////////////

func TestEventModeFromConfig(t *testing.T) {
	if got := eventModeFromConfig("manual"); got != discord.ManualEvents {
		t.Errorf("eventModeFromConfig(manual) = %v, want ManualEvents", got)
	}
	if got := eventModeFromConfig("auto"); got != discord.AutoEvents {
		t.Errorf("eventModeFromConfig(auto) = %v, want AutoEvents", got)
	}
	if got := eventModeFromConfig(""); got != discord.AutoEvents {
		t.Errorf("eventModeFromConfig(\"\") = %v, want AutoEvents", got)
	}
}

// ///////////////////////////////////////////////
// Refreshed Token Provider
// ///////////////////////////////////////////////

func TestRefreshedTokenProviderNilInitial(t *testing.T) {
	provider := refreshedTokenProvider("/dev/null", nil)
	if _, ok := provider(); ok {
		t.Error("refreshedTokenProvider with nil initial returned ok=true")
	}
}

func TestRefreshedTokenProviderDeliversOnce(t *testing.T) {
	tok := &oauth.Token{AccessToken: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	provider := refreshedTokenProvider("/dev/null", tok)

	access, ok := provider()
	if !ok || access != "abc" {
		t.Fatalf("first call = (%q, %v), want (abc, true)", access, ok)
	}

	if _, ok := provider(); ok {
		t.Error("provider delivered the token a second time")
	}
}

func TestRefreshedTokenProviderSkipsExpired(t *testing.T) {
	tok := &oauth.Token{AccessToken: "abc", ExpiresAt: time.Now().Add(-time.Hour)}
	provider := refreshedTokenProvider("/dev/null", tok)

	if _, ok := provider(); ok {
		t.Error("provider delivered an expired token")
	}
}

// ///////////////////////////////////////////////
// Event Sink Adapter
// ///////////////////////////////////////////////

func TestEventWriterAsSinkNil(t *testing.T) {
	if sink := eventWriterAsSink(nil); sink != nil {
		t.Errorf("eventWriterAsSink(nil) = %v, want nil", sink)
	}
}
