// Package integration exercises the config, logger, tokencache, eventlog,
// and discord packages wired together the way cmd/discordrpcd's main
// assembles them, against a fake local IPC transport.
package integration

import (
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/discordrpc/internal/config"
	"tools.zach/dev/discordrpc/internal/discord"
	"tools.zach/dev/discordrpc/internal/eventlog"
	"tools.zach/dev/discordrpc/internal/logger"
	"tools.zach/dev/discordrpc/internal/oauth"
	"tools.zach/dev/discordrpc/internal/paths"
	"tools.zach/dev/discordrpc/internal/tokencache"
)

// ///////////////////////////////////////////////
// fakeTransport
// ///////////////////////////////////////////////

// fakeTransport is a minimal discord.Transport double driven directly by the
// test, standing in for a real local IPC endpoint.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	incoming  chan discord.Frame

	writesMu sync.Mutex
	writes   []discord.Frame
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan discord.Frame, 16)}
}

func (t *fakeTransport) Connect(target int) bool {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return true
}

func (t *fakeTransport) ConnectedPipe() int { return 0 }

func (t *fakeTransport) ReadFrame() (discord.Frame, bool) {
	select {
	case f, ok := <-t.incoming:
		return f, ok
	case <-time.After(15 * time.Millisecond):
		return discord.Frame{}, false
	}
}

func (t *fakeTransport) WriteFrame(f discord.Frame) bool {
	t.mu.Lock()
	connected := t.connected
	t.mu.Unlock()
	if !connected {
		return false
	}
	t.writesMu.Lock()
	t.writes = append(t.writes, f)
	t.writesMu.Unlock()
	return true
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *fakeTransport) Dispose() {}

func (t *fakeTransport) push(f discord.Frame) { t.incoming <- f }

func (t *fakeTransport) sawOpcode(op discord.Opcode) bool {
	t.writesMu.Lock()
	defer t.writesMu.Unlock()
	for _, w := range t.writes {
		if w.Opcode == op {
			return true
		}
	}
	return false
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// ///////////////////////////////////////////////
// Test
// ///////////////////////////////////////////////

// TestDaemonAssemblyHandshakeAndTokenRefresh wires config, logger,
// tokencache, eventlog and discord.Client the way cmd/discordrpcd/main.go
// does, then drives a handshake + Ready through a fake transport and checks
// every ambient component observed it.
func TestDaemonAssemblyHandshakeAndTokenRefresh(t *testing.T) {
	dir := t.TempDir()
	dataPaths := paths.DataDir{Root: dir}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Discord.ApplicationID = "integration-test-app"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	log, closer, err := logger.NewLogger(dataPaths.Log(), logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer closer.Close()

	writer, err := eventlog.NewWriter(dataPaths.EventLog())
	if err != nil {
		t.Fatalf("eventlog.NewWriter: %v", err)
	}
	defer writer.Close()

	seedToken := &oauth.Token{AccessToken: "stale-token", ExpiresAt: time.Now().Add(-time.Hour)}
	if err := tokencache.Save(dataPaths.TokenCache(), seedToken); err != nil {
		t.Fatalf("tokencache.Save: %v", err)
	}
	refreshed := &oauth.Token{AccessToken: "fresh-token", ExpiresAt: time.Now().Add(time.Hour)}
	refreshedOnce := false
	refreshedTokenProvider := func() (string, bool) {
		if refreshedOnce {
			return "", false
		}
		refreshedOnce = true
		return refreshed.AccessToken, true
	}

	transport := newFakeTransport()
	var delivered []discord.Message
	var deliveredMu sync.Mutex

	client := discord.NewClient(discord.ClientOptions{
		ApplicationID:  cfg.Discord.ApplicationID,
		Target:         cfg.Discord.Target,
		Logger:         log,
		Transport:      transport,
		Mode:           discord.AutoEvents,
		EventLog:       writer,
		RefreshedToken: refreshedTokenProvider,
		OnMessage: func(m discord.Message) {
			deliveredMu.Lock()
			delivered = append(delivered, m)
			deliveredMu.Unlock()
		},
	})
	if err := client.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer client.Dispose()

	if !waitUntil(time.Second, func() bool { return transport.sawOpcode(discord.OpHandshake) }) {
		t.Fatal("handshake was never written to the transport")
	}

	readyData := struct {
		Config struct {
			CDNHost string `json:"cdn_host"`
		} `json:"config"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}{}
	readyData.Config.CDNHost = "cdn.discordapp.com"
	readyData.User.ID = "1"
	data, _ := json.Marshal(readyData)
	payload, _ := json.Marshal(struct {
		Cmd  string          `json:"cmd"`
		Evt  string          `json:"evt"`
		Data json.RawMessage `json:"data"`
	}{Cmd: "DISPATCH", Evt: "READY", Data: data})
	transport.push(discord.Frame{Opcode: discord.OpFrame, Payload: payload})

	if !waitUntil(time.Second, func() bool { return client.State() == discord.Connected }) {
		t.Fatal("client never reached Connected")
	}

	if !waitUntil(time.Second, func() bool { return transport.sawOpcode(discord.OpFrame) && refreshedOnce }) {
		t.Fatal("RefreshedToken was never consulted after Ready")
	}

	deliveredMu.Lock()
	sawReady := false
	for _, m := range delivered {
		if m.Type() == "Ready" {
			sawReady = true
		}
	}
	deliveredMu.Unlock()
	if !sawReady {
		t.Error("OnMessage never observed a Ready message")
	}

	if err := client.SetPresence(&discord.RichPresence{State: "integration testing"}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}

	if err := client.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-doneChan(client):
	case <-time.After(2 * time.Second):
		t.Fatal("client never stopped after Shutdown")
	}

	tail, err := eventlog.Tail(dataPaths.EventLog(), 10)
	if err != nil {
		t.Fatalf("eventlog.Tail: %v", err)
	}
	if len(tail) == 0 {
		t.Error("event log has no recorded entries after a full session")
	}

	loaded, err := tokencache.Load(dataPaths.TokenCache())
	if err != nil {
		t.Fatalf("tokencache.Load: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "stale-token" {
		t.Errorf("tokencache content = %+v, want the seeded token unchanged (refresh happens out of band)", loaded)
	}

	if _, err := os.Stat(dataPaths.Log()); err != nil {
		t.Errorf("log file was never created: %v", err)
	}
}

// doneChan exposes no public "wait for worker exit" signal on discord.Client,
// so this polls State() instead of reaching into the engine.
func doneChan(c *discord.Client) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		waitUntil(2*time.Second, func() bool { return c.State() == discord.Disconnected })
		close(ch)
	}()
	return ch
}
