package discord

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestEngine(transport Transport) *engine {
	return newEngine(engineConfig{
		ClientID:         "test-app",
		Target:           -1,
		OutboundCapacity: 16,
		InboundCapacity:  16,
		BackoffMinMS:     1,
		BackoffMaxMS:     2,
		Transport:        transport,
	})
}

func readyFrame() Frame {
	data, _ := json.Marshal(readyData{
		Configuration: Configuration{CDNHost: "cdn.discordapp.com"},
		User:          User{ID: "1", Username: "tester"},
	})
	payload, _ := json.Marshal(eventPayload{Cmd: cmdDispatch, Evt: EventReady, Data: data})
	return Frame{Opcode: OpFrame, Payload: payload}
}

func TestEngineConnectFailureDeliversConnectionFailed(t *testing.T) {
	transport := newFakeTransport()
	transport.connectResult = false
	e := newTestEngine(transport)

	go e.run()
	defer func() {
		e.abortNow()
		<-e.done
	}()

	var msgs []Message
	ok := waitUntil(time.Second, func() bool {
		msgs = e.drainInbound()
		return len(msgs) > 0
	})
	if !ok {
		t.Fatal("timed out waiting for ConnectionFailed message")
	}
	if _, isFailed := msgs[0].(ConnectionFailed); !isFailed {
		t.Errorf("first message = %T, want ConnectionFailed", msgs[0])
	}
}

func TestEngineReachesConnectedOnReady(t *testing.T) {
	transport := newFakeTransport()
	e := newTestEngine(transport)

	go e.run()
	defer func() {
		e.abortNow()
		<-e.done
	}()

	if !waitUntil(time.Second, func() bool { return e.currentState() == Connecting }) {
		t.Fatal("engine never reached Connecting")
	}
	if !waitUntil(time.Second, func() bool { return len(transport.recordedWrites()) > 0 }) {
		t.Fatal("handshake frame was never written")
	}
	writes := transport.recordedWrites()
	if writes[0].Opcode != OpHandshake {
		t.Errorf("first write opcode = %v, want OpHandshake", writes[0].Opcode)
	}

	transport.push(readyFrame())

	if !waitUntil(time.Second, func() bool { return e.currentState() == Connected }) {
		t.Fatal("engine never reached Connected")
	}

	var msgs []Message
	if !waitUntil(time.Second, func() bool {
		msgs = append(msgs, e.drainInbound()...)
		return len(msgs) >= 2
	}) {
		t.Fatal("ConnectionEstablished and Ready messages never delivered")
	}
	if _, ok := msgs[0].(ConnectionEstablished); !ok {
		t.Fatalf("first message = %T, want ConnectionEstablished", msgs[0])
	}
	ready, ok := msgs[1].(Ready)
	if !ok {
		t.Fatalf("second message = %T, want Ready", msgs[1])
	}
	if ready.User.ID != "1" {
		t.Errorf("Ready.User.ID = %q, want 1", ready.User.ID)
	}

	cfg, hasCfg := e.currentConfiguration()
	if !hasCfg || cfg.CDNHost != "cdn.discordapp.com" {
		t.Errorf("currentConfiguration() = (%+v,%v), want cdn.discordapp.com", cfg, hasCfg)
	}
}

func TestEngineWriteDrainTransmitsQueuedCommand(t *testing.T) {
	transport := newFakeTransport()
	e := newTestEngine(transport)

	go e.run()
	defer func() {
		e.abortNow()
		<-e.done
	}()

	transport.push(readyFrame())
	if !waitUntil(time.Second, func() bool { return e.currentState() == Connected }) {
		t.Fatal("engine never reached Connected")
	}
	e.drainInbound()

	e.enqueueCommand(Presence{PID: 42, Activity: &RichPresence{State: "hacking"}})

	var frame Frame
	if !waitUntil(time.Second, func() bool {
		writes := transport.recordedWrites()
		for _, w := range writes {
			if w.Opcode == OpFrame {
				frame = w
				return true
			}
		}
		return false
	}) {
		t.Fatal("presence command was never transmitted")
	}

	var env envelope
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Cmd != cmdSetActivity {
		t.Errorf("Cmd = %q, want %q", env.Cmd, cmdSetActivity)
	}
}

func TestEngineRequestShutdownSendsFarewellAndStops(t *testing.T) {
	transport := newFakeTransport()
	e := newTestEngine(transport)

	go e.run()

	transport.push(readyFrame())
	if !waitUntil(time.Second, func() bool { return e.currentState() == Connected }) {
		t.Fatal("engine never reached Connected")
	}

	e.requestShutdown(1234)

	select {
	case <-e.done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after requestShutdown")
	}

	writes := transport.recordedWrites()
	sawClose := false
	for _, w := range writes {
		if w.Opcode == OpClose {
			sawClose = true
		}
	}
	if !sawClose {
		t.Error("farewell Close frame was never written")
	}
}

func TestEngineAbortNowStopsPromptly(t *testing.T) {
	transport := newFakeTransport()
	transport.connectResult = false
	e := newTestEngine(transport)

	go e.run()
	e.abortNow()

	select {
	case <-e.done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after abortNow")
	}
}

func TestEngineRespondsToPing(t *testing.T) {
	transport := newFakeTransport()
	e := newTestEngine(transport)

	go e.run()
	defer func() {
		e.abortNow()
		<-e.done
	}()

	if !waitUntil(time.Second, func() bool { return e.currentState() == Connecting }) {
		t.Fatal("engine never reached Connecting")
	}

	transport.push(Frame{Opcode: OpPing, Payload: []byte("ping-body")})

	if !waitUntil(time.Second, func() bool {
		for _, w := range transport.recordedWrites() {
			if w.Opcode == OpPong {
				return true
			}
		}
		return false
	}) {
		t.Fatal("engine never replied with Pong")
	}
}

func TestNextNonceIsStrictlyIncreasing(t *testing.T) {
	e := newTestEngine(newFakeTransport())
	prev := uint64(0)
	for i := 0; i < 5; i++ {
		n := e.nextNonce()
		if n <= prev {
			t.Fatalf("nonce %d did not increase past %d", n, prev)
		}
		prev = n
	}
}
