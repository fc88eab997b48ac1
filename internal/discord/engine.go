package discord

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RpcState is the connection engine's protocol state.
type RpcState int

const (
	Disconnected RpcState = iota
	Connecting
	Connected
)

func (s RpcState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// defaultQueuePollMS is the default timeout the worker waits on the
// queue-updated signal between suspension points.
const defaultQueuePollMS = 1000

// engineConfig seeds a new engine. Zero backoff bounds, a nil Transport and
// a nil Logger fall back to the package defaults; a zero queue capacity is
// passed through unchanged and disables that queue (see boundedQueue).
type engineConfig struct {
	ClientID         string
	Target           int
	OutboundCapacity int
	InboundCapacity  int
	BackoffMinMS     int64
	BackoffMaxMS     int64
	Transport        Transport
	Logger           *slog.Logger
	OnMessage        func(Message)
	AutoEvents       bool
}

// engine is the background worker: it owns the transport and the protocol
// state machine for the lifetime of one [Client]. Exactly one goroutine
// (run) ever touches the transport or performs a state transition.
type engine struct {
	clientID  string
	target    int
	transport Transport
	backoff   *Backoff
	logger    *slog.Logger

	outbound *boundedQueue[Command]
	inbound  *boundedQueue[Message]

	onMessage  func(Message)
	autoEvents bool

	stateMu sync.RWMutex
	state   RpcState

	cfgMu  sync.RWMutex
	config Configuration
	hasCfg bool

	nonce atomic.Uint64

	abort    atomic.Bool
	shutdown atomic.Bool

	signal chan struct{}
	done   chan struct{}

	connectedPipe atomic.Int32
}

func newEngine(cfg engineConfig) *engine {
	transport := cfg.Transport
	if transport == nil {
		transport = newPipeTransport()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &engine{
		clientID:   cfg.ClientID,
		target:     cfg.Target,
		transport:  transport,
		backoff:    NewBackoff(cfg.BackoffMinMS, cfg.BackoffMaxMS),
		logger:     logger,
		outbound:   newBoundedQueue[Command](cfg.OutboundCapacity),
		inbound:    newBoundedQueue[Message](cfg.InboundCapacity),
		onMessage:  cfg.OnMessage,
		autoEvents: cfg.AutoEvents,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	e.connectedPipe.Store(-1)
	return e
}

// nextNonce returns the next strictly increasing nonce, starting at 1.
func (e *engine) nextNonce() uint64 {
	return e.nonce.Add(1)
}

// currentState returns the engine's protocol state.
func (e *engine) currentState() RpcState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *engine) setState(s RpcState) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// currentConfiguration returns the Configuration attached by the most recent
// Ready, if any.
func (e *engine) currentConfiguration() (Configuration, bool) {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.config, e.hasCfg
}

func (e *engine) setConfiguration(c Configuration) {
	e.cfgMu.Lock()
	e.config = c
	e.hasCfg = true
	e.cfgMu.Unlock()
}

// signalQueue wakes the worker's queue-update wait. It is safe to call from
// any goroutine, any number of times; the worker coalesces redundant wakeups.
func (e *engine) signalQueue() {
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// enqueueCommand pushes cmd to the outbound queue, logging a drop-oldest
// overflow as an error (the façade treats outbound overflow as caller
// over-production, per §4.4).
func (e *engine) enqueueCommand(cmd Command) {
	dropped, ok := e.outbound.push(cmd)
	if !ok {
		return
	}
	if dropped {
		e.logger.Error("discord: outbound queue overflow, dropped oldest command")
	}
	e.signalQueue()
}

// deliver routes an inbound Message either to the inbound queue (manual
// mode, or auto mode with no callback) or directly to the callback (auto
// mode).
func (e *engine) deliver(m Message) {
	if e.autoEvents && e.onMessage != nil {
		e.onMessage(m)
		return
	}
	dropped, ok := e.inbound.push(m)
	if !ok {
		return
	}
	if dropped {
		e.logger.Warn("discord: inbound queue overflow, dropped oldest message")
	}
}

// drainInbound atomically removes and returns every queued inbound message,
// for manual-events callers.
func (e *engine) drainInbound() []Message {
	return e.inbound.drainAll()
}

// requestShutdown enqueues the graceful farewell sequence: clear the
// outbound queue, push a clear-presence command and the Close sentinel, then
// wake the worker. pid identifies the caller process in the clear-presence
// envelope.
func (e *engine) requestShutdown(pid int) {
	e.outbound.clear()
	e.outbound.push(Presence{PID: pid, Activity: nil})
	e.outbound.push(closeSentinel{})
	e.shutdown.Store(true)
	e.signalQueue()
}

// abortNow sets the hard-abort flag and wakes the worker; it exits at the
// next suspension point without transmitting anything further.
func (e *engine) abortNow() {
	e.abort.Store(true)
	e.signalQueue()
}

// run is the worker's outer keep-alive loop. It returns once abort or
// shutdown has fully drained the engine.
func (e *engine) run() {
	defer close(e.done)

	for {
		if e.abort.Load() {
			return
		}
		if e.transport == nil {
			e.abort.Store(true)
			return
		}

		if !e.transport.Connect(e.target) {
			e.deliver(connectionFailedMessage(e.target))
			if e.abort.Load() || e.shutdown.Load() {
				return
			}
			e.sleepBackoff()
			continue
		}

		pipe := e.transport.ConnectedPipe()
		e.connectedPipe.Store(int32(pipe))
		e.deliver(ConnectionEstablished{base: newBase(), Pipe: pipe})

		body, _ := json.Marshal(handshakeBody{V: 1, ClientID: e.clientID})
		if !e.transport.WriteFrame(Frame{Opcode: OpHandshake, Payload: body}) {
			e.transport.Close()
			e.setState(Disconnected)
			if e.abort.Load() || e.shutdown.Load() {
				return
			}
			e.sleepBackoff()
			continue
		}
		e.setState(Connecting)

		mainloop := true
		for mainloop && !e.abort.Load() && !e.shutdown.Load() && e.transport.IsConnected() {
			mainloop = e.innerIteration()
			if !e.abort.Load() {
				e.writeDrain()
			}
			e.waitQueueSignal()
		}

		// The loop above re-checks !shutdown before each iteration, so a
		// shutdown requested while the worker was parked in
		// waitQueueSignal exits the loop without ever running writeDrain
		// again — the farewell sequence requestShutdown just enqueued
		// would otherwise never be transmitted. Drain it here, once, before
		// the transport is torn down.
		if e.shutdown.Load() && !e.abort.Load() && e.transport.IsConnected() {
			e.writeDrain()
		}

		e.transport.Close()
		e.setState(Disconnected)

		if e.abort.Load() {
			return
		}
		if e.shutdown.Load() {
			return
		}
		e.sleepBackoff()
	}
}

// sleepBackoff sleeps for the next backoff delay, but wakes early if abort
// is requested mid-sleep so dispose() is responsive.
func (e *engine) sleepBackoff() {
	delay := e.backoff.NextDelay()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.signal:
		// Consuming the signal here loses nothing: any enqueue during the
		// sleep re-arms it via signalQueue, and shutdown/abort are read
		// from their own flags on the next outer-loop check.
	}
}

// waitQueueSignal blocks until an enqueue/shutdown/abort signal arrives or
// the poll timeout elapses.
func (e *engine) waitQueueSignal() {
	timer := time.NewTimer(defaultQueuePollMS * time.Millisecond)
	defer timer.Stop()
	select {
	case <-e.signal:
	case <-timer.C:
	}
}

// innerIteration runs one pass of the inner loop (§4.5): a single
// read_frame call plus its dispatch. It returns false to request that the
// caller stop the inner loop (mainloop=false).
func (e *engine) innerIteration() bool {
	frame, ok := e.transport.ReadFrame()
	if !ok {
		return true
	}

	switch frame.Opcode {
	case OpClose:
		var cp closePayload
		if err := json.Unmarshal(frame.Payload, &cp); err != nil {
			e.logger.Error("discord: malformed close payload", "error", err)
		}
		e.deliver(Close{base: newBase(), Code: cp.Code, Reason: cp.Message})
		return false

	case OpPing:
		e.transport.WriteFrame(Frame{Opcode: OpPong, Payload: frame.Payload})
		return true

	case OpPong:
		return true

	case OpFrame:
		if e.shutdown.Load() {
			return true
		}
		var ep eventPayload
		if err := json.Unmarshal(frame.Payload, &ep); err != nil {
			e.logger.Error("discord: malformed frame payload", "error", err)
			return true
		}

		state := e.currentState()
		switch {
		case state == Connecting && ep.Cmd == cmdDispatch && ep.Evt == EventReady:
			var rd readyData
			if err := json.Unmarshal(ep.Data, &rd); err != nil {
				e.logger.Error("discord: malformed ready payload", "error", err)
				return true
			}
			e.setConfiguration(rd.Configuration)
			e.setState(Connected)
			e.backoff.Reset()
			e.deliver(Ready{base: newBase(), User: rd.User, Configuration: rd.Configuration})
			return true

		case state == Connected:
			e.routeResponse(ep)
			return true

		default:
			e.logger.Debug("discord: ignoring frame outside connected state", "cmd", ep.Cmd, "state", state)
			return true
		}

	default:
		e.logger.Error("discord: unknown opcode, terminating connection", "opcode", frame.Opcode)
		return false
	}
}

// routeResponse implements §4.5.1, dispatching an inbound frame payload
// received while Connected.
func (e *engine) routeResponse(ep eventPayload) {
	if ep.Evt == EventError {
		var errData errorMessageData
		if err := json.Unmarshal(ep.Data, &errData); err != nil {
			e.logger.Error("discord: malformed error payload", "error", err)
			return
		}
		e.deliver(Error{base: newBase(), Code: errData.Code, Message: errData.Message})
		return
	}

	switch ep.Cmd {
	case cmdDispatch:
		switch ep.Evt {
		case EventActivityJoin:
			var d dispatchSecretData
			if err := json.Unmarshal(ep.Data, &d); err == nil {
				e.deliver(Join{base: newBase(), Secret: d.Secret})
			}
		case EventActivitySpectate:
			var d dispatchSecretData
			if err := json.Unmarshal(ep.Data, &d); err == nil {
				e.deliver(Spectate{base: newBase(), Secret: d.Secret})
			}
		case EventActivityJoinRequest:
			var d dispatchJoinRequestData
			if err := json.Unmarshal(ep.Data, &d); err == nil {
				e.deliver(JoinRequest{base: newBase(), User: d.User})
			}
		default:
			e.logger.Debug("discord: unhandled dispatch event", "evt", ep.Evt)
		}

	case cmdAuthorize:
		var d authorizeResponseData
		if err := json.Unmarshal(ep.Data, &d); err == nil {
			e.deliver(AuthorizeResult{base: newBase(), Code: d.Code})
		}

	case cmdAuthenticate:
		var d authenticateResponseData
		if err := json.Unmarshal(ep.Data, &d); err == nil {
			expires, _ := time.Parse(time.RFC3339, d.Expires)
			e.deliver(AuthenticateResult{
				base:        newBase(),
				User:        d.User,
				Scopes:      d.Scopes,
				Expires:     expires,
				Application: d.Application,
			})
		}

	case cmdSetActivity:
		var presence *RichPresence
		if len(ep.Data) > 0 && string(ep.Data) != "null" {
			var p RichPresence
			if err := json.Unmarshal(ep.Data, &p); err == nil {
				presence = &p
			}
		}
		e.deliver(PresenceUpdate{base: newBase(), Presence: presence})

	case cmdGetVoiceSettings, cmdSetVoiceSettings:
		e.deliver(VoiceSettingsResult{base: newBase(), Settings: ep.Data})

	case cmdSubscribe:
		e.deliver(SubscribeAck{base: newBase(), Event: ep.Evt})

	case cmdUnsubscribe:
		e.deliver(UnsubscribeAck{base: newBase(), Event: ep.Evt})

	case cmdSendActivityJoinInvite, cmdCloseActivityJoinRequest:
		e.logger.Debug("discord: join-request acknowledgement received", "cmd", ep.Cmd)

	default:
		e.logger.Debug("discord: unknown command in response", "cmd", ep.Cmd)
	}
}

// writeDrain implements §4.5.2: transmits as much of the outbound queue as
// possible while the transport remains connected.
func (e *engine) writeDrain() {
	for e.transport.IsConnected() && e.currentState() == Connected {
		cmd, ok := e.outbound.peek()
		if !ok {
			return
		}

		if _, isClose := cmd.(closeSentinel); isClose {
			body, _ := json.Marshal(handshakeBody{V: 1, ClientID: e.clientID})
			e.transport.WriteFrame(Frame{Opcode: OpClose, Payload: body})
			e.outbound.pop()
			return
		}

		if e.abort.Load() {
			e.outbound.pop()
			continue
		}

		nonce := e.nextNonce()
		payload, err := cmd.PreparePayload(nonce)
		if err != nil {
			e.logger.Error("discord: failed to serialize command", "error", err)
			e.outbound.pop()
			continue
		}
		if !e.transport.WriteFrame(Frame{Opcode: OpFrame, Payload: payload}) {
			return
		}
		e.outbound.pop()
	}
}

// connectionFailedMessage builds the ConnectionFailed message for a failed
// connect attempt against the given target index.
func connectionFailedMessage(target int) Message {
	pipe := target
	if pipe < 0 {
		pipe = -1
	}
	return ConnectionFailed{base: newBase(), Pipe: pipe}
}
