// Package discord implements a client for Discord's local Rich Presence IPC
// channel: a framed, length-prefixed binary protocol carried over a
// platform-specific local transport (a named pipe on Windows, a UNIX domain
// socket elsewhere).
//
// [Client] is the public façade. It owns a background worker ([engine]) that
// drives the connection state machine, reconnects with backoff, and
// demultiplexes inbound frames into typed [Message] values. Platform-specific
// endpoint discovery lives in transport_unix.go, transport_windows.go, and
// the transport_wsl*.go pair.
package discord

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

var (
	// ErrAlreadyInitialized is returned by Initialize on a Client already running.
	ErrAlreadyInitialized = errors.New("discord: client already initialized")
	// ErrNotInitialized is returned by operations requiring Initialize first.
	ErrNotInitialized = errors.New("discord: client not initialized")
	// ErrDisposed is returned by any operation on a disposed Client.
	ErrDisposed = errors.New("discord: client disposed")
	// ErrURISchemeNotRegistered is returned by Subscribe and Unsubscribe when
	// no URI scheme is registered. A presence carrying secrets is rejected
	// with ErrBadPresence instead.
	ErrURISchemeNotRegistered = errors.New("discord: URI scheme not registered")
	// ErrManualEventsOnly is returned by Invoke when the client was
	// constructed in auto-events mode.
	ErrManualEventsOnly = errors.New("discord: Invoke is only valid in manual-events mode")
)

// EventSet is a bitmask of server-pushed events a Client can subscribe to.
type EventSet uint8

const (
	EventSetJoin EventSet = 1 << iota
	EventSetSpectate
	EventSetJoinRequest
)

// EventSink receives a copy of every inbound Message for durable recording
// (see internal/eventlog.Writer, which satisfies this interface). Append
// errors are logged and otherwise ignored — a failing audit trail must never
// block message delivery.
type EventSink interface {
	Append(eventType string, payload any) error
}

// EventMode selects how inbound messages are dispatched.
type EventMode int

const (
	// AutoEvents invokes the configured callback on the worker goroutine as
	// messages arrive.
	AutoEvents EventMode = iota
	// ManualEvents requires the caller to poll Invoke.
	ManualEvents
)

// ClientOptions configures a new [Client].
type ClientOptions struct {
	ApplicationID string
	// Target pins a specific endpoint index (0-9); -1 probes in order.
	Target int
	// OutboundCapacity and InboundCapacity bound the two queues (§4.4).
	// Zero is not replaced by a default: a zero-capacity queue never buffers,
	// so a zero OutboundCapacity transmits no commands and a zero
	// InboundCapacity delivers messages only through OnMessage in AutoEvents
	// mode.
	OutboundCapacity int
	InboundCapacity  int
	// BackoffMinMS and BackoffMaxMS bound the reconnect delay (§4.3).
	BackoffMinMS int64
	BackoffMaxMS int64
	// Mode selects auto vs. manual event dispatch.
	Mode EventMode
	// OnMessage receives every inbound Message once the §4.6.1 application
	// rules have run. In ManualEvents mode it is invoked from Invoke; in
	// AutoEvents mode it is invoked from the worker goroutine and must not
	// block.
	OnMessage func(Message)
	// SkipIdenticalPresence suppresses SetPresence calls that deep-equal the
	// last presence actually sent.
	SkipIdenticalPresence bool
	// URISchemeRegistered reflects whether the host application successfully
	// registered its URI scheme (see internal/registrar). Subscribe and
	// presences carrying secrets require it.
	URISchemeRegistered bool
	// Logger receives structured diagnostics; defaults to slog.Default().
	Logger *slog.Logger
	// Transport overrides endpoint discovery, primarily for tests.
	Transport Transport
	// EventLog, if set, receives a durable copy of every inbound Message.
	EventLog EventSink
	// RefreshedToken, if set, is consulted on every Ready message. A true
	// second return re-authenticates the session with the returned access
	// token, letting a host application keep an externally refreshed
	// internal/tokencache entry in sync with the engine.
	RefreshedToken func() (accessToken string, ok bool)
}

// Client is the public façade over the connection engine. All exposed
// operations are non-blocking; their effects are carried out asynchronously
// by the worker through the outbound queue.
type Client struct {
	applicationID string
	pid           int
	logger        *slog.Logger
	mode          EventMode
	onMessage     func(Message)
	uriRegistered bool
	skipIdentical bool

	mu          sync.Mutex
	initialized bool
	disposed    bool

	presenceMu sync.Mutex
	presence   *RichPresence
	lastSent   *RichPresence

	subMu sync.Mutex
	subs  EventSet

	eventLog       EventSink
	refreshedToken func() (string, bool)

	userMu  sync.Mutex
	user    User
	hasUser bool

	engine *engine
}

// NewClient constructs a Client. It does not start the worker; call
// Initialize to do so.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		applicationID:  opts.ApplicationID,
		pid:            os.Getpid(),
		logger:         logger,
		mode:           opts.Mode,
		onMessage:      opts.OnMessage,
		uriRegistered:  opts.URISchemeRegistered,
		skipIdentical:  opts.SkipIdenticalPresence,
		eventLog:       opts.EventLog,
		refreshedToken: opts.RefreshedToken,
	}

	c.engine = newEngine(engineConfig{
		ClientID:         opts.ApplicationID,
		Target:           opts.Target,
		OutboundCapacity: opts.OutboundCapacity,
		InboundCapacity:  opts.InboundCapacity,
		BackoffMinMS:     opts.BackoffMinMS,
		BackoffMaxMS:     opts.BackoffMaxMS,
		Transport:        opts.Transport,
		Logger:           logger,
		OnMessage:        func(m Message) { c.onEngineMessage(m) },
		AutoEvents:       opts.Mode == AutoEvents,
	})

	return c
}

// Initialize starts the worker goroutine. It fails if already initialized or
// disposed.
func (c *Client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if c.initialized {
		return ErrAlreadyInitialized
	}
	c.initialized = true
	go c.engine.run()
	return nil
}

// Dispose is equivalent to Shutdown followed immediately by a hard abort: it
// does not wait for Discord to confirm the farewell. Safe to call multiple
// times.
func (c *Client) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	initialized := c.initialized
	c.mu.Unlock()

	if !initialized {
		return nil
	}
	c.engine.requestShutdown(c.pid)
	c.engine.abortNow()
	<-c.engine.done
	return nil
}

// Shutdown requests a graceful disconnect: the current presence is cleared,
// a farewell frame is sent, and the engine does not reconnect afterward. It
// does not block until Discord confirms.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	c.mu.Unlock()

	c.engine.requestShutdown(c.pid)
	return nil
}

// CurrentUser returns the Discord user object attached to the most recent
// Ready message, or ok=false if no Ready has been received yet.
func (c *Client) CurrentUser() (user User, ok bool) {
	c.userMu.Lock()
	defer c.userMu.Unlock()
	return c.user, c.hasUser
}

// State reports the engine's current connection state.
func (c *Client) State() RpcState {
	return c.engine.currentState()
}

// ///////////////////////////////////////////////
// Presence
// ///////////////////////////////////////////////

// SetPresence replaces the current presence (nil clears it). If
// SkipIdenticalPresence is enabled and presence deep-equals the last one
// actually transmitted, the call is a silent no-op.
func (c *Client) SetPresence(presence *RichPresence) error {
	if err := c.requireRunning(); err != nil {
		return err
	}

	if presence != nil {
		warning, err := presence.validate(c.uriRegistered)
		if err != nil {
			return err
		}
		if warning != "" {
			c.logger.Warn("discord: " + warning)
		}
	}

	c.presenceMu.Lock()
	if c.skipIdentical && presence.equal(c.lastSent) {
		c.presenceMu.Unlock()
		return nil
	}
	sendCopy := presence.clone()
	c.presence = presence.clone()
	c.lastSent = presence.clone()
	c.presenceMu.Unlock()

	c.engine.enqueueCommand(Presence{PID: c.pid, Activity: sendCopy})
	return nil
}

// SetPresenceIgnoringGlobs calls [Client.SetPresence] unless isIgnored(cwd)
// reports true, in which case the update is dropped and the presence is
// instead cleared (nil), matching the "working directory is on the privacy
// ignore list" behavior a host application uses to avoid leaking project
// names (internal/config's Privacy.Ignore doublestar patterns feed isIgnored).
func (c *Client) SetPresenceIgnoringGlobs(presence *RichPresence, cwd string, isIgnored func(cwd string) bool) error {
	if isIgnored != nil && isIgnored(cwd) {
		return c.SetPresence(nil)
	}
	return c.SetPresence(presence)
}

// currentPresenceClone returns a deep copy of the presence currently cached
// by this client, or nil.
func (c *Client) currentPresenceClone() *RichPresence {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	return c.presence.clone()
}

// updatePresence clones the cached presence, lets mutate apply one field
// change, and re-sends it through SetPresence.
func (c *Client) updatePresence(mutate func(*RichPresence)) error {
	next := c.currentPresenceClone()
	if next == nil {
		next = &RichPresence{}
	}
	mutate(next)
	return c.SetPresence(next)
}

// UpdateState sets the State field and re-sends the presence.
func (c *Client) UpdateState(state string) error {
	return c.updatePresence(func(p *RichPresence) { p.State = state })
}

// UpdateDetails sets the Details field and re-sends the presence.
func (c *Client) UpdateDetails(details string) error {
	return c.updatePresence(func(p *RichPresence) { p.Details = details })
}

// UpdateTimestamps sets the Timestamps field and re-sends the presence.
func (c *Client) UpdateTimestamps(ts *Timestamps) error {
	return c.updatePresence(func(p *RichPresence) { p.Timestamps = ts })
}

// UpdateAssets sets the Assets field and re-sends the presence.
func (c *Client) UpdateAssets(assets *Assets) error {
	return c.updatePresence(func(p *RichPresence) { p.Assets = assets })
}

// UpdateParty sets the Party field and re-sends the presence.
func (c *Client) UpdateParty(party *Party) error {
	return c.updatePresence(func(p *RichPresence) { p.Party = party })
}

// UpdateSecrets sets the Secrets field and re-sends the presence.
func (c *Client) UpdateSecrets(secrets *Secrets) error {
	return c.updatePresence(func(p *RichPresence) { p.Secrets = secrets })
}

// UpdateButtons sets the Buttons field and re-sends the presence.
func (c *Client) UpdateButtons(buttons []Button) error {
	return c.updatePresence(func(p *RichPresence) { p.Buttons = buttons })
}

// ///////////////////////////////////////////////
// Subscriptions
// ///////////////////////////////////////////////

// Subscribe enqueues SUBSCRIBE commands for every event in events not
// already subscribed. Requires a registered URI scheme.
func (c *Client) Subscribe(events EventSet) error {
	return c.changeSubscription(events, false)
}

// Unsubscribe enqueues UNSUBSCRIBE commands for every event in events
// currently subscribed.
func (c *Client) Unsubscribe(events EventSet) error {
	return c.changeSubscription(events, true)
}

func (c *Client) changeSubscription(events EventSet, unsubscribe bool) error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	if !c.uriRegistered {
		return ErrURISchemeNotRegistered
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, bit := range []EventSet{EventSetJoin, EventSetSpectate, EventSetJoinRequest} {
		if events&bit == 0 {
			continue
		}
		already := c.subs&bit != 0
		if unsubscribe == already {
			continue
		}
		c.engine.enqueueCommand(Subscribe{Event: eventSetToServerEvent(bit), Unsubscribe: unsubscribe})
		if unsubscribe {
			c.subs &^= bit
		} else {
			c.subs |= bit
		}
	}
	return nil
}

func eventSetToServerEvent(bit EventSet) ServerEvent {
	switch bit {
	case EventSetJoin:
		return EventActivityJoin
	case EventSetSpectate:
		return EventActivitySpectate
	case EventSetJoinRequest:
		return EventActivityJoinRequest
	default:
		return ""
	}
}

// ///////////////////////////////////////////////
// Authentication, Voice, Join Requests
// ///////////////////////////////////////////////

// Authorize starts the OAuth2 authorization-code flow.
func (c *Client) Authorize(clientID string, scopes []string) error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	c.engine.enqueueCommand(Authorize{ClientID: clientID, Scopes: scopes})
	return nil
}

// Authenticate exchanges an access token (obtained out-of-band, typically
// via internal/oauth and internal/tokencache) for a session.
func (c *Client) Authenticate(accessToken string) error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	c.engine.enqueueCommand(Authenticate{AccessToken: accessToken})
	return nil
}

// GetVoiceSettings requests the user's current voice settings.
func (c *Client) GetVoiceSettings() error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	c.engine.enqueueCommand(GetVoiceSettings{})
	return nil
}

// SetVoiceSettings applies settings verbatim.
func (c *Client) SetVoiceSettings(settings json.RawMessage) error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	c.engine.enqueueCommand(SetVoiceSettings{Settings: settings})
	return nil
}

// Respond accepts or declines an incoming join request.
func (c *Client) Respond(userID string, accept bool) error {
	if err := c.requireRunning(); err != nil {
		return err
	}
	c.engine.enqueueCommand(Respond{UserID: userID, Accept: accept})
	return nil
}

// ///////////////////////////////////////////////
// Message Dispatch
// ///////////////////////////////////////////////

// Invoke drains the inbound queue and applies the §4.6.1 message
// application rules, including invoking OnMessage for each. It is only
// valid in ManualEvents mode.
func (c *Client) Invoke() ([]Message, error) {
	if c.mode != ManualEvents {
		return nil, ErrManualEventsOnly
	}
	messages := c.engine.drainInbound()
	for i, m := range messages {
		messages[i] = c.onEngineMessage(m)
	}
	return messages, nil
}

// onEngineMessage applies the §4.6.1 rules to an inbound Message, forwards
// the (possibly augmented) result to the configured OnMessage callback, and
// returns it for the manual-mode Invoke caller.
func (c *Client) onEngineMessage(m Message) Message {
	if c.eventLog != nil {
		if err := c.eventLog.Append(m.Type(), m); err != nil {
			c.logger.Warn("discord: event log append failed", "error", err)
		}
	}

	switch msg := m.(type) {
	case Ready:
		// §4.6.1: Ready stores Configuration and User before synchronizing
		// state. Configuration lives on the engine (currentConfiguration);
		// User is cached here for CurrentUser.
		c.userMu.Lock()
		c.user = msg.User
		c.hasUser = true
		c.userMu.Unlock()
		c.synchronizeState()
		if c.refreshedToken != nil {
			if token, ok := c.refreshedToken(); ok {
				_ = c.Authenticate(token)
			}
		}
	case PresenceUpdate:
		c.presenceMu.Lock()
		c.presence = mergePresence(c.presence, msg.Presence)
		c.presenceMu.Unlock()
	case JoinRequest:
		if cfg, ok := c.engine.currentConfiguration(); ok {
			msg.Configuration = cfg
			m = msg
		}
	}

	if c.onMessage != nil {
		c.onMessage(m)
	}
	return m
}

// synchronizeState re-issues the current presence and re-applies the current
// subscription set after a (re)connect, per §4.6.1 and the *Reconnect*
// scenario in §8.
func (c *Client) synchronizeState() {
	presence := c.currentPresenceClone()
	if presence != nil {
		c.engine.enqueueCommand(Presence{PID: c.pid, Activity: presence})
	}

	if !c.uriRegistered {
		return
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, bit := range []EventSet{EventSetJoin, EventSetSpectate, EventSetJoinRequest} {
		if c.subs&bit != 0 {
			c.engine.enqueueCommand(Subscribe{Event: eventSetToServerEvent(bit)})
		}
	}
}

func (c *Client) requireRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return nil
}
