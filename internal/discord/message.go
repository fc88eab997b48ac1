package discord

import (
	"encoding/json"
	"time"
)

// Message is the sum type of every inbound value the engine delivers to the
// caller, either through the inbound queue (manual mode) or a callback
// (auto mode). Type returns a stable discriminator a switch can key on.
type Message interface {
	Type() string
	occurredAt() time.Time
}

// base carries the creation timestamp every Message variant embeds.
type base struct {
	CreatedAt time.Time
}

func newBase() base { return base{CreatedAt: time.Now()} }

func (b base) occurredAt() time.Time { return b.CreatedAt }

// ConnectionEstablished reports a successful transport connect, before the
// handshake completes.
type ConnectionEstablished struct {
	base
	Pipe int
}

func (ConnectionEstablished) Type() string { return "ConnectionEstablished" }

// ConnectionFailed reports a failed connect attempt.
type ConnectionFailed struct {
	base
	Pipe int
}

func (ConnectionFailed) Type() string { return "ConnectionFailed" }

// Ready reports a completed handshake: the connection transitioned to
// Connected.
type Ready struct {
	base
	User          User
	Configuration Configuration
}

func (Ready) Type() string { return "Ready" }

// Close reports that the engine's own worker observed a close — either
// Discord-initiated or the farewell handshake completing.
type Close struct {
	base
	Code   int
	Reason string
}

func (Close) Type() string { return "Close" }

// Error surfaces a server-reported error. It never changes connection state.
type Error struct {
	base
	Code    int
	Message string
}

func (Error) Type() string { return "Error" }

// PresenceUpdate reports the server's echo of a SET_ACTIVITY command.
type PresenceUpdate struct {
	base
	Presence *RichPresence
}

func (PresenceUpdate) Type() string { return "Presence" }

// JoinRequest reports an incoming request to join the caller's party. The
// façade attaches Configuration (from the most recent Ready) before
// delivery, per §4.6.1.
type JoinRequest struct {
	base
	User          User
	Configuration Configuration
}

func (JoinRequest) Type() string { return "JoinRequest" }

// Join reports the user accepted a join invite; Secret correlates with the
// caller's own Secrets.Join.
type Join struct {
	base
	Secret string
}

func (Join) Type() string { return "Join" }

// Spectate reports the user accepted a spectate invite.
type Spectate struct {
	base
	Secret string
}

func (Spectate) Type() string { return "Spectate" }

// SubscribeAck confirms a SUBSCRIBE command took effect for Event.
type SubscribeAck struct {
	base
	Event ServerEvent
}

func (SubscribeAck) Type() string { return "Subscribe" }

// UnsubscribeAck confirms an UNSUBSCRIBE command took effect for Event.
type UnsubscribeAck struct {
	base
	Event ServerEvent
}

func (UnsubscribeAck) Type() string { return "Unsubscribe" }

// AuthorizeResult carries the authorization code produced by AUTHORIZE.
type AuthorizeResult struct {
	base
	Code string
}

func (AuthorizeResult) Type() string { return "Authorize" }

// AuthenticateResult carries the session details produced by AUTHENTICATE.
type AuthenticateResult struct {
	base
	User        User
	Scopes      []string
	Expires     time.Time
	Application Application
}

func (AuthenticateResult) Type() string { return "Authenticate" }

// VoiceSettingsResult carries the settings produced by GET_VOICE_SETTINGS or
// SET_VOICE_SETTINGS, passed through verbatim as raw JSON.
type VoiceSettingsResult struct {
	base
	Settings json.RawMessage
}

func (VoiceSettingsResult) Type() string { return "VoiceSettings" }

// User is the Discord user object attached to Ready, JoinRequest, and
// AuthenticateResult.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// Application describes the OAuth2 application attached to an
// AuthenticateResult.
type Application struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Configuration arrives with Ready and is opaque to the engine beyond
// attaching it to avatar-helper calls.
type Configuration struct {
	CDNHost     string `json:"cdn_host"`
	APIEndpoint string `json:"api_endpoint"`
}
