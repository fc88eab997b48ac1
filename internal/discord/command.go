package discord

import (
	"encoding/json"
	"strconv"
)

// commandName is the wire-level `cmd` discriminator.
type commandName string

const (
	cmdSetActivity               commandName = "SET_ACTIVITY"
	cmdSendActivityJoinInvite    commandName = "SEND_ACTIVITY_JOIN_INVITE"
	cmdCloseActivityJoinRequest  commandName = "CLOSE_ACTIVITY_JOIN_REQUEST"
	cmdSubscribe                 commandName = "SUBSCRIBE"
	cmdUnsubscribe               commandName = "UNSUBSCRIBE"
	cmdAuthorize                 commandName = "AUTHORIZE"
	cmdAuthenticate              commandName = "AUTHENTICATE"
	cmdGetVoiceSettings          commandName = "GET_VOICE_SETTINGS"
	cmdSetVoiceSettings          commandName = "SET_VOICE_SETTINGS"
	cmdDispatch                  commandName = "DISPATCH"
)

// ServerEvent enumerates the `evt` values the wire protocol carries, both on
// subscribe/unsubscribe commands and on inbound dispatch payloads.
type ServerEvent string

const (
	EventReady             ServerEvent = "READY"
	EventError             ServerEvent = "ERROR"
	EventActivityJoin      ServerEvent = "ACTIVITY_JOIN"
	EventActivitySpectate  ServerEvent = "ACTIVITY_SPECTATE"
	EventActivityJoinRequest ServerEvent = "ACTIVITY_JOIN_REQUEST"
)

// Command is the sum type of every outbound command variant. PreparePayload
// is the single seam through which a variant becomes wire bytes; it is the
// only method the engine's write-drain calls.
type Command interface {
	// PreparePayload serializes the command's envelope for nonce n. Close
	// never reaches this seam — the write-drain recognizes it by type switch
	// and handles it as a sentinel instead.
	PreparePayload(nonce uint64) ([]byte, error)
}

// envelope is the outermost JSON shape of every non-sentinel outbound frame.
type envelope struct {
	Cmd   commandName `json:"cmd"`
	Nonce string      `json:"nonce"`
	Args  any         `json:"args,omitempty"`
	Evt   ServerEvent `json:"evt,omitempty"`
}

func prepare(cmd commandName, nonce uint64, args any, evt ServerEvent) ([]byte, error) {
	return json.Marshal(envelope{
		Cmd:   cmd,
		Nonce: strconv.FormatUint(nonce, 10),
		Args:  args,
		Evt:   evt,
	})
}

// Presence sets or clears (activity=nil) the caller's rich presence.
type Presence struct {
	PID      int
	Activity *RichPresence
}

func (c Presence) PreparePayload(nonce uint64) ([]byte, error) {
	args := struct {
		PID      int           `json:"pid"`
		Activity *RichPresence `json:"activity"`
	}{PID: c.PID, Activity: c.Activity}
	return prepare(cmdSetActivity, nonce, args, "")
}

// Respond answers a join request, accepting or declining it.
type Respond struct {
	UserID string
	Accept bool
}

func (c Respond) PreparePayload(nonce uint64) ([]byte, error) {
	args := struct {
		UserID string `json:"user_id"`
	}{UserID: c.UserID}
	name := cmdCloseActivityJoinRequest
	if c.Accept {
		name = cmdSendActivityJoinInvite
	}
	return prepare(name, nonce, args, "")
}

// Subscribe subscribes (or, with Unsubscribe set, unsubscribes) from a
// single server-pushed event.
type Subscribe struct {
	Event       ServerEvent
	Unsubscribe bool
}

func (c Subscribe) PreparePayload(nonce uint64) ([]byte, error) {
	name := cmdSubscribe
	if c.Unsubscribe {
		name = cmdUnsubscribe
	}
	return prepare(name, nonce, nil, c.Event)
}

// Authorize begins the OAuth2 authorization-code flow.
type Authorize struct {
	ClientID string
	Scopes   []string
}

func (c Authorize) PreparePayload(nonce uint64) ([]byte, error) {
	args := struct {
		ClientID string   `json:"client_id"`
		Scopes   []string `json:"scopes"`
	}{ClientID: c.ClientID, Scopes: c.Scopes}
	return prepare(cmdAuthorize, nonce, args, "")
}

// Authenticate exchanges a previously obtained access token for a session.
type Authenticate struct {
	AccessToken string
}

func (c Authenticate) PreparePayload(nonce uint64) ([]byte, error) {
	args := struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: c.AccessToken}
	return prepare(cmdAuthenticate, nonce, args, "")
}

// GetVoiceSettings requests the user's current voice settings. It carries no
// arguments.
type GetVoiceSettings struct{}

func (c GetVoiceSettings) PreparePayload(nonce uint64) ([]byte, error) {
	return prepare(cmdGetVoiceSettings, nonce, nil, "")
}

// SetVoiceSettings applies a new voice settings payload verbatim.
type SetVoiceSettings struct {
	Settings json.RawMessage
}

func (c SetVoiceSettings) PreparePayload(nonce uint64) ([]byte, error) {
	return prepare(cmdSetVoiceSettings, nonce, c.Settings, "")
}

// closeSentinel is the engine-internal marker that triggers the graceful
// farewell sequence (§4.5.2). It is never serialized through PreparePayload;
// the write-drain recognizes it via a type switch before reaching that seam.
type closeSentinel struct{}

func (closeSentinel) PreparePayload(uint64) ([]byte, error) {
	panic("discord: closeSentinel must never reach PreparePayload")
}
