package discord

import "encoding/json"

// eventPayload is the decoded shape of an inbound Opcode.Frame payload.
type eventPayload struct {
	Cmd   commandName     `json:"cmd"`
	Evt   ServerEvent     `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// closePayload is the decoded shape of an inbound Opcode.Close payload.
type closePayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// readyData is the `data` shape of a DISPATCH/READY event.
type readyData struct {
	V             int           `json:"v"`
	Configuration Configuration `json:"config"`
	User          User          `json:"user"`
}

// dispatchSecretData is the `data` shape of ACTIVITY_JOIN / ACTIVITY_SPECTATE.
type dispatchSecretData struct {
	Secret string `json:"secret"`
}

// dispatchJoinRequestData is the `data` shape of ACTIVITY_JOIN_REQUEST.
type dispatchJoinRequestData struct {
	User User `json:"user"`
}

// authorizeResponseData is the `data` shape of an AUTHORIZE reply.
type authorizeResponseData struct {
	Code string `json:"code"`
}

// authenticateResponseData is the `data` shape of an AUTHENTICATE reply.
type authenticateResponseData struct {
	User        User        `json:"user"`
	Scopes      []string    `json:"scopes"`
	Expires     string      `json:"expires"`
	Application Application `json:"application"`
}

// errorMessageData is the `data` shape accompanying `evt=ERROR`.
type errorMessageData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handshakeBody is the Opcode.Handshake payload shape, also reused verbatim
// as the body of the Opcode.Close "handwave" farewell frame per §9.
type handshakeBody struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}
