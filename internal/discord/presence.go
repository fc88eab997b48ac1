package discord

import (
	"encoding/json"
	"errors"
)

// RichPresence describes the activity a host application advertises through
// the engine. Only the fields the wire protocol actually serializes live
// here — the broader "what does my game state mean" domain model is a
// concern of the host application, not this package.
type RichPresence struct {
	State      string      `json:"state,omitempty"`
	Details    string      `json:"details,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Party      *Party      `json:"party,omitempty"`
	Secrets    *Secrets    `json:"secrets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Instance   bool        `json:"instance,omitempty"`
}

// Timestamps marks the start and/or end of an activity, in Unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets names the large/small image keys and hover text shown alongside the
// activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Party describes group membership.
type Party struct {
	ID   string `json:"id,omitempty"`
	Size int    `json:"-"`
	Max  int    `json:"-"`
}

// partyWire is the wire shape of Party: size/max travel as a 2-element array.
type partyWire struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"`
}

// MarshalJSON encodes Party per the wire format, where current/max size
// travel together as a 2-element array rather than separate fields.
func (p Party) MarshalJSON() ([]byte, error) {
	w := partyWire{ID: p.ID}
	if p.Size != 0 || p.Max != 0 {
		w.Size = []int{p.Size, p.Max}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes Party from the wire format.
func (p *Party) UnmarshalJSON(data []byte) error {
	var w partyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.ID = w.ID
	if len(w.Size) == 2 {
		p.Size = w.Size[0]
		p.Max = w.Size[1]
	}
	return nil
}

// Secrets carries join/spectate/match correlation secrets. Secrets require a
// registered URI scheme to be meaningful, per §4.6.1.
type Secrets struct {
	Join     string `json:"join,omitempty"`
	Spectate string `json:"spectate,omitempty"`
	Match    string `json:"match,omitempty"`
}

// Button is a clickable call-to-action shown on the activity card.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ErrBadPresence reports a presence that failed validation per §4.6.1 and was
// never enqueued.
var ErrBadPresence = errors.New("discord: invalid presence")

// hasSecrets reports whether any join/spectate/match secret is set.
func (p *RichPresence) hasSecrets() bool {
	return p != nil && p.Secrets != nil &&
		(p.Secrets.Join != "" || p.Secrets.Spectate != "" || p.Secrets.Match != "")
}

// hasParty reports whether party membership is set.
func (p *RichPresence) hasParty() bool {
	return p != nil && p.Party != nil
}

// validate applies the §4.6.1 rules before a non-null presence is enqueued.
// uriRegistered reflects whether the façade's URI scheme registration
// succeeded; warnings are returned alongside a nil error so the caller can
// log them without failing the send.
func (p *RichPresence) validate(uriRegistered bool) (warning string, err error) {
	if p == nil {
		return "", nil
	}
	if p.hasSecrets() && !uriRegistered {
		return "", ErrBadPresence
	}
	if p.hasParty() && p.Party.Max < p.Party.Size {
		return "", ErrBadPresence
	}
	if p.hasSecrets() && !p.hasParty() {
		warning = "presence has secrets but no party; join/spectate buttons will not display"
	}
	return warning, nil
}

// clone returns a deep copy of p, or nil if p is nil.
func (p *RichPresence) clone() *RichPresence {
	if p == nil {
		return nil
	}
	out := *p
	if p.Timestamps != nil {
		ts := *p.Timestamps
		out.Timestamps = &ts
	}
	if p.Assets != nil {
		a := *p.Assets
		out.Assets = &a
	}
	if p.Party != nil {
		party := *p.Party
		out.Party = &party
	}
	if p.Secrets != nil {
		s := *p.Secrets
		out.Secrets = &s
	}
	if p.Buttons != nil {
		out.Buttons = append([]Button(nil), p.Buttons...)
	}
	return &out
}

// mergePresence applies incoming, field-wise, on top of base: any non-zero
// field in incoming overwrites base's, matching the source's non-null-wins semantics.
// The result is a new value; neither argument is mutated.
func mergePresence(base, incoming *RichPresence) *RichPresence {
	if incoming == nil {
		return base.clone()
	}
	if base == nil {
		return incoming.clone()
	}

	merged := base.clone()
	if incoming.State != "" {
		merged.State = incoming.State
	}
	if incoming.Details != "" {
		merged.Details = incoming.Details
	}
	if incoming.Timestamps != nil {
		merged.Timestamps = incoming.Timestamps.clone()
	}
	if incoming.Assets != nil {
		merged.Assets = incoming.Assets.clone()
	}
	if incoming.Party != nil {
		p := *incoming.Party
		merged.Party = &p
	}
	if incoming.Secrets != nil {
		s := *incoming.Secrets
		merged.Secrets = &s
	}
	if incoming.Buttons != nil {
		merged.Buttons = append([]Button(nil), incoming.Buttons...)
	}
	if incoming.Instance {
		merged.Instance = incoming.Instance
	}
	return merged
}

func (t *Timestamps) clone() *Timestamps {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func (a *Assets) clone() *Assets {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

// equal reports deep equality, used for set_presence's skip-identical dedup.
func (p *RichPresence) equal(other *RichPresence) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	if p.State != other.State || p.Details != other.Details || p.Instance != other.Instance {
		return false
	}
	if !timestampsEqual(p.Timestamps, other.Timestamps) {
		return false
	}
	if !assetsEqual(p.Assets, other.Assets) {
		return false
	}
	if !partyEqual(p.Party, other.Party) {
		return false
	}
	if !secretsEqual(p.Secrets, other.Secrets) {
		return false
	}
	if len(p.Buttons) != len(other.Buttons) {
		return false
	}
	for i := range p.Buttons {
		if p.Buttons[i] != other.Buttons[i] {
			return false
		}
	}
	return true
}

func timestampsEqual(a, b *Timestamps) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func assetsEqual(a, b *Assets) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func partyEqual(a, b *Party) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func secretsEqual(a, b *Secrets) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
