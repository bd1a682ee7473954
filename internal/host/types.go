package host

import (
	"encoding/json"
	"strings"
)

// Role identifies the author side of a message, captured at favorite time.
type Role string

const (
	RoleUser      Role = "user"
	RoleCharacter Role = "character"
)

// Message is the normalized record for one entry of a chat's ordered
// message sequence. Hosts hand these across the boundary; everything the
// engine needs is explicit, anything else rides in Extra.
type Message struct {
	Name     string         `json:"name"`
	IsUser   bool           `json:"is_user"`
	Mes      string         `json:"mes"`
	SendDate string         `json:"send_date"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Normalize fills display fields a host may omit. Unknown senders get a
// role-appropriate placeholder so rendering never shows an empty name.
func (m *Message) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		if m.IsUser {
			m.Name = "User"
		} else {
			m.Name = "Character"
		}
	}
}

// Role returns the role enum for the message author.
func (m *Message) Role() Role {
	if m.IsUser {
		return RoleUser
	}
	return RoleCharacter
}

// Clone returns a deep copy of the message. Extra is copied through a JSON
// round trip so nested values never alias the original.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Extra != nil {
		raw, err := json.Marshal(m.Extra)
		if err == nil {
			var extra map[string]any
			if json.Unmarshal(raw, &extra) == nil {
				cp.Extra = extra
			}
		}
	}
	return &cp
}

// CloneMessages deep-copies a message sequence. This is the snapshot taken
// before any chat-switching side effect begins.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out
}

// Favorite is one user-created bookmark of a message, persisted inside the
// owning chat's metadata.
type Favorite struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Role      Role   `json:"role"`
	Note      string `json:"note"`
}

// Metadata is a chat's arbitrary-JSON metadata object. The favorites
// collection is typed; every other field round-trips untouched via Extra.
type Metadata struct {
	Favorites []Favorite
	Extra     map[string]json.RawMessage
}

// UnmarshalJSON normalizes at the boundary: a malformed favorites field is
// dropped (the store re-initializes it), unknown fields are preserved.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if favRaw, ok := raw["favorites"]; ok {
		var favs []Favorite
		if err := json.Unmarshal(favRaw, &favs); err == nil {
			m.Favorites = favs
		}
		delete(raw, "favorites")
	}
	m.Extra = raw
	return nil
}

// MarshalJSON merges the typed favorites collection back with the preserved
// unknown fields.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	favs := m.Favorites
	if favs == nil {
		favs = []Favorite{}
	}
	favRaw, err := json.Marshal(favs)
	if err != nil {
		return nil, err
	}
	out["favorites"] = favRaw
	return json.Marshal(out)
}
