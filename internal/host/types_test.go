package host

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/starmarkhq/starmark/internal/bus"
)

func newTestBus() *bus.Bus { return bus.New() }

func TestMetadataRoundTripPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{"favorites":[{"id":"a1","messageId":"3","sender":"Alice","role":"user","note":""}],"custom_field":{"nested":true}}`)

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(meta.Favorites) != 1 || meta.Favorites[0].ID != "a1" {
		t.Fatalf("favorites = %+v, want one item a1", meta.Favorites)
	}
	if _, ok := meta.Extra["custom_field"]; !ok {
		t.Error("custom_field not preserved in Extra")
	}

	out, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if _, ok := back["custom_field"]; !ok {
		t.Error("custom_field lost on round trip")
	}
	if _, ok := back["favorites"]; !ok {
		t.Error("favorites lost on round trip")
	}
}

func TestMetadataMalformedFavoritesDropped(t *testing.T) {
	raw := []byte(`{"favorites":"not-an-array"}`)

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if meta.Favorites != nil {
		t.Errorf("favorites = %+v, want nil for malformed field", meta.Favorites)
	}
}

func TestMessageCloneIsDeep(t *testing.T) {
	orig := &Message{
		Name:  "Alice",
		Mes:   "hello",
		Extra: map[string]any{"tags": []any{"a"}},
	}
	cp := orig.Clone()
	cp.Mes = "changed"
	cp.Extra["tags"] = []any{"b"}

	if orig.Mes != "hello" {
		t.Errorf("original Mes mutated: %q", orig.Mes)
	}
	if tags := orig.Extra["tags"].([]any); tags[0] != "a" {
		t.Errorf("original Extra mutated: %v", tags)
	}
}

func TestContextSubjectKey(t *testing.T) {
	cases := []struct {
		name string
		ctx  Context
		want string
	}{
		{"character", Context{CharacterID: "7"}, "char_7"},
		{"group", Context{GroupID: "g1"}, "group_g1"},
		{"group wins", Context{CharacterID: "7", GroupID: "g1"}, "group_g1"},
		{"none", Context{ChatID: "c"}, ""},
	}
	for _, tc := range cases {
		if got := tc.ctx.SubjectKey(); got != tc.want {
			t.Errorf("%s: SubjectKey() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMemoryRenameCollision(t *testing.T) {
	h := NewMemory(newTestBus())
	h.AddChat(&MemoryChat{ID: "a", CharacterID: "1"})
	h.AddChat(&MemoryChat{ID: "taken", CharacterID: "1"})

	final, err := h.RenameChat(context.Background(), "a", "taken")
	if err != nil {
		t.Fatalf("RenameChat() error = %v", err)
	}
	if final != "taken (2)" {
		t.Errorf("final name = %q, want adjusted", final)
	}
	if h.Chat("taken (2)") == nil {
		t.Error("chat not reachable under adjusted name")
	}
}
