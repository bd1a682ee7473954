package favorites

import (
	"strconv"
	"testing"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/host"
)

func testStore(t *testing.T) (*Store, *host.Memory, *int) {
	t.Helper()
	b := bus.New()
	h := host.NewMemory(b)
	h.AddChat(&host.MemoryChat{ID: "main", CharacterID: "1", Messages: []*host.Message{
		{Name: "Alice", IsUser: true, Mes: "hi"},
		{Name: "Bot", Mes: "hello"},
		{Name: "Alice", IsUser: true, Mes: "how are you"},
	}})
	persists := 0
	s := NewStore(h, b, func() { persists++ }, nil)
	return s, h, &persists
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	s, _, persists := testStore(t)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		item := s.Add(MessageInfo{MessageID: "0", Sender: "Alice", Role: host.RoleUser})
		if item == nil {
			t.Fatal("Add() returned nil")
		}
		if item.Note != "" {
			t.Errorf("new item note = %q, want empty", item.Note)
		}
		if seen[item.ID] {
			t.Fatalf("duplicate id %q", item.ID)
		}
		seen[item.ID] = true
	}
	if *persists != 10 {
		t.Errorf("persist requests = %d, want 10", *persists)
	}
}

func TestRemoveByMessageID(t *testing.T) {
	s, _, _ := testStore(t)

	s.Add(MessageInfo{MessageID: "1", Sender: "Bot", Role: host.RoleCharacter})
	s.Add(MessageInfo{MessageID: "2", Sender: "Alice", Role: host.RoleUser})

	if !s.RemoveByMessageID("1") {
		t.Fatal("RemoveByMessageID(1) = false, want true")
	}
	if s.IsFavorited("1") {
		t.Error("message 1 still favorited after removal")
	}
	if !s.IsFavorited("2") {
		t.Error("message 2 lost its favorite")
	}
	if s.RemoveByMessageID("1") {
		t.Error("second RemoveByMessageID(1) = true, want false")
	}
	if s.RemoveByMessageID("99") {
		t.Error("RemoveByMessageID(99) = true for unknown message")
	}
}

func TestUpdateNote(t *testing.T) {
	s, _, _ := testStore(t)

	item := s.Add(MessageInfo{MessageID: "0", Sender: "Alice", Role: host.RoleUser})
	s.UpdateNote(item.ID, "important")

	got, ok := s.Get(item.ID)
	if !ok || got.Note != "important" {
		t.Errorf("note = %q ok=%v, want important", got.Note, ok)
	}

	// Unknown id is a no-op.
	s.UpdateNote("nope", "x")
}

func TestPruneInvalidIdempotent(t *testing.T) {
	s, h, _ := testStore(t)

	s.Add(MessageInfo{MessageID: "1", Sender: "Bot", Role: host.RoleCharacter})
	s.Add(MessageInfo{MessageID: "10", Sender: "Bot", Role: host.RoleCharacter})

	isLive := func(messageID string) bool {
		idx, err := strconv.Atoi(messageID)
		return err == nil && idx >= 0 && idx < len(h.Messages())
	}

	if removed := s.PruneInvalid(isLive); removed != 1 {
		t.Fatalf("first PruneInvalid() = %d, want 1", removed)
	}
	if removed := s.PruneInvalid(isLive); removed != 0 {
		t.Errorf("second PruneInvalid() = %d, want 0 (idempotent)", removed)
	}
	if !s.IsFavorited("1") {
		t.Error("valid favorite was pruned")
	}
}

func TestUnavailableMetadataDegradesSoftly(t *testing.T) {
	b := bus.New()
	h := host.NewMemory(b) // no chats at all
	s := NewStore(h, b, nil, nil)

	if meta := s.EnsureCollection(); meta != nil {
		t.Error("EnsureCollection() != nil without a chat")
	}
	if item := s.Add(MessageInfo{MessageID: "0"}); item != nil {
		t.Error("Add() != nil without a chat")
	}
	if s.RemoveByID("x") || s.RemoveByMessageID("0") {
		t.Error("removals succeeded without a chat")
	}
	if removed := s.PruneInvalid(func(string) bool { return true }); removed != 0 {
		t.Errorf("PruneInvalid() = %d without a chat", removed)
	}
}

func TestMutationsPublishChangeEvents(t *testing.T) {
	b := bus.New()
	h := host.NewMemory(b)
	h.AddChat(&host.MemoryChat{ID: "main", CharacterID: "1"})
	s := NewStore(h, b, nil, nil)

	ch, unsub := b.Subscribe("favorites.", 10)
	defer unsub()

	item := s.Add(MessageInfo{MessageID: "0", Sender: "Alice", Role: host.RoleUser})
	s.RemoveByID(item.ID)

	for i := 0; i < 2; i++ {
		select {
		case evt := <-ch:
			if evt.Kind != bus.KindFavoritesChanged {
				t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindFavoritesChanged)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for favorites.changed event")
		}
	}
}
