package plugin

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "starmark.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func loadRow(t *testing.T, db *store.DB, chatID string) string {
	t.Helper()
	raw, err := db.LoadChatMetadata(chatID)
	if err != nil {
		t.Fatalf("load metadata %s: %v", chatID, err)
	}
	return string(raw)
}

// A favorite added in one chat must land in that chat's row even when the
// user switches chats before the quiet period elapses.
func TestMetadataSurvivesChatSwitchInQuietPeriod(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mem := host.NewMemory(b)
	mem.AddChat(&host.MemoryChat{ID: "main", CharacterID: "char1", Messages: []*host.Message{
		{Name: "Bot", Mes: "hello"},
	}})
	mem.AddChat(&host.MemoryChat{ID: "other", CharacterID: "char2"})

	saver := NewMetadataSaver(mem, db, 30*time.Millisecond, nil)
	st := favorites.NewStore(mem, b, saver.Request, nil)

	if st.Add(favorites.MessageInfo{MessageID: "0", Sender: "Bot", Role: host.RoleCharacter}) == nil {
		t.Fatal("add failed")
	}
	// Switch away well inside the quiet period.
	mem.SwitchTo("other")

	waitUntil(t, "main row written", func() bool {
		return loadRow(t, db, "main") != ""
	})
	if row := loadRow(t, db, "main"); !strings.Contains(row, `"messageId":"0"`) {
		t.Fatalf("main row = %s, want the favorite", row)
	}
	// The chat that was current at fire time was never mutated; its row
	// must not exist.
	if row := loadRow(t, db, "other"); row != "" {
		t.Fatalf("other row = %s, want none", row)
	}
}

// Back-to-back mutations in two chats inside one quiet period must each
// land in their own row; the earlier snapshot is written out, not replaced.
func TestMetadataCrossChatRequestsKeepBothRows(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mem := host.NewMemory(b)
	mem.AddChat(&host.MemoryChat{ID: "main", CharacterID: "char1", Messages: []*host.Message{
		{Name: "Bot", Mes: "hello"},
	}})
	mem.AddChat(&host.MemoryChat{ID: "other", CharacterID: "char2", Messages: []*host.Message{
		{Name: "Ada", Mes: "hi"},
	}})

	saver := NewMetadataSaver(mem, db, time.Minute, nil)
	st := favorites.NewStore(mem, b, saver.Request, nil)

	if st.Add(favorites.MessageInfo{MessageID: "0", Sender: "Bot", Role: host.RoleCharacter}) == nil {
		t.Fatal("add in main failed")
	}
	mem.SwitchTo("other")
	if st.Add(favorites.MessageInfo{MessageID: "0", Sender: "Ada", Role: host.RoleCharacter}) == nil {
		t.Fatal("add in other failed")
	}

	// The second request forces the first chat's snapshot out immediately.
	if row := loadRow(t, db, "main"); !strings.Contains(row, `"sender":"Bot"`) {
		t.Fatalf("main row = %s, want Bot's favorite", row)
	}
	// The second chat's snapshot is still pending until flushed.
	if row := loadRow(t, db, "other"); row != "" {
		t.Fatalf("other row = %s, want none before flush", row)
	}
	saver.Flush()
	if row := loadRow(t, db, "other"); !strings.Contains(row, `"sender":"Ada"`) {
		t.Fatalf("other row after flush = %s, want Ada's favorite", row)
	}
}

// Repeated mutations in one chat coalesce into a single pending snapshot
// carrying the latest state.
func TestMetadataRequestsCoalescePerChat(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mem := host.NewMemory(b)
	mem.AddChat(&host.MemoryChat{ID: "main", CharacterID: "char1", Messages: []*host.Message{
		{Name: "Bot", Mes: "one"},
		{Name: "Bot", Mes: "two"},
	}})

	saver := NewMetadataSaver(mem, db, time.Minute, nil)
	st := favorites.NewStore(mem, b, saver.Request, nil)

	st.Add(favorites.MessageInfo{MessageID: "0", Sender: "Bot", Role: host.RoleCharacter})
	st.Add(favorites.MessageInfo{MessageID: "1", Sender: "Bot", Role: host.RoleCharacter})

	if row := loadRow(t, db, "main"); row != "" {
		t.Fatalf("row written before the quiet period elapsed: %s", row)
	}
	saver.Flush()
	row := loadRow(t, db, "main")
	if !strings.Contains(row, `"messageId":"0"`) || !strings.Contains(row, `"messageId":"1"`) {
		t.Fatalf("row = %s, want both favorites from the latest snapshot", row)
	}
}
