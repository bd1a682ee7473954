package store

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if result.Changed {
		t.Error("second Migrate() reported changes")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, found, err := db.GetSetting("preview_chats"); err != nil || found {
		t.Fatalf("GetSetting() on empty db = found=%v err=%v", found, err)
	}

	if err := db.SetSetting("preview_chats", `{"char_1":"chat-9"}`); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if err := db.SetSetting("preview_chats", `{"char_1":"chat-10"}`); err != nil {
		t.Fatalf("SetSetting() upsert error = %v", err)
	}

	value, found, err := db.GetSetting("preview_chats")
	if err != nil {
		t.Fatal(err)
	}
	if !found || value != `{"char_1":"chat-10"}` {
		t.Errorf("GetSetting() = %q found=%v, want latest value", value, found)
	}
}

func TestChatMetadataRoundTrip(t *testing.T) {
	db := testDB(t)

	if data, err := db.LoadChatMetadata("nope"); err != nil || data != nil {
		t.Fatalf("LoadChatMetadata() on empty db = %q err=%v", data, err)
	}

	if err := db.SaveChatMetadata("chat-1", []byte(`{"favorites":[]}`)); err != nil {
		t.Fatalf("SaveChatMetadata() error = %v", err)
	}
	if err := db.SaveChatMetadata("chat-1", []byte(`{"favorites":[{"id":"a"}]}`)); err != nil {
		t.Fatalf("SaveChatMetadata() upsert error = %v", err)
	}

	data, err := db.LoadChatMetadata("chat-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"favorites":[{"id":"a"}]}` {
		t.Errorf("LoadChatMetadata() = %s, want latest value", data)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { runs.Add(1) })

	d.Trigger()
	d.Trigger()
	d.Trigger()

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 (coalesced)", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(time.Hour, func() { runs.Add(1) })

	d.Trigger()
	d.Flush()
	if got := runs.Load(); got != 1 {
		t.Errorf("runs after Flush = %d, want 1", got)
	}

	// Flush without a pending trigger must not run again.
	d.Flush()
	if got := runs.Load(); got != 1 {
		t.Errorf("runs after second Flush = %d, want 1", got)
	}
}
