package plugin

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/config"
	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/icons"
	"github.com/starmarkhq/starmark/internal/preview"
)

type runtimeFixture struct {
	bus   *bus.Bus
	mem   *host.Memory
	store *favorites.Store
	toast *host.MemoryToaster
	rt    *Runtime
}

func newRuntimeFixture(t *testing.T) *runtimeFixture {
	t.Helper()
	b := bus.New()
	mem := host.NewMemory(b)
	st := favorites.NewStore(mem, b, nil, nil)
	ic := icons.NewEngine(mem, st, nil)
	reg, err := preview.LoadRegistry(nil, nil)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	toast := &host.MemoryToaster{}
	ctrl := preview.NewController(mem, st, reg, preview.NopUI{}, toast, b, config.Default(), nil)
	rt := NewRuntime(mem, st, ic, ctrl, b, nil)
	rt.Start(context.Background())
	t.Cleanup(rt.Stop)
	return &runtimeFixture{bus: b, mem: mem, store: st, toast: toast, rt: rt}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func seedChat(f *runtimeFixture, id string, n int, favIdx ...int) *host.MemoryChat {
	c := &host.MemoryChat{ID: id, CharacterID: "char1", Meta: &host.Metadata{}}
	for i := 0; i < n; i++ {
		c.Messages = append(c.Messages, &host.Message{Name: "Bot", Mes: "msg " + strconv.Itoa(i)})
	}
	for _, idx := range favIdx {
		c.Meta.Favorites = append(c.Meta.Favorites, host.Favorite{
			ID:        "fav-" + strconv.Itoa(idx),
			MessageID: strconv.Itoa(idx),
			Sender:    "Bot",
			Role:      host.RoleCharacter,
		})
	}
	f.mem.AddChat(c)
	return c
}

func TestRuntimeAttachesTogglesOnNewMessage(t *testing.T) {
	f := newRuntimeFixture(t)
	seedChat(f, "main", 0)

	if err := f.mem.AppendMessage(context.Background(), &host.Message{Name: "Bot", Mes: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.bus.Publish(bus.Event{Kind: bus.KindMessageReceived, Timestamp: time.Now(), Payload: bus.MessageRef{Index: 0}})

	waitUntil(t, "toggle attached", func() bool {
		views := f.mem.Rendered()
		return len(views) == 1 && views[0].HasToggle()
	})
	if f.mem.Rendered()[0].Favorited() {
		t.Fatal("fresh message must start unfavorited")
	}
}

func TestRuntimeDropsFavoriteOnMessageDelete(t *testing.T) {
	f := newRuntimeFixture(t)
	seedChat(f, "main", 3, 1)
	if !f.store.IsFavorited("1") {
		t.Fatal("seed favorite missing")
	}

	f.bus.Publish(bus.Event{Kind: bus.KindMessageDeleted, Timestamp: time.Now(), Payload: bus.MessageRef{Index: 1}})

	waitUntil(t, "favorite removed", func() bool {
		return !f.store.IsFavorited("1")
	})
}

func TestRuntimeReconcilesOnChatSwitch(t *testing.T) {
	f := newRuntimeFixture(t)
	seedChat(f, "main", 2, 0)
	seedChat(f, "other", 2, 1)

	f.mem.SwitchTo("other")

	waitUntil(t, "icons reconciled to other", func() bool {
		views := f.mem.Rendered()
		return len(views) == 2 && views[0].HasToggle() &&
			!views[0].Favorited() && views[1].Favorited()
	})
}

func TestRuntimeRepaintsOnFavoritesMutation(t *testing.T) {
	f := newRuntimeFixture(t)
	seedChat(f, "main", 2)

	// The store publishes the mutation itself; no manual event needed.
	if f.store.Add(favorites.MessageInfo{MessageID: "1", Sender: "Bot", Role: host.RoleCharacter}) == nil {
		t.Fatal("add failed")
	}

	waitUntil(t, "favorited icon on", func() bool {
		views := f.mem.Rendered()
		return len(views) == 2 && views[1].Favorited()
	})
}

func TestRuntimeWarnsOnDormantPreviewChat(t *testing.T) {
	f := newRuntimeFixture(t)
	seedChat(f, "main", 1)
	f.mem.AddChat(&host.MemoryChat{ID: "dormant", CharacterID: "char1"})

	// Register the dormant chat through the controller's registry by
	// entering and leaving a preview.
	c := f.mem.Chat("main")
	c.Meta.Favorites = []host.Favorite{{ID: "f1", MessageID: "0", Sender: "Bot", Role: host.RoleCharacter}}

	ctrl := f.rt.ctrl
	if _, err := ctrl.EnterPreview(context.Background()); err != nil {
		t.Fatalf("enter: %v", err)
	}
	previewID := f.mem.CurrentID()

	f.mem.SwitchTo("main")
	waitUntil(t, "session ended", func() bool {
		return ctrl.State() == preview.Idle
	})

	f.mem.SwitchTo(previewID)
	waitUntil(t, "dormant warning", func() bool {
		return f.toast.Contains("dedicated favorites preview chat")
	})
}
