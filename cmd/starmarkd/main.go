// Command starmarkd runs the favorites engine against the in-memory host
// binding and drives a scripted session through it. It exists to exercise
// the full wiring (logging, store, lock, bus, preview round trip) outside
// a real chat host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/icons"
	"github.com/starmarkhq/starmark/internal/panel"
	"github.com/starmarkhq/starmark/internal/plugin"
	"github.com/starmarkhq/starmark/internal/preview"
	"go.uber.org/fx"
)

func main() {
	baseFlag := flag.String("base", "", "data directory (default ~/.starmark; a temp dir with -ephemeral)")
	ephemeral := flag.Bool("ephemeral", false, "use a throwaway data directory")
	headless := flag.Bool("headless", true, "suppress desktop notifications")
	flag.Parse()

	params, cleanup, err := resolveParams(*baseFlag, *ephemeral, *headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	b := bus.New()
	mem := seedHost(b)
	params.Bus = b
	params.Chats = mem
	params.Dialog = &host.StubDialog{ConfirmResult: host.ResultAffirmative}
	params.UI = preview.NopUI{}

	app := fx.New(
		plugin.Module(params),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, ic *icons.Engine, pnl *panel.Panel, ctrl *preview.Controller) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := scenario(b, mem, ic, pnl, ctrl); err != nil {
							fmt.Fprintf(os.Stderr, "scenario failed: %v\n", err)
							_ = sd.Shutdown(fx.ExitCode(1))
							return
						}
						_ = sd.Shutdown()
					}()
					return nil
				},
			})
		}),
	)

	app.Run()
}

func resolveParams(base string, ephemeral, headless bool) (plugin.Params, func(), error) {
	p := plugin.Params{Headless: headless}
	cleanup := func() {}

	if ephemeral && base == "" {
		dir, err := os.MkdirTemp("", "starmarkd-*")
		if err != nil {
			return p, cleanup, err
		}
		base = dir
		cleanup = func() { _ = os.RemoveAll(dir) }
	}
	if base != "" {
		if err := os.MkdirAll(base, 0700); err != nil {
			return p, cleanup, err
		}
		p.ConfigPath = filepath.Join(base, "config.toml")
		p.DBPath = filepath.Join(base, "starmark.db")
		p.LockPath = filepath.Join(base, "starmark.lock")
		p.LogPath = filepath.Join(base, "starmarkd.log")
	}
	return p, cleanup, nil
}

func seedHost(b *bus.Bus) *host.Memory {
	mem := host.NewMemory(b)
	chat := &host.MemoryChat{ID: "demo", Name: "Demo with Nova", CharacterID: "nova"}
	lines := []struct {
		name string
		user bool
		text string
	}{
		{"You", true, "Tell me about the northern lights."},
		{"Nova", false, "Charged particles from the sun collide with the upper atmosphere and make it glow."},
		{"You", true, "Which colors can they be?"},
		{"Nova", false, "Mostly green from oxygen, with red at higher altitudes and blue or purple from nitrogen."},
		{"You", true, "That sounds beautiful."},
		{"Nova", false, "It is. The best views are on clear winter nights far from city lights."},
	}
	for _, l := range lines {
		chat.Messages = append(chat.Messages, &host.Message{
			Name:     l.name,
			IsUser:   l.user,
			Mes:      l.text,
			SendDate: time.Now().Format("2006-01-02 15:04"),
		})
	}
	mem.AddChat(chat)
	return mem
}

// scenario favorites two replies, pages through the panel, and round-trips
// a preview session.
func scenario(b *bus.Bus, mem *host.Memory, ic *icons.Engine, pnl *panel.Panel, ctrl *preview.Controller) error {
	views := mem.Rendered()
	ic.EnsureToggleAffordance(views)
	ic.HandleToggleActivation(views[1])
	ic.HandleToggleActivation(views[3])

	pnl.Open()
	view := pnl.RenderCurrent()
	fmt.Printf("%s (page %d/%d)\n", view.Title, view.Page, view.TotalPages)
	for _, item := range view.Items {
		fmt.Printf("  %s %s: %s\n", item.IndexBadge, item.Sender, item.Preview)
	}

	// Subscribe before triggering; session events can land before a late
	// subscriber attaches.
	enteredCh, unsubEntered := b.Subscribe(bus.KindPreviewEntered, 4)
	defer unsubEntered()
	exitedCh, unsubExited := b.Subscribe(bus.KindPreviewExited, 4)
	defer unsubExited()

	n, err := ctrl.EnterPreview(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("preview filled with %d messages\n", n)

	select {
	case evt := <-enteredCh:
		if cc, ok := evt.Payload.(bus.ChatChange); ok {
			fmt.Printf("preview active in %q\n", cc.ChatID)
		}
	case <-time.After(10 * time.Second):
		return fmt.Errorf("preview entered event never arrived")
	}

	if err := ctrl.TriggerReturn(context.Background()); err != nil {
		return err
	}
	select {
	case <-exitedCh:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("preview exited event never arrived")
	}
	fmt.Printf("back in %q\n", mem.CurrentID())
	return nil
}
