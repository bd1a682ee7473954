package plugin

import (
	"context"
	"strconv"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/icons"
	"github.com/starmarkhq/starmark/internal/preview"
	"go.uber.org/zap"
)

// Runtime is the event loop binding host notifications to the engine. It
// subscribes to the full bus and keeps toggle affordances, the favorites
// collection, and the preview session reconciled with whatever the host
// reports.
type Runtime struct {
	chats  host.Chats
	store  *favorites.Store
	icons  *icons.Engine
	ctrl   *preview.Controller
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewRuntime creates a stopped runtime.
func NewRuntime(chats host.Chats, store *favorites.Store, ic *icons.Engine, ctrl *preview.Controller, b *bus.Bus, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		chats:  chats,
		store:  store,
		icons:  ic,
		ctrl:   ctrl,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to host events on the bus and dispatches until Stop.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the runtime.
func (r *Runtime) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runtime) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindChatChanged:
		cc, ok := evt.Payload.(bus.ChatChange)
		if !ok {
			return
		}
		// The preview controller reconciles first so a session teardown is
		// settled before icons repaint for the new chat.
		r.ctrl.OnChatChanged(cc.ChatID)
		r.store.EnsureCollection()
		r.icons.Refresh()
		r.logger.Debug("chat changed", zap.String("chat", cc.ChatID))

	case bus.KindMessageDeleted:
		ref, ok := evt.Payload.(bus.MessageRef)
		if !ok {
			return
		}
		if r.store.RemoveByMessageID(strconv.Itoa(ref.Index)) {
			r.logger.Info("favorite dropped with deleted message", zap.Int("index", ref.Index))
		}
		r.icons.Refresh()

	case bus.KindMessageReceived, bus.KindMessageSent:
		// New messages only need the toggle control; their favorite state is
		// necessarily off.
		r.icons.EnsureToggleAffordance(r.chats.Rendered())

	case bus.KindMessageSwiped, bus.KindMessageUpdated:
		r.icons.Refresh()

	case bus.KindMoreLoaded:
		// Older messages shift nothing (positions are stable), but the newly
		// rendered rows need controls and state.
		r.icons.Refresh()

	case bus.KindFavoritesChanged:
		r.icons.Refresh()
	}
}
