// Package icons reconciles the favorite-toggle state of rendered messages
// against the favorites collection.
package icons

import (
	"strconv"

	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

// Engine keeps rendered toggle affordances in sync with the store. All
// operations are idempotent and safe to run on any content mutation.
type Engine struct {
	chats  host.Chats
	store  *favorites.Store
	logger *zap.Logger
}

// NewEngine creates an icon sync engine.
func NewEngine(chats host.Chats, store *favorites.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{chats: chats, store: store, logger: logger}
}

// EnsureToggleAffordance attaches a toggle control, in its unfavorited
// state, to every rendered message lacking one.
func (e *Engine) EnsureToggleAffordance(views []host.MessageView) {
	for _, v := range views {
		if !v.HasToggle() {
			v.AttachToggle()
		}
	}
}

// ReconcileVisualState sets each rendered toggle to favorited iff the
// message's position appears in collection. A nil collection means the
// favorites data is unavailable: every toggle is forced unfavorited.
func (e *Engine) ReconcileVisualState(collection []host.Favorite, views []host.MessageView) {
	e.EnsureToggleAffordance(views)
	if collection == nil {
		e.logger.Warn("favorites collection unavailable, clearing all toggles")
		for _, v := range views {
			v.SetFavorited(false)
		}
		return
	}
	marked := make(map[string]bool, len(collection))
	for _, fav := range collection {
		marked[fav.MessageID] = true
	}
	for _, v := range views {
		v.SetFavorited(marked[strconv.Itoa(v.Index())])
	}
}

// Refresh reconciles the current rendered view against the current
// collection.
func (e *Engine) Refresh() {
	e.ReconcileVisualState(e.store.Collection(), e.chats.Rendered())
}

// HandleToggleActivation flips the toggle immediately and then records the
// change in the store. The visual flip is authoritative and is not rolled
// back when the store call fails; store failures are logged only.
func (e *Engine) HandleToggleActivation(view host.MessageView) {
	idx := view.Index()
	msgs := e.chats.Messages()
	if idx < 0 || idx >= len(msgs) {
		e.logger.Error("toggle on unresolvable message", zap.Int("index", idx))
		return
	}
	msg := msgs[idx]

	wasFavorited := view.Favorited()
	view.SetFavorited(!wasFavorited)

	messageID := strconv.Itoa(idx)
	if wasFavorited {
		if !e.store.RemoveByMessageID(messageID) {
			e.logger.Error("unfavorite failed in store", zap.String("message_id", messageID))
		}
		return
	}
	if item := e.store.Add(favorites.MessageInfo{
		MessageID: messageID,
		Sender:    msg.Name,
		Role:      msg.Role(),
	}); item == nil {
		e.logger.Error("favorite failed in store", zap.String("message_id", messageID))
	}
}
