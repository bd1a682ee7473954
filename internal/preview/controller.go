package preview

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/config"
	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

// State is a preview-session state.
type State string

const (
	Idle     State = "IDLE"
	Entering State = "ENTERING"
	Active   State = "ACTIVE"
)

// validTransitions defines allowed session state transitions. Every
// failure path leads back to Idle; no error state survives a session.
var validTransitions = map[State][]State{
	Idle:     {Entering},
	Entering: {Active, Idle},
	Active:   {Idle},
}

var (
	// ErrBusy rejects reentrant entry while a session is in flight.
	ErrBusy = errors.New("preview session already in progress")
	// ErrNoSubject means no character or group chat is selected.
	ErrNoSubject = errors.New("no character or group selected")
	// ErrNoFavorites means the current chat has nothing to preview.
	ErrNoFavorites = errors.New("no favorited messages to preview")
	// ErrSwitchTimeout means the chat-switch confirmation never arrived.
	ErrSwitchTimeout = errors.New("timed out waiting for chat switch")
	// ErrClearTimeout means the preview chat never drained.
	ErrClearTimeout = errors.New("timed out waiting for chat to clear")
	// ErrDrift means the live chat moved out from under the session.
	ErrDrift = errors.New("live chat changed during preview entry")
)

// Session is the identity of one preview session: where the user came from
// and which chat is serving the preview.
type Session struct {
	Original      host.Context
	PreviewChatID string
}

// Controller drives the preview lifecycle. All mutable session state lives
// here; entry and exit are all-or-nothing with respect to it.
type Controller struct {
	chats    host.Chats
	store    *favorites.Store
	registry *Registry
	ui       host.PreviewUI
	toast    host.Toaster
	bus      *bus.Bus
	cfg      *config.Config
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	session Session
}

// NewController creates an idle preview controller.
func NewController(chats host.Chats, store *favorites.Store, registry *Registry, ui host.PreviewUI, toast host.Toaster, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Controller{
		chats:    chats,
		store:    store,
		registry: registry,
		ui:       ui,
		toast:    toast,
		bus:      b,
		cfg:      cfg,
		logger:   logger,
		state:    Idle,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current session identity. ok is false when idle or
// still entering; when true, both fields are populated.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.state == Active
}

func (c *Controller) transition(to State) error {
	for _, allowed := range validTransitions[c.state] {
		if allowed == to {
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", c.state, to)
}

// EnterPreview runs the entry protocol: snapshot the originating chat,
// provision the subject's preview chat, clear it, and repopulate it from
// the snapshot. Returns the number of messages inserted. Any failure
// restores non-preview UI and resets to Idle; no partial session is left
// behind.
func (c *Controller) EnterPreview(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return 0, ErrBusy
	}

	initial := c.chats.Context()
	if !initial.HasSubject() {
		c.mu.Unlock()
		c.toast.Error("Select a character or group first")
		return 0, ErrNoSubject
	}

	meta := c.store.EnsureCollection()
	if meta == nil || len(meta.Favorites) == 0 {
		c.mu.Unlock()
		c.toast.Warning("No favorited messages to preview")
		return 0, ErrNoFavorites
	}
	collection := make([]host.Favorite, len(meta.Favorites))
	copy(collection, meta.Favorites)

	// The snapshot is taken before any chat-switching side effect; it, not
	// later live state, is the source for repopulation.
	snapshot := host.CloneMessages(c.chats.Messages())

	_ = c.transition(Entering)
	c.mu.Unlock()

	c.toast.Info("Preparing favorites preview...")

	inserted, err := c.enter(ctx, initial, collection, snapshot)
	if err != nil {
		c.logger.Error("preview entry failed", zap.Error(err))
		c.ui.ExitPreviewMode()
		c.reset()
		c.toast.Error("Could not open the favorites preview")
		return 0, err
	}
	return inserted, nil
}

func (c *Controller) enter(ctx context.Context, initial host.Context, collection []host.Favorite, snapshot []*host.Message) (int, error) {
	subjectKey := initial.SubjectKey()
	target, exists := c.registry.Get(subjectKey)
	created := false

	switch {
	case exists && initial.ChatID == target:
		c.logger.Info("already in preview chat", zap.String("chat", target))
	case exists:
		c.logger.Info("switching to existing preview chat", zap.String("chat", target))
		var err error
		if initial.IsGroup() {
			err = c.chats.OpenGroupChat(ctx, initial.GroupID, target)
		} else {
			err = c.chats.OpenCharacterChat(ctx, target)
		}
		if err != nil {
			return 0, fmt.Errorf("switch to preview chat: %w", err)
		}
	default:
		id, err := c.chats.NewChat(ctx)
		if err != nil {
			return 0, fmt.Errorf("create preview chat: %w", err)
		}
		if id == "" {
			return 0, errors.New("host returned empty chat id on create")
		}
		target = id
		created = true
		if err := c.registry.Put(subjectKey, target); err != nil {
			c.logger.Warn("registry persist failed", zap.Error(err))
		}
		c.logger.Info("created preview chat", zap.String("chat", target))
	}

	if err := c.awaitSwitch(ctx, target); err != nil {
		return 0, err
	}

	target = c.maybeRename(ctx, initial, subjectKey, target, created)

	if err := c.chats.ClearChat(ctx); err != nil {
		return 0, fmt.Errorf("clear preview chat: %w", err)
	}
	if err := c.awaitCleared(ctx); err != nil {
		return 0, err
	}

	// Re-confirm after the suspension points above: another switch may have
	// raced the entry.
	if cur := c.chats.Context().ChatID; cur != target {
		return 0, fmt.Errorf("%w: expected %s, now in %s", ErrDrift, target, cur)
	}

	c.mu.Lock()
	if err := c.transition(Active); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.session = Session{Original: initial, PreviewChatID: target}
	c.mu.Unlock()

	c.ui.EnterPreviewMode(target)
	c.bus.Publish(bus.Event{
		Kind:      bus.KindPreviewEntered,
		Timestamp: time.Now(),
		Payload:   bus.ChatChange{ChatID: target},
	})

	inserted, selected := c.fill(ctx, target, collection, snapshot)
	switch {
	case inserted > 0:
		c.toast.Success(fmt.Sprintf("Showing %d favorited messages in preview", inserted))
	case selected > 0:
		c.toast.Warning("Prepared favorited messages but none could be added")
	default:
		c.toast.Info("No favorited messages resolved; preview is empty")
	}
	return inserted, nil
}

// awaitSwitch blocks until the live chat equals target. Switch completion
// is signaled out-of-band, so the subscription is registered before the
// equality check to close the notify-before-subscribe race; it is removed
// on every exit path.
func (c *Controller) awaitSwitch(ctx context.Context, target string) error {
	ch, unsub := c.bus.Subscribe(bus.KindChatChanged, 16)
	defer unsub()

	if c.chats.Context().ChatID == target {
		// Already there; yield one scheduling turn so host-side rendering
		// settles before the chat is mutated.
		runtime.Gosched()
		return nil
	}

	timer := time.NewTimer(c.cfg.SwitchTimeout())
	defer timer.Stop()
	for {
		select {
		case evt := <-ch:
			if cc, ok := evt.Payload.(bus.ChatChange); ok && cc.ChatID == target {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("%w: %s", ErrSwitchTimeout, target)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// maybeRename labels the preview chat with the reserved prefix. The host
// may adjust the requested name; the returned name becomes the canonical
// identifier and the registry is updated. Rename failure is non-fatal and
// keeps the prior identifier.
func (c *Controller) maybeRename(ctx context.Context, initial host.Context, subjectKey, target string, created bool) string {
	cur := c.chats.Context()
	if cur.ChatID != target {
		return target
	}

	base := cur.ChatName
	if base == "" {
		if created {
			base = initial.SubjectName()
		} else {
			base = target
		}
	}
	base = strings.TrimPrefix(base, c.cfg.PreviewPrefix)
	desired := c.cfg.PreviewPrefix + base

	if target == desired || cur.ChatName == desired {
		return target
	}

	final, err := c.chats.RenameChat(ctx, target, desired)
	if err != nil {
		c.logger.Warn("preview chat rename failed", zap.String("chat", target), zap.Error(err))
		c.toast.Warning("Could not label the preview chat")
		return target
	}
	if final == "" {
		final = desired
	}
	if err := c.registry.Put(subjectKey, final); err != nil {
		c.logger.Warn("registry persist after rename failed", zap.Error(err))
	}
	c.logger.Info("preview chat renamed", zap.String("from", target), zap.String("to", final))
	return final
}

// awaitCleared polls until the rendered message count reaches zero.
func (c *Controller) awaitCleared(ctx context.Context) error {
	deadline := time.NewTimer(c.cfg.ClearTimeout())
	defer deadline.Stop()
	tick := time.NewTicker(c.cfg.ClearPoll())
	defer tick.Stop()
	for {
		if len(c.chats.Rendered()) == 0 {
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return ErrClearTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fill copies the favorited subset of the snapshot into the target chat in
// batches, yielding between batches. Per-item failures are logged and
// skipped. Returns (inserted, selected).
func (c *Controller) fill(ctx context.Context, target string, collection []host.Favorite, snapshot []*host.Message) (int, int) {
	type pending struct {
		msg *host.Message
		idx int
	}
	var toFill []pending
	for _, fav := range collection {
		idx, err := strconv.Atoi(fav.MessageID)
		if err != nil || idx < 0 || idx >= len(snapshot) {
			c.logger.Warn("favorite not found in snapshot", zap.String("message_id", fav.MessageID))
			continue
		}
		msg := snapshot[idx].Clone()
		msg.Normalize()
		toFill = append(toFill, pending{msg: msg, idx: idx})
	}
	sort.Slice(toFill, func(i, j int) bool { return toFill[i].idx < toFill[j].idx })

	inserted := 0
	for i, item := range toFill {
		// Re-validate before every insertion; a switch can interleave at
		// any yield.
		if c.chats.Context().ChatID != target {
			c.logger.Warn("chat changed during preview fill, stopping",
				zap.String("expected", target), zap.String("got", c.chats.Context().ChatID))
			c.toast.Warning("Chat changed during preview fill; some messages were not added")
			break
		}
		if err := c.chats.AppendMessage(ctx, item.msg); err != nil {
			c.logger.Error("failed to add preview message", zap.Int("index", item.idx), zap.Error(err))
			continue
		}
		inserted++
		if (i+1)%c.cfg.InsertBatchSize == 0 && i+1 < len(toFill) {
			select {
			case <-time.After(c.cfg.InsertYield()):
			case <-ctx.Done():
				return inserted, len(toFill)
			}
		}
	}
	return inserted, len(toFill)
}

// TriggerReturn navigates back to the originating chat. On request failure
// the session resets immediately; on success the reset is deferred to the
// chat-changed notification, which may fire before this returns.
func (c *Controller) TriggerReturn(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Active {
		c.mu.Unlock()
		c.ui.ExitPreviewMode()
		c.reset()
		c.toast.Error("No original chat to return to")
		return errors.New("no active preview session")
	}
	orig := c.session.Original
	c.mu.Unlock()

	c.toast.Info("Returning to the original chat...")

	var err error
	switch {
	case orig.IsGroup():
		err = c.chats.OpenGroupChat(ctx, orig.GroupID, orig.ChatID)
	case orig.CharacterID != "":
		err = c.chats.OpenCharacterChat(ctx, orig.ChatID)
	default:
		err = errors.New("original context has no subject")
	}
	if err != nil {
		// The request itself failed; no notification will arrive.
		c.ui.ExitPreviewMode()
		c.reset()
		c.toast.Error("Could not return to the original chat")
		return fmt.Errorf("return to original chat: %w", err)
	}
	return nil
}

// OnChatChanged reconciles the session against every chat-switch
// notification, whatever initiated it. Leaving the preview chat by any
// means ends the session. Outside a session, navigating into a dormant
// preview chat raises the ambient warning.
func (c *Controller) OnChatChanged(newID string) {
	c.mu.Lock()
	if c.state == Active && newID != c.session.PreviewChatID {
		orig := c.session.Original
		_ = c.transition(Idle)
		c.session = Session{}
		c.mu.Unlock()

		c.ui.ExitPreviewMode()
		c.bus.Publish(bus.Event{
			Kind:      bus.KindPreviewExited,
			Timestamp: time.Now(),
			Payload:   bus.ChatChange{ChatID: newID},
		})
		if newID == orig.ChatID {
			c.toast.Success("Returned to the original chat")
		}
		return
	}
	idle := c.state == Idle
	c.mu.Unlock()

	if idle && c.registry.ContainsChat(newID) {
		c.toast.Warning("This chat is the dedicated favorites preview chat. Its contents are cleared and overwritten on the next preview; do not send messages here.")
	}
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.state = Idle
	c.session = Session{}
	c.mu.Unlock()
}

// NopUI is a PreviewUI that does nothing, for hosts without an affordance
// layer.
type NopUI struct{}

func (NopUI) EnterPreviewMode(string) {}
func (NopUI) ExitPreviewMode()        {}
