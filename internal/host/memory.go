package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/starmarkhq/starmark/internal/bus"
)

// MemoryChat is one chat held by the in-memory host.
type MemoryChat struct {
	ID          string
	Name        string
	CharacterID string
	GroupID     string
	Messages    []*Message
	Meta        *Metadata

	views []*memView
}

// Memory is an in-memory reference implementation of the Chats contract.
// It backs the engine tests and the starmarkd dev harness. Chat switches
// publish chat.changed on the bus; SwitchDelay/ClearDelay make those
// operations complete asynchronously the way a real host does.
type Memory struct {
	mu      sync.Mutex
	bus     *bus.Bus
	chats   map[string]*MemoryChat
	current string
	nextID  int

	// SwitchDelay delays switch completion; zero applies switches inline.
	SwitchDelay time.Duration
	// ClearDelay delays the rendered view draining after ClearChat.
	ClearDelay time.Duration
	// DropSwitches swallows switch requests entirely (never completes).
	DropSwitches bool
	// AppendHook, when set, intercepts AppendMessage.
	AppendHook func(msg *Message) error
	// RenameErr, when set, makes RenameChat fail.
	RenameErr error
}

// NewMemory creates an empty in-memory host publishing on the given bus.
func NewMemory(b *bus.Bus) *Memory {
	return &Memory{
		bus:   b,
		chats: make(map[string]*MemoryChat),
	}
}

// AddChat registers a chat and returns it. The first added chat becomes
// current.
func (h *Memory) AddChat(c *MemoryChat) *MemoryChat {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.Meta == nil {
		c.Meta = &Metadata{}
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	h.chats[c.ID] = c
	if h.current == "" {
		h.current = c.ID
	}
	return c
}

// Chat returns a chat by identifier, or nil.
func (h *Memory) Chat(id string) *MemoryChat {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chats[id]
}

// CurrentID returns the identifier of the current chat.
func (h *Memory) CurrentID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Context implements Chats.
func (h *Memory) Context() Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.chats[h.current]
	if c == nil {
		return Context{}
	}
	return Context{
		CharacterID: c.CharacterID,
		GroupID:     c.GroupID,
		ChatID:      c.ID,
		ChatName:    c.Name,
	}
}

// Messages implements Chats.
func (h *Memory) Messages() []*Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.chats[h.current]
	if c == nil {
		return nil
	}
	return c.Messages
}

// Metadata implements Chats.
func (h *Memory) Metadata() *Metadata {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.chats[h.current]
	if c == nil {
		return nil
	}
	return c.Meta
}

// OpenCharacterChat implements Chats.
func (h *Memory) OpenCharacterChat(_ context.Context, chatID string) error {
	h.mu.Lock()
	c, ok := h.chats[chatID]
	h.mu.Unlock()
	if !ok || c.CharacterID == "" {
		return fmt.Errorf("no character chat %q", chatID)
	}
	h.switchTo(chatID)
	return nil
}

// OpenGroupChat implements Chats.
func (h *Memory) OpenGroupChat(_ context.Context, groupID, chatID string) error {
	h.mu.Lock()
	c, ok := h.chats[chatID]
	h.mu.Unlock()
	if !ok || c.GroupID != groupID {
		return fmt.Errorf("no chat %q for group %q", chatID, groupID)
	}
	h.switchTo(chatID)
	return nil
}

// NewChat implements Chats. The new chat inherits the current subject.
func (h *Memory) NewChat(_ context.Context) (string, error) {
	h.mu.Lock()
	cur := h.chats[h.current]
	if cur == nil {
		h.mu.Unlock()
		return "", fmt.Errorf("no current chat")
	}
	h.nextID++
	id := fmt.Sprintf("chat-%d", h.nextID)
	h.chats[id] = &MemoryChat{
		ID:          id,
		Name:        id,
		CharacterID: cur.CharacterID,
		GroupID:     cur.GroupID,
		Meta:        &Metadata{},
	}
	h.mu.Unlock()
	h.switchTo(id)
	return id, nil
}

// ClearChat implements Chats. The chat to clear is bound at request time,
// so a delayed clear still lands on the chat that asked for it.
func (h *Memory) ClearChat(_ context.Context) error {
	h.mu.Lock()
	c := h.chats[h.current]
	h.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no current chat")
	}
	apply := func() {
		h.mu.Lock()
		c.Messages = nil
		c.views = nil
		h.mu.Unlock()
	}
	if h.ClearDelay > 0 {
		time.AfterFunc(h.ClearDelay, apply)
		return nil
	}
	apply()
	return nil
}

// RenameChat implements Chats. A name collision yields an adjusted name,
// which becomes the chat's new identifier.
func (h *Memory) RenameChat(_ context.Context, oldID, newName string) (string, error) {
	if h.RenameErr != nil {
		return "", h.RenameErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.chats[oldID]
	if !ok {
		return "", fmt.Errorf("no chat %q", oldID)
	}
	final := newName
	for i := 2; ; i++ {
		if _, taken := h.chats[final]; !taken || final == oldID {
			break
		}
		final = fmt.Sprintf("%s (%d)", newName, i)
	}
	delete(h.chats, oldID)
	c.ID = final
	c.Name = final
	h.chats[final] = c
	if h.current == oldID {
		h.current = final
	}
	return final, nil
}

// AppendMessage implements Chats.
func (h *Memory) AppendMessage(_ context.Context, msg *Message) error {
	if h.AppendHook != nil {
		if err := h.AppendHook(msg); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.chats[h.current]
	if c == nil {
		return fmt.Errorf("no current chat")
	}
	c.Messages = append(c.Messages, msg)
	return nil
}

// Rendered implements Chats. Every message of the current chat is rendered;
// view handles are stable per position so toggle state survives reconciles.
func (h *Memory) Rendered() []MessageView {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.chats[h.current]
	if c == nil {
		return nil
	}
	for len(c.views) < len(c.Messages) {
		c.views = append(c.views, &memView{index: len(c.views)})
	}
	if len(c.views) > len(c.Messages) {
		c.views = c.views[:len(c.Messages)]
	}
	out := make([]MessageView, len(c.views))
	for i, v := range c.views {
		out[i] = v
	}
	return out
}

// SwitchTo forces the current chat, bypassing subject checks. Emulates a
// user navigating anywhere, including mid-operation drift.
func (h *Memory) SwitchTo(chatID string) {
	h.switchTo(chatID)
}

func (h *Memory) switchTo(chatID string) {
	if h.DropSwitches {
		return
	}
	apply := func() {
		h.mu.Lock()
		h.current = chatID
		h.mu.Unlock()
		h.bus.Publish(bus.Event{
			Kind:      bus.KindChatChanged,
			Timestamp: time.Now(),
			Payload:   bus.ChatChange{ChatID: chatID},
		})
	}
	if h.SwitchDelay > 0 {
		time.AfterFunc(h.SwitchDelay, apply)
		return
	}
	apply()
}

type memView struct {
	mu       sync.Mutex
	index    int
	attached bool
	fav      bool
}

func (v *memView) Index() int { return v.index }

func (v *memView) HasToggle() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached
}

func (v *memView) AttachToggle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = true
	v.fav = false
}

func (v *memView) Favorited() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fav
}

func (v *memView) SetFavorited(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fav = on
}
