// Package favorites implements CRUD over the favorites collection attached
// to a chat's metadata.
package favorites

import (
	"time"

	"github.com/google/uuid"
	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

// MessageInfo identifies the message being favorited, with its author
// details captured at favorite time.
type MessageInfo struct {
	MessageID string
	Sender    string
	Role      host.Role
}

// Store mutates the favorites collection of the host's current chat.
// Mutations are synchronous; persistence is requested fire-and-forget
// through the debounced persist hook.
type Store struct {
	chats   host.Chats
	bus     *bus.Bus
	persist func()
	logger  *zap.Logger
}

// NewStore creates a favorites store. persist is invoked after every
// successful mutation and may be nil.
func NewStore(chats host.Chats, b *bus.Bus, persist func(), logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{chats: chats, bus: b, persist: persist, logger: logger}
}

// EnsureCollection guarantees the current chat's metadata carries a
// well-formed favorites collection, initializing it when absent. Returns
// nil when no metadata is available.
func (s *Store) EnsureCollection() *host.Metadata {
	meta := s.chats.Metadata()
	if meta == nil {
		s.logger.Error("chat metadata unavailable")
		return nil
	}
	if meta.Favorites == nil {
		meta.Favorites = []host.Favorite{}
	}
	return meta
}

// Collection returns a copy of the current favorites collection, empty when
// metadata is unavailable.
func (s *Store) Collection() []host.Favorite {
	meta := s.chats.Metadata()
	if meta == nil {
		return nil
	}
	out := make([]host.Favorite, len(meta.Favorites))
	copy(out, meta.Favorites)
	return out
}

// Get returns the favorite with the given id.
func (s *Store) Get(id string) (host.Favorite, bool) {
	meta := s.chats.Metadata()
	if meta == nil {
		return host.Favorite{}, false
	}
	for _, fav := range meta.Favorites {
		if fav.ID == id {
			return fav, true
		}
	}
	return host.Favorite{}, false
}

// IsFavorited reports whether any favorite references the given message
// position.
func (s *Store) IsFavorited(messageID string) bool {
	meta := s.chats.Metadata()
	if meta == nil {
		return false
	}
	for _, fav := range meta.Favorites {
		if fav.MessageID == messageID {
			return true
		}
	}
	return false
}

// Add appends a new favorite with a fresh id and empty note, requests
// persistence, and returns the created item. Nil when the collection
// cannot be ensured.
func (s *Store) Add(info MessageInfo) *host.Favorite {
	meta := s.EnsureCollection()
	if meta == nil {
		s.logger.Error("add favorite failed, no collection", zap.String("message_id", info.MessageID))
		return nil
	}
	item := host.Favorite{
		ID:        uuid.NewString(),
		MessageID: info.MessageID,
		Sender:    info.Sender,
		Role:      info.Role,
		Note:      "",
	}
	meta.Favorites = append(meta.Favorites, item)
	s.changed()
	s.logger.Info("favorite added", zap.String("id", item.ID), zap.String("message_id", item.MessageID))
	return &item
}

// RemoveByID removes the favorite with the given id. Returns whether a
// removal occurred.
func (s *Store) RemoveByID(id string) bool {
	meta := s.EnsureCollection()
	if meta == nil || len(meta.Favorites) == 0 {
		return false
	}
	for i, fav := range meta.Favorites {
		if fav.ID == id {
			meta.Favorites = append(meta.Favorites[:i], meta.Favorites[i+1:]...)
			s.changed()
			s.logger.Info("favorite removed", zap.String("id", id))
			return true
		}
	}
	s.logger.Warn("favorite not found", zap.String("id", id))
	return false
}

// RemoveByMessageID resolves the favorite referencing the given message
// position and removes it. Returns false when no favorite matches.
func (s *Store) RemoveByMessageID(messageID string) bool {
	meta := s.EnsureCollection()
	if meta == nil || len(meta.Favorites) == 0 {
		return false
	}
	for _, fav := range meta.Favorites {
		if fav.MessageID == messageID {
			return s.RemoveByID(fav.ID)
		}
	}
	return false
}

// UpdateNote sets the note text on the matching favorite. No-op when the
// id is unknown.
func (s *Store) UpdateNote(id, note string) {
	meta := s.EnsureCollection()
	if meta == nil {
		return
	}
	for i := range meta.Favorites {
		if meta.Favorites[i].ID == id {
			meta.Favorites[i].Note = note
			s.changed()
			return
		}
	}
	s.logger.Warn("note update for unknown favorite", zap.String("id", id))
}

// PruneInvalid removes favorites whose message position no longer resolves
// against the live chat. Returns the number removed.
func (s *Store) PruneInvalid(isLive func(messageID string) bool) int {
	meta := s.EnsureCollection()
	if meta == nil || len(meta.Favorites) == 0 {
		return 0
	}
	valid := meta.Favorites[:0:0]
	removed := 0
	for _, fav := range meta.Favorites {
		if isLive(fav.MessageID) {
			valid = append(valid, fav)
		} else {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	meta.Favorites = valid
	s.changed()
	s.logger.Info("pruned invalid favorites", zap.Int("removed", removed))
	return removed
}

func (s *Store) changed() {
	if s.persist != nil {
		s.persist()
	}
	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      bus.KindFavoritesChanged,
			Timestamp: time.Now(),
			Payload:   bus.ChatChange{ChatID: s.chats.Context().ChatID},
		})
	}
}
