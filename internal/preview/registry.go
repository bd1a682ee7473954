// Package preview implements the preview-session state machine: it
// materializes the favorited subset of a chat into a dedicated read-only
// preview chat and manages the round trip back.
package preview

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/starmarkhq/starmark/internal/store"
	"go.uber.org/zap"
)

const registryKey = "preview_chats"

// Registry maps a subject key (char_<id> / group_<id>) to that subject's
// dedicated preview chat identifier, persisted in plugin-scoped settings.
type Registry struct {
	mu     sync.Mutex
	db     *store.DB
	logger *zap.Logger
	chats  map[string]string
}

// LoadRegistry reads the persisted registry. A nil db yields a memory-only
// registry.
func LoadRegistry(db *store.DB, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{db: db, logger: logger, chats: make(map[string]string)}
	if db == nil {
		return r, nil
	}
	raw, found, err := db.GetSetting(registryKey)
	if err != nil {
		return nil, fmt.Errorf("load preview registry: %w", err)
	}
	if found {
		if err := json.Unmarshal([]byte(raw), &r.chats); err != nil {
			// A corrupt registry is recoverable: start empty, new entries
			// overwrite it on the next persist.
			logger.Warn("corrupt preview registry, starting empty", zap.Error(err))
			r.chats = make(map[string]string)
		}
	}
	return r, nil
}

// Get returns the preview chat registered for a subject.
func (r *Registry) Get(subjectKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.chats[subjectKey]
	return id, ok
}

// Put registers (or re-points) a subject's preview chat and persists the
// registry.
func (r *Registry) Put(subjectKey, chatID string) error {
	r.mu.Lock()
	r.chats[subjectKey] = chatID
	raw, err := json.Marshal(r.chats)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode preview registry: %w", err)
	}
	if r.db == nil {
		return nil
	}
	if err := r.db.SetSetting(registryKey, string(raw)); err != nil {
		return fmt.Errorf("persist preview registry: %w", err)
	}
	return nil
}

// ContainsChat reports whether the given chat identifier is some subject's
// registered preview chat.
func (r *Registry) ContainsChat(chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.chats {
		if id == chatID {
			return true
		}
	}
	return false
}
