package plugin

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/store"
	"go.uber.org/zap"
)

// MetadataSaver coalesces chat-metadata writes behind a quiet period. The
// row snapshot (chat id plus serialized metadata) is captured when
// persistence is requested, not when the timer fires, so a chat switch
// inside the quiet period cannot redirect the write to the wrong chat.
type MetadataSaver struct {
	chats  host.Chats
	db     *store.DB
	logger *zap.Logger
	deb    *store.Debouncer

	mu          sync.Mutex
	pendingChat string
	pendingData []byte
}

// NewMetadataSaver creates a saver with the given quiet period.
func NewMetadataSaver(chats host.Chats, db *store.DB, delay time.Duration, logger *zap.Logger) *MetadataSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MetadataSaver{chats: chats, db: db, logger: logger}
	s.deb = store.NewDebouncer(delay, s.write)
	return s
}

// Request snapshots the current chat's metadata and (re)arms the quiet
// period. A snapshot already pending for a different chat is written out
// immediately instead of being overwritten, so back-to-back mutations in
// two chats each land in their own row.
func (s *MetadataSaver) Request() {
	ctx := s.chats.Context()
	meta := s.chats.Metadata()
	if meta == nil || ctx.ChatID == "" {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		s.logger.Error("metadata encode failed", zap.String("chat", ctx.ChatID), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.pendingChat != "" && s.pendingChat != ctx.ChatID {
		s.writeLocked()
	}
	s.pendingChat = ctx.ChatID
	s.pendingData = raw
	s.mu.Unlock()

	s.deb.Trigger()
}

// Flush writes any pending snapshot immediately. Used on shutdown.
func (s *MetadataSaver) Flush() {
	s.deb.Flush()
}

func (s *MetadataSaver) write() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked()
}

func (s *MetadataSaver) writeLocked() {
	if s.pendingChat == "" {
		return
	}
	if err := s.db.SaveChatMetadata(s.pendingChat, s.pendingData); err != nil {
		s.logger.Error("metadata persist failed", zap.String("chat", s.pendingChat), zap.Error(err))
	} else {
		s.logger.Debug("metadata persisted", zap.String("chat", s.pendingChat))
	}
	s.pendingChat = ""
	s.pendingData = nil
}
