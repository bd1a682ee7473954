// Package panel provides the paginated read model over the favorites
// collection. It produces structured views; the host owns the markup.
package panel

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

// Item is the render model for one favorite entry.
type Item struct {
	ID         string
	MessageID  string
	IndexBadge string
	Sender     string
	Note       string
	HasNote    bool
	SendDate   string
	Preview    string
	// Deleted marks an entry whose message no longer resolves; the host
	// renders the placeholder variant instead of content.
	Deleted bool
}

// View is the render model for one panel page.
type View struct {
	Title      string
	Total      int
	Page       int
	TotalPages int
	Empty      bool
	Items      []Item
}

// Panel is the paginated favorites read model. State is limited to the
// current page.
type Panel struct {
	chats     host.Chats
	store     *favorites.Store
	dialog    host.Dialog
	toast     host.Toaster
	formatter host.Formatter
	logger    *zap.Logger

	pageSize    int
	currentPage int

	// ScreenshotHook, when set, handles the per-item screenshot action.
	// Screenshot rendering itself is an opaque host capability.
	ScreenshotHook func(favID string) error
}

// New creates a panel with the given page size.
func New(chats host.Chats, store *favorites.Store, dialog host.Dialog, toast host.Toaster, formatter host.Formatter, pageSize int, logger *zap.Logger) *Panel {
	if pageSize <= 0 {
		pageSize = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{
		chats:       chats,
		store:       store,
		dialog:      dialog,
		toast:       toast,
		formatter:   formatter,
		logger:      logger,
		pageSize:    pageSize,
		currentPage: 1,
	}
}

// Open resets pagination to the first page, as when the host opens the
// panel.
func (p *Panel) Open() {
	p.currentPage = 1
}

// Page returns the current 1-based page.
func (p *Panel) Page() int {
	return p.currentPage
}

// NextPage advances one page, clamped at the last page. Out-of-bounds
// navigation is a no-op.
func (p *Panel) NextPage() {
	if p.currentPage < p.totalPages(len(p.store.Collection())) {
		p.currentPage++
	}
}

// PrevPage goes back one page, clamped at the first page.
func (p *Panel) PrevPage() {
	if p.currentPage > 1 {
		p.currentPage--
	}
}

// Render sorts the given collection ascending by numeric message position,
// clamps the current page into range, and renders the page slice.
func (p *Panel) Render(collection []host.Favorite) View {
	sorted := make([]host.Favorite, len(collection))
	copy(sorted, collection)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKey(sorted[i].MessageID) < sortKey(sorted[j].MessageID)
	})

	total := len(sorted)
	totalPages := p.totalPages(total)
	if p.currentPage > totalPages {
		p.currentPage = totalPages
	}
	if p.currentPage < 1 {
		p.currentPage = 1
	}

	start := (p.currentPage - 1) * p.pageSize
	end := min(start+p.pageSize, total)

	msgs := p.chats.Messages()
	view := View{
		Title:      fmt.Sprintf("%s - %d favorites", p.chats.Context().SubjectName(), total),
		Total:      total,
		Page:       p.currentPage,
		TotalPages: totalPages,
		Empty:      total == 0,
	}
	for _, fav := range sorted[start:end] {
		view.Items = append(view.Items, p.renderItem(fav, msgs))
	}
	return view
}

// RenderCurrent renders the store's current collection.
func (p *Panel) RenderCurrent() View {
	return p.Render(p.store.Collection())
}

// renderItem is a pure projection of one favorite against the live message
// sequence. It never fails: unresolved messages become the deleted variant,
// formatter errors fall back to the raw text.
func (p *Panel) renderItem(fav host.Favorite, msgs []*host.Message) Item {
	item := Item{
		ID:         fav.ID,
		MessageID:  fav.MessageID,
		IndexBadge: "#" + fav.MessageID,
		Sender:     fav.Sender,
		Note:       fav.Note,
		HasNote:    fav.Note != "",
	}

	var msg *host.Message
	if idx, err := strconv.Atoi(fav.MessageID); err == nil && idx >= 0 && idx < len(msgs) {
		msg = msgs[idx]
	}
	if msg == nil {
		item.Deleted = true
		item.SendDate = "[unknown]"
		item.Preview = "[message unavailable or deleted]"
		return item
	}

	item.SendDate = msg.SendDate
	if item.SendDate == "" {
		item.SendDate = "[unknown]"
	}
	if msg.Mes == "" {
		item.Preview = "[empty message]"
		return item
	}
	if p.formatter == nil {
		item.Preview = msg.Mes
		return item
	}
	formatted, err := p.formatter(msg.Mes, fav.Sender, fav.Role == host.RoleUser, fav.MessageID)
	if err != nil {
		p.logger.Warn("message formatting failed, using raw text",
			zap.String("message_id", fav.MessageID), zap.Error(err))
		item.Preview = msg.Mes
		return item
	}
	item.Preview = formatted
	return item
}

func (p *Panel) totalPages(total int) int {
	return max(1, int(math.Ceil(float64(total)/float64(p.pageSize))))
}

// sortKey orders favorites by numeric message position; unparseable
// positions sink to the end.
func sortKey(messageID string) int {
	idx, err := strconv.Atoi(messageID)
	if err != nil {
		return math.MaxInt
	}
	return idx
}
