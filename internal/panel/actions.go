package panel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

// EditNote prompts for a note on the given favorite and stores the result.
// Cancelling the dialog leaves the note untouched.
func (p *Panel) EditNote(ctx context.Context, favID string) error {
	fav, ok := p.store.Get(favID)
	if !ok {
		return fmt.Errorf("favorite %q not found", favID)
	}
	text, result, err := p.dialog.Input(ctx, "Add a note for this favorite:", fav.Note)
	if err != nil {
		return fmt.Errorf("note input: %w", err)
	}
	if result != host.ResultAffirmative {
		return nil
	}
	p.store.UpdateNote(favID, text)
	return nil
}

// Delete removes a favorite after confirmation.
func (p *Panel) Delete(ctx context.Context, favID string) error {
	result, err := p.dialog.Confirm(ctx, "Delete this favorite?")
	if err != nil {
		return fmt.Errorf("delete confirm: %w", err)
	}
	if result != host.ResultAffirmative {
		return nil
	}
	if !p.store.RemoveByID(favID) {
		p.toast.Error("Failed to delete favorite")
		return fmt.Errorf("favorite %q not found", favID)
	}
	p.toast.Success("Favorite deleted")
	return nil
}

// Prune removes favorites referencing deleted or out-of-range messages,
// after confirmation. Reports the outcome via toast.
func (p *Panel) Prune(ctx context.Context) error {
	collection := p.store.Collection()
	if len(collection) == 0 {
		p.toast.Info("No favorites to clean up")
		return nil
	}

	liveCount := len(p.chats.Messages())
	isLive := func(messageID string) bool {
		idx, err := strconv.Atoi(messageID)
		return err == nil && idx >= 0 && idx < liveCount
	}

	invalid := 0
	for _, fav := range collection {
		if !isLive(fav.MessageID) {
			invalid++
		}
	}
	if invalid == 0 {
		p.toast.Info("No invalid favorites found")
		return nil
	}

	result, err := p.dialog.Confirm(ctx,
		fmt.Sprintf("Found %d favorites referencing deleted messages. Remove them?", invalid))
	if err != nil {
		return fmt.Errorf("prune confirm: %w", err)
	}
	if result != host.ResultAffirmative {
		return nil
	}

	removed := p.store.PruneInvalid(isLive)
	p.currentPage = 1
	p.toast.Success(fmt.Sprintf("Cleaned up %d invalid favorites", removed))
	return nil
}

// Screenshot invokes the host's opaque screenshot capability for a
// favorite, when one is wired.
func (p *Panel) Screenshot(favID string) {
	if p.ScreenshotHook == nil {
		p.toast.Info("Screenshots are not available")
		return
	}
	if err := p.ScreenshotHook(favID); err != nil {
		p.logger.Error("screenshot failed", zap.String("fav_id", favID), zap.Error(err))
		p.toast.Error("Screenshot failed")
	}
}
