// internal/service/tracking_service.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// TrackingService ingests open and click signals keyed by delivery identifier.
// Counters are cumulative (every event counts); recipient status is monotonic
// (only the first open/click advances it). Events arrive concurrently and out
// of order, so all counter arithmetic happens in the store.
type TrackingService struct {
	Receipts   repository.ReceiptRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Campaigns  repository.CampaignRepositoryInterface
	Log        zerolog.Logger
}

// RecordOpen registers one open event. Unknown delivery identifiers return
// apperr.ErrUnknownDelivery for the caller to absorb.
func (t *TrackingService) RecordOpen(ctx context.Context, deliveryID string) error {
	rec, err := t.Receipts.GetByDeliveryID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.ErrUnknownDelivery
	}

	if err := t.Receipts.IncrementOpens(ctx, rec.ID); err != nil {
		return err
	}
	if rec.RecipientID == nil {
		// Test receipt: counted on the receipt only.
		return nil
	}

	rcpt, err := t.Recipients.GetByID(ctx, *rec.RecipientID)
	if err != nil || rcpt == nil {
		return err
	}

	advanced, err := t.Recipients.MarkOpened(ctx, rcpt.ID, time.Now())
	if err != nil {
		return err
	}
	if advanced {
		t.Log.Debug().Int64("recipient_id", rcpt.ID).Msg("recipient opened")
	}
	return t.Campaigns.IncrementOpened(ctx, rcpt.CampaignID)
}

// RecordClick registers one click event. A click on a recipient that was never
// sent (pending) bumps counters but leaves the status untouched; that signal
// is out of order and the status machine does not go backwards or skip ahead
// from pending.
func (t *TrackingService) RecordClick(ctx context.Context, deliveryID string) error {
	rec, err := t.Receipts.GetByDeliveryID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.ErrUnknownDelivery
	}

	if err := t.Receipts.IncrementClicks(ctx, rec.ID); err != nil {
		return err
	}
	if rec.RecipientID == nil {
		return nil
	}

	rcpt, err := t.Recipients.GetByID(ctx, *rec.RecipientID)
	if err != nil || rcpt == nil {
		return err
	}

	advanced, err := t.Recipients.MarkClicked(ctx, rcpt.ID, time.Now())
	if err != nil {
		return err
	}
	if advanced {
		t.Log.Debug().Int64("recipient_id", rcpt.ID).Msg("recipient clicked")
	}
	// The campaign counter stays cumulative even when the status write was
	// skipped: every received event counts.
	return t.Campaigns.IncrementClicked(ctx, rcpt.CampaignID)
}
