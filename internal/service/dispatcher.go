// internal/service/dispatcher.go
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/mailer"
	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// Dispatcher drains a campaign's pending recipients in fixed-size batches.
// Sends within a batch run concurrently and are joined before the next batch
// starts; the batch size doubles as the concurrency ceiling, and a fixed pause
// between full batches is the rate limiter toward the transport.
type Dispatcher struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Receipts   repository.ReceiptRepositoryInterface
	Contacts   repository.SubmissionRepositoryInterface
	Accounts   repository.AccountRepositoryInterface
	Forms      repository.FormRepositoryInterface

	Transport     mailer.Transport
	Links         *LinkBuilder
	DefaultSender string

	BatchSize   int
	BatchPause  time.Duration
	SendTimeout time.Duration
	Log         zerolog.Logger

	// pause is swapped out in tests.
	pause func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	campaigns repository.CampaignRepositoryInterface,
	recipients repository.RecipientRepositoryInterface,
	receipts repository.ReceiptRepositoryInterface,
	contacts repository.SubmissionRepositoryInterface,
	accounts repository.AccountRepositoryInterface,
	forms repository.FormRepositoryInterface,
	transport mailer.Transport,
	links *LinkBuilder,
	defaultSender string,
	batchSize int,
	batchPause, sendTimeout time.Duration,
	log zerolog.Logger,
) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		Campaigns:     campaigns,
		Recipients:    recipients,
		Receipts:      receipts,
		Contacts:      contacts,
		Accounts:      accounts,
		Forms:         forms,
		Transport:     transport,
		Links:         links,
		DefaultSender: defaultSender,
		BatchSize:     batchSize,
		BatchPause:    batchPause,
		SendTimeout:   sendTimeout,
		Log:           log,
		pause:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run drives the batch loop for one campaign until no pending recipients
// remain, then reduces the campaign to its terminal status. A missing sender
// is a configuration error: the campaign goes to failed instead of sitting in
// sending forever.
func (d *Dispatcher) Run(ctx context.Context, campaignID int64) error {
	c, err := d.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	acct, err := d.Accounts.GetByID(ctx, c.AccountID)
	if err != nil {
		return err
	}
	form, err := d.Forms.GetByID(ctx, c.FormID)
	if err != nil {
		return err
	}

	sender, err := ResolveSender(acct, c, form, d.DefaultSender)
	if err != nil {
		d.Log.Error().Err(err).Int64("campaign_id", campaignID).Msg("sender not configured, failing campaign")
		if uerr := d.Campaigns.UpdateStatus(ctx, campaignID, model.CampaignFailed); uerr != nil {
			return uerr
		}
		return err
	}

	for {
		batch, err := d.Recipients.FetchPending(ctx, campaignID, d.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		var progressed atomic.Int64
		var wg sync.WaitGroup
		for _, rcpt := range batch {
			wg.Add(1)
			go func(rcpt *model.CampaignRecipient) {
				defer wg.Done()
				if d.sendOne(ctx, c, sender, rcpt) {
					progressed.Add(1)
				}
			}(rcpt)
		}
		wg.Wait()

		// If no recipient left pending, the next fetch would return the same
		// batch and the same addresses would be mailed again. A store that
		// refuses every status write is handled like a configuration error.
		if progressed.Load() == 0 {
			d.Log.Error().Int64("campaign_id", campaignID).Int("batch", len(batch)).
				Msg("no recipient status writes landed, aborting send")
			if uerr := d.Campaigns.UpdateStatus(ctx, campaignID, model.CampaignFailed); uerr != nil {
				return uerr
			}
			return fmt.Errorf("campaign %d: recipient status writes are failing", campaignID)
		}

		// A short batch means the pending set is drained; only a full batch
		// earns the inter-batch pause.
		if len(batch) < d.BatchSize {
			break
		}
		if err := d.pause(ctx, d.BatchPause); err != nil {
			return err
		}
	}

	return d.Reduce(ctx, campaignID)
}

// sendOne delivers to one recipient and reports whether the recipient's status
// row left pending; the batch loop uses that to detect a store that drops
// every write.
func (d *Dispatcher) sendOne(ctx context.Context, c *model.Campaign, sender string, rcpt *model.CampaignRecipient) bool {
	data := map[string]any{"email": rcpt.Email}
	sub, err := d.Contacts.GetByID(ctx, rcpt.SubmissionID)
	if err != nil {
		d.Log.Warn().Err(err).Int64("recipient_id", rcpt.ID).Msg("could not load submission, rendering without fields")
	} else if sub != nil {
		for k, v := range sub.Data {
			data[k] = v
		}
	}

	deliveryID := uuid.NewString()
	receipt := &model.DeliveryReceipt{
		DeliveryID:  deliveryID,
		RecipientID: &rcpt.ID,
	}
	if err := d.Receipts.Create(ctx, receipt); err != nil {
		d.Log.Error().Err(err).Int64("recipient_id", rcpt.ID).Msg("failed to mint delivery receipt")
		return d.markFailed(ctx, rcpt.ID, receipt, err)
	}

	body := RenderBody(c.BodyTemplate, data)
	html := d.Links.Instrument(body, deliveryID, c.ID, rcpt.Email)

	sctx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	res, err := d.Transport.Send(sctx, mailer.Message{
		From:    sender,
		To:      rcpt.Email,
		Subject: c.Subject,
		HTML:    html,
	})
	if err != nil {
		d.Log.Warn().Err(err).Int64("campaign_id", c.ID).Str("to", rcpt.Email).Msg("transport send failed")
		return d.markFailed(ctx, rcpt.ID, receipt, err)
	}

	if err := d.Recipients.MarkSent(ctx, rcpt.ID, time.Now()); err != nil {
		d.Log.Error().Err(err).Int64("recipient_id", rcpt.ID).Msg("failed to mark recipient sent")
		return false
	}
	if err := d.Receipts.MarkSent(ctx, receipt.ID, res.ProviderID); err != nil {
		d.Log.Error().Err(err).Int64("receipt_id", receipt.ID).Msg("failed to mark receipt sent")
	}
	if err := d.Campaigns.IncrementSent(ctx, c.ID); err != nil {
		d.Log.Error().Err(err).Int64("campaign_id", c.ID).Msg("failed to bump sent counter")
	}
	return true
}

func (d *Dispatcher) markFailed(ctx context.Context, recipientID int64, receipt *model.DeliveryReceipt, cause error) bool {
	moved := true
	if err := d.Recipients.MarkFailed(ctx, recipientID, cause.Error()); err != nil {
		d.Log.Error().Err(err).Int64("recipient_id", recipientID).Msg("failed to mark recipient failed")
		moved = false
	}
	if receipt.ID != 0 {
		if err := d.Receipts.MarkFailed(ctx, receipt.ID); err != nil {
			d.Log.Error().Err(err).Int64("receipt_id", receipt.ID).Msg("failed to mark receipt failed")
		}
	}
	return moved
}

// Reduce computes the campaign's terminal status from the recipient
// distribution: failed only when every recipient failed, otherwise sent.
// Partial failure deliberately collapses to sent; the failed recipient rows
// are the source of truth for follow-up. A campaign with pending recipients
// is left in sending untouched.
func (d *Dispatcher) Reduce(ctx context.Context, campaignID int64) error {
	counts, err := d.Recipients.CountByStatus(ctx, campaignID)
	if err != nil {
		return err
	}

	// Never finalize over unprocessed recipients: a campaign left in sending
	// stays visible to the reconciler, a sent one would strand them.
	if counts[model.RecipientPending] > 0 {
		d.Log.Warn().Int64("campaign_id", campaignID).
			Int("pending", counts[model.RecipientPending]).
			Msg("recipients still pending, leaving campaign in sending")
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	status := model.CampaignSent
	if total > 0 && counts[model.RecipientFailed] == total {
		status = model.CampaignFailed
	}

	d.Log.Info().
		Int64("campaign_id", campaignID).
		Int("total", total).
		Int("failed", counts[model.RecipientFailed]).
		Str("status", string(status)).
		Msg("campaign send complete")
	return d.Campaigns.UpdateStatus(ctx, campaignID, status)
}
