// internal/service/testsend_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/mailer"
	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// TestSendService sends a single preview email to the campaign owner without
// touching the production recipient set. It runs through the same transport
// and tracking-URL pipeline as production sends, so a test send exercises the
// whole delivery path end to end.
type TestSendService struct {
	Campaigns    repository.CampaignRepositoryInterface
	Accounts     repository.AccountRepositoryInterface
	Forms        repository.FormRepositoryInterface
	TestContacts repository.TestContactRepositoryInterface
	Receipts     repository.ReceiptRepositoryInterface

	Transport     mailer.Transport
	Links         *LinkBuilder
	DefaultSender string
	SendTimeout   time.Duration
	Log           zerolog.Logger
}

// TestSendResult is returned synchronously for inline UI feedback.
type TestSendResult struct {
	DeliveryID string    `json:"delivery_id"`
	To         string    `json:"to"`
	ProviderID string    `json:"provider_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// SendTest delivers the campaign preview to the owner's address. The test
// contact is upserted per (form, address) so repeated tests reuse one row; a
// fresh receipt is created every time.
func (s *TestSendService) SendTest(ctx context.Context, campaignID int64, override map[string]any) (*TestSendResult, error) {
	c, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	acct, err := s.Accounts.GetByID(ctx, c.AccountID)
	if err != nil {
		return nil, err
	}
	if acct.Email == "" {
		return nil, apperr.NewOwnerAddressMissing(acct.ID)
	}
	form, err := s.Forms.GetByID(ctx, c.FormID)
	if err != nil {
		return nil, err
	}

	sender, err := ResolveSender(acct, c, form, s.DefaultSender)
	if err != nil {
		return nil, err
	}

	payload := override
	if payload == nil {
		payload = map[string]any{}
	}
	if _, ok := payload["email"]; !ok {
		payload["email"] = acct.Email
	}

	tc, err := s.TestContacts.Upsert(ctx, c.FormID, acct.Email, payload)
	if err != nil {
		return nil, err
	}

	deliveryID := uuid.NewString()
	receipt := &model.DeliveryReceipt{
		DeliveryID:    deliveryID,
		TestContactID: &tc.ID,
		IsTest:        true,
	}
	if err := s.Receipts.Create(ctx, receipt); err != nil {
		return nil, err
	}

	body := RenderBody(c.BodyTemplate, payload)
	html := s.Links.Instrument(body, deliveryID, c.ID, acct.Email)

	sctx, cancel := context.WithTimeout(ctx, s.SendTimeout)
	defer cancel()

	res, err := s.Transport.Send(sctx, mailer.Message{
		From:    sender,
		To:      acct.Email,
		Subject: "[Test] " + c.Subject,
		HTML:    html,
	})
	if err != nil {
		if merr := s.Receipts.MarkFailed(ctx, receipt.ID); merr != nil {
			s.Log.Error().Err(merr).Int64("receipt_id", receipt.ID).Msg("failed to mark test receipt failed")
		}
		return nil, err
	}

	if err := s.Receipts.MarkSent(ctx, receipt.ID, res.ProviderID); err != nil {
		s.Log.Error().Err(err).Int64("receipt_id", receipt.ID).Msg("failed to mark test receipt sent")
	}

	s.Log.Info().Int64("campaign_id", campaignID).Str("to", acct.Email).Msg("test send delivered")
	return &TestSendResult{
		DeliveryID: deliveryID,
		To:         acct.Email,
		ProviderID: res.ProviderID,
		SentAt:     time.Now(),
	}, nil
}
