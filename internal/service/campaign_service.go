// internal/service/campaign_service.go
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/queue"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// CampaignService owns the campaign lifecycle up to the point the dispatcher
// takes over: creation (quota check + recipient materialization), send
// acceptance, stats and deletion.
type CampaignService struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Forms      repository.FormRepositoryInterface
	Selector   *Selector
	Quota      *QuotaGuard
	Queue      queue.Publisher
	Log        zerolog.Logger
}

type CreateCampaignInput struct {
	AccountID    int64  `json:"account_id"`
	FormID       int64  `json:"form_id"`
	Subject      string `json:"subject"`
	BodyTemplate string `json:"body_template"`
	FromEmail    string `json:"from_email,omitempty"`
	Filter       string `json:"filter,omitempty"`
}

// CampaignStats is the per-campaign aggregate view.
type CampaignStats struct {
	CampaignID   int64                         `json:"campaign_id"`
	Status       model.CampaignStatus          `json:"status"`
	SentCount    int                           `json:"sent_count"`
	OpenedCount  int                           `json:"opened_count"`
	ClickedCount int                           `json:"clicked_count"`
	Recipients   map[model.RecipientStatus]int `json:"recipients"`
}

// Create checks quota, resolves the recipient set and materializes it. The
// recipient ceiling is checked on the resolved count before anything is
// written, so an oversized campaign is rejected without side effects.
func (s *CampaignService) Create(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	acct, err := s.Quota.CanCreateCampaign(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Forms.GetByID(ctx, in.FormID); err != nil {
		return nil, err
	}

	subs, err := s.Selector.SelectRecipients(ctx, in.FormID, in.Filter)
	if err != nil {
		return nil, err
	}
	if err := checkRecipientCeiling(acct.Plan, len(subs)); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		AccountID:    in.AccountID,
		FormID:       in.FormID,
		Subject:      in.Subject,
		BodyTemplate: in.BodyTemplate,
		FromEmail:    in.FromEmail,
		Filter:       in.Filter,
		Status:       model.CampaignDraft,
	}
	if err := s.Campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	n, err := s.Recipients.BulkCreate(ctx, c.ID, subs)
	if err != nil {
		return nil, err
	}
	s.Log.Info().Int64("campaign_id", c.ID).Int("recipients", n).Msg("campaign created")
	return c, nil
}

// Send accepts a send request: the campaign must be in draft and have at least
// one recipient. On acceptance it atomically moves draft -> sending and hands
// the campaign to the worker; the batch loop runs asynchronously.
func (s *CampaignService) Send(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	c, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, apperr.NewInvalidCampaignState(campaignID, string(c.Status))
	}

	counts, err := s.Recipients.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, apperr.NewNoRecipients(campaignID)
	}

	if err := s.Quota.CanSendCampaign(ctx, c.AccountID, total); err != nil {
		return nil, err
	}

	moved, err := s.Campaigns.TransitionStatus(ctx, campaignID, model.CampaignDraft, model.CampaignSending)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost a race with a concurrent send request.
		return nil, apperr.NewInvalidCampaignState(campaignID, string(model.CampaignSending))
	}

	if err := s.Queue.PublishSend(campaignID); err != nil {
		// The campaign stays in sending; the reconciler resumes it once the
		// queue is reachable again.
		s.Log.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to enqueue send job")
		return nil, err
	}

	c.Status = model.CampaignSending
	s.Log.Info().Int64("campaign_id", campaignID).Int("recipients", total).Msg("campaign send accepted")
	return c, nil
}

// Stats returns the campaign counters plus the per-status recipient breakdown.
func (s *CampaignService) Stats(ctx context.Context, campaignID int64) (*CampaignStats, error) {
	c, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Recipients.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignStats{
		CampaignID:   c.ID,
		Status:       c.Status,
		SentCount:    c.SentCount,
		OpenedCount:  c.OpenedCount,
		ClickedCount: c.ClickedCount,
		Recipients:   counts,
	}, nil
}

func (s *CampaignService) Get(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	return s.Campaigns.GetByID(ctx, campaignID)
}

// List returns a campaign page plus pagination metadata.
func (s *CampaignService) List(ctx context.Context, page, pageSize int, status string) ([]*model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	campaigns, total, err := s.Campaigns.List(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// Delete removes the campaign with its receipts and recipients, dependents
// first, so no tracking identifier outlives its campaign inconsistently.
func (s *CampaignService) Delete(ctx context.Context, campaignID int64) error {
	if _, err := s.Campaigns.GetByID(ctx, campaignID); err != nil {
		return err
	}
	return s.Campaigns.DeleteCascade(ctx, campaignID)
}
