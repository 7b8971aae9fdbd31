package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
	"github.com/mantlz/campaigns-backend/internal/service"
)

type stubRecipientRepo struct {
	repository.RecipientRepositoryInterface
	counts map[model.RecipientStatus]int
}

func (s *stubRecipientRepo) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	return s.counts, nil
}

type stubAccountRepo struct {
	repository.AccountRepositoryInterface
	account *model.Account
}

func (s *stubAccountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.account, nil
}

func (s *stubCampaignRepo) TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus) (bool, error) {
	if s.campaign == nil || s.campaign.Status != from {
		return false, nil
	}
	s.campaign.Status = to
	return true, nil
}

func (s *stubCampaignRepo) DeleteCascade(ctx context.Context, id int64) error {
	s.campaign = nil
	return nil
}

type stubPublisher struct {
	published []int64
}

func (p *stubPublisher) PublishSend(campaignID int64) error {
	p.published = append(p.published, campaignID)
	return nil
}

type campaignHandlerEnv struct {
	campaigns *stubCampaignRepo
	queue     *stubPublisher
	router    *chi.Mux
}

func newCampaignHandlerEnv(plan model.PlanTier, campaign *model.Campaign, counts map[model.RecipientStatus]int) *campaignHandlerEnv {
	env := &campaignHandlerEnv{
		campaigns: &stubCampaignRepo{campaign: campaign},
		queue:     &stubPublisher{},
	}
	recipients := &stubRecipientRepo{counts: counts}
	accounts := &stubAccountRepo{account: &model.Account{ID: 1, Email: "owner@acme.test", Plan: plan}}

	h := &CampaignHandler{
		Service: &service.CampaignService{
			Campaigns:  env.campaigns,
			Recipients: recipients,
			Quota:      &service.QuotaGuard{Accounts: accounts, Campaigns: env.campaigns},
			Queue:      env.queue,
			Log:        zerolog.Nop(),
		},
		Log: zerolog.Nop(),
	}

	r := chi.NewRouter()
	r.Post("/campaigns", h.CreateCampaign)
	r.Get("/campaigns/{id}", h.GetCampaign)
	r.Post("/campaigns/{id}/send", h.SendCampaign)
	r.Get("/campaigns/{id}/stats", h.GetCampaignStats)
	r.Delete("/campaigns/{id}", h.DeleteCampaign)
	env.router = r
	return env
}

func TestSendCampaignAccepted(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard,
		&model.Campaign{ID: 1, AccountID: 1, Status: model.CampaignDraft},
		map[model.RecipientStatus]int{model.RecipientPending: 3},
	)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/1/send", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sending", body["status"])
	assert.Equal(t, []int64{1}, env.queue.published)
}

func TestSendCampaignConflictWhenNotDraft(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard,
		&model.Campaign{ID: 1, AccountID: 1, Status: model.CampaignSent},
		map[model.RecipientStatus]int{model.RecipientSent: 3},
	)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/1/send", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, env.queue.published)
}

func TestSendCampaignConflictWhenEmpty(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard,
		&model.Campaign{ID: 1, AccountID: 1, Status: model.CampaignDraft},
		map[model.RecipientStatus]int{},
	)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/1/send", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard, nil, nil)
	env.campaigns.err = apperr.NewCampaignNotFound(9)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/9", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "campaign 9 not found")
}

func TestGetCampaignInvalidID(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/abc", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCampaignQuotaPaymentRequired(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanFree, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/campaigns",
		strings.NewReader(`{"account_id":1,"form_id":1,"subject":"x"}`))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestCreateCampaignBadBody(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/campaigns", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCampaignStats(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard,
		&model.Campaign{ID: 1, Status: model.CampaignSent, SentCount: 2, OpenedCount: 4},
		map[model.RecipientStatus]int{model.RecipientSent: 1, model.RecipientOpened: 1},
	)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/1/stats", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.CampaignStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.SentCount)
	assert.Equal(t, 4, stats.OpenedCount)
	assert.Equal(t, 1, stats.Recipients[model.RecipientOpened])
}

func TestDeleteCampaign(t *testing.T) {
	env := newCampaignHandlerEnv(model.PlanStandard, &model.Campaign{ID: 1}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/campaigns/1", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, env.campaigns.campaign)
}
