package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/mailer"
	"github.com/mantlz/campaigns-backend/internal/model"
)

// In-memory fakes shared by the service tests.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	nextID    int64
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[int64]*model.Campaign{}}
}

func (r *fakeCampaignRepo) add(c *model.Campaign) *model.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.campaigns[c.ID] = c
	return c
}

func (r *fakeCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	r.add(c)
	return nil
}

func (r *fakeCampaignRepo) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, apperr.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if status == "" || string(c.Status) == status {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *fakeCampaignRepo) IncrementSent(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.SentCount++
	}
	return nil
}

func (r *fakeCampaignRepo) IncrementOpened(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.OpenedCount++
	}
	return nil
}

func (r *fakeCampaignRepo) IncrementClicked(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.ClickedCount++
	}
	return nil
}

func (r *fakeCampaignRepo) CountCreatedSince(ctx context.Context, accountID int64, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.campaigns {
		if c.AccountID == accountID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeCampaignRepo) ListIDsByStatus(ctx context.Context, status model.CampaignStatus) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, c := range r.campaigns {
		if c.Status == status {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeCampaignRepo) DeleteCascade(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

type fakeRecipientRepo struct {
	mu         sync.Mutex
	recipients map[int64]*model.CampaignRecipient
	order      []int64
	nextID     int64
	fetchSizes []int

	markSentErr   error
	markFailedErr error
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{recipients: map[int64]*model.CampaignRecipient{}}
}

func (r *fakeRecipientRepo) add(campaignID int64, email string, status model.RecipientStatus) *model.CampaignRecipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rc := &model.CampaignRecipient{
		ID:         r.nextID,
		CampaignID: campaignID,
		Email:      email,
		Status:     status,
		CreatedAt:  time.Now(),
	}
	r.recipients[rc.ID] = rc
	r.order = append(r.order, rc.ID)
	return rc
}

func (r *fakeRecipientRepo) BulkCreate(ctx context.Context, campaignID int64, subs []*model.Submission) (int, error) {
	n := 0
	for _, s := range subs {
		rc := r.add(campaignID, s.Email, model.RecipientPending)
		r.mu.Lock()
		rc.SubmissionID = s.ID
		r.mu.Unlock()
		n++
	}
	return n, nil
}

func (r *fakeRecipientRepo) FetchPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := []*model.CampaignRecipient{}
	for _, id := range r.order {
		rc := r.recipients[id]
		if rc.CampaignID != campaignID || rc.Status != model.RecipientPending {
			continue
		}
		cp := *rc
		batch = append(batch, &cp)
		if len(batch) == limit {
			break
		}
	}
	r.fetchSizes = append(r.fetchSizes, len(batch))
	return batch, nil
}

func (r *fakeRecipientRepo) GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.recipients[id]
	if !ok {
		return nil, nil
	}
	cp := *rc
	return &cp, nil
}

func (r *fakeRecipientRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markSentErr != nil {
		return r.markSentErr
	}
	if rc, ok := r.recipients[id]; ok {
		rc.Status = model.RecipientSent
		rc.SentAt = &at
		rc.LastError = ""
	}
	return nil
}

func (r *fakeRecipientRepo) MarkFailed(ctx context.Context, id int64, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markFailedErr != nil {
		return r.markFailedErr
	}
	if rc, ok := r.recipients[id]; ok {
		rc.Status = model.RecipientFailed
		rc.LastError = lastError
	}
	return nil
}

func (r *fakeRecipientRepo) MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.recipients[id]
	if !ok || rc.Status != model.RecipientSent {
		return false, nil
	}
	rc.Status = model.RecipientOpened
	rc.OpenedAt = &at
	return true, nil
}

func (r *fakeRecipientRepo) MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.recipients[id]
	if !ok || (rc.Status != model.RecipientSent && rc.Status != model.RecipientOpened) {
		return false, nil
	}
	rc.Status = model.RecipientClicked
	rc.ClickedAt = &at
	return true, nil
}

func (r *fakeRecipientRepo) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.RecipientStatus]int{
		model.RecipientPending: 0,
		model.RecipientSent:    0,
		model.RecipientFailed:  0,
		model.RecipientOpened:  0,
		model.RecipientClicked: 0,
	}
	for _, rc := range r.recipients {
		if rc.CampaignID == campaignID {
			counts[rc.Status]++
		}
	}
	return counts, nil
}

type fakeReceiptRepo struct {
	mu       sync.Mutex
	receipts map[int64]*model.DeliveryReceipt
	byToken  map[string]int64
	nextID   int64
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: map[int64]*model.DeliveryReceipt{}, byToken: map[string]int64{}}
}

func (r *fakeReceiptRepo) Create(ctx context.Context, rec *model.DeliveryReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	if rec.Status == "" {
		rec.Status = model.ReceiptQueued
	}
	cp := *rec
	r.receipts[rec.ID] = &cp
	r.byToken[rec.DeliveryID] = rec.ID
	return nil
}

func (r *fakeReceiptRepo) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[deliveryID]
	if !ok {
		return nil, nil
	}
	cp := *r.receipts[id]
	return &cp, nil
}

func (r *fakeReceiptRepo) MarkSent(ctx context.Context, id int64, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.receipts[id]; ok {
		rec.Status = model.ReceiptSent
		rec.ProviderID = providerID
	}
	return nil
}

func (r *fakeReceiptRepo) MarkFailed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.receipts[id]; ok {
		rec.Status = model.ReceiptFailed
	}
	return nil
}

func (r *fakeReceiptRepo) IncrementOpens(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.receipts[id]; ok {
		rec.OpenCount++
	}
	return nil
}

func (r *fakeReceiptRepo) IncrementClicks(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.receipts[id]; ok {
		rec.ClickCount++
	}
	return nil
}

func (r *fakeReceiptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.receipts)
}

type fakeContactRepo struct {
	mu   sync.Mutex
	subs []*model.Submission
}

func (r *fakeContactRepo) FindContacts(ctx context.Context, formID int64, from, to *time.Time) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Submission{}
	for _, s := range r.subs {
		if s.FormID != formID || s.Email == "" || s.UnsubscribedAt != nil {
			continue
		}
		if from != nil && s.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && s.CreatedAt.After(*to) {
			continue
		}
		out = append(out, s)
	}
	// Newest first, matching the store's ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeContactRepo) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) Unsubscribe(ctx context.Context, formID int64, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, s := range r.subs {
		if s.FormID == formID && s.Email == email && s.UnsubscribedAt == nil {
			s.UnsubscribedAt = &now
		}
	}
	return nil
}

type fakeAccountRepo struct {
	accounts map[int64]*model.Account
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d not found", id)
	}
	return a, nil
}

type fakeFormRepo struct {
	forms map[int64]*model.Form
}

func (r *fakeFormRepo) GetByID(ctx context.Context, id int64) (*model.Form, error) {
	f, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %d not found", id)
	}
	return f, nil
}

type fakeTestContactRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.TestContact
	nextID  int64
	upserts int
}

func newFakeTestContactRepo() *fakeTestContactRepo {
	return &fakeTestContactRepo{rows: map[string]*model.TestContact{}}
}

func (r *fakeTestContactRepo) Upsert(ctx context.Context, formID int64, email string, payload map[string]any) (*model.TestContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	key := fmt.Sprintf("%d|%s", formID, email)
	if tc, ok := r.rows[key]; ok {
		tc.Payload = payload
		tc.UpdatedAt = time.Now()
		return tc, nil
	}
	r.nextID++
	tc := &model.TestContact{
		ID:        r.nextID,
		FormID:    formID,
		Email:     email,
		Payload:   payload,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.rows[key] = tc
	return tc, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  []mailer.Message
	fail  func(msg mailer.Message) error
	calls int
}

func (t *fakeTransport) Send(ctx context.Context, msg mailer.Message) (mailer.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.fail != nil {
		if err := t.fail(msg); err != nil {
			return mailer.Result{}, err
		}
	}
	t.sent = append(t.sent, msg)
	return mailer.Result{ProviderID: fmt.Sprintf("prov-%d", t.calls)}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []int64
	err       error
}

func (p *fakePublisher) PublishSend(campaignID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, campaignID)
	return nil
}
