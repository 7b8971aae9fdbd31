package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error
	TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus) (bool, error)
	IncrementSent(ctx context.Context, id int64) error
	IncrementOpened(ctx context.Context, id int64) error
	IncrementClicked(ctx context.Context, id int64) error
	CountCreatedSince(ctx context.Context, accountID int64, since time.Time) (int, error)
	ListIDsByStatus(ctx context.Context, status model.CampaignStatus) ([]int64, error)
	DeleteCascade(ctx context.Context, id int64) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, account_id, form_id, subject, body_template, from_email, filter,
		status, sent_count, opened_count, clicked_count, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
		INSERT INTO campaigns (account_id, form_id, subject, body_template, from_email, filter, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		c.AccountID, c.FormID, c.Subject, c.BodyTemplate, c.FromEmail, c.Filter, c.Status, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`

	var c model.Campaign
	var fromEmail, filter sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.AccountID, &c.FormID, &c.Subject, &c.BodyTemplate, &fromEmail, &filter,
		&c.Status, &c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NewCampaignNotFound(id)
		}
		return nil, err
	}
	c.FromEmail = fromEmail.String
	c.Filter = filter.String
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		var fromEmail, filter sql.NullString
		if err := rows.Scan(
			&c.ID, &c.AccountID, &c.FormID, &c.Subject, &c.BodyTemplate, &fromEmail, &filter,
			&c.Status, &c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		c.FromEmail = fromEmail.String
		c.Filter = filter.String
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, status, id)
	return err
}

// TransitionStatus moves the campaign from one status to another only if it is
// still in the expected status, reporting whether the row changed. The send
// path relies on this for the atomic draft -> sending step.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id int64, from, to model.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Counter bumps are plain SQL increments: tracking callbacks run concurrently
// with the dispatcher, so the store, not the engine, must do the arithmetic.

func (r *CampaignRepository) IncrementSent(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET sent_count = sent_count + 1 WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) IncrementOpened(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET opened_count = opened_count + 1 WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) IncrementClicked(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET clicked_count = clicked_count + 1 WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) CountCreatedSince(ctx context.Context, accountID int64, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE account_id=$1 AND created_at >= $2`,
		accountID, since,
	).Scan(&count)
	return count, err
}

func (r *CampaignRepository) ListIDsByStatus(ctx context.Context, status model.CampaignStatus) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM campaigns WHERE status=$1 ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCascade removes a campaign and its dependents in a fixed order:
// receipts first, then recipients, then the campaign itself. Callbacks for the
// deleted receipts land as unknown-delivery cases afterwards.
func (r *CampaignRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM delivery_receipts
		WHERE recipient_id IN (SELECT id FROM campaign_recipients WHERE campaign_id=$1)
	`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_recipients WHERE campaign_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
