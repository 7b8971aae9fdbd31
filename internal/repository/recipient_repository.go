package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/mantlz/campaigns-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	BulkCreate(ctx context.Context, campaignID int64, subs []*model.Submission) (int, error)
	FetchPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error)
	GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
	MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, campaign_id, submission_id, email, status, sent_at, opened_at,
		clicked_at, last_error, created_at`

// BulkCreate materializes the selected submissions as pending recipient rows.
// The unique (campaign_id, email) constraint makes re-runs idempotent; rows
// that already exist are skipped.
func (r *RecipientRepository) BulkCreate(ctx context.Context, campaignID int64, subs []*model.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(subs))
	emails := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
		emails = append(emails, s.Email)
	}

	query := `
		INSERT INTO campaign_recipients (campaign_id, submission_id, email, status, created_at)
		SELECT $1, sub_id, sub_email, 'pending', NOW()
		FROM unnest($2::bigint[], $3::text[]) AS t(sub_id, sub_email)
		ON CONFLICT (campaign_id, email) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query, campaignID, pq.Array(ids), pq.Array(emails))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// FetchPending returns up to limit pending recipients, oldest first, so
// earlier-enqueued recipients are always attempted first across batches.
func (r *RecipientRepository) FetchPending(ctx context.Context, campaignID int64, limit int) ([]*model.CampaignRecipient, error) {
	query := `SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE campaign_id=$1 AND status='pending'
		ORDER BY created_at, id
		LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []*model.CampaignRecipient{}
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rc)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE id=$1`
	rc, err := scanRecipient(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rc, nil
}

func (r *RecipientRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE campaign_recipients SET status='sent', sent_at=$1, last_error='' WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, at, id)
	return err
}

func (r *RecipientRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE campaign_recipients SET status='failed', last_error=$1 WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, lastError, id)
	return err
}

// MarkOpened advances sent -> opened, reporting whether the status moved.
// Repeated opens keep incrementing counters elsewhere but the status write
// happens once.
func (r *RecipientRepository) MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `UPDATE campaign_recipients SET status='opened', opened_at=$1 WHERE id=$2 AND status='sent'`
	res, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkClicked advances sent|opened -> clicked. A clicked recipient never moves
// back, and a pending one is left untouched.
func (r *RecipientRepository) MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `UPDATE campaign_recipients SET status='clicked', clicked_at=$1 WHERE id=$2 AND status IN ('sent', 'opened')`
	res, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *RecipientRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.RecipientStatus]int{
		model.RecipientPending: 0,
		model.RecipientSent:    0,
		model.RecipientFailed:  0,
		model.RecipientOpened:  0,
		model.RecipientClicked: 0,
	}
	for rows.Next() {
		var status model.RecipientStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipient(row rowScanner) (*model.CampaignRecipient, error) {
	var rc model.CampaignRecipient
	var lastError sql.NullString
	err := row.Scan(
		&rc.ID, &rc.CampaignID, &rc.SubmissionID, &rc.Email, &rc.Status,
		&rc.SentAt, &rc.OpenedAt, &rc.ClickedAt, &lastError, &rc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rc.LastError = lastError.String
	return &rc, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
