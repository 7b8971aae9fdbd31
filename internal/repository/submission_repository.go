package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mantlz/campaigns-backend/internal/model"
)

// SubmissionRepositoryInterface is the contact source: form submissions with a
// known address, excluding unsubscribed ones.
type SubmissionRepositoryInterface interface {
	FindContacts(ctx context.Context, formID int64, from, to *time.Time) ([]*model.Submission, error)
	GetByID(ctx context.Context, id int64) (*model.Submission, error)
	Unsubscribe(ctx context.Context, formID int64, email string) error
}

type SubmissionRepository struct {
	DB *sql.DB
}

// FindContacts returns submissions with a non-empty address matching the
// optional date range, newest first. Unsubscribed addresses are excluded here
// so they never reach a recipient list.
func (r *SubmissionRepository) FindContacts(ctx context.Context, formID int64, from, to *time.Time) ([]*model.Submission, error) {
	query := `
		SELECT id, form_id, email, data, unsubscribed_at, created_at
		FROM submissions
		WHERE form_id=$1 AND email <> '' AND unsubscribed_at IS NULL
	`
	args := []interface{}{formID}
	argPos := 2

	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *from)
		argPos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *to)
		argPos++
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	query := `
		SELECT id, form_id, email, data, unsubscribed_at, created_at
		FROM submissions
		WHERE id=$1
	`
	s, err := scanSubmission(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SubmissionRepository) Unsubscribe(ctx context.Context, formID int64, email string) error {
	query := `
		UPDATE submissions SET unsubscribed_at=NOW()
		WHERE form_id=$1 AND email=$2 AND unsubscribed_at IS NULL
	`
	_, err := r.DB.ExecContext(ctx, query, formID, email)
	return err
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var s model.Submission
	var raw []byte
	if err := row.Scan(&s.ID, &s.FormID, &s.Email, &raw, &s.UnsubscribedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Data); err != nil {
			return nil, fmt.Errorf("decode submission %d data: %w", s.ID, err)
		}
	}
	return &s, nil
}

var _ SubmissionRepositoryInterface = (*SubmissionRepository)(nil)
