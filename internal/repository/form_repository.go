package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mantlz/campaigns-backend/internal/model"
)

type FormRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Form, error)
}

type FormRepository struct {
	DB *sql.DB
}

func (r *FormRepository) GetByID(ctx context.Context, id int64) (*model.Form, error) {
	query := `SELECT id, account_id, name, sender_email, created_at FROM forms WHERE id=$1`
	var f model.Form
	var senderEmail sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.AccountID, &f.Name, &senderEmail, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("form %d not found", id)
		}
		return nil, err
	}
	f.SenderEmail = senderEmail.String
	return &f, nil
}

var _ FormRepositoryInterface = (*FormRepository)(nil)
