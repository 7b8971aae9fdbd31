package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mantlz/campaigns-backend/internal/model"
)

type AccountRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT id, email, name, plan, created_at FROM accounts WHERE id=$1`
	var a model.Account
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Email, &a.Name, &a.Plan, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account %d not found", id)
		}
		return nil, err
	}
	return &a, nil
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
