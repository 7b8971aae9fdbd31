package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mantlz/campaigns-backend/internal/model"
)

type TestContactRepositoryInterface interface {
	Upsert(ctx context.Context, formID int64, email string, payload map[string]any) (*model.TestContact, error)
}

type TestContactRepository struct {
	DB *sql.DB
}

// Upsert is keyed on (form_id, email): repeated test sends refresh the payload
// on the existing row instead of creating duplicates.
func (r *TestContactRepository) Upsert(ctx context.Context, formID int64, email string, payload map[string]any) (*model.TestContact, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode test payload: %w", err)
	}

	query := `
		INSERT INTO test_contacts (form_id, email, payload, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (form_id, email)
		DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()
		RETURNING id, created_at, updated_at
	`
	tc := &model.TestContact{FormID: formID, Email: email, Payload: payload}
	err = r.DB.QueryRowContext(ctx, query, formID, email, raw).Scan(&tc.ID, &tc.CreatedAt, &tc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

var _ TestContactRepositoryInterface = (*TestContactRepository)(nil)
