package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mantlz/campaigns-backend/internal/model"
)

type ReceiptRepositoryInterface interface {
	Create(ctx context.Context, rec *model.DeliveryReceipt) error
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryReceipt, error)
	MarkSent(ctx context.Context, id int64, providerID string) error
	MarkFailed(ctx context.Context, id int64) error
	IncrementOpens(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) error
}

type ReceiptRepository struct {
	DB *sql.DB
}

func (r *ReceiptRepository) Create(ctx context.Context, rec *model.DeliveryReceipt) error {
	rec.CreatedAt = time.Now()
	if rec.Status == "" {
		rec.Status = model.ReceiptQueued
	}
	query := `
		INSERT INTO delivery_receipts (delivery_id, recipient_id, test_contact_id, is_test, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		rec.DeliveryID, rec.RecipientID, rec.TestContactID, rec.IsTest, rec.Status, rec.CreatedAt,
	).Scan(&rec.ID)
}

func (r *ReceiptRepository) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryReceipt, error) {
	query := `
		SELECT id, delivery_id, recipient_id, test_contact_id, is_test, provider_id, status,
			bounced, complained, open_count, click_count, created_at
		FROM delivery_receipts
		WHERE delivery_id=$1
	`
	var rec model.DeliveryReceipt
	var providerID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, deliveryID).Scan(
		&rec.ID, &rec.DeliveryID, &rec.RecipientID, &rec.TestContactID, &rec.IsTest, &providerID,
		&rec.Status, &rec.Bounced, &rec.Complained, &rec.OpenCount, &rec.ClickCount, &rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.ProviderID = providerID.String
	return &rec, nil
}

func (r *ReceiptRepository) MarkSent(ctx context.Context, id int64, providerID string) error {
	query := `UPDATE delivery_receipts SET status='sent', provider_id=$1 WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, providerID, id)
	return err
}

func (r *ReceiptRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE delivery_receipts SET status='failed' WHERE id=$1`, id)
	return err
}

func (r *ReceiptRepository) IncrementOpens(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE delivery_receipts SET open_count = open_count + 1 WHERE id=$1`, id)
	return err
}

func (r *ReceiptRepository) IncrementClicks(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE delivery_receipts SET click_count = click_count + 1 WHERE id=$1`, id)
	return err
}

var _ ReceiptRepositoryInterface = (*ReceiptRepository)(nil)
