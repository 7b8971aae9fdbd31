// internal/model/test_contact.go
package model

import "time"

// TestContact is upserted per (form, email) so repeated test sends update a
// single row instead of piling up duplicates. Payload keeps the most recent
// test data for debugging.
type TestContact struct {
	ID        int64          `db:"id" json:"id"`
	FormID    int64          `db:"form_id" json:"form_id"`
	Email     string         `db:"email" json:"email"`
	Payload   map[string]any `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
