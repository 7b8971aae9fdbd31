// internal/model/account.go
package model

import "time"

type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanStandard PlanTier = "standard"
	PlanPro      PlanTier = "pro"
)

type Account struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Plan      PlanTier  `db:"plan" json:"plan"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Form struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Name        string    `db:"name" json:"name"`
	SenderEmail string    `db:"sender_email" json:"sender_email,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
