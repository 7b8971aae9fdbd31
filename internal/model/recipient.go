// internal/model/recipient.go
package model

import "time"

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
	RecipientOpened  RecipientStatus = "opened"
	RecipientClicked RecipientStatus = "clicked"
)

// CampaignRecipient is one planned delivery within a campaign. Exactly one row
// exists per (campaign_id, email); status moves pending -> sent|failed and then,
// via tracking callbacks, sent -> opened -> clicked.
type CampaignRecipient struct {
	ID           int64           `db:"id" json:"id"`
	CampaignID   int64           `db:"campaign_id" json:"campaign_id"`
	SubmissionID int64           `db:"submission_id" json:"submission_id"`
	Email        string          `db:"email" json:"email"`
	Status       RecipientStatus `db:"status" json:"status"`
	SentAt       *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	OpenedAt     *time.Time      `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt    *time.Time      `db:"clicked_at" json:"clicked_at,omitempty"`
	LastError    string          `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
