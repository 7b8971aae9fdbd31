// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

type Campaign struct {
	ID           int64          `db:"id" json:"id"`
	AccountID    int64          `db:"account_id" json:"account_id"`
	FormID       int64          `db:"form_id" json:"form_id"`
	Subject      string         `db:"subject" json:"subject"`
	BodyTemplate string         `db:"body_template" json:"body_template"`
	FromEmail    string         `db:"from_email" json:"from_email,omitempty"`
	Filter       string         `db:"filter" json:"filter,omitempty"`
	Status       CampaignStatus `db:"status" json:"status"`
	SentCount    int            `db:"sent_count" json:"sent_count"`
	OpenedCount  int            `db:"opened_count" json:"opened_count"`
	ClickedCount int            `db:"clicked_count" json:"clicked_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
