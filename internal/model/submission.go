// internal/model/submission.go
package model

import "time"

// Submission is a form submission with a known address, the unit of the
// contact source. Data holds the submitted fields as free-form JSON.
type Submission struct {
	ID             int64          `db:"id" json:"id"`
	FormID         int64          `db:"form_id" json:"form_id"`
	Email          string         `db:"email" json:"email"`
	Data           map[string]any `db:"data" json:"data"`
	UnsubscribedAt *time.Time     `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
