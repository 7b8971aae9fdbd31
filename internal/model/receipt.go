// internal/model/receipt.go
package model

import "time"

type ReceiptStatus string

const (
	ReceiptQueued ReceiptStatus = "queued"
	ReceiptSent   ReceiptStatus = "sent"
	ReceiptFailed ReceiptStatus = "failed"
)

// DeliveryReceipt records one transport attempt. DeliveryID is the opaque token
// embedded in tracking URLs and is the sole lookup key for open/click ingestion.
// A receipt points either at a campaign recipient or, for test sends, at a
// test contact.
type DeliveryReceipt struct {
	ID            int64         `db:"id" json:"id"`
	DeliveryID    string        `db:"delivery_id" json:"delivery_id"`
	RecipientID   *int64        `db:"recipient_id" json:"recipient_id,omitempty"`
	TestContactID *int64        `db:"test_contact_id" json:"test_contact_id,omitempty"`
	IsTest        bool          `db:"is_test" json:"is_test"`
	ProviderID    string        `db:"provider_id" json:"provider_id,omitempty"`
	Status        ReceiptStatus `db:"status" json:"status"`
	Bounced       bool          `db:"bounced" json:"bounced"`
	Complained    bool          `db:"complained" json:"complained"`
	OpenCount     int           `db:"open_count" json:"open_count"`
	ClickCount    int           `db:"click_count" json:"click_count"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
