// internal/apperr/errors.go
package apperr

import (
	"errors"
	"fmt"
)

// ErrUnknownDelivery marks tracking callbacks whose delivery identifier does
// not resolve to any receipt. Callers absorb it; handlers must never surface it
// to the tracked recipient.
var ErrUnknownDelivery = errors.New("unknown delivery identifier")

type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrInvalidCampaignState rejects a send on a campaign that is not in draft.
type ErrInvalidCampaignState struct {
	CampaignID int64
	Status     string
}

func (e *ErrInvalidCampaignState) Error() string {
	return fmt.Sprintf("campaign %d cannot be sent in status %q", e.CampaignID, e.Status)
}

func NewInvalidCampaignState(id int64, status string) error {
	return &ErrInvalidCampaignState{CampaignID: id, Status: status}
}

type ErrNoRecipients struct {
	CampaignID int64
}

func (e *ErrNoRecipients) Error() string {
	return fmt.Sprintf("campaign %d has no recipients", e.CampaignID)
}

func NewNoRecipients(id int64) error {
	return &ErrNoRecipients{CampaignID: id}
}

// ErrRecipientLimitExceeded is fatal: the operation is refused outright rather
// than truncating the recipient list. Count carries the overage for the
// operator.
type ErrRecipientLimitExceeded struct {
	Count int
	Limit int
}

func (e *ErrRecipientLimitExceeded) Error() string {
	return fmt.Sprintf("recipient count %d exceeds the plan limit of %d", e.Count, e.Limit)
}

func NewRecipientLimitExceeded(count, limit int) error {
	return &ErrRecipientLimitExceeded{Count: count, Limit: limit}
}

type ErrQuotaExceeded struct {
	Reason string
}

func (e *ErrQuotaExceeded) Error() string {
	return e.Reason
}

func NewQuotaExceeded(reason string) error {
	return &ErrQuotaExceeded{Reason: reason}
}

type ErrSenderNotConfigured struct {
	CampaignID int64
}

func (e *ErrSenderNotConfigured) Error() string {
	return fmt.Sprintf("no sender address configured for campaign %d", e.CampaignID)
}

func NewSenderNotConfigured(id int64) error {
	return &ErrSenderNotConfigured{CampaignID: id}
}

type ErrOwnerAddressMissing struct {
	AccountID int64
}

func (e *ErrOwnerAddressMissing) Error() string {
	return fmt.Sprintf("account %d has no email address for test sends", e.AccountID)
}

func NewOwnerAddressMissing(id int64) error {
	return &ErrOwnerAddressMissing{AccountID: id}
}
