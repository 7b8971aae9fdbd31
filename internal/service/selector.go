// internal/service/selector.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// Filter is the campaign's recipient predicate: an optional submission date
// range plus exact-match field predicates over the submitted data.
type Filter struct {
	From   *time.Time        `json:"from,omitempty"`
	To     *time.Time        `json:"to,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ParseFilter decodes the serialized filter. An empty string is an empty
// filter (select everything with an address).
func ParseFilter(raw string) (Filter, error) {
	var f Filter
	if strings.TrimSpace(raw) == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return f, fmt.Errorf("invalid campaign filter: %w", err)
	}
	return f, nil
}

// Selector resolves a campaign's candidate recipient set from the contact
// source.
type Selector struct {
	Contacts repository.SubmissionRepositoryInterface
}

// SelectRecipients returns the matching submissions, deduplicated by address
// (newest submission wins). A field predicate naming a field a submission does
// not carry simply does not match that submission; it is never an error.
func (s *Selector) SelectRecipients(ctx context.Context, formID int64, rawFilter string) ([]*model.Submission, error) {
	f, err := ParseFilter(rawFilter)
	if err != nil {
		return nil, err
	}

	subs, err := s.Contacts.FindContacts(ctx, formID, f.From, f.To)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(subs))
	selected := make([]*model.Submission, 0, len(subs))
	for _, sub := range subs {
		if !matchesFields(sub, f.Fields) {
			continue
		}
		addr := strings.ToLower(strings.TrimSpace(sub.Email))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		selected = append(selected, sub)
	}
	return selected, nil
}

func matchesFields(sub *model.Submission, fields map[string]string) bool {
	for name, want := range fields {
		got, ok := sub.Data[name]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
