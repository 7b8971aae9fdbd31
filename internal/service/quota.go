// internal/service/quota.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// PlanLimits are the campaign entitlements of one plan tier.
type PlanLimits struct {
	CampaignsEnabled         bool
	MaxCampaignsPerPeriod    int // 0 means unlimited
	PeriodDays               int
	MaxRecipientsPerCampaign int
	CustomSender             bool
}

var planLimits = map[model.PlanTier]PlanLimits{
	model.PlanFree: {},
	model.PlanStandard: {
		CampaignsEnabled:         true,
		MaxCampaignsPerPeriod:    10,
		PeriodDays:               30,
		MaxRecipientsPerCampaign: 1000,
	},
	model.PlanPro: {
		CampaignsEnabled:         true,
		PeriodDays:               30,
		MaxRecipientsPerCampaign: 10000,
		CustomSender:             true,
	},
}

// LimitsFor returns the limits of a tier; unknown tiers get the free plan's.
func LimitsFor(tier model.PlanTier) PlanLimits {
	return planLimits[tier]
}

// QuotaGuard checks plan-derived limits before campaign creation and before
// send. It refuses over-limit operations rather than truncating them.
type QuotaGuard struct {
	Accounts  repository.AccountRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
}

// CanCreateCampaign verifies the feature flag and the rolling-period campaign
// ceiling, returning the account for reuse by the caller.
func (g *QuotaGuard) CanCreateCampaign(ctx context.Context, accountID int64) (*model.Account, error) {
	acct, err := g.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	lim := LimitsFor(acct.Plan)
	if !lim.CampaignsEnabled {
		return nil, apperr.NewQuotaExceeded(fmt.Sprintf("campaigns are not available on the %s plan", acct.Plan))
	}

	if lim.MaxCampaignsPerPeriod > 0 {
		since := time.Now().AddDate(0, 0, -lim.PeriodDays)
		n, err := g.Campaigns.CountCreatedSince(ctx, accountID, since)
		if err != nil {
			return nil, err
		}
		if n >= lim.MaxCampaignsPerPeriod {
			return nil, apperr.NewQuotaExceeded(fmt.Sprintf(
				"campaign limit reached: %d campaigns in the last %d days", n, lim.PeriodDays))
		}
	}

	return acct, nil
}

// CanSendCampaign enforces the per-campaign recipient ceiling.
func (g *QuotaGuard) CanSendCampaign(ctx context.Context, accountID int64, recipientCount int) error {
	acct, err := g.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	return checkRecipientCeiling(acct.Plan, recipientCount)
}

func checkRecipientCeiling(tier model.PlanTier, recipientCount int) error {
	lim := LimitsFor(tier)
	if lim.MaxRecipientsPerCampaign > 0 && recipientCount > lim.MaxRecipientsPerCampaign {
		return apperr.NewRecipientLimitExceeded(recipientCount, lim.MaxRecipientsPerCampaign)
	}
	return nil
}

// ResolveSender picks the from address for a campaign. A custom campaign
// sender is honored only on the top tier; any other tier silently falls back
// to the form's sender and then the configured default. This fallback is the
// one policy override that must never fail the send.
func ResolveSender(acct *model.Account, c *model.Campaign, form *model.Form, defaultSender string) (string, error) {
	if c.FromEmail != "" && LimitsFor(acct.Plan).CustomSender {
		return c.FromEmail, nil
	}
	if form.SenderEmail != "" {
		return form.SenderEmail, nil
	}
	if defaultSender != "" {
		return defaultSender, nil
	}
	return "", apperr.NewSenderNotConfigured(c.ID)
}
