package domain

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

var (
	// ErrInsufficientFunding indicates a package larger than remaining funding.
	ErrInsufficientFunding = apperrors.New(apperrors.CodeInsufficientFunding, "remaining campaign funding is insufficient")
	// ErrDonationOverTarget indicates a pledge that would push confirmed
	// funding past target plus overage.
	ErrDonationOverTarget = apperrors.New(apperrors.CodeDonationOverTarget, "donation would exceed campaign target")
)

// Funding is the derived money position of a campaign.
type Funding struct {
	CampaignID string
	Currency   string
	Target     decimal.Decimal
	// Confirmed is the sum of confirmed donations.
	Confirmed decimal.Decimal
	// Committed is the sum of issued and received packages.
	Committed decimal.Decimal
	// Remaining is Confirmed minus Committed.
	Remaining decimal.Decimal
	// Pending is the sum of donations still awaiting reconciliation. It never
	// contributes to Remaining.
	Pending decimal.Decimal
}

// SummarizeFunding recomputes the funding position from authoritative child
// records. Records for other campaigns are ignored.
func SummarizeFunding(campaign Campaign, donations []Donation, packages []ReliefPackage) Funding {
	funding := Funding{
		CampaignID: campaign.ID,
		Currency:   campaign.Currency,
		Target:     campaign.Target,
		Confirmed:  decimal.Zero,
		Committed:  decimal.Zero,
		Pending:    decimal.Zero,
	}
	for _, donation := range donations {
		if donation.CampaignID != campaign.ID {
			continue
		}
		switch donation.State {
		case DonationConfirmed:
			funding.Confirmed = funding.Confirmed.Add(donation.Amount)
		case DonationPending:
			funding.Pending = funding.Pending.Add(donation.Amount)
		}
	}
	for _, pkg := range packages {
		if pkg.CampaignID != campaign.ID || !pkg.Commits() {
			continue
		}
		funding.Committed = funding.Committed.Add(pkg.Amount)
	}
	funding.Remaining = funding.Confirmed.Sub(funding.Committed)
	return funding
}

// AllowsConfirmation reports whether confirming amount keeps confirmed
// funding within target plus overage.
func (f Funding) AllowsConfirmation(amount, overage decimal.Decimal) bool {
	return f.Confirmed.Add(amount).LessThanOrEqual(f.Target.Add(overage))
}

// Covers reports whether remaining funding can pay amount.
func (f Funding) Covers(amount decimal.Decimal) bool {
	return f.Remaining.GreaterThanOrEqual(amount)
}

// InsufficientFundingError reports a failed funding check with the remaining
// amount for message templating.
func (f Funding) InsufficientFundingError() error {
	return apperrors.WithMetadata(apperrors.CodeInsufficientFunding, "remaining campaign funding is insufficient", map[string]string{
		"Remaining": f.Remaining.String(),
		"Currency":  f.Currency,
	})
}

// OverTargetError reports a failed confirmation check with the target for
// message templating.
func (f Funding) OverTargetError() error {
	return apperrors.WithMetadata(apperrors.CodeDonationOverTarget, "donation would exceed campaign target", map[string]string{
		"Target":    f.Target.String(),
		"Confirmed": f.Confirmed.String(),
		"Currency":  f.Currency,
	})
}
