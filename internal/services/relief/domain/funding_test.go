package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

func TestSummarizeFunding(t *testing.T) {
	campaign := Campaign{ID: "c1", Currency: "USDC", Target: amt(1000)}
	donations := []Donation{
		{CampaignID: "c1", Amount: amt(600), State: DonationConfirmed},
		{CampaignID: "c1", Amount: amt(150), State: DonationConfirmed},
		{CampaignID: "c1", Amount: amt(500), State: DonationPending},
		{CampaignID: "c1", Amount: amt(900), State: DonationFailed},
		{CampaignID: "other", Amount: amt(5000), State: DonationConfirmed},
	}
	packages := []ReliefPackage{
		{CampaignID: "c1", Amount: amt(200), Status: PackageIssued},
		{CampaignID: "c1", Amount: amt(100), Status: PackageReceived},
		{CampaignID: "c1", Amount: amt(300), Status: PackageFailed},
		{CampaignID: "other", Amount: amt(50), Status: PackageIssued},
	}

	funding := SummarizeFunding(campaign, donations, packages)
	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{name: "confirmed", got: funding.Confirmed, want: 750},
		{name: "committed", got: funding.Committed, want: 300},
		{name: "remaining", got: funding.Remaining, want: 450},
		{name: "pending", got: funding.Pending, want: 500},
		{name: "target", got: funding.Target, want: 1000},
	}
	for _, check := range checks {
		if !check.got.Equal(amt(check.want)) {
			t.Fatalf("%s = %s, want %d", check.name, check.got, check.want)
		}
	}
}

func TestSummarizeFundingEmpty(t *testing.T) {
	funding := SummarizeFunding(Campaign{ID: "c1", Target: amt(10)}, nil, nil)
	if !funding.Confirmed.IsZero() || !funding.Remaining.IsZero() || !funding.Committed.IsZero() {
		t.Fatalf("funding = %+v", funding)
	}
}

func TestFundingAllowsConfirmation(t *testing.T) {
	funding := Funding{Target: amt(1000), Confirmed: amt(600)}
	if funding.AllowsConfirmation(amt(500), decimal.Zero) {
		t.Fatal("600 + 500 must not fit a 1000 target without overage")
	}
	if !funding.AllowsConfirmation(amt(400), decimal.Zero) {
		t.Fatal("600 + 400 must fit exactly")
	}
	if !funding.AllowsConfirmation(amt(500), amt(100)) {
		t.Fatal("600 + 500 must fit with 100 overage")
	}
}

func TestFundingCovers(t *testing.T) {
	funding := Funding{Remaining: amt(600)}
	if funding.Covers(amt(700)) {
		t.Fatal("600 must not cover 700")
	}
	if !funding.Covers(amt(600)) {
		t.Fatal("600 must cover 600")
	}
}

func TestFundingErrorsCarryMetadata(t *testing.T) {
	funding := Funding{Target: amt(1000), Confirmed: amt(600), Remaining: amt(600), Currency: "USDC"}
	if err := funding.InsufficientFundingError(); !errors.Is(err, ErrInsufficientFunding) {
		t.Fatalf("insufficient error = %v", err)
	}
	var coded *apperrors.Error
	if !errors.As(funding.OverTargetError(), &coded) {
		t.Fatal("expected coded over-target error")
	}
	if coded.Metadata["Target"] != "1000" || !errors.Is(coded, ErrDonationOverTarget) {
		t.Fatalf("over-target error = %+v", coded)
	}
}
