package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCreateCampaign(t *testing.T) {
	campaign, err := CreateCampaign(CreateCampaignInput{
		Name:             "  Coastal Flood  ",
		Currency:         "usdc",
		ReceivingAddress: " 0xfund ",
		Target:           amt(1000),
	}, "admin-1", clock, staticID("camp-1"))
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if campaign.ID != "camp-1" || campaign.Name != "Coastal Flood" {
		t.Fatalf("campaign = %+v", campaign)
	}
	if campaign.Status != CampaignActive || campaign.Version != 1 {
		t.Fatalf("status/version = %s/%d, want active/1", campaign.Status, campaign.Version)
	}
	if campaign.Currency != "USDC" || campaign.ReceivingAddress != "0xfund" {
		t.Fatalf("currency/address = %s/%s", campaign.Currency, campaign.ReceivingAddress)
	}
	if !campaign.CreatedAt.Equal(fixedNow) || campaign.ClosedAt != nil {
		t.Fatalf("timestamps = %v/%v", campaign.CreatedAt, campaign.ClosedAt)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateCampaignInput
		wantErr error
	}{
		{name: "empty name", input: CreateCampaignInput{Name: " ", Target: amt(1), ReceivingAddress: "0x1"}, wantErr: ErrCampaignNameEmpty},
		{name: "zero target", input: CreateCampaignInput{Name: "A", ReceivingAddress: "0x1"}, wantErr: ErrCampaignTargetInvalid},
		{name: "negative target", input: CreateCampaignInput{Name: "A", Target: amt(-5), ReceivingAddress: "0x1"}, wantErr: ErrCampaignTargetInvalid},
		{name: "missing address", input: CreateCampaignInput{Name: "A", Target: amt(5)}, wantErr: ErrAddressInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateCampaign(tt.input, "admin", clock, staticID("x"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateCampaign error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateCampaignIDGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	_, err := CreateCampaign(CreateCampaignInput{Name: "A", Target: amt(1), ReceivingAddress: "0x1"}, "admin", clock, func() (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected id generator error, got %v", err)
	}
}

func TestCloseCampaign(t *testing.T) {
	campaign, err := CreateCampaign(CreateCampaignInput{Name: "A", Target: amt(1), ReceivingAddress: "0x1"}, "admin", clock, staticID("c"))
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	closed, err := CloseCampaign(campaign, fixedNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("CloseCampaign: %v", err)
	}
	if closed.Status != CampaignClosed || closed.IsActive() {
		t.Fatalf("status = %s, want closed", closed.Status)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("closed at = %v", closed.ClosedAt)
	}
	if _, err := CloseCampaign(closed, fixedNow); !errors.Is(err, ErrCampaignAlreadyClosed) {
		t.Fatalf("second close error = %v, want %v", err, ErrCampaignAlreadyClosed)
	}
}
