// Package relieftest provides fixtures shared by relief service tests.
package relieftest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage/sqlite"
)

// Epoch is the default start time of test clocks.
var Epoch = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

var (
	Admin       = domain.Actor{Subject: "admin-1", Role: domain.RoleAdmin}
	Reviewer    = domain.Actor{Subject: "reviewer-1", Role: domain.RoleReviewer}
	Donor       = domain.Actor{Subject: "donor-1", Role: domain.RoleDonor}
	Beneficiary = domain.Actor{Subject: "beneficiary-1", Role: domain.RoleBeneficiary}
	Vendor      = domain.Actor{Subject: "vendor-1", Role: domain.RoleVendor}
)

// OpenStore opens a SQLite ledger store in a temporary directory.
func OpenStore(t testing.TB) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "relief.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// Clock is a manually advanced clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() (string, error) {
	var next atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("%s-%d", prefix, next.Add(1)), nil
	}
}

// Amount is shorthand for a whole-unit decimal.
func Amount(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

// SeedCampaign writes an active campaign straight to the store.
func SeedCampaign(t testing.TB, store *sqlite.Store, id string, target int64) domain.Campaign {
	t.Helper()
	campaign := domain.Campaign{
		ID:               id,
		Name:             "Campaign " + id,
		Currency:         domain.DefaultCurrency,
		ReceivingAddress: "0xfund-" + id,
		Target:           Amount(target),
		Status:           domain.CampaignActive,
		CreatedBy:        Admin.Subject,
		Version:          1,
		CreatedAt:        Epoch,
		UpdatedAt:        Epoch,
	}
	if err := store.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return campaign
}

// SeedDonation writes a donation in the given state straight to the store.
func SeedDonation(t testing.TB, store *sqlite.Store, id, campaignID, chainTxRef string, amount int64, state domain.DonationState) domain.Donation {
	t.Helper()
	donation := domain.Donation{
		ID:           id,
		CampaignID:   campaignID,
		DonorAddress: "0xdonor",
		Amount:       Amount(amount),
		Currency:     domain.DefaultCurrency,
		ChainTxRef:   chainTxRef,
		State:        state,
		Manual:       chainTxRef == "",
		NextCheckAt:  Epoch,
		Version:      1,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
	if state != domain.DonationPending {
		resolved := Epoch
		donation.ResolvedAt = &resolved
	}
	if err := store.CreateDonation(context.Background(), donation); err != nil {
		t.Fatalf("seed donation: %v", err)
	}
	return donation
}

// SeedParty writes a party with the given status straight to the store.
func SeedParty(t testing.TB, store *sqlite.Store, id string, role domain.PartyRole, subject string, status domain.PartyStatus) domain.Party {
	t.Helper()
	party := domain.Party{
		ID:        id,
		Role:      role,
		Name:      "Party " + id,
		Subject:   subject,
		Status:    status,
		Version:   1,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
	if err := store.CreateParty(context.Background(), party); err != nil {
		t.Fatalf("seed party: %v", err)
	}
	return party
}
