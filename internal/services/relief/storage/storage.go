// Package storage defines the ledger store contracts for relief state.
//
// Every update carries the version the caller read. The store rejects stale
// writes with ErrConflict and leaves re-read-and-retry to the caller; see
// WithConflictRetry.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates the stored version differs from the expected one.
	ErrConflict = errors.New("version conflict")
	// ErrImmutable indicates an update to a donation that is already terminal.
	ErrImmutable = errors.New("record is immutable")
)

// CampaignFence ties a write to the campaign version a caller derived its
// funding check from. The store bumps the campaign version in the same
// transaction as the fenced write and fails with ErrConflict when the
// campaign moved on in between.
type CampaignFence struct {
	CampaignID string
	Version    int64
}

// ReconcileOutcome labels one reconciliation decision.
type ReconcileOutcome string

const (
	OutcomeConfirmed ReconcileOutcome = "confirmed"
	OutcomeFailed    ReconcileOutcome = "failed"
	OutcomeRetry     ReconcileOutcome = "retry"
	OutcomeWaiting   ReconcileOutcome = "waiting"
)

// ReconcileAttempt is one row of the reconciliation audit log.
type ReconcileAttempt struct {
	ID            int64
	DonationID    string
	Outcome       ReconcileOutcome
	Reason        domain.FailureReason
	Detail        string
	Confirmations int64
	AttemptedAt   time.Time
}

// CampaignStore persists campaigns.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign domain.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	// UpdateCampaign writes campaign with version expectedVersion+1.
	UpdateCampaign(ctx context.Context, campaign domain.Campaign, expectedVersion int64) error
}

// DonationStore persists donations.
type DonationStore interface {
	// CreateDonation returns ErrAlreadyExists when the chain reference is taken.
	CreateDonation(ctx context.Context, donation domain.Donation) error
	GetDonation(ctx context.Context, donationID string) (domain.Donation, error)
	GetDonationByChainTxRef(ctx context.Context, chainTxRef string) (domain.Donation, error)
	// UpdateDonation writes a pending donation with version expectedVersion+1.
	// It returns ErrImmutable when the stored donation is already terminal.
	UpdateDonation(ctx context.Context, donation domain.Donation, expectedVersion int64) error
	// UpdateDonationFenced is UpdateDonation plus a campaign fence, applied
	// atomically. Confirmations go through it.
	UpdateDonationFenced(ctx context.Context, donation domain.Donation, expectedVersion int64, fence CampaignFence) error
	ListDonationsByCampaign(ctx context.Context, campaignID string) ([]domain.Donation, error)
	// ListDueDonations returns pending chain-backed donations whose next
	// check is at or before now, oldest first.
	ListDueDonations(ctx context.Context, now time.Time, limit int) ([]domain.Donation, error)
}

// PartyStore persists vendors and beneficiaries.
type PartyStore interface {
	CreateParty(ctx context.Context, party domain.Party) error
	GetParty(ctx context.Context, partyID string) (domain.Party, error)
	UpdateParty(ctx context.Context, party domain.Party, expectedVersion int64) error
}

// PackageStore persists relief packages.
type PackageStore interface {
	// CreatePackage inserts pkg under fence.
	CreatePackage(ctx context.Context, pkg domain.ReliefPackage, fence CampaignFence) error
	GetPackage(ctx context.Context, packageID string) (domain.ReliefPackage, error)
	UpdatePackage(ctx context.Context, pkg domain.ReliefPackage, expectedVersion int64) error
	ListPackagesByCampaign(ctx context.Context, campaignID string) ([]domain.ReliefPackage, error)
	// ListExpiredPackages returns issued packages whose window closed at or
	// before now.
	ListExpiredPackages(ctx context.Context, now time.Time, limit int) ([]domain.ReliefPackage, error)
}

// AttemptStore persists the reconciliation audit log.
type AttemptStore interface {
	RecordReconcileAttempt(ctx context.Context, attempt ReconcileAttempt) error
	ListReconcileAttempts(ctx context.Context, donationID string) ([]ReconcileAttempt, error)
}

// Store is the full ledger store.
type Store interface {
	CampaignStore
	DonationStore
	PartyStore
	PackageStore
	AttemptStore
	Close() error
}

// WithConflictRetry runs fn until it succeeds, fails with something other
// than ErrConflict, or maxAttempts is reached. fn must re-read what it needs
// on every call. The last error is returned.
func WithConflictRetry(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(ctx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}
