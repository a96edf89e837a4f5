// Package registry implements the campaign registry: campaign lifecycle and
// the derived funding position every spend and confirmation is checked
// against.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const defaultConflictRetries = 5

// Store is the ledger surface the registry reads and writes.
type Store interface {
	storage.CampaignStore
	GetDonation(ctx context.Context, donationID string) (domain.Donation, error)
	UpdateDonationFenced(ctx context.Context, donation domain.Donation, expectedVersion int64, fence storage.CampaignFence) error
	ListDonationsByCampaign(ctx context.Context, campaignID string) ([]domain.Donation, error)
	ListPackagesByCampaign(ctx context.Context, campaignID string) ([]domain.ReliefPackage, error)
}

// Config controls registry behavior.
type Config struct {
	// OverageTolerance is how far confirmed funding may exceed target.
	OverageTolerance decimal.Decimal
	// ConflictRetries bounds re-read-and-retry on version conflicts.
	ConflictRetries int
	Clock           func() time.Time
	IDGenerator     func() (string, error)
}

func (c Config) normalized() Config {
	if c.ConflictRetries <= 0 {
		c.ConflictRetries = defaultConflictRetries
	}
	if c.OverageTolerance.IsNegative() {
		c.OverageTolerance = decimal.Zero
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.IDGenerator == nil {
		c.IDGenerator = id.NewID
	}
	return c
}

// Registry owns campaign lifecycle and funding queries.
type Registry struct {
	store Store
	cfg   Config
}

// New creates a registry over store.
func New(store Store, cfg Config) *Registry {
	return &Registry{store: store, cfg: cfg.normalized()}
}

// Snapshot is a campaign together with the funding derived from its
// children. Campaign.Version is the fence token for writes that depend on
// Funding.
type Snapshot struct {
	Campaign domain.Campaign
	Funding  domain.Funding
}

// Fence returns the campaign fence matching this snapshot.
func (s Snapshot) Fence() storage.CampaignFence {
	return storage.CampaignFence{CampaignID: s.Campaign.ID, Version: s.Campaign.Version}
}

// OverageTolerance returns the configured overage tolerance.
func (r *Registry) OverageTolerance() decimal.Decimal {
	return r.cfg.OverageTolerance
}

// CreateCampaign opens a new active campaign. Admin only.
func (r *Registry) CreateCampaign(ctx context.Context, actor domain.Actor, input domain.CreateCampaignInput) (domain.Campaign, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin); err != nil {
		return domain.Campaign{}, err
	}
	campaign, err := domain.CreateCampaign(input, actor.Subject, r.cfg.Clock, r.cfg.IDGenerator)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := r.store.CreateCampaign(ctx, campaign); err != nil {
		return domain.Campaign{}, storage.AppError(err, "campaign")
	}
	return campaign, nil
}

// GetCampaign returns one campaign.
func (r *Registry) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return domain.Campaign{}, apperrors.New(apperrors.CodeIDRequired, "campaign id is required")
	}
	campaign, err := r.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return domain.Campaign{}, storage.AppError(err, "campaign")
	}
	return campaign, nil
}

// CloseCampaign closes an active campaign. Admin only. Closing twice fails
// with an invalid-state error.
func (r *Registry) CloseCampaign(ctx context.Context, actor domain.Actor, campaignID string) (domain.Campaign, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin); err != nil {
		return domain.Campaign{}, err
	}
	var closed domain.Campaign
	err := storage.WithConflictRetry(ctx, r.cfg.ConflictRetries, func(ctx context.Context) error {
		current, err := r.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		next, err := domain.CloseCampaign(current, r.cfg.Clock())
		if err != nil {
			return err
		}
		if err := r.store.UpdateCampaign(ctx, next, current.Version); err != nil {
			return err
		}
		next.Version = current.Version + 1
		closed = next
		return nil
	})
	if err != nil {
		return domain.Campaign{}, storage.AppError(err, "campaign")
	}
	return closed, nil
}

// Snapshot reads a campaign and recomputes its funding from donations and
// packages. The campaign is read first so its version can only be older than
// the children, never newer.
func (r *Registry) Snapshot(ctx context.Context, campaignID string) (Snapshot, error) {
	campaign, err := r.GetCampaign(ctx, campaignID)
	if err != nil {
		return Snapshot{}, err
	}
	donations, err := r.store.ListDonationsByCampaign(ctx, campaign.ID)
	if err != nil {
		return Snapshot{}, storage.AppError(err, "donations")
	}
	packages, err := r.store.ListPackagesByCampaign(ctx, campaign.ID)
	if err != nil {
		return Snapshot{}, storage.AppError(err, "packages")
	}
	return Snapshot{
		Campaign: campaign,
		Funding:  domain.SummarizeFunding(campaign, donations, packages),
	}, nil
}

// Funding returns the derived funding position of a campaign.
func (r *Registry) Funding(ctx context.Context, campaignID string) (domain.Funding, error) {
	snapshot, err := r.Snapshot(ctx, campaignID)
	if err != nil {
		return domain.Funding{}, err
	}
	return snapshot.Funding, nil
}

// RemainingFunding recomputes confirmed funding minus committed packages.
func (r *Registry) RemainingFunding(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	funding, err := r.Funding(ctx, campaignID)
	if err != nil {
		return decimal.Zero, err
	}
	return funding.Remaining, nil
}

// ConfirmDonation moves a pending donation to confirmed under the campaign
// fence. apply performs the state transition on a freshly read donation and
// must yield a confirmed donation. Confirmation fails with an over-target
// error when it would push confirmed funding past target plus overage.
//
// Confirmation into a closed campaign is allowed: the transfer already
// happened on chain and the ledger has to reflect it.
func (r *Registry) ConfirmDonation(ctx context.Context, donationID string, apply func(domain.Donation) (domain.Donation, error)) (domain.Donation, error) {
	if apply == nil {
		apply = func(d domain.Donation) (domain.Donation, error) {
			return domain.ConfirmDonation(d, r.cfg.Clock())
		}
	}
	var confirmed domain.Donation
	err := storage.WithConflictRetry(ctx, r.cfg.ConflictRetries, func(ctx context.Context) error {
		current, err := r.store.GetDonation(ctx, donationID)
		if err != nil {
			return err
		}
		if current.State != domain.DonationPending {
			return domain.ErrDonationNotPending
		}
		snapshot, err := r.Snapshot(ctx, current.CampaignID)
		if err != nil {
			return err
		}
		if !snapshot.Funding.AllowsConfirmation(current.Amount, r.cfg.OverageTolerance) {
			return snapshot.Funding.OverTargetError()
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		if next.State != domain.DonationConfirmed {
			return domain.ErrDonationNotPending
		}
		if err := r.store.UpdateDonationFenced(ctx, next, current.Version, snapshot.Fence()); err != nil {
			return err
		}
		next.Version = current.Version + 1
		confirmed = next
		return nil
	})
	if err != nil {
		return domain.Donation{}, storage.AppError(err, "donation")
	}
	return confirmed, nil
}
