// Package intake records donor pledges as pending donations and resolves
// manual donations that carry no chain reference.
package intake

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/registry"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const defaultConflictRetries = 3

// Registry is the campaign surface intake depends on.
type Registry interface {
	Snapshot(ctx context.Context, campaignID string) (registry.Snapshot, error)
	ConfirmDonation(ctx context.Context, donationID string, apply func(domain.Donation) (domain.Donation, error)) (domain.Donation, error)
	OverageTolerance() decimal.Decimal
}

// Config controls intake behavior.
type Config struct {
	ConflictRetries int
	Clock           func() time.Time
	IDGenerator     func() (string, error)
	Logf            func(string, ...any)
}

func (c Config) normalized() Config {
	if c.ConflictRetries <= 0 {
		c.ConflictRetries = defaultConflictRetries
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.IDGenerator == nil {
		c.IDGenerator = id.NewID
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	return c
}

// Service records donations.
type Service struct {
	store    storage.DonationStore
	registry Registry
	cfg      Config
}

// New creates an intake service.
func New(store storage.DonationStore, reg Registry, cfg Config) *Service {
	return &Service{store: store, registry: reg, cfg: cfg.normalized()}
}

// Submit records a pending donation. Donor or admin only. Donors pledge
// from their own account; only admins record on behalf of another donor.
//
// A chain reference already bound to a donation makes the call idempotent:
// the existing record is returned with created=false, whatever its state.
// Pledges that would push confirmed funding past target plus overage are
// rejected here; the reconciler repeats the check at confirmation time.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, input domain.SubmitDonationInput) (donation domain.Donation, created bool, err error) {
	if err := domain.Authorize(actor, domain.RoleDonor, domain.RoleAdmin); err != nil {
		return domain.Donation{}, false, err
	}
	if actor.Role == domain.RoleDonor {
		switch account := strings.TrimSpace(input.DonorAccountID); account {
		case "":
			input.DonorAccountID = actor.Subject
		case actor.Subject:
		default:
			return domain.Donation{}, false, domain.ErrPermissionDenied
		}
	}

	if ref := strings.TrimSpace(input.ChainTxRef); ref != "" {
		existing, err := s.store.GetDonationByChainTxRef(ctx, ref)
		switch {
		case err == nil:
			s.logDuplicate(existing, input)
			return existing, false, nil
		case !errors.Is(err, storage.ErrNotFound):
			return domain.Donation{}, false, storage.AppError(err, "donation")
		}
	}

	campaignID := strings.TrimSpace(input.CampaignID)
	if campaignID == "" {
		return domain.Donation{}, false, domain.ErrCampaignNotAcceptingFunds
	}
	snapshot, err := s.registry.Snapshot(ctx, campaignID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return domain.Donation{}, false, domain.ErrCampaignNotAcceptingFunds
		}
		return domain.Donation{}, false, err
	}
	if !snapshot.Campaign.IsActive() {
		return domain.Donation{}, false, domain.ErrCampaignNotAcceptingFunds
	}

	if strings.TrimSpace(input.Currency) == "" {
		input.Currency = snapshot.Campaign.Currency
	}
	donation, err = domain.NewDonation(input, s.cfg.Clock, s.cfg.IDGenerator)
	if err != nil {
		return domain.Donation{}, false, err
	}
	if donation.Currency != snapshot.Campaign.Currency {
		return domain.Donation{}, false, apperrors.WithMetadata(
			apperrors.CodeDonationCurrencyMismatch,
			"donation currency does not match campaign",
			map[string]string{"Currency": snapshot.Campaign.Currency},
		)
	}
	if !snapshot.Funding.AllowsConfirmation(donation.Amount, s.registry.OverageTolerance()) {
		return domain.Donation{}, false, snapshot.Funding.OverTargetError()
	}

	if err := s.store.CreateDonation(ctx, donation); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) && donation.ChainTxRef != "" {
			existing, getErr := s.store.GetDonationByChainTxRef(ctx, donation.ChainTxRef)
			if getErr != nil {
				return domain.Donation{}, false, storage.AppError(getErr, "donation")
			}
			return existing, false, nil
		}
		return domain.Donation{}, false, storage.AppError(err, "donation")
	}
	return donation, true, nil
}

func (s *Service) logDuplicate(existing domain.Donation, input domain.SubmitDonationInput) {
	if existing.CampaignID == strings.TrimSpace(input.CampaignID) &&
		domain.SameAddress(existing.DonorAddress, input.DonorAddress) &&
		existing.Amount.Equal(input.Amount) {
		return
	}
	s.cfg.Logf("intake duplicate chain_tx_ref=%s donation=%s differs from resubmission", existing.ChainTxRef, existing.ID)
}

// Get returns one donation.
func (s *Service) Get(ctx context.Context, donationID string) (domain.Donation, error) {
	donationID = strings.TrimSpace(donationID)
	if donationID == "" {
		return domain.Donation{}, apperrors.New(apperrors.CodeIDRequired, "donation id is required")
	}
	donation, err := s.store.GetDonation(ctx, donationID)
	if err != nil {
		return domain.Donation{}, storage.AppError(err, "donation")
	}
	return donation, nil
}

// ResolveManual confirms or rejects a donation that has no chain reference.
// Admin only. Confirmation goes through the registry so the target check and
// campaign fence apply.
func (s *Service) ResolveManual(ctx context.Context, actor domain.Actor, donationID string, confirm bool, note string) (domain.Donation, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin); err != nil {
		return domain.Donation{}, err
	}
	if confirm {
		current, err := s.Get(ctx, donationID)
		if err != nil {
			return domain.Donation{}, err
		}
		if !current.Manual {
			return domain.Donation{}, domain.ErrDonationNotManual
		}
		return s.registry.ConfirmDonation(ctx, current.ID, func(d domain.Donation) (domain.Donation, error) {
			return domain.ResolveManualDonation(d, true, actor.Subject, note, s.cfg.Clock())
		})
	}

	var rejected domain.Donation
	err := storage.WithConflictRetry(ctx, s.cfg.ConflictRetries, func(ctx context.Context) error {
		current, err := s.Get(ctx, donationID)
		if err != nil {
			return err
		}
		next, err := domain.ResolveManualDonation(current, false, actor.Subject, note, s.cfg.Clock())
		if err != nil {
			return err
		}
		if err := s.store.UpdateDonation(ctx, next, current.Version); err != nil {
			return err
		}
		next.Version = current.Version + 1
		rejected = next
		return nil
	})
	if err != nil {
		return domain.Donation{}, storage.AppError(err, "donation")
	}
	return rejected, nil
}
