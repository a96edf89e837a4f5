// Package issuer spends confirmed campaign funding on relief packages for
// approved beneficiaries and tracks each package through receipt or expiry.
package issuer

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/registry"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const (
	defaultConflictRetries  = 5
	defaultRedemptionWindow = 72 * time.Hour
)

// Registry is the campaign surface the issuer checks funding against.
type Registry interface {
	Snapshot(ctx context.Context, campaignID string) (registry.Snapshot, error)
}

// Approvals answers eligibility questions at the moment they are asked.
type Approvals interface {
	Get(ctx context.Context, partyID string) (domain.Party, error)
	RequireApproved(ctx context.Context, partyID string, role domain.PartyRole) (domain.Party, error)
}

// Config controls issuer behavior.
type Config struct {
	// RedemptionWindow is how long an issued package may await receipt
	// before the reconciler fails it.
	RedemptionWindow time.Duration
	ConflictRetries  int
	Clock            func() time.Time
	IDGenerator      func() (string, error)
	Logf             func(string, ...any)
}

func (c Config) normalized() Config {
	if c.RedemptionWindow <= 0 {
		c.RedemptionWindow = defaultRedemptionWindow
	}
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

// Issuer issues and settles relief packages.
type Issuer struct {
	store     storage.PackageStore
	registry  Registry
	approvals Approvals
	cfg       Config
}

// New creates an issuer.
func New(store storage.PackageStore, reg Registry, approvals Approvals, cfg Config) *Issuer {
	return &Issuer{store: store, registry: reg, approvals: approvals, cfg: cfg.normalized()}
}

// Issue writes an issued package. Admin only.
//
// The funding check and the insert share the campaign version read with the
// snapshot. A concurrent confirmation, issuance or close moves the version on
// and the insert fails with a conflict; the whole check is then re-run
// against fresh funding, a bounded number of times.
func (i *Issuer) Issue(ctx context.Context, actor domain.Actor, input domain.IssuePackageInput) (domain.ReliefPackage, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin); err != nil {
		return domain.ReliefPackage{}, err
	}
	normalized, err := domain.NormalizeIssuePackageInput(input)
	if err != nil {
		return domain.ReliefPackage{}, err
	}

	var issued domain.ReliefPackage
	err = storage.WithConflictRetry(ctx, i.cfg.ConflictRetries, func(ctx context.Context) error {
		snapshot, err := i.registry.Snapshot(ctx, normalized.CampaignID)
		if err != nil {
			return err
		}
		if !snapshot.Campaign.IsActive() {
			return domain.ErrCampaignClosed
		}
		if _, err := i.approvals.RequireApproved(ctx, normalized.BeneficiaryID, domain.PartyBeneficiary); err != nil {
			return err
		}
		if !snapshot.Funding.Covers(normalized.Amount) {
			return snapshot.Funding.InsufficientFundingError()
		}
		pkg, err := domain.NewIssuedPackage(normalized, actor.Subject, i.cfg.RedemptionWindow, i.cfg.Clock, i.cfg.IDGenerator)
		if err != nil {
			return err
		}
		if err := i.store.CreatePackage(ctx, pkg, snapshot.Fence()); err != nil {
			return err
		}
		issued = pkg
		return nil
	})
	if err != nil {
		return domain.ReliefPackage{}, storage.AppError(err, "campaign")
	}
	i.cfg.Logf("issuer package=%s campaign=%s amount=%s", issued.ID, issued.CampaignID, issued.Amount)
	return issued, nil
}

// Get returns one package.
func (i *Issuer) Get(ctx context.Context, packageID string) (domain.ReliefPackage, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return domain.ReliefPackage{}, apperrors.New(apperrors.CodeIDRequired, "package id is required")
	}
	pkg, err := i.store.GetPackage(ctx, packageID)
	if err != nil {
		return domain.ReliefPackage{}, storage.AppError(err, "package")
	}
	return pkg, nil
}

// ConfirmReceipt moves an issued package to received.
//
// Admins may confirm any package. A beneficiary may confirm only packages
// issued to a party they own. A vendor names the vendor party they act as,
// which must be approved and owned by them.
func (i *Issuer) ConfirmReceipt(ctx context.Context, actor domain.Actor, packageID, vendorPartyID string) (domain.ReliefPackage, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin, domain.RoleBeneficiary, domain.RoleVendor); err != nil {
		return domain.ReliefPackage{}, err
	}

	var received domain.ReliefPackage
	err := storage.WithConflictRetry(ctx, i.cfg.ConflictRetries, func(ctx context.Context) error {
		current, err := i.Get(ctx, packageID)
		if err != nil {
			return err
		}
		if err := i.authorizeReceipt(ctx, actor, current, vendorPartyID); err != nil {
			return err
		}
		now := i.cfg.Clock()
		if current.Expired(now) {
			return domain.ErrPackageNotIssued
		}
		next, err := domain.MarkPackageReceived(current, actor.Subject, now)
		if err != nil {
			return err
		}
		if err := i.store.UpdatePackage(ctx, next, current.Version); err != nil {
			return err
		}
		next.Version = current.Version + 1
		received = next
		return nil
	})
	if err != nil {
		return domain.ReliefPackage{}, storage.AppError(err, "package")
	}
	return received, nil
}

func (i *Issuer) authorizeReceipt(ctx context.Context, actor domain.Actor, pkg domain.ReliefPackage, vendorPartyID string) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleBeneficiary:
		party, err := i.approvals.Get(ctx, pkg.BeneficiaryID)
		if err != nil {
			return err
		}
		if party.Subject != actor.Subject {
			return domain.ErrPermissionDenied
		}
		return nil
	case domain.RoleVendor:
		if strings.TrimSpace(vendorPartyID) == "" {
			return apperrors.New(apperrors.CodeIDRequired, "vendor party id is required")
		}
		party, err := i.approvals.RequireApproved(ctx, vendorPartyID, domain.PartyVendor)
		if err != nil {
			return err
		}
		if party.Subject != actor.Subject {
			return domain.ErrPermissionDenied
		}
		return nil
	default:
		return domain.ErrPermissionDenied
	}
}

// ExpireOverdue fails up to limit issued packages whose redemption window has
// closed, releasing their amounts back to remaining funding. Packages that
// change underneath the sweep are skipped and picked up on the next one.
func (i *Issuer) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	now := i.cfg.Clock()
	overdue, err := i.store.ListExpiredPackages(ctx, now, limit)
	if err != nil {
		return 0, storage.AppError(err, "packages")
	}
	expired := 0
	for _, pkg := range overdue {
		next, err := domain.ExpirePackage(pkg, now)
		if err != nil {
			continue
		}
		if err := i.store.UpdatePackage(ctx, next, pkg.Version); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				i.cfg.Logf("issuer expire package=%s skipped: changed concurrently", pkg.ID)
				continue
			}
			return expired, storage.AppError(err, "package")
		}
		i.cfg.Logf("issuer expire package=%s campaign=%s amount=%s", pkg.ID, pkg.CampaignID, pkg.Amount)
		expired++
	}
	return expired, nil
}
