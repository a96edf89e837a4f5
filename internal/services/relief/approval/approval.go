// Package approval implements the vendor and beneficiary eligibility
// workflow. Reviews are terminal: a rejected party re-applies as a new
// record.
package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const defaultConflictRetries = 3

// Config controls workflow behavior.
type Config struct {
	ConflictRetries int
	Clock           func() time.Time
	IDGenerator     func() (string, error)
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
	return c
}

// Workflow registers and reviews parties.
type Workflow struct {
	store storage.PartyStore
	cfg   Config
}

// New creates a workflow over store.
func New(store storage.PartyStore, cfg Config) *Workflow {
	return &Workflow{store: store, cfg: cfg.normalized()}
}

// Register records a pending vendor or beneficiary application. Vendors and
// beneficiaries may only register themselves in their own role; admins may
// register any subject.
func (w *Workflow) Register(ctx context.Context, actor domain.Actor, input domain.RegisterPartyInput) (domain.Party, error) {
	if err := domain.Authorize(actor, domain.RoleVendor, domain.RoleBeneficiary, domain.RoleAdmin); err != nil {
		return domain.Party{}, err
	}
	if actor.Role != domain.RoleAdmin {
		role, err := domain.ParsePartyRole(string(input.Role))
		if err != nil {
			return domain.Party{}, err
		}
		if string(role) != string(actor.Role) {
			return domain.Party{}, domain.ErrPermissionDenied
		}
		input.Subject = actor.Subject
	} else if strings.TrimSpace(input.Subject) == "" {
		input.Subject = actor.Subject
	}

	party, err := domain.RegisterParty(input, w.cfg.Clock, w.cfg.IDGenerator)
	if err != nil {
		return domain.Party{}, err
	}
	if party.SupersedesID != "" {
		previous, err := w.store.GetParty(ctx, party.SupersedesID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.Party{}, domain.ErrPartySupersedeInvalid
			}
			return domain.Party{}, storage.AppError(err, "party")
		}
		if !previous.CanBeSupersededBy(party) {
			return domain.Party{}, domain.ErrPartySupersedeInvalid
		}
	}
	if err := w.store.CreateParty(ctx, party); err != nil {
		return domain.Party{}, storage.AppError(err, "party")
	}
	return party, nil
}

// Get returns one party.
func (w *Workflow) Get(ctx context.Context, partyID string) (domain.Party, error) {
	partyID = strings.TrimSpace(partyID)
	if partyID == "" {
		return domain.Party{}, apperrors.New(apperrors.CodeIDRequired, "party id is required")
	}
	party, err := w.store.GetParty(ctx, partyID)
	if err != nil {
		return domain.Party{}, storage.AppError(err, "party")
	}
	return party, nil
}

// Review applies a reviewer decision. Only the reviewer role may review, and
// only pending parties can be reviewed.
func (w *Workflow) Review(ctx context.Context, actor domain.Actor, partyID string, decision domain.ReviewDecision, note string) (domain.Party, error) {
	if err := domain.Authorize(actor, domain.RoleReviewer); err != nil {
		return domain.Party{}, err
	}
	var reviewed domain.Party
	err := storage.WithConflictRetry(ctx, w.cfg.ConflictRetries, func(ctx context.Context) error {
		current, err := w.Get(ctx, partyID)
		if err != nil {
			return err
		}
		next, err := domain.ReviewParty(current, decision, actor.Subject, note, w.cfg.Clock())
		if err != nil {
			return err
		}
		if err := w.store.UpdateParty(ctx, next, current.Version); err != nil {
			return err
		}
		next.Version = current.Version + 1
		reviewed = next
		return nil
	})
	if err != nil {
		return domain.Party{}, storage.AppError(err, "party")
	}
	return reviewed, nil
}

// Approve is Review with DecisionApprove.
func (w *Workflow) Approve(ctx context.Context, actor domain.Actor, partyID, note string) (domain.Party, error) {
	return w.Review(ctx, actor, partyID, domain.DecisionApprove, note)
}

// Reject is Review with DecisionReject.
func (w *Workflow) Reject(ctx context.Context, actor domain.Actor, partyID, note string) (domain.Party, error) {
	return w.Review(ctx, actor, partyID, domain.DecisionReject, note)
}

// RequireApproved reads the party now and fails unless it is an approved
// holder of role. Approval is never cached by callers.
func (w *Workflow) RequireApproved(ctx context.Context, partyID string, role domain.PartyRole) (domain.Party, error) {
	party, err := w.Get(ctx, partyID)
	if err != nil {
		return domain.Party{}, err
	}
	if err := domain.RequireApproved(party, role); err != nil {
		return domain.Party{}, err
	}
	return party, nil
}
