// Package reconcile closes the gap between pending donations and chain
// truth. Each pass reads due donations, asks the chain oracle about their
// transfers outside any store write, and then confirms, fails or
// reschedules each one with a versioned write.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const tracerName = "github.com/reliefnet/reliefnet/internal/services/relief/reconcile"

// Store is the ledger surface the engine reads and writes.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	GetDonation(ctx context.Context, donationID string) (domain.Donation, error)
	UpdateDonation(ctx context.Context, donation domain.Donation, expectedVersion int64) error
	ListDueDonations(ctx context.Context, now time.Time, limit int) ([]domain.Donation, error)
	RecordReconcileAttempt(ctx context.Context, attempt storage.ReconcileAttempt) error
}

// Registry confirms donations under the campaign fence and reports funding.
type Registry interface {
	ConfirmDonation(ctx context.Context, donationID string, apply func(domain.Donation) (domain.Donation, error)) (domain.Donation, error)
	Funding(ctx context.Context, campaignID string) (domain.Funding, error)
}

// PackageSweeper fails packages whose redemption window closed.
type PackageSweeper interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// PassResult counts the decisions of one pass.
type PassResult struct {
	Checked         int
	Confirmed       int
	Failed          int
	Waiting         int
	Retrying        int
	Skipped         int
	PackagesExpired int
}

// Engine reconciles pending donations against the chain oracle.
type Engine struct {
	store    Store
	registry Registry
	oracle   oracle.Oracle
	packages PackageSweeper
	cfg      Config
	tracer   trace.Tracer
}

// New creates an engine. packages may be nil to skip the expiry sweep.
func New(store Store, reg Registry, chain oracle.Oracle, packages PackageSweeper, cfg Config) *Engine {
	return &Engine{
		store:    store,
		registry: reg,
		oracle:   chain,
		packages: packages,
		cfg:      cfg.normalized(),
		tracer:   otel.Tracer(tracerName),
	}
}

// Run executes a pass every poll interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		result, err := e.RunPass(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			e.cfg.Logf("reconcile pass failed: %v", err)
		case result.Checked > 0 || result.PackagesExpired > 0:
			e.cfg.Logf("reconcile pass checked=%d confirmed=%d failed=%d waiting=%d retrying=%d expired_packages=%d",
				result.Checked, result.Confirmed, result.Failed, result.Waiting, result.Retrying, result.PackagesExpired)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunPass reconciles one batch of due donations and sweeps expired
// packages. Per-donation store errors are logged and left for the next
// pass; only listing failures and cancellation abort the pass.
func (e *Engine) RunPass(ctx context.Context) (PassResult, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.pass")
	defer span.End()

	var result PassResult
	due, err := e.store.ListDueDonations(ctx, e.cfg.Clock(), e.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list due donations")
		return result, fmt.Errorf("list due donations: %w", err)
	}

	for _, donation := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := e.reconcileDonation(ctx, donation)
		if err != nil {
			if apperrors.IsContextDone(err) {
				return result, err
			}
			e.cfg.Logf("reconcile donation=%s error: %v", donation.ID, err)
		}
		result.Checked++
		switch outcome {
		case storage.OutcomeConfirmed:
			result.Confirmed++
		case storage.OutcomeFailed:
			result.Failed++
		case storage.OutcomeWaiting:
			result.Waiting++
		case storage.OutcomeRetry:
			result.Retrying++
		default:
			result.Skipped++
		}
	}

	if e.packages != nil {
		expired, err := e.packages.ExpireOverdue(ctx, e.cfg.BatchSize)
		result.PackagesExpired = expired
		if err != nil {
			if apperrors.IsContextDone(err) {
				return result, err
			}
			e.cfg.Logf("reconcile package sweep: %v", err)
		}
	}

	span.SetAttributes(
		attribute.Int("reconcile.checked", result.Checked),
		attribute.Int("reconcile.confirmed", result.Confirmed),
		attribute.Int("reconcile.failed", result.Failed),
		attribute.Int("reconcile.packages_expired", result.PackagesExpired),
	)
	return result, nil
}

// decision is what a pass concluded about one donation before writing it.
type decision struct {
	outcome       storage.ReconcileOutcome
	reason        domain.FailureReason
	detail        string
	confirmations int64
	nextCheckAt   time.Time
	oracleTries   int
	notFoundPolls int
}

func (e *Engine) reconcileDonation(ctx context.Context, donation domain.Donation) (storage.ReconcileOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.donation", trace.WithAttributes(
		attribute.String("donation.id", donation.ID),
		attribute.String("campaign.id", donation.CampaignID),
	))
	defer span.End()

	d, err := e.decide(ctx, donation)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decide")
		return "", err
	}
	span.SetAttributes(attribute.String("reconcile.outcome", string(d.outcome)))

	outcome, err := e.apply(ctx, donation, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply")
	}
	return outcome, err
}

// decide inspects the chain and the campaign. It performs no writes. The
// pending timeout only cuts short a donation the chain has not settled yet:
// a final matching transfer confirms even when observed late.
func (e *Engine) decide(ctx context.Context, donation domain.Donation) (decision, error) {
	now := e.cfg.Clock()
	d, err := e.inspect(ctx, donation, now)
	if err != nil {
		return decision{}, err
	}
	if d.outcome != storage.OutcomeWaiting && d.outcome != storage.OutcomeRetry {
		return d, nil
	}
	if e.cfg.PendingTimeout > 0 && !now.Before(donation.CreatedAt.Add(e.cfg.PendingTimeout)) {
		return decision{
			outcome:       storage.OutcomeFailed,
			reason:        domain.ReasonPendingTimeout,
			detail:        fmt.Sprintf("pending since %s", donation.CreatedAt.UTC().Format(time.RFC3339)),
			confirmations: d.confirmations,
		}, nil
	}
	return d, nil
}

func (e *Engine) inspect(ctx context.Context, donation domain.Donation, now time.Time) (decision, error) {
	campaign, err := e.store.GetCampaign(ctx, donation.CampaignID)
	if err != nil {
		return decision{}, fmt.Errorf("get campaign %s: %w", donation.CampaignID, err)
	}

	transfer, err := e.readTransfer(ctx, donation.ChainTxRef)
	switch {
	case err == nil:
	case apperrors.IsContextDone(err):
		return decision{}, err
	case errors.Is(err, oracle.ErrTransferNotFound):
		polls := donation.NotFoundPolls + 1
		if polls >= e.cfg.MaxNotFoundPolls {
			return decision{
				outcome: storage.OutcomeFailed,
				reason:  domain.ReasonNotFound,
				detail:  fmt.Sprintf("transfer not found after %d polls", polls),
			}, nil
		}
		return decision{
			outcome:       storage.OutcomeWaiting,
			reason:        domain.ReasonNotFound,
			nextCheckAt:   now.Add(e.cfg.PollInterval),
			notFoundPolls: polls,
		}, nil
	default:
		attempts := donation.OracleAttempts + 1
		if attempts >= e.cfg.MaxOracleAttempts {
			return decision{
				outcome: storage.OutcomeFailed,
				reason:  domain.ReasonOracleUnavailable,
				detail:  fmt.Sprintf("oracle unavailable after %d attempts: %v", attempts, err),
			}, nil
		}
		return decision{
			outcome:       storage.OutcomeRetry,
			reason:        domain.ReasonOracleUnavailable,
			detail:        err.Error(),
			nextCheckAt:   now.Add(retryDelay(e.cfg.RetryBase, e.cfg.RetryMax, attempts)),
			oracleTries:   attempts,
			notFoundPolls: donation.NotFoundPolls,
		}, nil
	}

	if reason, detail, mismatch := match(transfer, donation, campaign, e.cfg.AmountTolerance); mismatch {
		return decision{
			outcome:       storage.OutcomeFailed,
			reason:        reason,
			detail:        detail,
			confirmations: transfer.Confirmations,
		}, nil
	}
	if transfer.Confirmations < e.cfg.FinalityDepth {
		return decision{
			outcome:       storage.OutcomeWaiting,
			detail:        fmt.Sprintf("%d of %d confirmations", transfer.Confirmations, e.cfg.FinalityDepth),
			confirmations: transfer.Confirmations,
			nextCheckAt:   now.Add(e.cfg.PollInterval),
		}, nil
	}
	return decision{outcome: storage.OutcomeConfirmed, confirmations: transfer.Confirmations}, nil
}

// match compares a chain transfer with the pledge it should settle and
// reports the first mismatch.
func match(transfer oracle.Transfer, donation domain.Donation, campaign domain.Campaign, tolerance decimal.Decimal) (domain.FailureReason, string, bool) {
	switch {
	case transfer.Reverted:
		return domain.ReasonReverted, "transfer reverted on chain", true
	case !domain.SameAddress(transfer.To, campaign.ReceivingAddress):
		return domain.ReasonRecipientMismatch, fmt.Sprintf("recipient %s, campaign receives at %s", transfer.To, campaign.ReceivingAddress), true
	case !domain.SameAddress(transfer.From, donation.DonorAddress):
		return domain.ReasonSenderMismatch, fmt.Sprintf("sender %s, donor pledged from %s", transfer.From, donation.DonorAddress), true
	case !domain.WithinTolerance(transfer.Amount, donation.Amount, tolerance):
		return domain.ReasonAmountMismatch, fmt.Sprintf("chain amount %s, pledged %s", transfer.Amount, donation.Amount), true
	default:
		return "", "", false
	}
}

// readTransfer retries a failed read a few times within the pass. A missing
// transfer is a definitive answer and is not retried.
func (e *Engine) readTransfer(ctx context.Context, txRef string) (oracle.Transfer, error) {
	ctx, span := e.tracer.Start(ctx, "oracle.get_transfer", trace.WithAttributes(
		attribute.String("chain.tx_ref", txRef),
	))
	defer span.End()

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     e.cfg.ReadRetryDelay,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         4 * e.cfg.ReadRetryDelay,
	}
	transfer, err := backoff.Retry(ctx, func() (oracle.Transfer, error) {
		transfer, err := e.oracle.GetTransfer(ctx, txRef)
		if err != nil && (errors.Is(err, oracle.ErrTransferNotFound) || apperrors.IsContextDone(err)) {
			return oracle.Transfer{}, backoff.Permanent(err)
		}
		return transfer, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(e.cfg.ReadTries))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return oracle.Transfer{}, ctxErr
		}
		if !errors.Is(err, oracle.ErrTransferNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "oracle read failed")
		}
		return oracle.Transfer{}, err
	}
	span.SetAttributes(attribute.Int64("chain.confirmations", transfer.Confirmations))
	return transfer, nil
}

// retryDelay is the wait before the attempt-th re-check after unavailable
// reads: base doubled per attempt, capped at maxDelay.
func retryDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
	}
	policy.Reset()
	delay := base
	for i := 0; i < attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}

// apply writes a decision. Terminal failures and reschedules are plain
// versioned writes; confirmations go through the registry so the target
// check runs under the campaign fence. A donation resolved by someone else
// in the meantime is skipped.
func (e *Engine) apply(ctx context.Context, donation domain.Donation, d decision) (storage.ReconcileOutcome, error) {
	now := e.cfg.Clock()
	switch d.outcome {
	case storage.OutcomeConfirmed:
		_, err := e.registry.ConfirmDonation(ctx, donation.ID, nil)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrDonationOverTarget):
			d = decision{
				outcome:       storage.OutcomeFailed,
				reason:        domain.ReasonOverTarget,
				detail:        overTargetDetail(err),
				confirmations: d.confirmations,
			}
			return e.apply(ctx, donation, d)
		case errors.Is(err, domain.ErrDonationNotPending):
			return "", nil
		default:
			return "", err
		}

	case storage.OutcomeFailed:
		err := storage.WithConflictRetry(ctx, e.cfg.ConflictRetries, func(ctx context.Context) error {
			current, err := e.store.GetDonation(ctx, donation.ID)
			if err != nil {
				return err
			}
			failed, err := domain.FailDonation(current, d.reason, d.detail, now)
			if err != nil {
				return err
			}
			return e.store.UpdateDonation(ctx, failed, current.Version)
		})
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrDonationNotPending), errors.Is(err, storage.ErrImmutable):
			return "", nil
		default:
			return "", err
		}

	default:
		next := domain.ScheduleCheck(donation, d.nextCheckAt, now)
		next.OracleAttempts = d.oracleTries
		next.NotFoundPolls = d.notFoundPolls
		err := e.store.UpdateDonation(ctx, next, donation.Version)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrImmutable):
			return "", nil
		default:
			return "", err
		}
	}

	e.cfg.Logf("reconcile donation=%s outcome=%s reason=%s", donation.ID, d.outcome, d.reason)
	e.record(ctx, donation.ID, d, now)
	return d.outcome, nil
}

func (e *Engine) record(ctx context.Context, donationID string, d decision, now time.Time) {
	err := e.store.RecordReconcileAttempt(ctx, storage.ReconcileAttempt{
		DonationID:    donationID,
		Outcome:       d.outcome,
		Reason:        d.reason,
		Detail:        d.detail,
		Confirmations: d.confirmations,
		AttemptedAt:   now,
	})
	if err != nil {
		e.cfg.Logf("reconcile record attempt donation=%s: %v", donationID, err)
	}
}

func overTargetDetail(err error) string {
	var coded *apperrors.Error
	if errors.As(err, &coded) && coded.Metadata != nil {
		return fmt.Sprintf("confirmed %s of target %s %s", coded.Metadata["Confirmed"], coded.Metadata["Target"], coded.Metadata["Currency"])
	}
	return err.Error()
}
