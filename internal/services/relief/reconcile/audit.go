package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

// AuditReport compares the chain balance of a campaign's receiving address
// with the funding the ledger has confirmed for it.
type AuditReport struct {
	CampaignID       string
	ReceivingAddress string
	Currency         string
	ChainBalance     decimal.Decimal
	LedgerConfirmed  decimal.Decimal
	// Drift is ChainBalance minus LedgerConfirmed. Positive drift means the
	// chain holds value the ledger has not confirmed yet.
	Drift     decimal.Decimal
	Balanced  bool
	CheckedAt time.Time
}

// Audit reads the chain balance of the campaign's receiving address and
// reports its drift from confirmed funding. It never mutates the ledger.
// Admins and reviewers may audit.
func (e *Engine) Audit(ctx context.Context, actor domain.Actor, campaignID string) (AuditReport, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin, domain.RoleReviewer); err != nil {
		return AuditReport{}, err
	}
	ctx, span := e.tracer.Start(ctx, "reconcile.audit", trace.WithAttributes(
		attribute.String("campaign.id", campaignID),
	))
	defer span.End()

	funding, err := e.registry.Funding(ctx, campaignID)
	if err != nil {
		return AuditReport{}, err
	}
	campaign, err := e.store.GetCampaign(ctx, funding.CampaignID)
	if err != nil {
		return AuditReport{}, storage.AppError(err, "campaign")
	}

	balance, err := e.oracle.GetBalance(ctx, campaign.ReceivingAddress)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AuditReport{}, ctxErr
		}
		if !oracle.IsUnavailable(err) {
			err = oracle.Unavailable(err)
		}
		return AuditReport{}, err
	}

	drift := balance.Sub(funding.Confirmed)
	report := AuditReport{
		CampaignID:       campaign.ID,
		ReceivingAddress: campaign.ReceivingAddress,
		Currency:         campaign.Currency,
		ChainBalance:     balance,
		LedgerConfirmed:  funding.Confirmed,
		Drift:            drift,
		Balanced:         drift.Abs().LessThanOrEqual(e.cfg.AmountTolerance),
		CheckedAt:        e.cfg.Clock().UTC(),
	}
	if !report.Balanced {
		e.cfg.Logf("reconcile audit campaign=%s drift=%s %s", campaign.ID, drift, campaign.Currency)
	}
	span.SetAttributes(attribute.Bool("audit.balanced", report.Balanced))
	return report, nil
}
