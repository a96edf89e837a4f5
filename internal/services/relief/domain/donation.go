package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
)

// DonationState is the reconciliation state of a pledge.
type DonationState string

const (
	DonationPending   DonationState = "pending"
	DonationConfirmed DonationState = "confirmed"
	DonationFailed    DonationState = "failed"
)

// FailureReason records why a donation or package ended in failed.
type FailureReason string

const (
	ReasonReverted          FailureReason = "Reverted"
	ReasonNotFound          FailureReason = "NotFound"
	ReasonSenderMismatch    FailureReason = "SenderMismatch"
	ReasonRecipientMismatch FailureReason = "RecipientMismatch"
	ReasonAmountMismatch    FailureReason = "AmountMismatch"
	ReasonOverTarget        FailureReason = "OverTarget"
	ReasonOracleUnavailable FailureReason = "OracleUnavailable"
	ReasonPendingTimeout    FailureReason = "PendingTimeout"
	ReasonManualRejected    FailureReason = "ManualRejected"
	ReasonRedemptionExpired FailureReason = "RedemptionExpired"
)

const maxNoteLength = 500

var (
	// ErrDonationNotPending indicates a transition on a confirmed or failed donation.
	ErrDonationNotPending = apperrors.New(apperrors.CodeDonationNotPending, "donation is no longer pending")
	// ErrDonationNotManual indicates an operator resolution on a chain-backed donation.
	ErrDonationNotManual = apperrors.New(apperrors.CodeDonationNotManual, "donation has a chain reference and is reconciled automatically")
	// ErrResolutionNoteMissing indicates a manual rejection without an explanation.
	ErrResolutionNoteMissing = apperrors.New(apperrors.CodeResolutionNoteMissing, "a note is required to reject a manual donation")
)

// Donation is a pledge toward a campaign. ChainTxRef is empty for manual
// entries, which the reconciler never touches.
type Donation struct {
	ID             string
	CampaignID     string
	DonorAddress   string
	DonorAccountID string
	Amount         decimal.Decimal
	Currency       string
	ChainTxRef     string
	State          DonationState
	FailureReason  FailureReason
	FailureDetail  string
	Manual         bool
	ResolvedBy     string
	ResolutionNote string
	OracleAttempts int
	NotFoundPolls  int
	NextCheckAt    time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

// SubmitDonationInput describes a pledge received from a donor.
type SubmitDonationInput struct {
	CampaignID     string
	DonorAddress   string
	DonorAccountID string
	Amount         decimal.Decimal
	Currency       string
	ChainTxRef     string
}

// NormalizeSubmitDonationInput validates and canonicalizes intake input.
func NormalizeSubmitDonationInput(input SubmitDonationInput) (SubmitDonationInput, error) {
	input.CampaignID = strings.TrimSpace(input.CampaignID)
	if input.CampaignID == "" {
		return SubmitDonationInput{}, ErrCampaignNotAcceptingFunds
	}
	address, err := NormalizeAddress(input.DonorAddress)
	if err != nil {
		return SubmitDonationInput{}, err
	}
	input.DonorAddress = address
	input.DonorAccountID = strings.TrimSpace(input.DonorAccountID)
	if err := RequirePositive(input.Amount); err != nil {
		return SubmitDonationInput{}, err
	}
	currency, err := NormalizeCurrency(input.Currency)
	if err != nil {
		return SubmitDonationInput{}, err
	}
	input.Currency = currency
	input.ChainTxRef = strings.TrimSpace(input.ChainTxRef)
	return input, nil
}

// NewDonation builds a pending donation at version 1. A donation without a
// chain reference is flagged manual.
func NewDonation(input SubmitDonationInput, now func() time.Time, idGenerator func() (string, error)) (Donation, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeSubmitDonationInput(input)
	if err != nil {
		return Donation{}, err
	}

	donationID, err := idGenerator()
	if err != nil {
		return Donation{}, fmt.Errorf("generate donation id: %w", err)
	}

	createdAt := now().UTC()
	return Donation{
		ID:             donationID,
		CampaignID:     normalized.CampaignID,
		DonorAddress:   normalized.DonorAddress,
		DonorAccountID: normalized.DonorAccountID,
		Amount:         normalized.Amount,
		Currency:       normalized.Currency,
		ChainTxRef:     normalized.ChainTxRef,
		State:          DonationPending,
		Manual:         normalized.ChainTxRef == "",
		NextCheckAt:    createdAt,
		Version:        1,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

// IsTerminal reports whether the donation can no longer change.
func (d Donation) IsTerminal() bool {
	return d.State == DonationConfirmed || d.State == DonationFailed
}

// ConfirmDonation moves a pending donation to confirmed.
func ConfirmDonation(donation Donation, now time.Time) (Donation, error) {
	if donation.State != DonationPending {
		return Donation{}, ErrDonationNotPending
	}
	resolvedAt := now.UTC()
	donation.State = DonationConfirmed
	donation.UpdatedAt = resolvedAt
	donation.ResolvedAt = &resolvedAt
	return donation, nil
}

// FailDonation moves a pending donation to failed with a recorded reason.
func FailDonation(donation Donation, reason FailureReason, detail string, now time.Time) (Donation, error) {
	if donation.State != DonationPending {
		return Donation{}, ErrDonationNotPending
	}
	resolvedAt := now.UTC()
	donation.State = DonationFailed
	donation.FailureReason = reason
	donation.FailureDetail = strings.TrimSpace(detail)
	donation.UpdatedAt = resolvedAt
	donation.ResolvedAt = &resolvedAt
	return donation, nil
}

// ScheduleCheck records a non-terminal reconciliation outcome.
func ScheduleCheck(donation Donation, next time.Time, now time.Time) Donation {
	donation.NextCheckAt = next.UTC()
	donation.UpdatedAt = now.UTC()
	return donation
}

// ResolveManualDonation applies an operator decision to a manual donation.
func ResolveManualDonation(donation Donation, confirm bool, resolvedBy, note string, now time.Time) (Donation, error) {
	if !donation.Manual {
		return Donation{}, ErrDonationNotManual
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return Donation{}, ErrReviewNoteTooLong
	}
	var (
		updated Donation
		err     error
	)
	if confirm {
		updated, err = ConfirmDonation(donation, now)
	} else {
		if note == "" {
			return Donation{}, ErrResolutionNoteMissing
		}
		updated, err = FailDonation(donation, ReasonManualRejected, note, now)
	}
	if err != nil {
		return Donation{}, err
	}
	updated.ResolvedBy = strings.TrimSpace(resolvedBy)
	updated.ResolutionNote = note
	return updated, nil
}
