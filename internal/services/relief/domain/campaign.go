package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
)

// CampaignStatus describes the campaign lifecycle.
type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignClosed CampaignStatus = "closed"
)

var (
	// ErrCampaignNameEmpty indicates a missing campaign name.
	ErrCampaignNameEmpty = apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	// ErrCampaignTargetInvalid indicates a non-positive target amount.
	ErrCampaignTargetInvalid = apperrors.New(apperrors.CodeCampaignTargetInvalid, "campaign target must be greater than zero")
	// ErrCampaignAlreadyClosed indicates a close request on a closed campaign.
	ErrCampaignAlreadyClosed = apperrors.New(apperrors.CodeCampaignAlreadyClosed, "campaign is already closed")
	// ErrCampaignClosed indicates a spend against a closed campaign.
	ErrCampaignClosed = apperrors.New(apperrors.CodeCampaignClosed, "campaign is closed")
	// ErrCampaignNotAcceptingFunds indicates a donation to a closed or unknown campaign.
	ErrCampaignNotAcceptingFunds = apperrors.New(apperrors.CodeCampaignNotAcceptingFunds, "campaign is not accepting donations")
)

// Campaign is a named disaster relief fund. Confirmed funding is never stored
// on it; see SummarizeFunding.
type Campaign struct {
	ID               string
	Name             string
	Currency         string
	ReceivingAddress string
	Target           decimal.Decimal
	Status           CampaignStatus
	CreatedBy        string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// CreateCampaignInput describes a campaign to open.
type CreateCampaignInput struct {
	Name             string
	Currency         string
	ReceivingAddress string
	Target           decimal.Decimal
}

// NormalizeCreateCampaignInput validates and canonicalizes create input.
func NormalizeCreateCampaignInput(input CreateCampaignInput) (CreateCampaignInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateCampaignInput{}, ErrCampaignNameEmpty
	}
	if !input.Target.IsPositive() {
		return CreateCampaignInput{}, ErrCampaignTargetInvalid
	}
	currency, err := NormalizeCurrency(input.Currency)
	if err != nil {
		return CreateCampaignInput{}, err
	}
	input.Currency = currency
	address, err := NormalizeAddress(input.ReceivingAddress)
	if err != nil {
		return CreateCampaignInput{}, err
	}
	input.ReceivingAddress = address
	return input, nil
}

// CreateCampaign builds a new active campaign at version 1.
func CreateCampaign(input CreateCampaignInput, createdBy string, now func() time.Time, idGenerator func() (string, error)) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateCampaignInput(input)
	if err != nil {
		return Campaign{}, err
	}

	campaignID, err := idGenerator()
	if err != nil {
		return Campaign{}, fmt.Errorf("generate campaign id: %w", err)
	}

	createdAt := now().UTC()
	return Campaign{
		ID:               campaignID,
		Name:             normalized.Name,
		Currency:         normalized.Currency,
		ReceivingAddress: normalized.ReceivingAddress,
		Target:           normalized.Target,
		Status:           CampaignActive,
		CreatedBy:        strings.TrimSpace(createdBy),
		Version:          1,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}, nil
}

// IsActive reports whether the campaign accepts donations and issuance.
func (c Campaign) IsActive() bool {
	return c.Status == CampaignActive
}

// CloseCampaign transitions an active campaign to closed.
func CloseCampaign(campaign Campaign, now time.Time) (Campaign, error) {
	if campaign.Status == CampaignClosed {
		return Campaign{}, ErrCampaignAlreadyClosed
	}
	closedAt := now.UTC()
	campaign.Status = CampaignClosed
	campaign.UpdatedAt = closedAt
	campaign.ClosedAt = &closedAt
	return campaign, nil
}
