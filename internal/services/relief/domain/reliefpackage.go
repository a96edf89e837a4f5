package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
)

// PackageStatus is the disbursement state of a relief package.
type PackageStatus string

const (
	PackagePending  PackageStatus = "pending"
	PackageIssued   PackageStatus = "issued"
	PackageReceived PackageStatus = "received"
	PackageFailed   PackageStatus = "failed"
)

var (
	// ErrPackageCategoryEmpty indicates a package without a category.
	ErrPackageCategoryEmpty = apperrors.New(apperrors.CodePackageCategoryEmpty, "package category is required")
	// ErrPackageNotIssued indicates a receipt or expiry on a package that is not issued.
	ErrPackageNotIssued = apperrors.New(apperrors.CodePackageNotIssued, "package is not awaiting receipt")
)

// ReliefPackage is a disbursement of campaign funding to an approved
// beneficiary.
type ReliefPackage struct {
	ID            string
	CampaignID    string
	BeneficiaryID string
	Category      string
	Amount        decimal.Decimal
	Status        PackageStatus
	IssuedBy      string
	ReceivedBy    string
	FailureReason FailureReason
	ExpiresAt     time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ReceivedAt    *time.Time
}

// IssuePackageInput describes a package request.
type IssuePackageInput struct {
	CampaignID    string
	BeneficiaryID string
	Category      string
	Amount        decimal.Decimal
}

// NormalizeIssuePackageInput validates and canonicalizes an issuance request.
func NormalizeIssuePackageInput(input IssuePackageInput) (IssuePackageInput, error) {
	input.CampaignID = strings.TrimSpace(input.CampaignID)
	input.BeneficiaryID = strings.TrimSpace(input.BeneficiaryID)
	if input.CampaignID == "" || input.BeneficiaryID == "" {
		return IssuePackageInput{}, apperrors.New(apperrors.CodeIDRequired, "campaign and beneficiary ids are required")
	}
	input.Category = strings.ToLower(strings.TrimSpace(input.Category))
	if input.Category == "" {
		return IssuePackageInput{}, ErrPackageCategoryEmpty
	}
	if err := RequirePositive(input.Amount); err != nil {
		return IssuePackageInput{}, err
	}
	return input, nil
}

// NewIssuedPackage builds an issued package at version 1 that expires after
// window. Funding and approval checks belong to the caller.
func NewIssuedPackage(input IssuePackageInput, issuedBy string, window time.Duration, now func() time.Time, idGenerator func() (string, error)) (ReliefPackage, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeIssuePackageInput(input)
	if err != nil {
		return ReliefPackage{}, err
	}

	packageID, err := idGenerator()
	if err != nil {
		return ReliefPackage{}, fmt.Errorf("generate package id: %w", err)
	}

	createdAt := now().UTC()
	return ReliefPackage{
		ID:            packageID,
		CampaignID:    normalized.CampaignID,
		BeneficiaryID: normalized.BeneficiaryID,
		Category:      normalized.Category,
		Amount:        normalized.Amount,
		Status:        PackageIssued,
		IssuedBy:      strings.TrimSpace(issuedBy),
		ExpiresAt:     createdAt.Add(window),
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// Commits reports whether the package counts against campaign funding.
func (p ReliefPackage) Commits() bool {
	return p.Status == PackageIssued || p.Status == PackageReceived
}

// Expired reports whether an issued package is past its redemption window.
func (p ReliefPackage) Expired(now time.Time) bool {
	return p.Status == PackageIssued && !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// MarkPackageReceived records the explicit receipt confirmation.
func MarkPackageReceived(pkg ReliefPackage, receivedBy string, now time.Time) (ReliefPackage, error) {
	if pkg.Status != PackageIssued {
		return ReliefPackage{}, ErrPackageNotIssued
	}
	receivedAt := now.UTC()
	pkg.Status = PackageReceived
	pkg.ReceivedBy = strings.TrimSpace(receivedBy)
	pkg.UpdatedAt = receivedAt
	pkg.ReceivedAt = &receivedAt
	return pkg, nil
}

// ExpirePackage fails an issued package whose redemption did not complete,
// which releases its amount back to remaining funding.
func ExpirePackage(pkg ReliefPackage, now time.Time) (ReliefPackage, error) {
	if pkg.Status != PackageIssued {
		return ReliefPackage{}, ErrPackageNotIssued
	}
	pkg.Status = PackageFailed
	pkg.FailureReason = ReasonRedemptionExpired
	pkg.UpdatedAt = now.UTC()
	return pkg, nil
}
