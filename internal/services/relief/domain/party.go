package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/id"
)

// PartyRole distinguishes vendors from beneficiaries.
type PartyRole string

const (
	PartyVendor      PartyRole = "vendor"
	PartyBeneficiary PartyRole = "beneficiary"
)

// PartyStatus is the approval state of a party. Approved and rejected are
// both terminal.
type PartyStatus string

const (
	PartyPending  PartyStatus = "pending"
	PartyApproved PartyStatus = "approved"
	PartyRejected PartyStatus = "rejected"
)

// ReviewDecision is a reviewer's verdict on a pending party.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

var (
	// ErrPartyNameEmpty indicates a missing party name.
	ErrPartyNameEmpty = apperrors.New(apperrors.CodePartyNameEmpty, "party name is required")
	// ErrPartyRoleInvalid indicates a registration for something other than vendor or beneficiary.
	ErrPartyRoleInvalid = apperrors.New(apperrors.CodePartyRoleInvalid, "party role must be vendor or beneficiary")
	// ErrPartyNotPending indicates a review of an already reviewed party.
	ErrPartyNotPending = apperrors.New(apperrors.CodePartyNotPending, "party has already been reviewed")
	// ErrPartyNotApproved indicates a spend toward a party that is not approved.
	ErrPartyNotApproved = apperrors.New(apperrors.CodePartyNotApproved, "party is not approved")
	// ErrPartyRoleMismatch indicates a party of the wrong role was referenced.
	ErrPartyRoleMismatch = apperrors.New(apperrors.CodePartyRoleMismatch, "party does not have the required role")
	// ErrPartySupersedeInvalid indicates a re-submission pointing at a party
	// that is not the caller's own rejected application.
	ErrPartySupersedeInvalid = apperrors.New(apperrors.CodePartySupersedeInvalid, "only a rejected party of the same subject and role can be superseded")
	// ErrReviewNoteTooLong indicates an oversized reviewer or operator note.
	ErrReviewNoteTooLong = apperrors.New(apperrors.CodeReviewNoteTooLong, "note is too long")
)

// Party is a vendor or beneficiary that must be approved before it can
// receive packages. A rejected party is never re-approved; a new
// registration may point at it with SupersedesID.
type Party struct {
	ID            string
	Role          PartyRole
	Name          string
	Subject       string
	WalletAddress string
	Status        PartyStatus
	SupersedesID  string
	ReviewedBy    string
	ReviewNote    string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ReviewedAt    *time.Time
}

// RegisterPartyInput describes a vendor or beneficiary application.
type RegisterPartyInput struct {
	Role          PartyRole
	Name          string
	Subject       string
	WalletAddress string
	SupersedesID  string
}

// ParsePartyRole canonicalizes a party role label.
func ParsePartyRole(raw string) (PartyRole, error) {
	role := PartyRole(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case PartyVendor, PartyBeneficiary:
		return role, nil
	default:
		return "", ErrPartyRoleInvalid
	}
}

// NormalizeRegisterPartyInput validates and canonicalizes registration input.
func NormalizeRegisterPartyInput(input RegisterPartyInput) (RegisterPartyInput, error) {
	role, err := ParsePartyRole(string(input.Role))
	if err != nil {
		return RegisterPartyInput{}, err
	}
	input.Role = role
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return RegisterPartyInput{}, ErrPartyNameEmpty
	}
	input.Subject = strings.TrimSpace(input.Subject)
	if input.Subject == "" {
		return RegisterPartyInput{}, ErrUnauthenticated
	}
	if strings.TrimSpace(input.WalletAddress) != "" {
		address, err := NormalizeAddress(input.WalletAddress)
		if err != nil {
			return RegisterPartyInput{}, err
		}
		input.WalletAddress = address
	}
	input.SupersedesID = strings.TrimSpace(input.SupersedesID)
	return input, nil
}

// RegisterParty builds a pending party at version 1.
func RegisterParty(input RegisterPartyInput, now func() time.Time, idGenerator func() (string, error)) (Party, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeRegisterPartyInput(input)
	if err != nil {
		return Party{}, err
	}

	partyID, err := idGenerator()
	if err != nil {
		return Party{}, fmt.Errorf("generate party id: %w", err)
	}

	createdAt := now().UTC()
	return Party{
		ID:            partyID,
		Role:          normalized.Role,
		Name:          normalized.Name,
		Subject:       normalized.Subject,
		WalletAddress: normalized.WalletAddress,
		Status:        PartyPending,
		SupersedesID:  normalized.SupersedesID,
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// ReviewParty applies a reviewer decision to a pending party.
func ReviewParty(party Party, decision ReviewDecision, reviewer, note string, now time.Time) (Party, error) {
	if party.Status != PartyPending {
		return Party{}, ErrPartyNotPending
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return Party{}, ErrReviewNoteTooLong
	}
	switch decision {
	case DecisionApprove:
		party.Status = PartyApproved
	case DecisionReject:
		party.Status = PartyRejected
	default:
		return Party{}, fmt.Errorf("unknown review decision %q", decision)
	}
	reviewedAt := now.UTC()
	party.ReviewedBy = strings.TrimSpace(reviewer)
	party.ReviewNote = note
	party.UpdatedAt = reviewedAt
	party.ReviewedAt = &reviewedAt
	return party, nil
}

// RequireApproved fails unless the party is an approved holder of role.
func RequireApproved(party Party, role PartyRole) error {
	if party.Role != role {
		return ErrPartyRoleMismatch
	}
	if party.Status != PartyApproved {
		return ErrPartyNotApproved
	}
	return nil
}

// CanBeSupersededBy reports whether next may replace the rejected party.
func (p Party) CanBeSupersededBy(next Party) bool {
	return p.Status == PartyRejected && p.Role == next.Role && p.Subject == next.Subject
}
