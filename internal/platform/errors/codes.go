// Package errors provides coded domain errors shared by the relief services.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request shape
	CodeIDRequired            Code = "ID_REQUIRED"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodePermissionDenied      Code = "PERMISSION_DENIED"
	CodeNotFound              Code = "NOT_FOUND"
	CodeVersionConflict       Code = "VERSION_CONFLICT"
	CodeCurrencyInvalid       Code = "CURRENCY_INVALID"
	CodeAddressInvalid        Code = "ADDRESS_INVALID"
	CodeAmountInvalid         Code = "AMOUNT_INVALID"
	CodeReviewNoteTooLong     Code = "REVIEW_NOTE_TOO_LONG"
	CodeRoleInvalid           Code = "ROLE_INVALID"
	CodeResolutionNoteMissing Code = "RESOLUTION_NOTE_MISSING"
	CodeRequestInvalid        Code = "REQUEST_INVALID"

	// Campaign errors
	CodeCampaignNameEmpty         Code = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignTargetInvalid     Code = "CAMPAIGN_TARGET_INVALID"
	CodeCampaignAlreadyClosed     Code = "CAMPAIGN_ALREADY_CLOSED"
	CodeCampaignClosed            Code = "CAMPAIGN_CLOSED"
	CodeCampaignNotAcceptingFunds Code = "CAMPAIGN_NOT_ACCEPTING_DONATIONS"

	// Donation errors
	CodeDonationOverTarget       Code = "DONATION_OVER_TARGET"
	CodeDonationCurrencyMismatch Code = "DONATION_CURRENCY_MISMATCH"
	CodeDonationNotPending       Code = "DONATION_NOT_PENDING"
	CodeDonationNotManual        Code = "DONATION_NOT_MANUAL"

	// Party errors
	CodePartyNameEmpty        Code = "PARTY_NAME_EMPTY"
	CodePartyRoleInvalid      Code = "PARTY_ROLE_INVALID"
	CodePartyNotPending       Code = "PARTY_NOT_PENDING"
	CodePartyNotApproved      Code = "PARTY_NOT_APPROVED"
	CodePartyRoleMismatch     Code = "PARTY_ROLE_MISMATCH"
	CodePartySupersedeInvalid Code = "PARTY_SUPERSEDE_INVALID"

	// Package errors
	CodePackageCategoryEmpty Code = "PACKAGE_CATEGORY_EMPTY"
	CodePackageNotIssued     Code = "PACKAGE_NOT_ISSUED"
	CodeInsufficientFunding  Code = "INSUFFICIENT_FUNDING"

	// Chain oracle errors
	CodeOracleUnavailable Code = "ORACLE_UNAVAILABLE"
)

// Kind groups codes into the error taxonomy callers branch on.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindInvalidState        Kind = "invalid_state"
	KindConflict            Kind = "conflict"
	KindNotApproved         Kind = "not_approved"
	KindInsufficientFunding Kind = "insufficient_funding"
	KindOracleUnavailable   Kind = "oracle_unavailable"
	KindNotFound            Kind = "not_found"
	KindPermissionDenied    Kind = "permission_denied"
	KindUnauthenticated     Kind = "unauthenticated"
	KindInternal            Kind = "internal"
)

// Kind maps a code to its taxonomy bucket.
func (c Code) Kind() Kind {
	switch c {
	case CodeIDRequired,
		CodeCurrencyInvalid,
		CodeAddressInvalid,
		CodeAmountInvalid,
		CodeReviewNoteTooLong,
		CodeRoleInvalid,
		CodeResolutionNoteMissing,
		CodeRequestInvalid,
		CodeCampaignNameEmpty,
		CodeCampaignTargetInvalid,
		CodeCampaignNotAcceptingFunds,
		CodeDonationOverTarget,
		CodeDonationCurrencyMismatch,
		CodePartyNameEmpty,
		CodePartyRoleInvalid,
		CodePartyRoleMismatch,
		CodePackageCategoryEmpty:
		return KindValidation

	case CodeCampaignAlreadyClosed,
		CodeCampaignClosed,
		CodeDonationNotPending,
		CodeDonationNotManual,
		CodePartyNotPending,
		CodePartySupersedeInvalid,
		CodePackageNotIssued:
		return KindInvalidState

	case CodeVersionConflict:
		return KindConflict
	case CodePartyNotApproved:
		return KindNotApproved
	case CodeInsufficientFunding:
		return KindInsufficientFunding
	case CodeOracleUnavailable:
		return KindOracleUnavailable
	case CodeNotFound:
		return KindNotFound
	case CodePermissionDenied:
		return KindPermissionDenied
	case CodeUnauthenticated:
		return KindUnauthenticated
	default:
		return KindInternal
	}
}
