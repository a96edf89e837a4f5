package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/reconcile"
)

// Amounts cross the wire as decimal strings.

type createCampaignRequest struct {
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	ReceivingAddress string          `json:"receiving_address"`
	Target           decimal.Decimal `json:"target"`
}

type campaignResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	ReceivingAddress string          `json:"receiving_address"`
	Target           decimal.Decimal `json:"target"`
	Status           string          `json:"status"`
	CreatedBy        string          `json:"created_by"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
}

func newCampaignResponse(c domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:               c.ID,
		Name:             c.Name,
		Currency:         c.Currency,
		ReceivingAddress: c.ReceivingAddress,
		Target:           c.Target,
		Status:           string(c.Status),
		CreatedBy:        c.CreatedBy,
		Version:          c.Version,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		ClosedAt:         c.ClosedAt,
	}
}

type fundingResponse struct {
	CampaignID string          `json:"campaign_id"`
	Currency   string          `json:"currency"`
	Target     decimal.Decimal `json:"target"`
	Confirmed  decimal.Decimal `json:"confirmed"`
	Committed  decimal.Decimal `json:"committed"`
	Remaining  decimal.Decimal `json:"remaining"`
	Pending    decimal.Decimal `json:"pending"`
}

func newFundingResponse(f domain.Funding) fundingResponse {
	return fundingResponse{
		CampaignID: f.CampaignID,
		Currency:   f.Currency,
		Target:     f.Target,
		Confirmed:  f.Confirmed,
		Committed:  f.Committed,
		Remaining:  f.Remaining,
		Pending:    f.Pending,
	}
}

type auditResponse struct {
	CampaignID       string          `json:"campaign_id"`
	ReceivingAddress string          `json:"receiving_address"`
	Currency         string          `json:"currency"`
	ChainBalance     decimal.Decimal `json:"chain_balance"`
	LedgerConfirmed  decimal.Decimal `json:"ledger_confirmed"`
	Drift            decimal.Decimal `json:"drift"`
	Balanced         bool            `json:"balanced"`
	CheckedAt        time.Time       `json:"checked_at"`
}

func newAuditResponse(r reconcile.AuditReport) auditResponse {
	return auditResponse{
		CampaignID:       r.CampaignID,
		ReceivingAddress: r.ReceivingAddress,
		Currency:         r.Currency,
		ChainBalance:     r.ChainBalance,
		LedgerConfirmed:  r.LedgerConfirmed,
		Drift:            r.Drift,
		Balanced:         r.Balanced,
		CheckedAt:        r.CheckedAt,
	}
}

type registerPartyRequest struct {
	Role          string `json:"role"`
	Name          string `json:"name"`
	Subject       string `json:"subject"`
	WalletAddress string `json:"wallet_address"`
	SupersedesID  string `json:"supersedes_id"`
}

type reviewRequest struct {
	Note string `json:"note"`
}

type partyResponse struct {
	ID            string     `json:"id"`
	Role          string     `json:"role"`
	Name          string     `json:"name"`
	Subject       string     `json:"subject"`
	WalletAddress string     `json:"wallet_address,omitempty"`
	Status        string     `json:"status"`
	SupersedesID  string     `json:"supersedes_id,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewNote    string     `json:"review_note,omitempty"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

func newPartyResponse(p domain.Party) partyResponse {
	return partyResponse{
		ID:            p.ID,
		Role:          string(p.Role),
		Name:          p.Name,
		Subject:       p.Subject,
		WalletAddress: p.WalletAddress,
		Status:        string(p.Status),
		SupersedesID:  p.SupersedesID,
		ReviewedBy:    p.ReviewedBy,
		ReviewNote:    p.ReviewNote,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		ReviewedAt:    p.ReviewedAt,
	}
}

type submitDonationRequest struct {
	CampaignID     string          `json:"campaign_id"`
	DonorAddress   string          `json:"donor_address"`
	DonorAccountID string          `json:"donor_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ChainTxRef     string          `json:"chain_tx_ref"`
}

type resolveDonationRequest struct {
	Confirm bool   `json:"confirm"`
	Note    string `json:"note"`
}

type donationResponse struct {
	ID             string          `json:"id"`
	CampaignID     string          `json:"campaign_id"`
	DonorAddress   string          `json:"donor_address"`
	DonorAccountID string          `json:"donor_account_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ChainTxRef     string          `json:"chain_tx_ref,omitempty"`
	State          string          `json:"state"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	FailureDetail  string          `json:"failure_detail,omitempty"`
	Manual         bool            `json:"manual"`
	ResolvedBy     string          `json:"resolved_by,omitempty"`
	ResolutionNote string          `json:"resolution_note,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

func newDonationResponse(d domain.Donation) donationResponse {
	return donationResponse{
		ID:             d.ID,
		CampaignID:     d.CampaignID,
		DonorAddress:   d.DonorAddress,
		DonorAccountID: d.DonorAccountID,
		Amount:         d.Amount,
		Currency:       d.Currency,
		ChainTxRef:     d.ChainTxRef,
		State:          string(d.State),
		FailureReason:  string(d.FailureReason),
		FailureDetail:  d.FailureDetail,
		Manual:         d.Manual,
		ResolvedBy:     d.ResolvedBy,
		ResolutionNote: d.ResolutionNote,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		ResolvedAt:     d.ResolvedAt,
	}
}

type issuePackageRequest struct {
	CampaignID    string          `json:"campaign_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
}

type receivePackageRequest struct {
	VendorPartyID string `json:"vendor_party_id"`
}

type packageResponse struct {
	ID            string          `json:"id"`
	CampaignID    string          `json:"campaign_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	IssuedBy      string          `json:"issued_by"`
	ReceivedBy    string          `json:"received_by,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
}

func newPackageResponse(p domain.ReliefPackage) packageResponse {
	return packageResponse{
		ID:            p.ID,
		CampaignID:    p.CampaignID,
		BeneficiaryID: p.BeneficiaryID,
		Category:      p.Category,
		Amount:        p.Amount,
		Status:        string(p.Status),
		IssuedBy:      p.IssuedBy,
		ReceivedBy:    p.ReceivedBy,
		FailureReason: string(p.FailureReason),
		ExpiresAt:     p.ExpiresAt,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		ReceivedAt:    p.ReceivedAt,
	}
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string            `json:"code"`
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Locale    string            `json:"locale"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}
