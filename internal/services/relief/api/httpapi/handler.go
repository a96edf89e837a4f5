// Package httpapi exposes relief operations as a JSON HTTP API. Callers
// authenticate with an HS256 bearer token carrying sub and role claims.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/errors/i18n"
	"github.com/reliefnet/reliefnet/internal/platform/httpx"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/reconcile"
)

// Campaigns is the campaign registry surface.
type Campaigns interface {
	CreateCampaign(ctx context.Context, actor domain.Actor, input domain.CreateCampaignInput) (domain.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	CloseCampaign(ctx context.Context, actor domain.Actor, campaignID string) (domain.Campaign, error)
	Funding(ctx context.Context, campaignID string) (domain.Funding, error)
}

// Parties is the approval workflow surface.
type Parties interface {
	Register(ctx context.Context, actor domain.Actor, input domain.RegisterPartyInput) (domain.Party, error)
	Get(ctx context.Context, partyID string) (domain.Party, error)
	Approve(ctx context.Context, actor domain.Actor, partyID, note string) (domain.Party, error)
	Reject(ctx context.Context, actor domain.Actor, partyID, note string) (domain.Party, error)
}

// Donations is the donation intake surface.
type Donations interface {
	Submit(ctx context.Context, actor domain.Actor, input domain.SubmitDonationInput) (domain.Donation, bool, error)
	Get(ctx context.Context, donationID string) (domain.Donation, error)
	ResolveManual(ctx context.Context, actor domain.Actor, donationID string, confirm bool, note string) (domain.Donation, error)
}

// Packages is the relief package issuer surface.
type Packages interface {
	Issue(ctx context.Context, actor domain.Actor, input domain.IssuePackageInput) (domain.ReliefPackage, error)
	Get(ctx context.Context, packageID string) (domain.ReliefPackage, error)
	ConfirmReceipt(ctx context.Context, actor domain.Actor, packageID, vendorPartyID string) (domain.ReliefPackage, error)
}

// Auditor compares chain balances with ledger funding.
type Auditor interface {
	Audit(ctx context.Context, actor domain.Actor, campaignID string) (reconcile.AuditReport, error)
}

// Services bundles the operations the API exposes.
type Services struct {
	Campaigns Campaigns
	Parties   Parties
	Donations Donations
	Packages  Packages
	Auditor   Auditor
}

// Handler serves the relief HTTP API.
type Handler struct {
	services Services
	verifier *TokenVerifier
	logf     func(string, ...any)
}

// NewHandler creates a handler. Every service and the verifier are required.
func NewHandler(services Services, verifier *TokenVerifier, logf func(string, ...any)) (*Handler, error) {
	switch {
	case services.Campaigns == nil:
		return nil, errors.New("campaign service is required")
	case services.Parties == nil:
		return nil, errors.New("party service is required")
	case services.Donations == nil:
		return nil, errors.New("donation service is required")
	case services.Packages == nil:
		return nil, errors.New("package service is required")
	case services.Auditor == nil:
		return nil, errors.New("auditor is required")
	case verifier == nil:
		return nil, errors.New("token verifier is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{services: services, verifier: verifier, logf: logf}, nil
}

// Routes returns the API router wrapped in the shared middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "route not found"))
	})
	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/campaigns", h.createCampaign)
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", h.getCampaign)
			r.Post("/close", h.closeCampaign)
			r.Get("/funding", h.getFunding)
			r.Get("/audit", h.auditCampaign)
		})

		r.Post("/parties", h.registerParty)
		r.Route("/parties/{partyID}", func(r chi.Router) {
			r.Get("/", h.getParty)
			r.Post("/approve", h.approveParty)
			r.Post("/reject", h.rejectParty)
		})

		r.Post("/donations", h.submitDonation)
		r.Route("/donations/{donationID}", func(r chi.Router) {
			r.Get("/", h.getDonation)
			r.Post("/resolve", h.resolveDonation)
		})

		r.Post("/packages", h.issuePackage)
		r.Route("/packages/{packageID}", func(r chi.Router) {
			r.Get("/", h.getPackage)
			r.Post("/receive", h.receivePackage)
		})
	})

	return httpx.Chain(r, httpx.RequestID(), httpx.RecoverPanic(), httpx.LogRequests(h.logf))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !h.decode(w, r, &req) {
		return
	}
	campaign, err := h.services.Campaigns.CreateCampaign(r.Context(), actorFrom(r), domain.CreateCampaignInput{
		Name:             req.Name,
		Currency:         req.Currency,
		ReceivingAddress: req.ReceivingAddress,
		Target:           req.Target,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newCampaignResponse(campaign))
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaigns.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newCampaignResponse(campaign))
}

func (h *Handler) closeCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaigns.CloseCampaign(r.Context(), actorFrom(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newCampaignResponse(campaign))
}

func (h *Handler) getFunding(w http.ResponseWriter, r *http.Request) {
	funding, err := h.services.Campaigns.Funding(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newFundingResponse(funding))
}

func (h *Handler) auditCampaign(w http.ResponseWriter, r *http.Request) {
	report, err := h.services.Auditor.Audit(r.Context(), actorFrom(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newAuditResponse(report))
}

func (h *Handler) registerParty(w http.ResponseWriter, r *http.Request) {
	var req registerPartyRequest
	if !h.decode(w, r, &req) {
		return
	}
	party, err := h.services.Parties.Register(r.Context(), actorFrom(r), domain.RegisterPartyInput{
		Role:          domain.PartyRole(req.Role),
		Name:          req.Name,
		Subject:       req.Subject,
		WalletAddress: req.WalletAddress,
		SupersedesID:  req.SupersedesID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newPartyResponse(party))
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	party, err := h.services.Parties.Get(r.Context(), chi.URLParam(r, "partyID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPartyResponse(party))
}

func (h *Handler) approveParty(w http.ResponseWriter, r *http.Request) {
	h.reviewParty(w, r, h.services.Parties.Approve)
}

func (h *Handler) rejectParty(w http.ResponseWriter, r *http.Request) {
	h.reviewParty(w, r, h.services.Parties.Reject)
}

func (h *Handler) reviewParty(w http.ResponseWriter, r *http.Request, review func(context.Context, domain.Actor, string, string) (domain.Party, error)) {
	var req reviewRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	party, err := review(r.Context(), actorFrom(r), chi.URLParam(r, "partyID"), req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPartyResponse(party))
}

func (h *Handler) submitDonation(w http.ResponseWriter, r *http.Request) {
	var req submitDonationRequest
	if !h.decode(w, r, &req) {
		return
	}
	donation, created, err := h.services.Donations.Submit(r.Context(), actorFrom(r), domain.SubmitDonationInput{
		CampaignID:     req.CampaignID,
		DonorAddress:   req.DonorAddress,
		DonorAccountID: req.DonorAccountID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ChainTxRef:     req.ChainTxRef,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, newDonationResponse(donation))
}

func (h *Handler) getDonation(w http.ResponseWriter, r *http.Request) {
	donation, err := h.services.Donations.Get(r.Context(), chi.URLParam(r, "donationID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDonationResponse(donation))
}

func (h *Handler) resolveDonation(w http.ResponseWriter, r *http.Request) {
	var req resolveDonationRequest
	if !h.decode(w, r, &req) {
		return
	}
	donation, err := h.services.Donations.ResolveManual(r.Context(), actorFrom(r), chi.URLParam(r, "donationID"), req.Confirm, req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDonationResponse(donation))
}

func (h *Handler) issuePackage(w http.ResponseWriter, r *http.Request) {
	var req issuePackageRequest
	if !h.decode(w, r, &req) {
		return
	}
	pkg, err := h.services.Packages.Issue(r.Context(), actorFrom(r), domain.IssuePackageInput{
		CampaignID:    req.CampaignID,
		BeneficiaryID: req.BeneficiaryID,
		Category:      req.Category,
		Amount:        req.Amount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newPackageResponse(pkg))
}

func (h *Handler) getPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.services.Packages.Get(r.Context(), chi.URLParam(r, "packageID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPackageResponse(pkg))
}

func (h *Handler) receivePackage(w http.ResponseWriter, r *http.Request) {
	var req receivePackageRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	pkg, err := h.services.Packages.ConfirmReceipt(r.Context(), actorFrom(r), chi.URLParam(r, "packageID"), req.VendorPartyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPackageResponse(pkg))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := httpx.DecodeJSON(r, out); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeRequestInvalid, "request body is invalid", err))
		return false
	}
	return true
}

// decodeOptional accepts an empty body and leaves out at its zero value.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return h.decode(w, r, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpx.WriteJSON(w, status, payload); err != nil {
		h.logf("write response: %v", err)
	}
}

// writeError renders err in the caller's language. Internal errors are
// logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	catalog := i18n.ForAcceptLanguage(r.Header.Get("Accept-Language"))
	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeOf(err)
	kind := apperrors.KindOf(err)
	requestID := r.Header.Get(httpx.RequestIDHeader)

	var metadata map[string]string
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		metadata = coded.Metadata
	}
	if kind == apperrors.KindInternal {
		h.logf("http internal error method=%s path=%s request_id=%s: %v", r.Method, r.URL.Path, requestID, err)
		code = apperrors.CodeUnknown
		metadata = nil
	}

	h.writeJSON(w, status, errorResponse{Error: errorDetail{
		Code:      string(code),
		Kind:      string(kind),
		Message:   catalog.Format(string(code), metadata),
		Locale:    catalog.Locale(),
		Metadata:  metadata,
		RequestID: requestID,
	}})
}
