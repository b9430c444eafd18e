package api

import (
	"net/http"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/auth"
)

// claimsHandler exposes the claim linking workflow.
type claimsHandler struct {
	claims   ClaimService
	accounts AccountStore
	listing  ListingInvalidator
}

func newClaimsHandler(claims ClaimService, accounts AccountStore, listing ListingInvalidator) *claimsHandler {
	return &claimsHandler{claims: claims, accounts: accounts, listing: listing}
}

// Submit handles POST /api/v1/claim.
func (h *claimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req struct {
		DancerID string `json:"dancer_id" validate:"required,uuid"`
		Reason   string `json:"reason" validate:"max=1000"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.claims.Submit(r.Context(), u.ID, req.DancerID, req.Reason)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "claim.submit", "account", u.ID, "target_id", req.DancerID)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"claim_user_id": a.ClaimUserID,
		"claim_status":  a.ClaimStatus,
	})
}

// List handles GET /api/v1/admin/claims?status=pending. An empty status
// defaults to pending; "all" lists every account with a claim.
func (h *claimsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := account.ClaimStatus(r.URL.Query().Get("status"))
	switch status {
	case account.ClaimNone:
		status = account.ClaimPending
	case "all":
		status = account.ClaimNone
	case account.ClaimPending, account.ClaimApproved, account.ClaimRejected, account.ClaimCompleted:
	default:
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be pending, approved, rejected, completed or all")
		return
	}

	accounts, err := h.accounts.List(r.Context(), account.ListParams{ClaimStatus: status, IncludeHidden: true})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	claims := make([]*account.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ClaimStatus != account.ClaimNone {
			claims = append(claims, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

// Resolve handles PATCH /api/v1/admin/claims/{id}, where id is the claimant.
func (h *claimsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	admin := auth.UserFromContext(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	claimantID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Status  account.ClaimStatus `json:"status" validate:"required,oneof=approved rejected completed"`
		Message string              `json:"message" validate:"max=1000"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.claims.Resolve(r.Context(), admin.ID, claimantID, req.Status, req.Message)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Status == account.ClaimApproved {
		invalidateListing(r, h.listing)
	}

	auditLog(r, "claim.resolve", "account", claimantID, "status", string(req.Status))
	writeJSON(w, http.StatusOK, res)
}

// DirectLink handles POST /api/v1/admin/direct-link.
func (h *claimsHandler) DirectLink(w http.ResponseWriter, r *http.Request) {
	admin := auth.UserFromContext(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req struct {
		UserID   string `json:"userId" validate:"required,uuid"`
		DancerID string `json:"dancerId" validate:"required,uuid"`
		Reason   string `json:"reason" validate:"max=1000"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.claims.DirectLink(r.Context(), admin.ID, req.UserID, req.DancerID, req.Reason)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	invalidateListing(r, h.listing)

	auditLog(r, "claim.direct_link", "account", req.UserID, "target_id", req.DancerID)
	writeJSON(w, http.StatusOK, res)
}
