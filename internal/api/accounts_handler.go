package api

import (
	"net/http"
	"strconv"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/notification"
)

// accountsHandler groups the admin account console.
type accountsHandler struct {
	accounts AccountStore
	notes    NotificationStore
	listing  ListingInvalidator
}

func newAccountsHandler(accounts AccountStore, notes NotificationStore, listing ListingInvalidator) *accountsHandler {
	return &accountsHandler{accounts: accounts, notes: notes, listing: listing}
}

// List handles GET /api/v1/admin/accounts?type=&pending=true&include_hidden=true.
func (h *accountsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := account.ListParams{Type: account.Role(q.Get("type"))}
	if params.Type != "" && !params.Type.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown account type")
		return
	}
	params.PendingOnly, _ = strconv.ParseBool(q.Get("pending"))
	params.IncludeHidden, _ = strconv.ParseBool(q.Get("include_hidden"))

	accounts, err := h.accounts.List(r.Context(), params)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*account.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// ApproveRole handles POST /api/v1/admin/accounts/{id}/approve-role.
func (h *accountsHandler) ApproveRole(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Approve *bool `json:"approve" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}
	if before.PendingType == nil {
		writeError(w, http.StatusConflict, "conflict", "account has no pending role request")
		return
	}
	requested := *before.PendingType

	a, err := h.accounts.ResolvePendingType(r.Context(), id, *req.Approve)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}

	if *req.Approve {
		related := a.ID
		if _, err := h.notes.Create(r.Context(), notification.CreateInput{
			UserID:    a.ID,
			Type:      notification.TypeRoleApproved,
			Title:     "Role approved",
			Message:   "Your account is now registered as " + string(a.Type) + ".",
			RelatedID: &related,
		}); err != nil {
			loggerFrom(r).Warn("role approval notification failed", "account_id", a.ID, "error", err)
		}
	}
	invalidateListing(r, h.listing)

	auditLog(r, "account.resolve_role", "account", id,
		"requested", string(requested), "approved", *req.Approve)
	writeJSON(w, http.StatusOK, a)
}

// SetHidden handles PUT /api/v1/admin/accounts/{id}/hidden.
func (h *accountsHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Hidden *bool `json:"hidden" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.accounts.SetHidden(r.Context(), id, *req.Hidden)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}
	invalidateListing(r, h.listing)

	auditLog(r, "account.set_hidden", "account", id, "hidden", *req.Hidden)
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/v1/admin/accounts/{id}.
func (h *accountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if u := auth.UserFromContext(r.Context()); u != nil && u.ID == id {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "cannot delete your own account")
		return
	}
	if _, err := h.accounts.GetByID(r.Context(), id); err != nil {
		writeStoreError(w, r, "account", err)
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, "account", err)
		return
	}
	invalidateListing(r, h.listing)

	auditLog(r, "account.delete", "account", id)
	w.WriteHeader(http.StatusNoContent)
}
