package api

import (
	"net/http"

	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/permission"
)

// careersHandler groups career entry handlers.
type careersHandler struct {
	careers     CareerStore
	permissions PermissionStore
}

func newCareersHandler(careers CareerStore, permissions PermissionStore) *careersHandler {
	return &careersHandler{careers: careers, permissions: permissions}
}

// ListByAccount handles GET /api/v1/accounts/{id}/careers.
func (h *careersHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.careers.ListByUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "careers", err)
		return
	}
	if entries == nil {
		entries = []*career.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"careers": entries})
}

// canEdit reports whether u may write ownerID's careers: the owner, an
// admin, or the holder of a career write grant.
func (h *careersHandler) canEdit(r *http.Request, u *auth.User, ownerID string) (bool, error) {
	if u.CanActFor(ownerID) {
		return true, nil
	}
	return h.permissions.CanWrite(r.Context(), u.ID, ownerID, permission.DataCareer)
}

type createCareerRequest struct {
	// OwnerID targets another account's careers; empty means the caller.
	OwnerID string `json:"owner_id" validate:"omitempty,uuid"`
	career.EntryInput
}

// Create handles POST /api/v1/careers.
func (h *careersHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req createCareerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := career.Validate(req.EntryInput); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	owner := req.OwnerID
	if owner == "" {
		owner = u.ID
	}
	allowed, err := h.canEdit(r, u, owner)
	if err != nil {
		writeStoreError(w, r, "permission", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "cannot edit careers of this account")
		return
	}

	e, err := h.careers.Create(r.Context(), owner, req.EntryInput)
	if err != nil {
		writeStoreError(w, r, "career", err)
		return
	}

	auditLog(r, "career.create", "career", e.ID, "owner_id", owner)
	writeJSON(w, http.StatusCreated, e)
}

// loadEditable fetches the career named by the path and checks the caller
// may edit it. It writes the error response itself.
func (h *careersHandler) loadEditable(w http.ResponseWriter, r *http.Request) (*career.Entry, bool) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return nil, false
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return nil, false
	}

	e, err := h.careers.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "career", err)
		return nil, false
	}
	allowed, err := h.canEdit(r, u, e.UserID)
	if err != nil {
		writeStoreError(w, r, "permission", err)
		return nil, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "cannot edit careers of this account")
		return nil, false
	}
	return e, true
}

// Update handles PUT /api/v1/careers/{id}.
func (h *careersHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	var in career.EntryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := career.Validate(in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	updated, err := h.careers.Update(r.Context(), e.ID, in)
	if err != nil {
		writeStoreError(w, r, "career", err)
		return
	}

	auditLog(r, "career.update", "career", e.ID, "owner_id", e.UserID)
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/careers/{id}.
func (h *careersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	if err := h.careers.Delete(r.Context(), e.ID); err != nil {
		writeStoreError(w, r, "career", err)
		return
	}

	auditLog(r, "career.delete", "career", e.ID, "owner_id", e.UserID)
	w.WriteHeader(http.StatusNoContent)
}
