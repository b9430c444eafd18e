package api

import (
	"net/http"

	"github.com/alecgard/troupe/internal/permission"
	"github.com/google/uuid"
)

// permissionsHandler is the admin console for data access grants.
type permissionsHandler struct {
	permissions PermissionStore
}

func newPermissionsHandler(permissions PermissionStore) *permissionsHandler {
	return &permissionsHandler{permissions: permissions}
}

// Create handles POST /api/v1/admin/permissions.
func (h *permissionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in permission.GrantInput
	if !decodeBody(w, r, &in) {
		return
	}

	g, err := h.permissions.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, "permission", err)
		return
	}

	auditLog(r, "permission.grant", "permission", g.ID,
		"grantee_id", g.UserID, "owner_id", g.OriginalOwnerID,
		"data_type", string(g.DataType), "access_level", string(g.AccessLevel))
	writeJSON(w, http.StatusCreated, g)
}

// List handles GET /api/v1/admin/permissions?user_id=.
func (h *permissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "user_id must be a UUID")
			return
		}
	}

	grants, err := h.permissions.List(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, "permissions", err)
		return
	}
	if grants == nil {
		grants = []*permission.Grant{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"permissions": grants})
}

// Delete handles DELETE /api/v1/admin/permissions/{id}.
func (h *permissionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.permissions.Delete(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "permission", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "permission not found")
		return
	}

	auditLog(r, "permission.revoke", "permission", id)
	w.WriteHeader(http.StatusNoContent)
}
