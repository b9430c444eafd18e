package api

import (
	"net/http"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/permission"
)

// profileHandler serves profile edits. Role changes go through the admin
// approve-role flow instead.
type profileHandler struct {
	accounts    AccountStore
	permissions PermissionStore
	listing     ListingInvalidator
}

func newProfileHandler(accounts AccountStore, permissions PermissionStore, listing ListingInvalidator) *profileHandler {
	return &profileHandler{accounts: accounts, permissions: permissions, listing: listing}
}

type updateProfileRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	NameEN       *string `json:"name_en" validate:"omitempty,max=100"`
	Introduction *string `json:"introduction" validate:"omitempty,max=4000"`
	InstagramURL *string `json:"instagram_url" validate:"omitempty,url"`
	YoutubeURL   *string `json:"youtube_url" validate:"omitempty,url"`
	TiktokURL    *string `json:"tiktok_url" validate:"omitempty,url"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url"`
}

// Update handles PATCH /api/v1/accounts/{id}/profile. The owner, an admin
// or the holder of a profile write grant may edit.
func (h *profileHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !u.CanActFor(id) {
		allowed, err := h.permissions.CanWrite(r.Context(), u.ID, id, permission.DataProfile)
		if err != nil {
			writeStoreError(w, r, "permission", err)
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "forbidden", "cannot edit this profile")
			return
		}
	}

	in := account.UpdateProfileInput{
		Name:         req.Name,
		NameEN:       req.NameEN,
		Introduction: req.Introduction,
		InstagramURL: req.InstagramURL,
		YoutubeURL:   req.YoutubeURL,
		TiktokURL:    req.TiktokURL,
		ProfileImage: req.ProfileImage,
	}
	if in.Empty() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "no profile fields to update")
		return
	}

	a, err := h.accounts.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}
	invalidateListing(r, h.listing)

	if u.ID != id {
		auditLog(r, "account.update_profile", "account", id)
	}
	writeJSON(w, http.StatusOK, a)
}
