package api

import (
	"errors"
	"net/http"

	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
)

// teamsHandler groups team and membership handlers.
type teamsHandler struct {
	teams TeamStore
}

func newTeamsHandler(teams TeamStore) *teamsHandler {
	return &teamsHandler{teams: teams}
}

// List handles GET /api/v1/teams. Only active teams are public.
func (h *teamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context(), true)
	if err != nil {
		writeStoreError(w, r, "teams", err)
		return
	}
	if teams == nil {
		teams = []*team.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

// Create handles POST /api/v1/admin/teams.
func (h *teamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in team.CreateTeamInput
	if !decodeBody(w, r, &in) {
		return
	}

	t, err := h.teams.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, "team", err)
		return
	}

	auditLog(r, "team.create", "team", t.ID, "name", t.Name)
	writeJSON(w, http.StatusCreated, t)
}

// Members handles GET /api/v1/teams/{id}/members.
func (h *teamsHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.teams.GetByID(r.Context(), id); err != nil {
		writeStoreError(w, r, "team", err)
		return
	}

	members, err := h.teams.ListMembers(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "members", err)
		return
	}
	if members == nil {
		members = []*team.Membership{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// canManage reports whether u leads teamID or is an admin.
func (h *teamsHandler) canManage(r *http.Request, u *auth.User, teamID string) (bool, error) {
	if u.IsAdmin() {
		return true, nil
	}
	m, err := h.teams.GetMembership(r.Context(), teamID, u.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Role == team.RoleLeader, nil
}

// AddMember handles PUT /api/v1/teams/{id}/members/{userId}.
func (h *teamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	teamID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	var req struct {
		Role team.MemberRole `json:"role" validate:"omitempty,oneof=leader member invited"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = team.RoleMember
	}

	if _, err := h.teams.GetByID(r.Context(), teamID); err != nil {
		writeStoreError(w, r, "team", err)
		return
	}
	allowed, err := h.canManage(r, caller, teamID)
	if err != nil {
		writeStoreError(w, r, "membership", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "only the team leader or an admin can manage members")
		return
	}

	_, err = h.teams.GetMembership(r.Context(), teamID, userID)
	switch {
	case err == nil:
		writeError(w, http.StatusConflict, "conflict", "user is already a member of this team")
		return
	case !errors.Is(err, pgx.ErrNoRows):
		writeStoreError(w, r, "membership", err)
		return
	}

	m, err := h.teams.AddMember(r.Context(), teamID, userID, req.Role)
	if err != nil {
		writeStoreError(w, r, "membership", err)
		return
	}

	auditLog(r, "team.add_member", "team", teamID, "member_id", userID, "role", string(req.Role))
	writeJSON(w, http.StatusCreated, m)
}

// RemoveMember handles DELETE /api/v1/teams/{id}/members/{userId}. Members
// may remove themselves.
func (h *teamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	teamID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	if caller.ID != userID {
		allowed, err := h.canManage(r, caller, teamID)
		if err != nil {
			writeStoreError(w, r, "membership", err)
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "forbidden", "only the team leader or an admin can manage members")
			return
		}
	}

	if _, err := h.teams.GetMembership(r.Context(), teamID, userID); err != nil {
		writeStoreError(w, r, "membership", err)
		return
	}
	if err := h.teams.RemoveMember(r.Context(), teamID, userID); err != nil {
		writeStoreError(w, r, "membership", err)
		return
	}

	auditLog(r, "team.remove_member", "team", teamID, "member_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
