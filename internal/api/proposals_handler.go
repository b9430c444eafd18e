package api

import (
	"errors"
	"net/http"

	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
)

// proposalsHandler groups booking request handlers.
type proposalsHandler struct {
	proposals ProposalStore
	teams     TeamStore
	notes     NotificationStore
}

func newProposalsHandler(proposals ProposalStore, teams TeamStore, notes NotificationStore) *proposalsHandler {
	return &proposalsHandler{proposals: proposals, teams: teams, notes: notes}
}

// Create handles POST /api/v1/proposals. Anonymous callers must leave
// contact details; signed-in callers become the proposal's client.
func (h *proposalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in proposal.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.DancerID == nil && in.TeamID == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "dancer_id or team_id is required")
		return
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "end_date must not be before start_date")
		return
	}

	if u := auth.UserFromContext(r.Context()); u != nil {
		id := u.ID
		in.ClientID = &id
	} else if in.ContactName == "" || in.ContactEmail == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "contact_name and contact_email are required without a session")
		return
	}

	var t *team.Team
	if in.TeamID != nil {
		var err error
		if t, err = h.teams.GetByID(r.Context(), *in.TeamID); err != nil {
			writeStoreError(w, r, "team", err)
			return
		}
	}

	p, err := h.proposals.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, "proposal", err)
		return
	}

	receiver := p.DancerID
	if receiver == nil && t != nil {
		receiver = t.LeaderID
	}
	if receiver != nil {
		h.notify(r, *receiver, notification.TypeProposalReceived, "New proposal", p.Title, p.ID)
	}

	writeJSON(w, http.StatusCreated, p)
}

// Mine handles GET /api/v1/proposals/mine: proposals the caller sent,
// received directly, or received through one of their teams.
func (h *proposalsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	memberships, err := h.teams.ListByUser(r.Context(), u.ID)
	if err != nil {
		writeStoreError(w, r, "memberships", err)
		return
	}
	teamIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if m.Role != team.RoleInvited {
			teamIDs = append(teamIDs, m.TeamID)
		}
	}

	proposals, err := h.proposals.ListForUser(r.Context(), u.ID, teamIDs)
	if err != nil {
		writeStoreError(w, r, "proposals", err)
		return
	}
	if proposals == nil {
		proposals = []*proposal.Proposal{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": proposals})
}

// canUpdate reports whether u is the client, the receiving dancer, the
// receiving team's leader, or an admin.
func (h *proposalsHandler) canUpdate(r *http.Request, u *auth.User, p *proposal.Proposal) (bool, error) {
	if u.IsAdmin() || (p.ClientID != nil && *p.ClientID == u.ID) || (p.DancerID != nil && *p.DancerID == u.ID) {
		return true, nil
	}
	if p.TeamID == nil {
		return false, nil
	}
	m, err := h.teams.GetMembership(r.Context(), *p.TeamID, u.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Role == team.RoleLeader, nil
}

// UpdateStatus handles PATCH /api/v1/proposals/{id}.
func (h *proposalsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Status proposal.Status `json:"status" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown proposal status")
		return
	}

	p, err := h.proposals.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "proposal", err)
		return
	}
	allowed, err := h.canUpdate(r, u, p)
	if err != nil {
		writeStoreError(w, r, "membership", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "cannot update this proposal")
		return
	}

	updated, err := h.proposals.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeStoreError(w, r, "proposal", err)
		return
	}

	if p.ClientID != nil && *p.ClientID != u.ID {
		h.notify(r, *p.ClientID, notification.TypeStatusUpdated,
			"Proposal status updated", p.Title+": "+string(req.Status), p.ID)
	}

	auditLog(r, "proposal.update_status", "proposal", id, "from", string(p.Status), "to", string(req.Status))
	writeJSON(w, http.StatusOK, updated)
}

// notify sends a best-effort notification.
func (h *proposalsHandler) notify(r *http.Request, userID string, typ notification.Type, title, message, relatedID string) {
	_, err := h.notes.Create(r.Context(), notification.CreateInput{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: &relatedID,
	})
	if err != nil {
		loggerFrom(r).Warn("proposal notification failed", "user_id", userID, "type", string(typ), "error", err)
	}
}
