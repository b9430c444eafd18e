package api

import (
	"net/http"
	"strconv"

	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/notification"
)

type notificationsHandler struct {
	notes NotificationStore
}

func newNotificationsHandler(notes NotificationStore) *notificationsHandler {
	return &notificationsHandler{notes: notes}
}

// List handles GET /api/v1/notifications?unread=true&limit=50.
func (h *notificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	q := r.URL.Query()
	unread, _ := strconv.ParseBool(q.Get("unread"))
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	notes, err := h.notes.ListByUser(r.Context(), u.ID, unread, limit)
	if err != nil {
		writeStoreError(w, r, "notifications", err)
		return
	}
	if notes == nil {
		notes = []*notification.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notes})
}

// MarkRead handles POST /api/v1/notifications/{id}/read.
func (h *notificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.notes.MarkRead(r.Context(), id, u.ID)
	if err != nil {
		writeStoreError(w, r, "notification", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
