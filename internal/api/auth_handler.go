package api

import (
	"net/http"
	"strings"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/auth"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	accounts AccountStore
	onFail   func(kind string)
}

func newAuthHandler(accounts AccountStore, onFail func(kind string)) *authHandler {
	if onFail == nil {
		onFail = func(string) {}
	}
	return &authHandler{accounts: accounts, onFail: onFail}
}

type signupRequest struct {
	Email         string       `json:"email" validate:"required,email,max=254"`
	Password      string       `json:"password" validate:"required,min=8,max=72"`
	Name          string       `json:"name" validate:"required,max=100"`
	RequestedRole account.Role `json:"requested_role" validate:"omitempty,requested_role"`
}

// Signup handles POST /api/v1/auth/signup. Every account starts as general;
// a requested role waits for admin approval.
func (h *authHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := account.CreateAccountInput{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Type:     account.RoleGeneral,
	}
	if req.RequestedRole != "" {
		role := req.RequestedRole
		in.PendingType = &role
	}

	a, err := h.accounts.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}

	token, sess, err := h.accounts.CreateSession(r.Context(), a.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "signup", "account", a.ID, "requested_role", string(req.RequestedRole))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"account":    a,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.accounts.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !account.CheckPassword(a, req.Password) {
		h.onFail("login")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, sess, err := h.accounts.CreateSession(r.Context(), a.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"account":    a,
	})
}

// Me handles GET /api/v1/auth/me. The account is re-read so claim and role
// changes show up without a new login.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	a, err := h.accounts.GetByID(r.Context(), u.ID)
	if err != nil {
		writeStoreError(w, r, "account", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.accounts.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}
