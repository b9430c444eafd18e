package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/metrics"
	"github.com/alecgard/troupe/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Accounts      AccountStore
	Careers       CareerStore
	Teams         TeamStore
	Proposals     ProposalStore
	Notifications NotificationStore
	Permissions   PermissionStore
	Claims        ClaimService
	Orders        OrderService
	Sessions      auth.SessionLookup

	Metrics      *metrics.Metrics
	ClaimLimiter *ratelimit.Limiter
	LoginLimiter *ratelimit.Limiter
	DB           Pinger
	Logger       *slog.Logger

	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware(logger))
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(requestLogger(deps.Metrics))
	if deps.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(deps.MaxBodyBytes))
	}

	var onAuthFail []auth.FailureFunc
	var onLimited []func(scope string)
	if deps.Metrics != nil {
		onAuthFail = append(onAuthFail, deps.Metrics.IncAuthFailure)
		onLimited = append(onLimited, deps.Metrics.IncRateLimitRejection)
	}
	limit := func(l *ratelimit.Limiter, scope string, key ratelimit.KeyFunc) func(http.Handler) http.Handler {
		if l == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(l, scope, key, onLimited...)
	}
	member := auth.MemberAuthMiddleware(deps.Sessions, onAuthFail...)
	admin := auth.AdminSessionMiddleware(deps.Sessions, onAuthFail...)

	// Handlers.
	authH := newAuthHandler(deps.Accounts, func(kind string) {
		for _, fn := range onAuthFail {
			fn(kind)
		}
	})
	var listing ListingInvalidator
	if deps.Orders != nil {
		listing = deps.Orders
	}
	claims := newClaimsHandler(deps.Claims, deps.Accounts, listing)
	orders := newOrderHandler(deps.Orders)
	accounts := newAccountsHandler(deps.Accounts, deps.Notifications, listing)
	careers := newCareersHandler(deps.Careers, deps.Permissions)
	profiles := newProfileHandler(deps.Accounts, deps.Permissions, listing)
	teams := newTeamsHandler(deps.Teams)
	proposals := newProposalsHandler(deps.Proposals, deps.Teams, deps.Notifications)
	notes := newNotificationsHandler(deps.Notifications)
	perms := newPermissionsHandler(deps.Permissions)

	r.Get("/health", healthHandler(deps.DB))
	r.Get("/.well-known/troupe.json", WellKnownHandler)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Exposition())
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Public routes.
		api.Post("/auth/signup", authH.Signup)
		api.With(limit(deps.LoginLimiter, "login", ratelimit.ByClientIP)).Post("/auth/login", authH.Login)
		api.Get("/display-order", orders.Listing)
		api.Get("/teams", teams.List)
		api.Get("/teams/{id}/members", teams.Members)
		api.Get("/accounts/{id}/careers", careers.ListByAccount)
		api.With(auth.OptionalAuthMiddleware(deps.Sessions)).Post("/proposals", proposals.Create)

		// Session routes.
		api.Group(func(mr chi.Router) {
			mr.Use(member)

			mr.Get("/auth/me", authH.Me)
			mr.Post("/auth/logout", authH.Logout)

			mr.Patch("/accounts/{id}/profile", profiles.Update)

			mr.With(limit(deps.ClaimLimiter, "claim", ratelimit.ByUser)).Post("/claim", claims.Submit)

			mr.Post("/careers", careers.Create)
			mr.Put("/careers/{id}", careers.Update)
			mr.Delete("/careers/{id}", careers.Delete)

			mr.Put("/teams/{id}/members/{userId}", teams.AddMember)
			mr.Delete("/teams/{id}/members/{userId}", teams.RemoveMember)

			mr.Get("/proposals/mine", proposals.Mine)
			mr.Patch("/proposals/{id}", proposals.UpdateStatus)

			mr.Get("/notifications", notes.List)
			mr.Post("/notifications/{id}/read", notes.MarkRead)
		})

		// Claim resolution is also reachable outside the admin prefix.
		api.With(admin).Patch("/claims/{id}", claims.Resolve)

		// Admin routes; the role is re-read from the store per request.
		api.Route("/admin", func(ar chi.Router) {
			ar.Use(admin)

			ar.Get("/claims", claims.List)
			ar.Patch("/claims/{id}", claims.Resolve)
			ar.Post("/direct-link", claims.DirectLink)

			ar.Get("/display-order", orders.Get)
			ar.Put("/display-order", orders.Save)
			ar.Post("/display-order/move", orders.Move)
			ar.Post("/display-order/initialize", orders.Initialize)

			ar.Get("/accounts", accounts.List)
			ar.Post("/accounts/{id}/approve-role", accounts.ApproveRole)
			ar.Put("/accounts/{id}/hidden", accounts.SetHidden)
			ar.Delete("/accounts/{id}", accounts.Delete)

			ar.Post("/teams", teams.Create)

			ar.Post("/permissions", perms.Create)
			ar.Get("/permissions", perms.List)
			ar.Delete("/permissions/{id}", perms.Delete)

			if deps.Metrics != nil {
				ar.Get("/metrics", deps.Metrics.Handler())
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}

// healthHandler reports liveness and, when a database is configured, its
// reachability.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			loggerFrom(r).Warn("health check: database unreachable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
	}
}
