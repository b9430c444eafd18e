package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/troupe.json.
const wellKnownManifest = `{
  "name": "Troupe",
  "description": "Talent booking backend for dancers, teams and clients",
  "version": "0.1.0",
  "api_base": "/api/v1",
  "auth": {
    "type": "bearer",
    "header": "Authorization",
    "login": "/api/v1/auth/login"
  },
  "endpoints": {
    "display_order": "/api/v1/display-order",
    "teams": "/api/v1/teams",
    "careers": "/api/v1/accounts/{id}/careers",
    "proposals": "/api/v1/proposals",
    "claim": "/api/v1/claim",
    "notifications": "/api/v1/notifications"
  },
  "health": "/health",
  "metrics": "/metrics"
}`

// WellKnownHandler returns the static troupe well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
