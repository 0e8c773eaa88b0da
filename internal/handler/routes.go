package handler

import (
	"net/http"

	"github.com/msomdec/decision-log/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, decisions *service.DecisionService, limiter *service.RateLimiter, cookieSecure bool) {
	authHandler := NewAuthHandler(auth, limiter, cookieSecure)
	decisionHandler := NewDecisionHandler(decisions)

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/auth/me", RequireAuth(auth, http.HandlerFunc(authHandler.HandleMe)))
	mux.Handle("PUT /api/auth/profile", RequireAuth(auth, http.HandlerFunc(authHandler.HandleUpdateProfile)))

	// Decision reads are public; the store is a shared log with private
	// write access.
	mux.HandleFunc("GET /api/decisions", decisionHandler.HandleList)
	mux.HandleFunc("GET /api/decisions/{id}", decisionHandler.HandleGet)
	mux.HandleFunc("GET /api/stats", decisionHandler.HandleStats)

	mux.Handle("POST /api/decisions", RequireAuth(auth, http.HandlerFunc(decisionHandler.HandleCreate)))
	mux.Handle("PUT /api/decisions/{id}", RequireAuth(auth, http.HandlerFunc(decisionHandler.HandleUpdate)))
	mux.Handle("DELETE /api/decisions/{id}", RequireAuth(auth, http.HandlerFunc(decisionHandler.HandleDelete)))
	mux.Handle("PUT /api/decisions/{id}/retrospective", RequireAuth(auth, http.HandlerFunc(decisionHandler.HandleRetrospective)))
}
