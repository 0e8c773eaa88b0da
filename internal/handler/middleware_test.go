package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/msomdec/decision-log/internal/handler"
	"github.com/msomdec/decision-log/internal/repository/sqlite"
	"github.com/msomdec/decision-log/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests"

func newTestServices(t *testing.T) (*service.AuthService, *service.DecisionService) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kv := db.KV()
	// Use bcrypt cost 4 for fast tests.
	auth := service.NewAuthService(kv, testJWTSecret, 4)
	decisions := service.NewDecisionService(kv)
	if err := auth.Load(context.Background()); err != nil {
		t.Fatalf("Load auth: %v", err)
	}
	if err := decisions.Load(context.Background()); err != nil {
		t.Fatalf("Load decisions: %v", err)
	}
	return auth, decisions
}

func newTestMux(t *testing.T) (*http.ServeMux, *service.AuthService, *service.DecisionService) {
	t.Helper()
	auth, decisions := newTestServices(t)
	mux := http.NewServeMux()
	// Generous limiter so rate limiting never interferes with tests.
	handler.RegisterRoutes(mux, auth, decisions, service.NewRateLimiter(1000, 1000), false)
	return mux, auth, decisions
}

func authCookie(t *testing.T, auth *service.AuthService, email string) *http.Cookie {
	t.Helper()
	user := auth.CurrentUser()
	if user == nil || user.Email != email {
		t.Fatalf("expected active session for %s", email)
	}
	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &http.Cookie{Name: "auth_token", Value: token}
}

func TestRequireAuth_ValidJWT(t *testing.T) {
	auth, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "valid", "valid@example.com", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := handler.UserFromContext(r.Context()); user != nil {
			gotUser = user.Name
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(authCookie(t, auth, "valid@example.com"))
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != "valid" {
		t.Fatalf("expected user 'valid', got %q", gotUser)
	}
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	auth, _ := newTestServices(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	auth, _ := newTestServices(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "garbage"})
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.SecurityHeaders(inner).ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
}
