package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/msomdec/decision-log/internal/handler"
	"github.com/msomdec/decision-log/internal/service"
)

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHandleRegister(t *testing.T) {
	mux, _, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"password123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		User struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		} `json:"user"`
	}
	decodeBody(t, w, &resp)
	if resp.User.ID == 0 || resp.User.Name != "kim" || resp.User.Avatar != "K" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}

	// The auth cookie is set on successful registration.
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected auth_token cookie")
	}

	// The response body never leaks the credential.
	if strings.Contains(w.Body.String(), "password") {
		t.Fatal("response must not contain credential fields")
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	mux, _, _ := newTestMux(t)

	body := `{"name":"kim","email":"dup@x.com","password":"password123"}`
	if w := doJSON(t, mux, http.MethodPost, "/api/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}
	if w := doJSON(t, mux, http.MethodPost, "/api/auth/register", body); w.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", w.Code)
	}
}

func TestHandleRegister_InvalidInput(t *testing.T) {
	mux, _, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"short"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	mux, _, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"password123"}`)

	w := doJSON(t, mux, http.MethodPost, "/api/auth/login",
		`{"email":"kim@x.com","password":"password123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodPost, "/api/auth/login",
		`{"email":"kim@x.com","password":"wrong-password"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}
}

func TestHandleMe(t *testing.T) {
	mux, auth, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"password123"}`)

	w := doJSON(t, mux, http.MethodGet, "/api/auth/me", "", authCookie(t, auth, "kim@x.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Without a cookie the endpoint rejects.
	if w := doJSON(t, mux, http.MethodGet, "/api/auth/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", w.Code)
	}
}

func TestHandleUpdateProfile(t *testing.T) {
	mux, auth, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"password123"}`)

	w := doJSON(t, mux, http.MethodPut, "/api/auth/profile",
		`{"name":"sora"}`, authCookie(t, auth, "kim@x.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		User struct {
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		} `json:"user"`
	}
	decodeBody(t, w, &resp)
	if resp.User.Name != "sora" || resp.User.Avatar != "S" {
		t.Fatalf("unexpected updated profile: %+v", resp.User)
	}
}

func TestHandleLogout(t *testing.T) {
	mux, auth, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/auth/register",
		`{"name":"kim","email":"kim@x.com","password":"password123"}`)

	w := doJSON(t, mux, http.MethodPost, "/api/auth/logout", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if auth.CurrentUser() != nil {
		t.Fatal("logout should clear the active session")
	}
}

func TestRateLimit_CredentialEndpoints(t *testing.T) {
	auth, decisions := newTestServices(t)
	mux := http.NewServeMux()
	// Tiny bucket with no refill to trip immediately.
	handler.RegisterRoutes(mux, auth, decisions, service.NewRateLimiter(0, 1), false)

	body := `{"email":"kim@x.com","password":"password123"}`
	if w := doJSON(t, mux, http.MethodPost, "/api/auth/login", body); w.Code == http.StatusTooManyRequests {
		t.Fatalf("first attempt should not be limited")
	}
	if w := doJSON(t, mux, http.MethodPost, "/api/auth/login", body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second attempt, got %d", w.Code)
	}
}
