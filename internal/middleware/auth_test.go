package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/session"
)

func newGuard(t *testing.T) (*AccessGuard, *session.Authority) {
	t.Helper()
	authority, err := session.New([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new authority: %v", err)
	}
	return NewAccessGuard(authority, zerolog.Nop()), authority
}

func TestAccessGuardMissingHeader(t *testing.T) {
	guard, _ := newGuard(t)

	called := false
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	if called {
		t.Fatalf("downstream handler must not run without a token")
	}
}

func TestAccessGuardMalformedHeader(t *testing.T) {
	guard, authority := newGuard(t)
	token, err := authority.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("downstream handler must not run")
	}))

	for _, header := range []string{"Basic " + token, token, "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/properties", nil)
		req.Header.Set("Authorization", header)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, res.Code)
		}
	}
}

func TestAccessGuardInvalidToken(t *testing.T) {
	guard, _ := newGuard(t)

	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("downstream handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestAccessGuardValidToken(t *testing.T) {
	guard, authority := newGuard(t)
	token, err := authority.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotUsername string
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername = Username(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if gotUsername != "alice" {
		t.Fatalf("username in context = %q, want alice", gotUsername)
	}
}
