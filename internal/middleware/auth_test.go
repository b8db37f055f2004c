package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/auth"
	"github.com/vyrodovalexey/shoplist/internal/model"
)

type stubAuthenticator struct {
	info *auth.AuthInfo
	err  error
}

func (s *stubAuthenticator) Authenticate(*http.Request) (*auth.AuthInfo, error) {
	return s.info, s.err
}

func (s *stubAuthenticator) Method() auth.AuthMethod {
	return auth.AuthMethodAPIKey
}

func TestAuth_BypassedRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "health", method: http.MethodGet, path: "/health"},
		{name: "ready", method: http.MethodGet, path: "/ready"},
		{name: "metrics", method: http.MethodGet, path: "/metrics"},
		{name: "health sub-path", method: http.MethodGet, path: "/health/live"},
		{name: "preflight", method: http.MethodOptions, path: "/api/v1/finalize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := Auth(&stubAuthenticator{err: auth.ErrUnauthenticated}, zap.NewNop())(okHandler())
			w := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			// Assert
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestAuth_ProtectedRequests(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		err            error
		wantAuthHeader string
	}{
		{name: "no credentials", path: "/api/v1/items", err: auth.ErrUnauthenticated, wantAuthHeader: `Basic realm="shoplist", API-Key`},
		{name: "bad password", path: "/api/v1/items", err: fmt.Errorf("%w: wrong password", auth.ErrInvalidCredentials), wantAuthHeader: `Basic realm="shoplist"`},
		{name: "bad key", path: "/api/v1/finalize", err: auth.ErrInvalidAPIKey, wantAuthHeader: "API-Key"},
		{name: "websocket feed", path: "/ws", err: auth.ErrUnauthenticated, wantAuthHeader: `Basic realm="shoplist", API-Key`},
		{name: "prefix is not a sub-path", path: "/healthXXX", err: auth.ErrUnauthenticated, wantAuthHeader: `Basic realm="shoplist", API-Key`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			handler := Auth(&stubAuthenticator{err: tt.err}, zap.NewNop())(next)
			w := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			// Assert
			if called {
				t.Error("next handler called for unauthenticated request")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != tt.wantAuthHeader {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantAuthHeader)
			}

			var body model.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != http.StatusUnauthorized || body.Message == "" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestAuth_StoresIdentity(t *testing.T) {
	// Arrange
	var subject string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if info, ok := auth.FromContext(r.Context()); ok {
			subject = info.Subject
		}
	})
	handler := Auth(&stubAuthenticator{info: &auth.AuthInfo{Subject: "tablet"}}, zap.NewNop())(next)

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	// Assert
	if subject != "tablet" {
		t.Errorf("subject = %q, want tablet", subject)
	}
}
