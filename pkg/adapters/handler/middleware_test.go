package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urlzip/urlzip/pkg/config"
	"github.com/urlzip/urlzip/pkg/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOwnerMiddleware(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:     "testservlet",
		AllowedOrigin: "*",
	}
	mw := NewMiddleware(cfg, discardLogger())

	tests := []struct {
		name           string
		cookieValue    string
		bearer         string
		expectedStatus int
		expectedOwner  string
	}{
		{
			name:           "No Token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Cookie",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid Cookie",
			cookieValue:    generateTestToken(t, cfg.JWTSecret, "google-1", time.Minute),
			expectedStatus: http.StatusOK,
			expectedOwner:  "google-1",
		},
		{
			name:           "Valid Bearer",
			bearer:         generateTestToken(t, cfg.JWTSecret, "google-2", time.Minute),
			expectedStatus: http.StatusOK,
			expectedOwner:  "google-2",
		},
		{
			name:           "Bearer Wins Over Cookie",
			bearer:         generateTestToken(t, cfg.JWTSecret, "google-3", time.Minute),
			cookieValue:    generateTestToken(t, cfg.JWTSecret, "google-4", time.Minute),
			expectedStatus: http.StatusOK,
			expectedOwner:  "google-3",
		},
		{
			name:           "Expired Token",
			bearer:         generateTestToken(t, cfg.JWTSecret, "google-5", -time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			bearer:         generateTestToken(t, "other-secret", "google-6", time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/links", nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.cookieValue})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			var gotOwner string
			rr := httptest.NewRecorder()
			handler := mw.Owner(mw.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOwner, _ = OwnerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})))

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedOwner, gotOwner)
		})
	}
}

func TestOwnerMiddlewareAnonymousPassThrough(t *testing.T) {
	mw := NewMiddleware(&config.Config{JWTSecret: "s"}, discardLogger())

	called := false
	handler := mw.Owner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := OwnerFromContext(r.Context())
		assert.False(t, ok)
	}))

	req := httptest.NewRequest("POST", "/api/shorten-url", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestCORS(t *testing.T) {
	mw := NewMiddleware(&config.Config{AllowedOrigin: "https://app.urlzip.in"}, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := mw.CORS(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/shorten-url", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.urlzip.in", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rr.Header().Get("Access-Control-Allow-Headers"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/analytics", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "https://app.urlzip.in", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/Abc123", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogSetsRequestID(t *testing.T) {
	mw := NewMiddleware(&config.Config{}, discardLogger())

	var seen string
	handler := mw.RequestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusAccepted, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "upstream-id")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "upstream-id", seen)
}

func generateTestToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	expirationTime := time.Now().Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
