package server

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/papaHasuo/daily-report-feedback/api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func newAuthTestServer(configured bool) *Server {
	srv := &Server{logger: log.New(io.Discard, "", 0), jwtAudience: "daily-report-api"}
	if configured {
		srv.jwtConfigs = []config.JWTConfig{{Issuer: "daily-report-auth", Secret: []byte(testSecret)}}
	}
	return srv
}

func callProtected(srv *Server, authorization string) *httptest.ResponseRecorder {
	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/daily_report_feedback", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    "daily-report-auth",
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"daily-report-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestAuthMiddlewarePassThroughWhenUnconfigured(t *testing.T) {
	// 開発モード(シークレット未設定)では検証なしで通す
	rec := callProtected(newAuthTestServer(false), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	rec := callProtected(newAuthTestServer(true), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsNonBearer(t *testing.T) {
	rec := callProtected(newAuthTestServer(true), "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsBadSignature(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := callProtected(newAuthTestServer(true), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongIssuer(t *testing.T) {
	claims := validClaims()
	claims.Issuer = "someone-else"

	rec := callProtected(newAuthTestServer(true), "Bearer "+signedToken(t, claims))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	rec := callProtected(newAuthTestServer(true), "Bearer "+signedToken(t, validClaims()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := withCORS([]string{"https://reports.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/daily_report_feedback", nil)
	req.Header.Set("Origin", "https://reports.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://reports.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithCORSIgnoresUnknownOrigin(t *testing.T) {
	handler := withCORS([]string{"https://reports.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
