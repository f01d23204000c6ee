package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testJWTConfig = JWTConfig{
	Secret: []byte("test-secret"),
	TTL:    time.Hour,
}

func TestIssueAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testJWTConfig, userID, "doc@clinic.test", RoleDoctor)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	claims, err := ParseToken(testJWTConfig, token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}

	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("expected role DOCTOR, got %s", claims.Role)
	}
	if claims.Email != "doc@clinic.test" {
		t.Errorf("expected email doc@clinic.test, got %s", claims.Email)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := IssueToken(testJWTConfig, uuid.New(), "", RolePatient)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	_, err = ParseToken(JWTConfig{Secret: []byte("other-secret"), TTL: time.Hour}, token)
	if err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	expired := JWTConfig{Secret: testJWTConfig.Secret, TTL: -time.Minute}
	token, err := IssueToken(expired, uuid.New(), "", RolePatient)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	if _, err := ParseToken(testJWTConfig, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func doAuthenticatedRequest(t *testing.T, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/api/v1/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
	}, JWTMiddleware(testJWTConfig))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testJWTConfig, userID, "", RolePatient)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	rec := doAuthenticatedRequest(t, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != userID.String() {
		t.Errorf("expected body %s, got %s", userID, rec.Body.String())
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	rec := doAuthenticatedRequest(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing header, got %d", rec.Code)
	}
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	rec := doAuthenticatedRequest(t, "Token abc")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed header, got %d", rec.Code)
	}
}

func TestJWTMiddleware_GarbageToken(t *testing.T) {
	rec := doAuthenticatedRequest(t, "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestUserUUIDFromContext_Unauthenticated(t *testing.T) {
	if got := UserUUIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != uuid.Nil {
		t.Errorf("expected uuid.Nil, got %s", got)
	}
}
