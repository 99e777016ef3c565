package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testService(t *testing.T) *Service {
	t.Helper()
	tokens := NewTokenService([]byte("test-secret"), 15*time.Minute)
	return NewService("sesame", "", tokens, zap.NewNop())
}

func TestVerifyKey(t *testing.T) {
	s := testService(t)

	if !s.VerifyKey("sesame") {
		t.Error("correct key rejected")
	}
	if s.VerifyKey("wrong") {
		t.Error("wrong key accepted")
	}
	if s.VerifyKey("") {
		t.Error("empty key accepted")
	}
}

func TestVerifyKey_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	tokens := NewTokenService([]byte("test-secret"), 15*time.Minute)
	s := NewService("", string(hash), tokens, zap.NewNop())

	if !s.VerifyKey("sesame") {
		t.Error("correct key rejected against hash")
	}
	if s.VerifyKey("open") {
		t.Error("wrong key accepted against hash")
	}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	tokens := NewTokenService([]byte("test-secret"), time.Minute)

	token, expiresAt, err := tokens.IssueAccessToken()
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("token already expired at issuance")
	}

	claims, err := tokens.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
}

func TestTokenService_RejectsTampered(t *testing.T) {
	tokens := NewTokenService([]byte("test-secret"), time.Minute)
	other := NewTokenService([]byte("other-secret"), time.Minute)

	token, _, err := tokens.IssueAccessToken()
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("token signed with different secret accepted")
	}
}

func TestMiddleware_GuardsAdminPaths(t *testing.T) {
	s := testService(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := s.Middleware()(inner)

	tests := []struct {
		name    string
		path    string
		key     string
		bearer  bool
		wantRC  int
	}{
		{"admin path without credentials", "/api/v1/fleet/terminals", "", false, http.StatusUnauthorized},
		{"admin path with key", "/api/v1/fleet/terminals", "sesame", false, http.StatusOK},
		{"admin path with wrong key", "/api/v1/campaign/campaigns", "nope", false, http.StatusUnauthorized},
		{"admin path with token", "/api/v1/command/queue/BOX-01", "", true, http.StatusOK},
		{"player path open", "/api/v1/player/config", "", false, http.StatusOK},
		{"pairing path open", "/api/v1/pairing/start", "", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			if tt.bearer {
				token, _, err := s.tokens.IssueAccessToken()
				if err != nil {
					t.Fatalf("issue token: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.wantRC {
				t.Errorf("status = %d, want %d", w.Code, tt.wantRC)
			}
		})
	}
}

func TestHandleToken(t *testing.T) {
	s := testService(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest("POST", "/api/v1/auth/token",
		strings.NewReader(`{"admin_key":"sesame"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"token"`) {
		t.Errorf("response missing token: %s", w.Body.String())
	}
}

func TestHandleToken_WrongKey(t *testing.T) {
	s := testService(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest("POST", "/api/v1/auth/token",
		strings.NewReader(`{"admin_key":"wrong"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
