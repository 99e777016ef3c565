// Package auth guards the administrative API surface. Terminals authenticate
// implicitly by knowing their own code; administrators present either the
// shared admin key header or a Bearer token obtained from it.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader is the header carrying the raw admin key.
const AdminKeyHeader = "X-Admin-Key"

// adminPrefixes lists route prefixes that require admin credentials.
// Player, pairing, and operational endpoints stay open: terminals are
// unattended and authenticate by terminal code alone.
var adminPrefixes = []string{
	"/api/v1/fleet/",
	"/api/v1/campaign/",
	"/api/v1/liveness/",
	"/api/v1/command/",
	"/api/v1/media/",
}

// Service validates admin credentials and issues access tokens.
type Service struct {
	adminKey     string // plain key, constant-time compared
	adminKeyHash []byte // bcrypt hash, preferred when configured
	tokens       *TokenService
	logger       *zap.Logger
}

// NewService creates an auth service. Exactly one of adminKey or adminKeyHash
// should be non-empty; when both are set the hash wins.
func NewService(adminKey string, adminKeyHash string, tokens *TokenService, logger *zap.Logger) *Service {
	return &Service{
		adminKey:     adminKey,
		adminKeyHash: []byte(adminKeyHash),
		tokens:       tokens,
		logger:       logger,
	}
}

// VerifyKey reports whether the presented admin key is correct.
func (s *Service) VerifyKey(key string) bool {
	if key == "" {
		return false
	}
	if len(s.adminKeyHash) > 0 {
		return bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(key)) == nil
	}
	if s.adminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.adminKey), []byte(key)) == 1
}

// RegisterRoutes registers the token exchange endpoint.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/token", s.handleToken)
}

// TokenRequest is the body for POST /api/v1/auth/token.
type TokenRequest struct {
	AdminKey string `json:"admin_key"`
}

// TokenResponse carries an issued admin access token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// handleToken exchanges the admin key for a short-lived Bearer token.
//
//	@Summary		Issue admin token
//	@Description	Exchanges the shared admin key for a short-lived JWT.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	TokenResponse
//	@Failure		401	{object}	server.Problem
//	@Router			/auth/token [post]
func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if !s.VerifyKey(req.AdminKey) {
		s.logger.Warn("admin key rejected", zap.String("remote", r.RemoteAddr))
		server.Unauthorized(w, "invalid admin key", r.URL.Path)
		return
	}

	token, expiresAt, err := s.tokens.IssueAccessToken()
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err))
		server.InternalError(w, "failed to issue token", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Middleware returns the admin guard applied to the whole server chain.
// Requests to admin-prefixed paths must carry a valid admin key header or
// Bearer token; everything else passes through.
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.isAdminPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if key := r.Header.Get(AdminKeyHeader); key != "" {
				if s.VerifyKey(key) {
					next.ServeHTTP(w, r)
					return
				}
				server.Unauthorized(w, "invalid admin key", r.URL.Path)
				return
			}

			authz := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
				if _, err := s.tokens.ValidateAccessToken(token); err == nil {
					next.ServeHTTP(w, r)
					return
				}
				server.Unauthorized(w, "invalid or expired token", r.URL.Path)
				return
			}

			server.Unauthorized(w, "admin credentials required", r.URL.Path)
		})
	}
}

func (s *Service) isAdminPath(path string) bool {
	for _, p := range adminPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
