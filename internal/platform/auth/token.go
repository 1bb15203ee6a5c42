// Package auth implements the ABHA-style bearer token flow: a built-in token
// endpoint issues short-lived HMAC-signed JWTs, and middleware verifies them
// on every protected route. This stands in for a real ABHA integration, which
// is out of scope; the token shape and lifetimes are real so that clients
// exercise the same flow they would against production.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

// UserIDKey is the request-context key under which the authenticated subject
// is stored.
const UserIDKey contextKey = "user_id"

// Claims carried by issued tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies bearer tokens with a shared HMAC key.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewTokenService creates a TokenService. ttl bounds the lifetime of issued
// tokens.
func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     "namaste-terminology",
		ttl:        ttl,
	}
}

// Issue creates a signed token for the given subject. It returns the compact
// token string and its lifetime in seconds.
func (s *TokenService) Issue(subject string) (string, int64, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", 0, fmt.Errorf("signing token: %w", err)
	}
	return signed, int64(s.ttl.Seconds()), nil
}

// Verify parses and validates a compact token string.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// TokenHandler serves the token endpoint.
type TokenHandler struct {
	svc *TokenService
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(svc *TokenService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// RegisterRoutes registers POST /token on the root group.
func (h *TokenHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/token", h.IssueToken)
}

// IssueToken handles POST /token. It accepts the OAuth2 password-grant form
// shape (username/password) but performs no credential check beyond requiring
// a username — real ABHA verification is out of scope.
func (h *TokenHandler) IssueToken(c echo.Context) error {
	username := c.FormValue("username")
	if username == "" {
		username = "abha-user"
	}

	token, expiresIn, err := h.svc.Issue(username)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	})
}

// Middleware returns Echo middleware that requires a valid bearer token on
// every request, except those the skipper accepts. The verified subject is
// placed on the request context for the audit trail.
func Middleware(svc *TokenService, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := svc.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := context.WithValue(c.Request().Context(), UserIDKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware accepts every request and stamps a development user on
// the context. Active only when ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), UserIDKey, "dev-user")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DefaultSkipper exempts the token endpoint, the health check, and the root
// banner from authentication.
func DefaultSkipper(c echo.Context) bool {
	switch c.Path() {
	case "/", "/health", "/token":
		return true
	}
	return false
}

// UserIDFromContext returns the authenticated subject, or "" when absent.
func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
