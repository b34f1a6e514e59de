// Package auth resolves the acting user from the bearer credential the
// browser presents.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned while parsing or issuing credentials
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoSecret     = errors.New("signing secret not configured")
)

// Claims are the claims read from the credential. The user id comes from
// user_id and falls back to the subject.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user id carried by the claims
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

type tokenKey struct{}

// WithToken attaches the raw credential to ctx
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the raw credential attached to ctx
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Authenticator parses credentials. Without a secret, signatures are not
// checked and claims are only read; the payment API remains the authority.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator for HS256 credentials
func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{logger: logger}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Parse validates token and returns its claims
func (a *Authenticator) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	if a.secret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs a credential for userID. Used by development tooling and tests.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	if a.secret == nil {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// CurrentUserID returns the user id of the credential in ctx, or "" when
// there is none or it cannot be read.
func (a *Authenticator) CurrentUserID(ctx context.Context) string {
	token, ok := TokenFrom(ctx)
	if !ok {
		return ""
	}
	claims, err := a.Parse(token)
	if err != nil {
		a.logger.Warn("Ignoring unreadable credential", "error", err)
		return ""
	}
	return claims.User()
}

// Middleware attaches a bearer credential to the request context. Requests
// without one pass through anonymously; a credential that fails validation is
// rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			writeUnauthorized(w, "Invalid Authorization header format (expected 'Bearer <token>')")
			return
		}
		if _, err := a.Parse(parts[1]); err != nil {
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), parts[1])))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
