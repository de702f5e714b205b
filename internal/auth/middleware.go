// backend/internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
)

// TokenParser is satisfied by *Service.
type TokenParser interface {
	ParseToken(ctx context.Context, raw string) (*Claims, error)
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) models.Role {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Role
	}
	return ""
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.Wrap(apperr.ErrUnauthorized, "authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.Wrap(apperr.ErrUnauthorized, "invalid token format")
	}
	return parts[1], nil
}

func JWTMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				apperr.Write(w, err)
				return
			}
			claims, err := parser.ParseToken(r.Context(), raw)
			if err != nil {
				apperr.Write(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireModerator gates administrative routes. It mirrors what the UI
// hides; row-level enforcement belongs to the store.
func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !models.IsModerator(RoleFromContext(r.Context())) {
			apperr.Write(w, apperr.Forbidden("moderators only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
