package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
)

type contextKey string

const (
	// AdminKey is the key for the authenticated admin in the request context
	AdminKey contextKey = "admin"

	authCookieName = "admin_token"
	bearerSchema   = "Bearer "
)

// TokenVerifier checks a bearer token and returns the admin it belongs to
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.AdminIdentity, error)
}

// AdminAuth creates middleware that rejects requests without a live admin session
func AdminAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			identity, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), AdminKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the admin token from the Authorization header or cookie
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, bearerSchema) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerSchema))
	}

	cookie, err := r.Cookie(authCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// SetAuthCookie sets the admin token cookie
func SetAuthCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/api/admin",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  expiresAt,
	})
}

// ClearAuthCookie removes the admin token cookie
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/api/admin",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetAdmin extracts the authenticated admin from request context
func GetAdmin(ctx context.Context) (*models.AdminIdentity, bool) {
	identity, ok := ctx.Value(AdminKey).(*models.AdminIdentity)
	return identity, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
