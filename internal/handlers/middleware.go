package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"escaperoom/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const ClaimsContextKey ContextKey = "claims"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens        *security.TokenManager
	limiter       *security.RateLimiter
	platformToken string
}

// NewMiddleware creates a new middleware instance. platformToken may be empty,
// in which case the platform check is skipped.
func NewMiddleware(tokens *security.TokenManager, limiter *security.RateLimiter, platformToken string) *Middleware {
	return &Middleware{tokens: tokens, limiter: limiter, platformToken: platformToken}
}

// RequirePlatformToken verifies the shared secret the voice platform sends
// with every webhook call.
func (m *Middleware) RequirePlatformToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.platformToken != "" && r.Header.Get("X-Platform-Token") != m.platformToken {
			respondWithError(w, http.StatusForbidden, "unrecognized platform", "", nil)
			return
		}
		next(w, r)
	}
}

// RequireToken verifies the bearer session token and puts its claims on the
// request context.
func (m *Middleware) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "missing bearer token", "", nil)
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid or expired token", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects clients that exceed the login rate limit.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, "too many requests, slow down", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetClaimsFromContext retrieves the verified token claims from the request
// context.
func GetClaimsFromContext(ctx context.Context) *security.Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	if !ok {
		return nil
	}
	return claims
}
