package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errMissingToken = errors.New("auth: missing bearer token")

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow the
// values this package stores in a request context.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// RequireSession enforces a valid session token on protected routes.
//
// The token is read from the Authorization header ("Bearer <token>") —
// this is an API consumed by programs, not a browser app, so a header beats
// a cookie. On success the session id is stored in the request context; on
// failure the chain stops with a 401.
func RequireSession(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid session token required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext retrieves the authenticated session id from the
// request context. Returns ("", false) when the request carried no valid
// token.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// extractSessionID reads and validates the bearer token.
func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return "", errMissingToken
	}

	return tokens.Validate(tokenStr)
}
