// Package middleware provides HTTP middleware for API token authentication.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const subjectKey ContextKey = "subject"

// TokenValidator validates a bearer token and returns its subject.
type TokenValidator interface {
	ValidateToken(tokenString string) (SubjectGetter, error)
}

// SubjectGetter exposes the client a token was issued to.
type SubjectGetter interface {
	GetSubject() (string, error)
}

// AuthMiddleware rejects requests without a valid bearer token. Paths in
// public skip the check.
func AuthMiddleware(validator TokenValidator, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				unauthorized(w)
				return
			}
			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="candidate-matcher"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
}

// Subject returns the authenticated client, or "" when auth is disabled.
func Subject(r *http.Request) string {
	s, _ := r.Context().Value(subjectKey).(string)
	return s
}
