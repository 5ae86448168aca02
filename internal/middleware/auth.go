package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/studyplanner/internal/auth"
)

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (auth.AuthContext, error)
}

// RejectFunc is told why a request was turned away, for metrics.
type RejectFunc func(reason string)

// RequireAuth validates the bearer token and populates AuthContext.
// Browsers cannot set headers on a websocket upgrade, so the access_token
// query parameter is accepted for upgrade requests only.
func RequireAuth(tokens TokenVerifier, onReject RejectFunc) func(http.Handler) http.Handler {
	if onReject == nil {
		onReject = func(string) {}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				onReject("missing_token")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ac, err := tokens.Verify(token)
			if err != nil {
				onReject("invalid_token")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// BasicAuth guards a handler with a fixed username and password. An empty
// user disables the check.
func BasicAuth(user, pass, realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if user == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
