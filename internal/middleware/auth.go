package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/metrics"
	"github.com/crucial707/cashcard/internal/models"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type key string

const userKey key = "user"

// BasicRealm is sent in WWW-Authenticate on 401 responses.
const BasicRealm = `Basic realm="cashcards"`

var errNoCredentials = errors.New("no credentials")

// Authenticate resolves the caller from HTTP Basic credentials or, when tokens is
// non-nil, a Bearer token. Failures get 401 with an empty body.
func Authenticate(authn *auth.Authenticator, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := principal(r, authn, tokens)
			switch {
			case err == nil:
			case errors.Is(err, errNoCredentials):
				unauthorized(w, "missing")
				return
			case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
				unauthorized(w, "invalid")
				return
			default:
				slog.ErrorContext(r.Context(), "authenticate",
					"request_id", chimw.GetReqID(r.Context()),
					"error", err)
				metrics.IncAuthFailure("error")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			setLogOwner(r.Context(), u.Username)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func principal(r *http.Request, authn *auth.Authenticator, tokens *auth.TokenIssuer) (models.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return models.User{}, errNoCredentials
	}
	if username, password, ok := r.BasicAuth(); ok {
		return authn.Authenticate(r.Context(), username, password)
	}
	if tokens != nil {
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			return tokens.Parse(strings.TrimSpace(tok))
		}
	}
	return models.User{}, auth.ErrInvalidCredentials
}

func unauthorized(w http.ResponseWriter, reason string) {
	metrics.IncAuthFailure(reason)
	w.Header().Set("WWW-Authenticate", BasicRealm)
	w.WriteHeader(http.StatusUnauthorized)
}

// RequireRole answers 403 with an empty body unless the authenticated user has role.
// Use after Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := GetUser(r.Context())
			if !ok {
				unauthorized(w, "missing")
				return
			}
			if !u.HasRole(role) {
				metrics.IncAuthFailure("forbidden")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying u as the authenticated user.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func GetUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// GetOwner returns the canonical username of the authenticated user.
func GetOwner(ctx context.Context) (string, bool) {
	u, ok := GetUser(ctx)
	if !ok || u.Username == "" {
		return "", false
	}
	return u.Username, true
}
