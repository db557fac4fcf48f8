// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/httputil"
	"github.com/propchain/registry_gateway/internal/session"
)

type contextKey string

// usernameKey carries the authenticated username through the request context.
const usernameKey contextKey = "username"

// AccessGuard requires a valid session token before a protected operation may
// run. It is a pure gate: beyond attaching the username to the context it has
// no side effects, and on rejection the downstream handler (and any ledger
// call it would make) is never reached.
type AccessGuard struct {
	authority *session.Authority
	log       zerolog.Logger
}

// NewAccessGuard creates the guard over the given session authority.
func NewAccessGuard(authority *session.Authority, log zerolog.Logger) *AccessGuard {
	return &AccessGuard{authority: authority, log: log}
}

// Handler returns the middleware handler.
func (g *AccessGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			g.respondError(w, r, errors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			g.respondError(w, r, errors.Unauthorized("Authorization header must be of the form Bearer <token>"))
			return
		}

		username, err := g.authority.Verify(parts[1])
		if err != nil {
			g.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *AccessGuard) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("authentication failed", err)
	}

	g.log.Warn().
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("code", string(serviceErr.Code)).
		Msg("request rejected by access guard")

	httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// Username extracts the authenticated username from a request context. It is
// empty for requests that did not pass the guard.
func Username(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}
