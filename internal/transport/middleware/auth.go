package middleware

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/auth"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

type SessionValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RequireSession rejects requests without a valid member session and stores
// the session phone in the request context.
func RequireSession(base *transport.BaseHandler, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.ExtractBearerToken(r)
			if token == "" {
				base.HandleError(w, r, errors.ErrUnauthorizedAccess)
				return
			}

			claims, err := sessions.Validate(token)
			if err != nil {
				base.HandleError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r, claims)))
		})
	}
}

// OptionalSession attaches the session phone when a valid token is present
// and lets every request through.
func OptionalSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := transport.ExtractBearerToken(r); token != "" {
				if claims, err := sessions.Validate(token); err == nil {
					r = r.WithContext(withSession(r, claims))
				} else {
					logger.From(r.Context()).Debug("ignoring invalid session token", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withSession(r *http.Request, claims *auth.Claims) context.Context {
	ctx := errors.ContextWithPhone(r.Context(), claims.Phone())
	return logger.With(ctx, "phone", claims.Phone())
}
