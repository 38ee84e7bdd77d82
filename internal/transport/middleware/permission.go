package middleware

import (
	"net/http"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

// Headers carrying shared keys.
const (
	HeaderWebhookKey     = "X-Webhook-Key"
	HeaderAdminKey       = "X-Admin-Key"
	HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"
)

type KeyChecker interface {
	Enabled() bool
	Verify(key string) bool
}

// RequireKey admits only requests whose header matches the configured key.
// Without a configured key every request is rejected.
func RequireKey(base *transport.BaseHandler, header string, checker KeyChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil || !checker.Enabled() {
				logger.From(r.Context()).Warn("access denied: no key configured",
					"header", header,
					"path", r.URL.Path)
				base.HandleError(w, r, errors.ErrInvalidKey)
				return
			}
			if !checker.Verify(r.Header.Get(header)) {
				logger.From(r.Context()).Warn("access denied: invalid key",
					"header", header,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				base.HandleError(w, r, errors.ErrInvalidKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalKey behaves like RequireKey once a key is configured and admits
// everything before that. Only the bank webhook uses it.
func OptionalKey(base *transport.BaseHandler, header string, checker KeyChecker) func(http.Handler) http.Handler {
	if checker == nil || !checker.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	return RequireKey(base, header, checker)
}
