package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextPhoneKey ctxKey = "memberPhone"

// PhoneFromContext returns the member phone attached by the session middleware.
func PhoneFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if phone, ok := ctx.Value(ContextPhoneKey).(string); ok {
		return phone
	}
	return ""
}

func ContextWithPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, ContextPhoneKey, phone)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
