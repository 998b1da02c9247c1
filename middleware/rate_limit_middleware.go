package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"stomp-client/message"
)

// RateLimitMiddleware throttles sends with a token bucket. Unlike a
// server-side limiter it waits instead of rejecting: dropping a frame
// client-side would silently lose a message the caller believes was sent.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, msg *message.Outgoing) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return next(ctx, msg)
		}
	}
}
