package middleware

import (
	"context"
	"time"

	"stomp-client/message"
)

// TimeoutMiddleware bounds how long a single send may block, covering both
// rate-limiter waits and a full outbound queue.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, msg *message.Outgoing) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, msg)
		}
	}
}
