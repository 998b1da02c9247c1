package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stomp-client/message"
)

// LoggingMiddleware logs every send with its command and duration.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, msg *message.Outgoing) error {
			start := time.Now()
			err := next(ctx, msg)
			event := logger.Debug()
			if err != nil {
				event = logger.Warn().Err(err)
			}
			event.
				Str("command", string(msg.Command())).
				Dur("duration", time.Since(start)).
				Msg("send")
			return err
		}
	}
}
