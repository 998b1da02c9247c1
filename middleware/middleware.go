// Package middleware wraps the client's send path.
//
// A Middleware decorates a SendFunc the way an onion wraps its core:
// Chain(A, B, C)(send) runs A before B before C before the actual send.
// Middlewares never retry: a retried frame would be re-queued behind frames
// sent after it, and the protocol gives the wire no way to express "this
// one again".
package middleware

import (
	"context"

	"stomp-client/message"
)

// SendFunc sends one client→server message.
type SendFunc func(ctx context.Context, msg *message.Outgoing) error

// Middleware decorates a SendFunc.
type Middleware func(next SendFunc) SendFunc

// Chain combines middlewares into one, applied left to right.
func Chain(middlewares ...Middleware) Middleware {
	return func(next SendFunc) SendFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
