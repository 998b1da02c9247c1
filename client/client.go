// Package client connects to a STOMP broker and completes the mandatory
// CONNECT/CONNECTED handshake before handing the connection over for
// general use.
//
// The handshake is a strict two-step exchange: send one CONNECT, await
// exactly one reply. Anything other than CONNECTED — an ERROR frame, an
// unexpected variant, a closed stream, corrupt bytes — fails the attempt.
// There are no retries; a failed attempt ends there and the caller decides
// what to do with the connection.
package client

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"stomp-client/frame"
	"stomp-client/loadbalance"
	"stomp-client/message"
	"stomp-client/middleware"
	"stomp-client/registry"
	"stomp-client/transport"
)

// acceptVersion is the only protocol version this client speaks. Heartbeat
// is never advertised — a deliberate simplification, kept as-is.
const acceptVersion = "1.2"

// ErrClosedBeforeConnected reports that the stream ended before the broker
// answered the CONNECT. Distinct from a decode error: the bytes that did
// arrive were fine, there just weren't enough of them.
var ErrClosedBeforeConnected = errors.New("connection closed before handshake completed")

// UnexpectedReplyError reports a handshake reply that was not CONNECTED.
// The reply is carried for diagnostics — for a broker rejection it is the
// ERROR message with the broker's explanation.
type UnexpectedReplyError struct {
	Reply *message.Incoming
}

func (e *UnexpectedReplyError) Error() string {
	if err, ok := e.Reply.Content.(*message.Error); ok && err.Message != nil {
		return fmt.Sprintf("handshake rejected: %s", *err.Message)
	}
	return fmt.Sprintf("handshake error, unexpected reply: %s", e.Reply.Command())
}

// HandshakeState tracks a connection attempt through its three live states.
type HandshakeState int

const (
	StateUnauthenticated HandshakeState = iota
	StateAwaitingConnected
	StateReady
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingConnected:
		return "awaiting-connected"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type options struct {
	host          string
	login         *string
	passcode      *string
	headers       []frame.Header
	logger        zerolog.Logger
	middlewares   []middleware.Middleware
	transportOpts []transport.Option
}

// Option configures a connection attempt.
type Option func(*options)

// WithLogin sets the login sent in CONNECT.
func WithLogin(login string) Option {
	return func(o *options) {
		o.login = &login
	}
}

// WithPasscode sets the passcode sent in CONNECT.
func WithPasscode(passcode string) Option {
	return func(o *options) {
		o.passcode = &passcode
	}
}

// WithHeader adds an extra header to the CONNECT frame. May be repeated.
func WithHeader(name, value string) Option {
	return func(o *options) {
		o.headers = append(o.headers, frame.Header{Name: name, Value: value})
	}
}

// WithHost overrides the virtual host advertised in CONNECT. By default
// the dialed address is used.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithLogger sets the logger for the client and its transport.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMiddleware wraps the send path, outermost first.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// WithTransportOptions passes options through to the underlying transport.
func WithTransportOptions(topts ...transport.Option) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, topts...)
	}
}

// Client is a connected, handshake-complete STOMP session.
type Client struct {
	transport *transport.ClientTransport
	send      middleware.SendFunc
	logger    zerolog.Logger
	connected *message.Connected
}

// Connect dials the broker over TCP and completes the handshake. On
// handshake failure the dialed connection is closed before returning —
// Connect created it, so Connect cleans it up.
func Connect(ctx context.Context, addr string, opt ...Option) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	client, err := ConnectStream(ctx, conn, addr, opt...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// ConnectWebSocket connects over STOMP-on-WebSocket and completes the
// handshake.
func ConnectWebSocket(ctx context.Context, url, host string, opt ...Option) (*Client, error) {
	stream, err := transport.DialWebSocket(ctx, url)
	if err != nil {
		return nil, err
	}

	client, err := ConnectStream(ctx, stream, host, opt...)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return client, nil
}

// ConnectCluster discovers the cluster's brokers from the registry, picks
// one with the balancer, and connects to it.
func ConnectCluster(ctx context.Context, reg registry.Registry, cluster string, balancer loadbalance.Balancer, opt ...Option) (*Client, error) {
	instances, err := reg.Discover(cluster)
	if err != nil {
		return nil, errors.Wrapf(err, "discover brokers for %s", cluster)
	}
	instance, err := balancer.Pick(instances)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, instance.Addr, opt...)
}

// ConnectStream runs the handshake over a caller-supplied duplex stream
// (an already-dialed TCP or TLS conn, a WebSocket adapter, an in-memory
// pipe). On failure the stream is NOT closed — the caller owns it.
func ConnectStream(ctx context.Context, conn io.ReadWriteCloser, host string, opt ...Option) (*Client, error) {
	opts := options{
		host:   host,
		logger: zerolog.Nop(),
	}
	for _, o := range opt {
		o(&opts)
	}

	topts := append([]transport.Option{transport.WithLogger(opts.logger)}, opts.transportOpts...)
	t := transport.NewClientTransport(conn, topts...)

	h := &handshake{transport: t, logger: opts.logger}
	connected, err := h.run(ctx, &opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		transport: t,
		send:      middleware.Chain(opts.middlewares...)(t.Send),
		logger:    opts.logger,
		connected: connected,
	}, nil
}

// handshake sequences the first frame exchange. One instance per attempt;
// it ends in StateReady or StateFailed and is then discarded.
type handshake struct {
	transport *transport.ClientTransport
	logger    zerolog.Logger
	state     HandshakeState
}

func (h *handshake) to(state HandshakeState) {
	h.logger.Debug().
		Stringer("from", h.state).
		Stringer("to", state).
		Msg("handshake")
	h.state = state
}

func (h *handshake) run(ctx context.Context, opts *options) (*message.Connected, error) {
	connect := &message.Outgoing{
		Content: &message.Connect{
			AcceptVersion: acceptVersion,
			Host:          opts.host,
			Login:         opts.login,
			Passcode:      opts.passcode,
			// Heartbeat deliberately absent.
		},
		ExtraHeaders: opts.headers,
	}

	if err := h.transport.Send(ctx, connect); err != nil {
		h.to(StateFailed)
		return nil, errors.Wrap(err, "send CONNECT")
	}
	h.to(StateAwaitingConnected)

	reply, err := h.transport.Receive(ctx)
	if err != nil {
		h.to(StateFailed)
		if errors.Is(err, transport.ErrClosed) {
			return nil, errors.WithStack(ErrClosedBeforeConnected)
		}
		return nil, err
	}

	connected, ok := reply.Content.(*message.Connected)
	if !ok {
		h.to(StateFailed)
		return nil, &UnexpectedReplyError{Reply: reply}
	}
	h.to(StateReady)
	return connected, nil
}

// Session returns the CONNECTED message the handshake produced.
func (c *Client) Session() *message.Connected {
	return c.connected
}

// Transport exposes the underlying transport.
func (c *Client) Transport() *transport.ClientTransport {
	return c.transport
}

// Send pushes a message through the middleware chain to the wire.
func (c *Client) Send(ctx context.Context, msg *message.Outgoing) error {
	return c.send(ctx, msg)
}

// Receive returns the next inbound message in stream order.
func (c *Client) Receive(ctx context.Context) (*message.Incoming, error) {
	return c.transport.Receive(ctx)
}

// Subscribe registers a subscription on a destination.
func (c *Client) Subscribe(ctx context.Context, destination, id string) error {
	return c.send(ctx, Subscribe(destination, id))
}

// Unsubscribe cancels a subscription.
func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	return c.send(ctx, message.NewOutgoing(&message.Unsubscribe{ID: id}))
}

// SendTo publishes a body to a destination.
func (c *Client) SendTo(ctx context.Context, destination string, body []byte) error {
	return c.send(ctx, SendTo(destination, body))
}

// Ack acknowledges a delivered message.
func (c *Client) Ack(ctx context.Context, id string) error {
	return c.send(ctx, message.NewOutgoing(&message.Ack{ID: id}))
}

// Nack rejects a delivered message.
func (c *Client) Nack(ctx context.Context, id string) error {
	return c.send(ctx, message.NewOutgoing(&message.Nack{ID: id}))
}

// Begin starts a transaction.
func (c *Client) Begin(ctx context.Context, tx string) error {
	return c.send(ctx, message.NewOutgoing(&message.Begin{Transaction: tx}))
}

// Commit completes a transaction.
func (c *Client) Commit(ctx context.Context, tx string) error {
	return c.send(ctx, message.NewOutgoing(&message.Commit{Transaction: tx}))
}

// Abort rolls back a transaction.
func (c *Client) Abort(ctx context.Context, tx string) error {
	return c.send(ctx, message.NewOutgoing(&message.Abort{Transaction: tx}))
}

// Disconnect asks the broker for an orderly end of session, waiting for
// the receipt that confirms everything before it was processed.
func (c *Client) Disconnect(ctx context.Context, receipt string) error {
	err := c.send(ctx, message.NewOutgoing(&message.Disconnect{Receipt: &receipt}))
	if err != nil {
		return err
	}
	for {
		reply, err := c.transport.Receive(ctx)
		if err != nil {
			return err
		}
		if r, ok := reply.Content.(*message.Receipt); ok && r.ReceiptID == receipt {
			return nil
		}
		// Deliveries already in flight may arrive before the receipt.
	}
}

// Close tears down the transport and its connection.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Subscribe builds a SUBSCRIBE message without sending it.
func Subscribe(destination, id string) *message.Outgoing {
	return message.NewOutgoing(&message.Subscribe{
		Destination: destination,
		ID:          id,
	})
}

// SubscribeWithHeaders builds a SUBSCRIBE message carrying extra headers.
func SubscribeWithHeaders(destination, id string, headers []frame.Header) *message.Outgoing {
	msg := Subscribe(destination, id)
	msg.ExtraHeaders = headers
	return msg
}

// SendTo builds a SEND message without sending it.
func SendTo(destination string, body []byte) *message.Outgoing {
	return message.NewOutgoing(&message.Send{
		Destination: destination,
		Body:        body,
	})
}
