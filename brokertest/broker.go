// Package brokertest runs a minimal in-process STOMP broker.
//
// It exists so client, transport, and handshake code can be exercised
// against a real TCP peer without an external broker. It implements just
// enough of the server side: CONNECT is answered (or rejected, or the
// connection dropped — configurable), SUBSCRIBE/UNSUBSCRIBE are tracked
// per connection, SEND fans out as MESSAGE to that connection's matching
// subscriptions, and DISCONNECT honors receipt requests.
//
// Connection handling follows the usual shape: one accept loop, one
// goroutine per connection reading frames sequentially.
package brokertest

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"stomp-client/codec"
	"stomp-client/message"
)

type options struct {
	version        string
	rejectMessage  *string
	closeOnConnect bool
	logger         zerolog.Logger
}

// Option configures the broker.
type Option func(*options)

// WithVersion sets the version the broker answers CONNECT with.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithRejectConnect makes the broker answer every CONNECT with an ERROR
// frame carrying the given message, then close the connection.
func WithRejectConnect(msg string) Option {
	return func(o *options) {
		o.rejectMessage = &msg
	}
}

// WithCloseOnConnect makes the broker drop the connection on CONNECT
// without answering at all.
func WithCloseOnConnect() Option {
	return func(o *options) {
		o.closeOnConnect = true
	}
}

// WithLogger sets the broker's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Broker is an in-process STOMP broker bound to a loopback port.
type Broker struct {
	listener net.Listener
	opts     options
	logger   zerolog.Logger

	wg        sync.WaitGroup
	shutdown  atomic.Bool
	sessions  atomic.Int64
	messageID atomic.Int64
}

// Start listens on an ephemeral loopback port and begins accepting
// connections. Callers must Close the broker when done.
func Start(opt ...Option) (*Broker, error) {
	opts := options{
		version: "1.2",
		logger:  zerolog.Nop(),
	}
	for _, o := range opt {
		o(&opts)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	b := &Broker{
		listener: listener,
		opts:     opts,
		logger:   opts.logger,
	}

	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// Addr returns the broker's dialable address.
func (b *Broker) Addr() string {
	return b.listener.Addr().String()
}

// Close stops accepting and unblocks the accept loop. Connections already
// open run until their peer closes or errors.
func (b *Broker) Close() {
	b.shutdown.Store(true)
	b.listener.Close()
	b.wg.Wait()
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if b.shutdown.Load() {
				return
			}
			b.logger.Error().Err(err).Msg("accept error")
			return
		}
		b.logger.Debug().Stringer("remote", conn.RemoteAddr()).Msg("accepted connection")
		go b.handleConn(conn)
	}
}

// handleConn reads frames sequentially off one connection and reacts.
// Subscriptions are per-connection state: a SEND is delivered back only on
// the connection that subscribed, which is all the client tests need.
func (b *Broker) handleConn(conn net.Conn) {
	defer conn.Close()

	var (
		server        codec.ServerCodec
		in            bytes.Buffer
		chunk         = make([]byte, 4096)
		subscriptions = make(map[string]string) // id → destination
	)

	for {
		msg, err := server.Decode(&in)
		if err != nil {
			b.logger.Debug().Err(err).Msg("broker decode failed")
			return
		}
		if msg == nil {
			n, err := conn.Read(chunk)
			if err != nil {
				return
			}
			in.Write(chunk[:n])
			continue
		}

		switch c := msg.Content.(type) {
		case *message.Connect:
			if b.opts.closeOnConnect {
				return
			}
			if b.opts.rejectMessage != nil {
				b.reply(conn, &message.Error{
					Message: b.opts.rejectMessage,
					Body:    []byte("connection refused"),
				})
				return
			}
			session := fmt.Sprintf("session-%d", b.sessions.Add(1))
			b.reply(conn, &message.Connected{
				Version: b.opts.version,
				Session: &session,
			})
		case *message.Subscribe:
			subscriptions[c.ID] = c.Destination
		case *message.Unsubscribe:
			delete(subscriptions, c.ID)
		case *message.Send:
			for id, destination := range subscriptions {
				if destination != c.Destination {
					continue
				}
				b.reply(conn, &message.Message{
					Destination:  c.Destination,
					MessageID:    fmt.Sprintf("m-%d", b.messageID.Add(1)),
					Subscription: id,
					Body:         c.Body,
				})
			}
		case *message.Disconnect:
			if c.Receipt != nil {
				b.reply(conn, &message.Receipt{ReceiptID: *c.Receipt})
			}
			return
		default:
			// Ack/Nack/Begin/Commit/Abort need no reply here.
		}
	}
}

func (b *Broker) reply(conn net.Conn, content message.FromServer) {
	var out bytes.Buffer
	if err := (codec.ServerCodec{}).Encode(message.NewIncoming(content), &out); err != nil {
		b.logger.Error().Err(err).Msg("broker encode failed")
		return
	}
	if _, err := conn.Write(out.Bytes()); err != nil {
		b.logger.Debug().Err(err).Msg("broker write failed")
	}
}
