// Package transport binds the codec to a duplex byte stream.
//
// ClientTransport runs one read loop and one write loop per connection:
//
//	caller ──Send──→ outgoing chan ──writeLoop──→ conn
//	caller ←─Receive── incoming chan ←─readLoop── conn
//
// The read loop owns the inbound buffer. TCP may deliver a frame across any
// number of reads, or several frames in one read; the loop appends whatever
// arrives and lets the codec pull complete frames off the front, so framing
// survives arbitrary fragmentation. Messages come out strictly in stream
// order, and Send queues frames in call order.
//
// The transport is built for one logical flow per connection: one goroutine
// calling Send, one calling Receive. After any error the transport is dead —
// a corrupt stream has no recoverable frame boundary.
package transport

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stomp-client/codec"
	"stomp-client/message"
)

var (
	// ErrClosed is reported when the peer ended the stream cleanly.
	ErrClosed = errors.New("connection closed")
	// ErrFrameTooLarge is reported when the inbound buffer grows past the
	// configured limit without completing a frame.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

const (
	defaultBufferSize   = 16
	defaultMaxFrameSize = 1 << 20 // 1 MiB
	readChunkSize       = 4 * 1024
)

type options struct {
	logger       zerolog.Logger
	bufferSize   int
	maxFrameSize int
}

// Option configures a ClientTransport.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBufferSize sets the capacity of the inbound and outbound message
// channels.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithMaxFrameSize caps how many bytes may buffer without completing a
// frame before the connection is failed. Defaults to 1 MiB.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		o.maxFrameSize = n
	}
}

// ClientTransport drives the client side of one connection.
type ClientTransport struct {
	conn   io.ReadWriteCloser
	codec  codec.ClientCodec
	logger zerolog.Logger
	opts   options

	incoming chan *message.Incoming
	outgoing chan []byte

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewClientTransport wraps conn and starts the read and write loops. The
// transport takes over the conn: Close tears it down, and any loop error
// closes it so the other loop unblocks.
func NewClientTransport(conn io.ReadWriteCloser, opt ...Option) *ClientTransport {
	opts := options{
		logger:       zerolog.Nop(),
		bufferSize:   defaultBufferSize,
		maxFrameSize: defaultMaxFrameSize,
	}
	for _, o := range opt {
		o(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &ClientTransport{
		conn:     conn,
		logger:   opts.logger,
		opts:     opts,
		incoming: make(chan *message.Incoming, opts.bufferSize),
		outgoing: make(chan []byte, opts.bufferSize),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return t.readLoop(ctx)
	})
	group.Go(func() error {
		return t.writeLoop(ctx)
	})

	// Read blocks in conn.Read, which only a conn.Close can interrupt.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		_ = group.Wait()
		close(t.done)
		t.logger.Debug().Err(t.Err()).Msg("transport stopped")
	}()

	return t
}

// Send encodes msg and queues its bytes for the write loop. Frames reach
// the wire in Send call order. A nil return means the frame was accepted
// while the transport was still live, not that it reached the peer; only
// a broker receipt confirms delivery.
func (t *ClientTransport) Send(ctx context.Context, msg *message.Outgoing) error {
	var buf bytes.Buffer
	if err := t.codec.Encode(msg, &buf); err != nil {
		return err
	}
	select {
	case <-t.done:
		return t.Err()
	default:
	}
	select {
	case t.outgoing <- buf.Bytes():
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
	// The enqueue select picks at random when the channel has room and
	// done is already closed; re-check so a frame queued onto a dead
	// transport is reported as the failure it is.
	select {
	case <-t.done:
		return t.Err()
	default:
		framesSent.Inc()
		return nil
	}
}

// Receive returns the next inbound message in stream order. Once the
// transport has failed (or the peer closed the stream), every call returns
// the terminal error.
func (t *ClientTransport) Receive(ctx context.Context) (*message.Incoming, error) {
	select {
	case msg, ok := <-t.incoming:
		if !ok {
			return nil, t.Err()
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the terminal error, or nil while the transport is running.
// A clean end of stream reports ErrClosed.
func (t *ClientTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close tears the connection down. Safe to call more than once.
func (t *ClientTransport) Close() error {
	t.cancel()
	<-t.done
	return nil
}

// Done is closed once both loops have stopped.
func (t *ClientTransport) Done() <-chan struct{} {
	return t.done
}

func (t *ClientTransport) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *ClientTransport) readLoop(ctx context.Context) error {
	err := t.readFrames(ctx)
	t.setErr(err)
	close(t.incoming)
	return err
}

func (t *ClientTransport) readFrames(ctx context.Context) error {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	var readErr error
	for {
		// Drain every complete frame already buffered before reading
		// again — several frames may arrive in one chunk, and a Read is
		// allowed to return final bytes together with io.EOF, so frames
		// buffered alongside a read error must still go out before the
		// error is honored.
		for {
			msg, err := t.codec.Decode(&buf)
			if err != nil {
				decodeErrors.Inc()
				t.logger.Debug().Err(err).Msg("decode failed")
				return err
			}
			if msg == nil {
				break
			}
			framesRead.Inc()
			select {
			case t.incoming <- msg:
			case <-ctx.Done():
				return errors.WithStack(ErrClosed)
			}
		}
		if buf.Len() > t.opts.maxFrameSize {
			return errors.Wrapf(ErrFrameTooLarge, "%d bytes buffered", buf.Len())
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return errors.WithStack(ErrClosed)
			}
			select {
			case <-ctx.Done():
				// The conn was closed under the reader on shutdown.
				return errors.WithStack(ErrClosed)
			default:
			}
			return errors.Wrap(readErr, "read")
		}

		n, err := t.conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			bytesRead.Add(float64(n))
		}
		readErr = err
	}
}

func (t *ClientTransport) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-t.outgoing:
			if _, err := t.conn.Write(data); err != nil {
				err = errors.Wrap(err, "write")
				t.setErr(err)
				return err
			}
			bytesWritten.Add(float64(len(data)))
		}
	}
}
