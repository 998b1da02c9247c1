// Package codec adapts the frame grammar to a streaming transport.
//
// Decode pulls at most one typed message off the front of a byte buffer the
// caller owns; when the buffer holds only part of a frame it returns
// (nil, nil) and leaves every byte in place, so the caller simply reads more
// input and calls again. Encode appends a message's wire form to an output
// buffer. Neither direction keeps state between calls — all framing state
// lives in the buffers.
//
// A grammar error from Decode is fatal to the connection: once the stream is
// corrupt there is no way to find the next frame boundary, so no
// resynchronization is attempted.
package codec

import (
	"bytes"

	"github.com/pkg/errors"

	"stomp-client/frame"
	"stomp-client/message"
)

// ClientCodec is the client side of the connection: it decodes server→client
// messages and encodes client→server messages. One instance per connection,
// one caller per direction at a time.
type ClientCodec struct{}

// Decode parses one message from the front of buf, consuming exactly the
// bytes of its frame. Returns (nil, nil) when buf holds an incomplete frame;
// buf is untouched in that case.
func (ClientCodec) Decode(buf *bytes.Buffer) (*message.Incoming, error) {
	f, consumed, err := frame.Parse(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if f == nil {
		return nil, nil
	}
	buf.Next(consumed)
	return message.IncomingFromFrame(f)
}

// Encode appends the message's wire form to buf. It cannot fail short of an
// allocation failure, which panics like any other Go allocation.
func (ClientCodec) Encode(msg *message.Outgoing, buf *bytes.Buffer) error {
	msg.Frame().Serialize(buf)
	return nil
}

// ServerCodec is the mirrored direction, used by broker-side code (and the
// in-process test broker): it decodes client→server messages and encodes
// server→client messages.
type ServerCodec struct{}

// Decode parses one client→server message from the front of buf.
func (ServerCodec) Decode(buf *bytes.Buffer) (*message.Outgoing, error) {
	f, consumed, err := frame.Parse(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if f == nil {
		return nil, nil
	}
	buf.Next(consumed)
	return message.OutgoingFromFrame(f)
}

// Encode appends the message's wire form to buf.
func (ServerCodec) Encode(msg *message.Incoming, buf *bytes.Buffer) error {
	msg.Frame().Serialize(buf)
	return nil
}
