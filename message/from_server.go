package message

import (
	"github.com/pkg/errors"

	"stomp-client/frame"
)

// Connected is the server's acceptance of a CONNECT.
type Connected struct {
	Version   string
	Session   *string
	Server    *string
	Heartbeat *[2]uint32
}

// Message is a delivery from a subscribed destination.
type Message struct {
	Destination  string
	MessageID    string
	Subscription string
	Body         []byte
}

// Receipt confirms processing of a frame that asked for one.
type Receipt struct {
	ReceiptID string
}

// Error reports a protocol or broker error. The server closes the
// connection after sending it.
type Error struct {
	Message *string
	Body    []byte
}

func (*Connected) fromServer() {}
func (*Message) fromServer()   {}
func (*Receipt) fromServer()   {}
func (*Error) fromServer()     {}

// Command returns the wire command for the message's variant.
func (m *Incoming) Command() frame.Command {
	switch m.Content.(type) {
	case *Connected:
		return frame.CONNECTED
	case *Message:
		return frame.MESSAGE
	case *Receipt:
		return frame.RECEIPT
	case *Error:
		return frame.ERROR
	default:
		panic("message: unknown FromServer variant")
	}
}

// IncomingFromFrame maps a frame onto the server→client vocabulary.
func IncomingFromFrame(f *frame.Frame) (*Incoming, error) {
	s, err := newHeaderScan(f)
	if err != nil {
		return nil, err
	}

	var content FromServer
	switch f.Command {
	case frame.CONNECTED:
		version, err := s.require("version")
		if err != nil {
			return nil, err
		}
		heartbeat, err := s.heartbeat()
		if err != nil {
			return nil, err
		}
		content = &Connected{
			Version:   version,
			Session:   s.take("session"),
			Server:    s.take("server"),
			Heartbeat: heartbeat,
		}
	case frame.MESSAGE:
		destination, err := s.require("destination")
		if err != nil {
			return nil, err
		}
		messageID, err := s.require("message-id")
		if err != nil {
			return nil, err
		}
		subscription, err := s.require("subscription")
		if err != nil {
			return nil, err
		}
		content = &Message{
			Destination:  destination,
			MessageID:    messageID,
			Subscription: subscription,
			Body:         f.Body,
		}
	case frame.RECEIPT:
		receiptID, err := s.require("receipt-id")
		if err != nil {
			return nil, err
		}
		content = &Receipt{ReceiptID: receiptID}
	case frame.ERROR:
		content = &Error{Message: s.take("message"), Body: f.Body}
	default:
		return nil, errors.Wrapf(ErrWrongDirection, "%s is not a server command", f.Command)
	}

	return &Incoming{Content: content, ExtraHeaders: s.rest()}, nil
}

// Frame renders the message back to its wire frame.
func (m *Incoming) Frame() *frame.Frame {
	var l headerList
	var command frame.Command
	var body []byte

	switch c := m.Content.(type) {
	case *Connected:
		command = frame.CONNECTED
		l.add("version", c.Version)
		l.addOpt("session", c.Session)
		l.addOpt("server", c.Server)
		l.addHeartbeat(c.Heartbeat)
	case *Message:
		command = frame.MESSAGE
		l.add("destination", c.Destination)
		l.add("message-id", c.MessageID)
		l.add("subscription", c.Subscription)
		body = c.Body
	case *Receipt:
		command = frame.RECEIPT
		l.add("receipt-id", c.ReceiptID)
	case *Error:
		command = frame.ERROR
		l.addOpt("message", c.Message)
		body = c.Body
	default:
		panic("message: unknown FromServer variant")
	}

	return &frame.Frame{
		Command: command,
		Headers: l.build(m.ExtraHeaders),
		Body:    body,
	}
}
