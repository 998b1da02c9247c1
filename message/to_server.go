package message

import (
	"github.com/pkg/errors"

	"stomp-client/frame"
)

// Connect opens the session. Heartbeat is advertised as absent by the client
// in this implementation; the field exists so a CONNECT read off the wire
// maps losslessly.
type Connect struct {
	AcceptVersion string
	Host          string
	Login         *string
	Passcode      *string
	Heartbeat     *[2]uint32
}

// Send delivers a body to a destination, optionally inside a transaction.
type Send struct {
	Destination string
	Transaction *string
	Body        []byte
}

// Subscribe registers interest in a destination under a client-chosen id.
type Subscribe struct {
	Destination string
	ID          string
	Ack         *AckMode
}

// Unsubscribe cancels the subscription with the given id.
type Unsubscribe struct {
	ID string
}

// Ack acknowledges a delivered message.
type Ack struct {
	ID          string
	Transaction *string
}

// Nack rejects a delivered message.
type Nack struct {
	ID          string
	Transaction *string
}

// Begin starts a transaction.
type Begin struct {
	Transaction string
}

// Commit completes a transaction.
type Commit struct {
	Transaction string
}

// Abort rolls back a transaction.
type Abort struct {
	Transaction string
}

// Disconnect ends the session, optionally requesting a receipt.
type Disconnect struct {
	Receipt *string
}

func (*Connect) toServer()     {}
func (*Send) toServer()        {}
func (*Subscribe) toServer()   {}
func (*Unsubscribe) toServer() {}
func (*Ack) toServer()         {}
func (*Nack) toServer()        {}
func (*Begin) toServer()       {}
func (*Commit) toServer()      {}
func (*Abort) toServer()       {}
func (*Disconnect) toServer()  {}

// Command returns the wire command for the message's variant.
func (m *Outgoing) Command() frame.Command {
	switch m.Content.(type) {
	case *Connect:
		return frame.CONNECT
	case *Send:
		return frame.SEND
	case *Subscribe:
		return frame.SUBSCRIBE
	case *Unsubscribe:
		return frame.UNSUBSCRIBE
	case *Ack:
		return frame.ACK
	case *Nack:
		return frame.NACK
	case *Begin:
		return frame.BEGIN
	case *Commit:
		return frame.COMMIT
	case *Abort:
		return frame.ABORT
	case *Disconnect:
		return frame.DISCONNECT
	default:
		panic("message: unknown ToServer variant")
	}
}

// OutgoingFromFrame maps a frame onto the client→server vocabulary.
func OutgoingFromFrame(f *frame.Frame) (*Outgoing, error) {
	s, err := newHeaderScan(f)
	if err != nil {
		return nil, err
	}

	var content ToServer
	switch f.Command {
	case frame.CONNECT:
		acceptVersion, err := s.require("accept-version")
		if err != nil {
			return nil, err
		}
		host, err := s.require("host")
		if err != nil {
			return nil, err
		}
		heartbeat, err := s.heartbeat()
		if err != nil {
			return nil, err
		}
		content = &Connect{
			AcceptVersion: acceptVersion,
			Host:          host,
			Login:         s.take("login"),
			Passcode:      s.take("passcode"),
			Heartbeat:     heartbeat,
		}
	case frame.SEND:
		destination, err := s.require("destination")
		if err != nil {
			return nil, err
		}
		content = &Send{
			Destination: destination,
			Transaction: s.take("transaction"),
			Body:        f.Body,
		}
	case frame.SUBSCRIBE:
		destination, err := s.require("destination")
		if err != nil {
			return nil, err
		}
		id, err := s.require("id")
		if err != nil {
			return nil, err
		}
		var ack *AckMode
		if raw := s.take("ack"); raw != nil {
			mode := AckMode(*raw)
			switch mode {
			case AckAuto, AckClient, AckClientIndividual:
			default:
				return nil, errors.Wrapf(ErrMalformedHeader, "ack %q", *raw)
			}
			ack = &mode
		}
		content = &Subscribe{Destination: destination, ID: id, Ack: ack}
	case frame.UNSUBSCRIBE:
		id, err := s.require("id")
		if err != nil {
			return nil, err
		}
		content = &Unsubscribe{ID: id}
	case frame.ACK:
		id, err := s.require("id")
		if err != nil {
			return nil, err
		}
		content = &Ack{ID: id, Transaction: s.take("transaction")}
	case frame.NACK:
		id, err := s.require("id")
		if err != nil {
			return nil, err
		}
		content = &Nack{ID: id, Transaction: s.take("transaction")}
	case frame.BEGIN:
		tx, err := s.require("transaction")
		if err != nil {
			return nil, err
		}
		content = &Begin{Transaction: tx}
	case frame.COMMIT:
		tx, err := s.require("transaction")
		if err != nil {
			return nil, err
		}
		content = &Commit{Transaction: tx}
	case frame.ABORT:
		tx, err := s.require("transaction")
		if err != nil {
			return nil, err
		}
		content = &Abort{Transaction: tx}
	case frame.DISCONNECT:
		content = &Disconnect{Receipt: s.take("receipt")}
	default:
		return nil, errors.Wrapf(ErrWrongDirection, "%s is not a client command", f.Command)
	}

	return &Outgoing{Content: content, ExtraHeaders: s.rest()}, nil
}

// Frame renders the message back to its wire frame. Canonical headers come
// first in a stable order, extra headers follow verbatim.
func (m *Outgoing) Frame() *frame.Frame {
	var l headerList
	var command frame.Command
	var body []byte

	switch c := m.Content.(type) {
	case *Connect:
		command = frame.CONNECT
		l.add("accept-version", c.AcceptVersion)
		l.add("host", c.Host)
		l.addOpt("login", c.Login)
		l.addOpt("passcode", c.Passcode)
		l.addHeartbeat(c.Heartbeat)
	case *Send:
		command = frame.SEND
		l.add("destination", c.Destination)
		l.addOpt("transaction", c.Transaction)
		body = c.Body
	case *Subscribe:
		command = frame.SUBSCRIBE
		l.add("destination", c.Destination)
		l.add("id", c.ID)
		if c.Ack != nil {
			l.add("ack", string(*c.Ack))
		}
	case *Unsubscribe:
		command = frame.UNSUBSCRIBE
		l.add("id", c.ID)
	case *Ack:
		command = frame.ACK
		l.add("id", c.ID)
		l.addOpt("transaction", c.Transaction)
	case *Nack:
		command = frame.NACK
		l.add("id", c.ID)
		l.addOpt("transaction", c.Transaction)
	case *Begin:
		command = frame.BEGIN
		l.add("transaction", c.Transaction)
	case *Commit:
		command = frame.COMMIT
		l.add("transaction", c.Transaction)
	case *Abort:
		command = frame.ABORT
		l.add("transaction", c.Transaction)
	case *Disconnect:
		command = frame.DISCONNECT
		l.addOpt("receipt", c.Receipt)
	default:
		panic("message: unknown ToServer variant")
	}

	return &frame.Frame{
		Command: command,
		Headers: l.build(m.ExtraHeaders),
		Body:    body,
	}
}
