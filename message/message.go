// Package message maps wire frames onto a closed, per-direction set of typed
// protocol messages.
//
// Each direction of the connection has its own vocabulary: ToServer covers
// everything a client may send (CONNECT, SEND, SUBSCRIBE, ...), FromServer
// everything a server may send (CONNECTED, MESSAGE, RECEIPT, ERROR). The
// mapping is total and lossless in both directions — headers the typed
// fields don't claim are preserved verbatim in ExtraHeaders, so a message
// round-trips through its frame byte-for-byte.
//
// Adding a command means adding one variant struct and one case in each of
// the two switches for its direction; the compiler flags every other place
// that needs to know.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"stomp-client/frame"
)

// Mapping errors. A well-formed frame can still fail to become a message:
// the command may belong to the other direction, or a required header may be
// missing or malformed. Unlike grammar errors these do not poison the byte
// stream — the frame was consumed cleanly.
var (
	ErrWrongDirection  = errors.New("command not valid for this direction")
	ErrMissingHeader   = errors.New("required header missing")
	ErrMalformedHeader = errors.New("malformed header value")
)

// AckMode is the subscription acknowledgement mode.
type AckMode string

const (
	AckAuto             AckMode = "auto"
	AckClient           AckMode = "client"
	AckClientIndividual AckMode = "client-individual"
)

// ToServer is the closed set of client→server message variants.
type ToServer interface {
	toServer()
}

// FromServer is the closed set of server→client message variants.
type FromServer interface {
	fromServer()
}

// Outgoing is a client→server message: one typed variant plus any headers
// that are not part of the variant's protocol-defined fields.
type Outgoing struct {
	Content      ToServer
	ExtraHeaders []frame.Header
}

// Incoming is a server→client message.
type Incoming struct {
	Content      FromServer
	ExtraHeaders []frame.Header
}

// NewOutgoing wraps a variant in an envelope with no extra headers.
func NewOutgoing(content ToServer) *Outgoing {
	return &Outgoing{Content: content}
}

// NewIncoming wraps a variant in an envelope with no extra headers.
func NewIncoming(content FromServer) *Incoming {
	return &Incoming{Content: content}
}

// headerScan walks a frame's header list while mapping it to typed fields.
// take claims the first occurrence of a name (first match wins on the wire);
// later duplicates and unclaimed names stay behind for rest().
type headerScan struct {
	headers []frame.Header
	taken   []bool
}

func newHeaderScan(f *frame.Frame) (*headerScan, error) {
	s := &headerScan{
		headers: f.Headers,
		taken:   make([]bool, len(f.Headers)),
	}
	// content-length is derived from the body, never a typed field and
	// never an extra header: the serializer recomputes it. Claim it here,
	// rejecting values the parser had to ignore.
	if raw := s.take(frame.ContentLength); raw != nil {
		if v, err := strconv.Atoi(*raw); err != nil || v < 0 {
			return nil, errors.Wrapf(ErrMalformedHeader, "content-length %q", *raw)
		}
	}
	return s, nil
}

func (s *headerScan) take(name string) *string {
	for i, h := range s.headers {
		if h.Name == name && !s.taken[i] {
			s.taken[i] = true
			v := h.Value
			return &v
		}
	}
	return nil
}

func (s *headerScan) require(name string) (string, error) {
	if v := s.take(name); v != nil {
		return *v, nil
	}
	return "", errors.Wrapf(ErrMissingHeader, "%s", name)
}

func (s *headerScan) rest() []frame.Header {
	var rest []frame.Header
	for i, h := range s.headers {
		if !s.taken[i] {
			rest = append(rest, h)
		}
	}
	return rest
}

// heartbeat claims and parses a "heart-beat" header, "cx,cy" in milliseconds.
func (s *headerScan) heartbeat() (*[2]uint32, error) {
	raw := s.take("heart-beat")
	if raw == nil {
		return nil, nil
	}
	parts := strings.Split(*raw, ",")
	if len(parts) != 2 {
		return nil, errors.Wrapf(ErrMalformedHeader, "heart-beat %q", *raw)
	}
	var hb [2]uint32
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedHeader, "heart-beat %q", *raw)
		}
		hb[i] = uint32(v)
	}
	return &hb, nil
}

// headerList builds a frame header block in protocol-conventional order:
// the variant's canonical headers first, extra headers appended verbatim.
type headerList struct {
	headers []frame.Header
}

func (l *headerList) add(name, value string) {
	l.headers = append(l.headers, frame.Header{Name: name, Value: value})
}

func (l *headerList) addOpt(name string, value *string) {
	if value != nil {
		l.add(name, *value)
	}
}

func (l *headerList) addHeartbeat(hb *[2]uint32) {
	if hb != nil {
		l.add("heart-beat", fmt.Sprintf("%d,%d", hb[0], hb[1]))
	}
}

func (l *headerList) build(extra []frame.Header) []frame.Header {
	return append(l.headers, extra...)
}
