package message

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"stomp-client/frame"
)

func strp(s string) *string { return &s }

func ackp(m AckMode) *AckMode { return &m }

// roundTripOut serializes an Outgoing to wire bytes and maps it back.
func roundTripOut(t *testing.T, m *Outgoing) *Outgoing {
	t.Helper()
	var buf bytes.Buffer
	m.Frame().Serialize(&buf)
	f, consumed, err := frame.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if consumed != buf.Len() {
		t.Fatalf("consumed %d of %d bytes", consumed, buf.Len())
	}
	got, err := OutgoingFromFrame(f)
	if err != nil {
		t.Fatalf("OutgoingFromFrame failed: %v", err)
	}
	return got
}

func roundTripIn(t *testing.T, m *Incoming) *Incoming {
	t.Helper()
	var buf bytes.Buffer
	m.Frame().Serialize(&buf)
	f, _, err := frame.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, err := IncomingFromFrame(f)
	if err != nil {
		t.Fatalf("IncomingFromFrame failed: %v", err)
	}
	return got
}

func TestOutgoingRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  *Outgoing
	}{
		{"connect", &Outgoing{Content: &Connect{
			AcceptVersion: "1.2",
			Host:          "example.com",
			Login:         strp("guest"),
			Passcode:      strp("secret"),
		}}},
		{"connect with heartbeat", &Outgoing{Content: &Connect{
			AcceptVersion: "1.2",
			Host:          "example.com",
			Heartbeat:     &[2]uint32{5000, 10000},
		}}},
		{"send", &Outgoing{Content: &Send{
			Destination: "/queue/orders",
			Body:        []byte("payload"),
		}}},
		{"send in transaction", &Outgoing{Content: &Send{
			Destination: "/queue/orders",
			Transaction: strp("tx-1"),
			Body:        []byte("payload"),
		}}},
		{"send no body", &Outgoing{Content: &Send{
			Destination: "/queue/orders",
		}}},
		{"subscribe", &Outgoing{Content: &Subscribe{
			Destination: "/topic/news",
			ID:          "sub-0",
			Ack:         ackp(AckClientIndividual),
		}}},
		{"unsubscribe", &Outgoing{Content: &Unsubscribe{ID: "sub-0"}}},
		{"ack", &Outgoing{Content: &Ack{ID: "m-1", Transaction: strp("tx-1")}}},
		{"nack", &Outgoing{Content: &Nack{ID: "m-2"}}},
		{"begin", &Outgoing{Content: &Begin{Transaction: "tx-1"}}},
		{"commit", &Outgoing{Content: &Commit{Transaction: "tx-1"}}},
		{"abort", &Outgoing{Content: &Abort{Transaction: "tx-1"}}},
		{"disconnect", &Outgoing{Content: &Disconnect{Receipt: strp("bye-1")}}},
		{"extra headers", &Outgoing{
			Content: &Send{Destination: "/queue/a", Body: []byte("x")},
			ExtraHeaders: []frame.Header{
				{Name: "correlation-id", Value: "42"},
				{Name: "priority", Value: "9"},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := roundTripOut(t, tc.msg)
			if !reflect.DeepEqual(got, tc.msg) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, tc.msg)
			}
		})
	}
}

func TestIncomingRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  *Incoming
	}{
		{"connected", &Incoming{Content: &Connected{
			Version: "1.2",
			Session: strp("s-17"),
			Server:  strp("teststomp/0.1"),
		}}},
		{"message", &Incoming{Content: &Message{
			Destination:  "/queue/a",
			MessageID:    "m-9",
			Subscription: "sub-0",
			Body:         []byte("delivery"),
		}}},
		{"receipt", &Incoming{Content: &Receipt{ReceiptID: "bye-1"}}},
		{"error", &Incoming{
			Content:      &Error{Message: strp("malformed frame"), Body: []byte("details")},
			ExtraHeaders: []frame.Header{{Name: "content-type", Value: "text/plain"}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := roundTripIn(t, tc.msg)
			if !reflect.DeepEqual(got, tc.msg) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, tc.msg)
			}
		})
	}
}

func TestDuplicateHeaderFirstWins(t *testing.T) {
	f := &frame.Frame{
		Command: frame.SEND,
		Headers: []frame.Header{
			{Name: "destination", Value: "/queue/first"},
			{Name: "destination", Value: "/queue/second"},
		},
	}
	m, err := OutgoingFromFrame(f)
	if err != nil {
		t.Fatalf("OutgoingFromFrame failed: %v", err)
	}
	send := m.Content.(*Send)
	if send.Destination != "/queue/first" {
		t.Errorf("Destination = %q, want first occurrence", send.Destination)
	}
	// The duplicate stays in ExtraHeaders, so serializing reproduces
	// both occurrences.
	want := []frame.Header{{Name: "destination", Value: "/queue/second"}}
	if !reflect.DeepEqual(m.ExtraHeaders, want) {
		t.Errorf("ExtraHeaders = %v, want %v", m.ExtraHeaders, want)
	}
	back := m.Frame()
	if len(back.Headers) != 2 {
		t.Fatalf("re-rendered frame has %d headers, want 2", len(back.Headers))
	}
	if back.Headers[0].Value != "/queue/first" || back.Headers[1].Value != "/queue/second" {
		t.Errorf("duplicate order lost: %v", back.Headers)
	}
}

func TestWrongDirection(t *testing.T) {
	f := &frame.Frame{Command: frame.CONNECTED, Headers: []frame.Header{{Name: "version", Value: "1.2"}}}
	if _, err := OutgoingFromFrame(f); !errors.Is(err, ErrWrongDirection) {
		t.Errorf("OutgoingFromFrame(CONNECTED): got %v, want ErrWrongDirection", err)
	}

	f = &frame.Frame{Command: frame.SEND, Headers: []frame.Header{{Name: "destination", Value: "/q"}}}
	if _, err := IncomingFromFrame(f); !errors.Is(err, ErrWrongDirection) {
		t.Errorf("IncomingFromFrame(SEND): got %v, want ErrWrongDirection", err)
	}
}

func TestMissingRequiredHeader(t *testing.T) {
	f := &frame.Frame{Command: frame.SUBSCRIBE, Headers: []frame.Header{{Name: "destination", Value: "/q"}}}
	if _, err := OutgoingFromFrame(f); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("SUBSCRIBE without id: got %v, want ErrMissingHeader", err)
	}

	f = &frame.Frame{Command: frame.CONNECTED}
	if _, err := IncomingFromFrame(f); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("CONNECTED without version: got %v, want ErrMissingHeader", err)
	}
}

func TestMalformedContentLength(t *testing.T) {
	for _, value := range []string{"eleven", "-1"} {
		f := &frame.Frame{Command: frame.SEND, Headers: []frame.Header{
			{Name: "destination", Value: "/q"},
			{Name: "content-length", Value: value},
		}}
		if _, err := OutgoingFromFrame(f); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("content-length %q: got %v, want ErrMalformedHeader", value, err)
		}
	}
}

func TestMalformedHeartbeat(t *testing.T) {
	f := &frame.Frame{Command: frame.CONNECTED, Headers: []frame.Header{
		{Name: "version", Value: "1.2"},
		{Name: "heart-beat", Value: "fast"},
	}}
	if _, err := IncomingFromFrame(f); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("malformed heart-beat: got %v, want ErrMalformedHeader", err)
	}
}

func TestInvalidAckMode(t *testing.T) {
	f := &frame.Frame{Command: frame.SUBSCRIBE, Headers: []frame.Header{
		{Name: "destination", Value: "/q"},
		{Name: "id", Value: "0"},
		{Name: "ack", Value: "maybe"},
	}}
	if _, err := OutgoingFromFrame(f); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("invalid ack mode: got %v, want ErrMalformedHeader", err)
	}
}

func TestContentLengthNeverLeaksIntoExtras(t *testing.T) {
	f := &frame.Frame{Command: frame.SEND, Headers: []frame.Header{
		{Name: "destination", Value: "/q"},
		{Name: "content-length", Value: "3"},
	}, Body: []byte("abc")}
	m, err := OutgoingFromFrame(f)
	if err != nil {
		t.Fatalf("OutgoingFromFrame failed: %v", err)
	}
	if len(m.ExtraHeaders) != 0 {
		t.Errorf("content-length leaked into ExtraHeaders: %v", m.ExtraHeaders)
	}
}
