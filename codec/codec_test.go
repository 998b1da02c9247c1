package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"stomp-client/frame"
	"stomp-client/message"
)

func TestClientCodecEncodeDecode(t *testing.T) {
	// A client encodes with ClientCodec and a server decodes with
	// ServerCodec; the typed message must survive unchanged.
	clientSide := ClientCodec{}
	serverSide := ServerCodec{}

	sent := &message.Outgoing{
		Content: &message.Send{Destination: "/queue/a", Body: []byte("hello")},
		ExtraHeaders: []frame.Header{
			{Name: "correlation-id", Value: "7"},
		},
	}

	var wire bytes.Buffer
	if err := clientSide.Encode(sent, &wire); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := serverSide.Decode(&wire)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got == nil {
		t.Fatal("Decode returned incomplete for a full frame")
	}
	if !reflect.DeepEqual(got, sent) {
		t.Errorf("message mismatch:\n got  %#v\n want %#v", got, sent)
	}
	if wire.Len() != 0 {
		t.Errorf("decode left %d bytes unconsumed", wire.Len())
	}
}

func TestDecodeIncompleteLeavesBufferAlone(t *testing.T) {
	var wire bytes.Buffer
	connected := &message.Incoming{Content: &message.Connected{Version: "1.2"}}
	if err := (ServerCodec{}).Encode(connected, &wire); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	full := wire.Bytes()

	// Every strict prefix decodes to "not yet" without consuming bytes.
	for i := 0; i < len(full); i++ {
		buf := bytes.NewBuffer(append([]byte(nil), full[:i]...))
		msg, err := (ClientCodec{}).Decode(buf)
		if err != nil {
			t.Fatalf("Decode failed on %d-byte prefix: %v", i, err)
		}
		if msg != nil {
			t.Fatalf("got message from %d-byte prefix", i)
		}
		if buf.Len() != i {
			t.Fatalf("incomplete decode consumed bytes: %d left of %d", buf.Len(), i)
		}
	}
}

func TestDecodeByteAtATimeMatchesOneShot(t *testing.T) {
	var wire bytes.Buffer
	want := &message.Incoming{Content: &message.Message{
		Destination:  "/queue/a",
		MessageID:    "m-1",
		Subscription: "sub-0",
		Body:         []byte("drip fed"),
	}}
	if err := (ServerCodec{}).Encode(want, &wire); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	full := wire.Bytes()

	var buf bytes.Buffer
	var got *message.Incoming
	for _, b := range full {
		buf.WriteByte(b)
		msg, err := (ClientCodec{}).Decode(&buf)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if msg != nil {
			if got != nil {
				t.Fatal("decoded two messages from one frame")
			}
			got = msg
		}
	}
	if got == nil {
		t.Fatal("never decoded a message")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("message mismatch:\n got  %#v\n want %#v", got, want)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes left after full frame", buf.Len())
	}
}

func TestDecodeTwoFramesSequentially(t *testing.T) {
	var wire bytes.Buffer
	first := &message.Incoming{Content: &message.Receipt{ReceiptID: "r-1"}}
	second := &message.Incoming{Content: &message.Receipt{ReceiptID: "r-2"}}
	server := ServerCodec{}
	server.Encode(first, &wire)
	server.Encode(second, &wire)

	client := ClientCodec{}
	got1, err := client.Decode(&wire)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}
	got2, err := client.Decode(&wire)
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}
	if got1.Content.(*message.Receipt).ReceiptID != "r-1" {
		t.Errorf("first message out of order: %#v", got1.Content)
	}
	if got2.Content.(*message.Receipt).ReceiptID != "r-2" {
		t.Errorf("second message out of order: %#v", got2.Content)
	}
	if wire.Len() != 0 {
		t.Errorf("%d bytes left after two frames", wire.Len())
	}
}

func TestDecodeGrammarError(t *testing.T) {
	buf := bytes.NewBufferString("BOGUS\n\n\x00")
	_, err := (ClientCodec{}).Decode(buf)
	if !errors.Is(err, frame.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDecodeMappingError(t *testing.T) {
	// Well-formed frame, wrong direction for a client.
	var wire bytes.Buffer
	f := &frame.Frame{Command: frame.SEND, Headers: []frame.Header{{Name: "destination", Value: "/q"}}}
	f.Serialize(&wire)

	_, err := (ClientCodec{}).Decode(&wire)
	if !errors.Is(err, message.ErrWrongDirection) {
		t.Fatalf("expected ErrWrongDirection, got %v", err)
	}
	// The frame itself was consumed cleanly — mapping errors don't
	// poison the stream.
	if wire.Len() != 0 {
		t.Errorf("mapping error left %d bytes unconsumed", wire.Len())
	}
}
