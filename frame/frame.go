// Package frame implements the STOMP 1.2 wire frame: a command line, a block
// of header lines, an optional body, and a single NUL terminator.
//
// Frame layout on the wire:
//
//	COMMAND\n
//	name:value\n        (zero or more, values escaped)
//	\n                  (blank line ends the header block)
//	body bytes          (content-length bytes, or up to the NUL)
//	\x00                (exactly one terminator per frame)
//
// TCP delivers this stream in arbitrary chunks, so Parse is written to be
// called repeatedly against a growing buffer: it either consumes exactly one
// complete frame from the front, or reports that it needs more bytes without
// touching anything. All resume state lives in the caller's buffer.
package frame

import (
	"bytes"
	"strconv"
	"strings"
)

// Command is the frame command line. The vocabulary is closed: anything else
// on the wire is a grammar error, not an extension point.
type Command string

const (
	CONNECT     Command = "CONNECT"
	CONNECTED   Command = "CONNECTED"
	SEND        Command = "SEND"
	MESSAGE     Command = "MESSAGE"
	SUBSCRIBE   Command = "SUBSCRIBE"
	UNSUBSCRIBE Command = "UNSUBSCRIBE"
	ACK         Command = "ACK"
	NACK        Command = "NACK"
	BEGIN       Command = "BEGIN"
	COMMIT      Command = "COMMIT"
	ABORT       Command = "ABORT"
	DISCONNECT  Command = "DISCONNECT"
	RECEIPT     Command = "RECEIPT"
	ERROR       Command = "ERROR"
)

// commands is the full closed vocabulary, both directions.
var commands = map[Command]bool{
	CONNECT: true, CONNECTED: true, SEND: true, MESSAGE: true,
	SUBSCRIBE: true, UNSUBSCRIBE: true, ACK: true, NACK: true,
	BEGIN: true, COMMIT: true, ABORT: true, DISCONNECT: true,
	RECEIPT: true, ERROR: true,
}

// Valid reports whether c belongs to the protocol vocabulary.
func (c Command) Valid() bool {
	return commands[c]
}

// Header is a single name/value pair. Order matters and duplicates are legal:
// the first occurrence of a name is authoritative on read, all occurrences
// are written back on write.
type Header struct {
	Name  string
	Value string
}

// ContentLength is the header that sizes a frame body explicitly.
const ContentLength = "content-length"

// Frame is one complete protocol unit. A nil Body means the frame carried no
// body bytes at all.
type Frame struct {
	Command Command
	Headers []Header
	Body    []byte
}

// Header returns the value of the first header with the given name.
// First-match-wins is the protocol convention for duplicate headers.
func (f *Frame) Header(name string) (string, bool) {
	for _, h := range f.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Serialize appends the frame's wire form to buf.
//
// If a body is present and the caller's headers do not already declare
// content-length, one is computed and written — the receiver then never has
// to scan body bytes for the terminator (which would truncate binary bodies
// containing NUL).
func (f *Frame) Serialize(buf *bytes.Buffer) {
	buf.WriteString(string(f.Command))
	buf.WriteByte('\n')

	if f.Body != nil {
		if _, ok := f.Header(ContentLength); !ok {
			buf.WriteString(ContentLength)
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(len(f.Body)))
			buf.WriteByte('\n')
		}
	}

	for _, h := range f.Headers {
		buf.WriteString(escape(h.Name))
		buf.WriteByte(':')
		buf.WriteString(escape(h.Value))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
}

// escaper applies the STOMP 1.2 header escapes. The same four sequences are
// decoded symmetrically in unescape.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
	":", `\c`,
)

func escape(s string) string {
	return escaper.Replace(s)
}
