package frame

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// Grammar errors. Any of these means the byte stream can no longer be
// trusted: the caller must not retry or skip bytes, the connection is done.
var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrInvalidHeader     = errors.New("invalid header line")
	ErrInvalidEscape     = errors.New("invalid escape sequence")
	ErrControlChar       = errors.New("unescaped control character in header")
	ErrMissingTerminator = errors.New("missing frame terminator")
)

// Parse attempts to parse exactly one frame from the front of data.
//
// Returns:
//   - (frame, consumed, nil) on success. The caller must discard exactly
//     `consumed` bytes; whatever follows belongs to the next frame.
//   - (nil, 0, nil) when data holds only a prefix of a frame. The caller
//     keeps every byte and calls again once more input arrives — Parse
//     itself holds no state between calls.
//   - (nil, 0, err) when the bytes violate the frame grammar.
//
// Leading end-of-line padding (server keep-alive newlines between frames)
// is tolerated and skipped; it never produces a frame on its own.
func Parse(data []byte) (*Frame, int, error) {
	pos := 0

	// Skip keep-alive padding: any run of LF or CRLF before the command.
	for pos < len(data) {
		if data[pos] == '\n' {
			pos++
			continue
		}
		if data[pos] == '\r' {
			if pos+1 >= len(data) {
				return nil, 0, nil // could be half of a CRLF, wait for more
			}
			if data[pos+1] == '\n' {
				pos += 2
				continue
			}
		}
		break
	}
	if pos == len(data) {
		return nil, 0, nil
	}

	line, next, ok, err := readLine(data, pos)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}
	command := Command(line)
	if !command.Valid() {
		return nil, 0, errors.Wrapf(ErrUnknownCommand, "%q", string(line))
	}
	pos = next

	// Header block: name:value lines until the blank separator line.
	var headers []Header
	for {
		line, next, ok, err = readLine(data, pos)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, nil
		}
		pos = next
		if len(line) == 0 {
			break
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return nil, 0, errors.Wrapf(ErrInvalidHeader, "%q", string(line))
		}
		name, err := unescape(line[:colon])
		if err != nil {
			return nil, 0, err
		}
		value, err := unescape(line[colon+1:])
		if err != nil {
			return nil, 0, err
		}
		headers = append(headers, Header{Name: name, Value: value})
	}

	// Body length: explicit via content-length when it parses as an
	// integer, otherwise everything up to the next NUL. A content-length
	// value that is not an integer is left for the message layer to
	// reject; the bytes themselves are still framed by the terminator.
	length := -1
	for _, h := range headers {
		if h.Name == ContentLength {
			if v, convErr := strconv.Atoi(h.Value); convErr == nil && v >= 0 {
				length = v
			}
			break
		}
	}

	var body []byte
	if length >= 0 {
		if len(data) < pos+length+1 {
			return nil, 0, nil
		}
		if data[pos+length] != 0 {
			return nil, 0, errors.Wrapf(ErrMissingTerminator, "after %d body bytes", length)
		}
		// content-length:0 still means "a body is present"; keep the
		// distinction from no body at all.
		body = make([]byte, length)
		copy(body, data[pos:pos+length])
		pos += length + 1
	} else {
		end := bytes.IndexByte(data[pos:], 0)
		if end < 0 {
			return nil, 0, nil
		}
		if end > 0 {
			body = append([]byte(nil), data[pos:pos+end]...)
		}
		pos += end + 1
	}

	return &Frame{Command: command, Headers: headers, Body: body}, pos, nil
}

// readLine returns the next LF-terminated line starting at pos, with any
// trailing CR stripped. ok is false when no full line is buffered yet.
//
// A NUL byte inside a command or header line means the frame terminator
// arrived before the blank line separating headers from body — that is a
// grammar error, not a short read, so it is reported even when the line's
// own LF has not arrived.
func readLine(data []byte, pos int) (line []byte, next int, ok bool, err error) {
	nl := bytes.IndexByte(data[pos:], '\n')
	limit := len(data)
	if nl >= 0 {
		limit = pos + nl
	}
	if z := bytes.IndexByte(data[pos:limit], 0); z >= 0 {
		return nil, 0, false, errors.Wrap(ErrMissingTerminator, "NUL before end of header block")
	}
	if nl < 0 {
		return nil, 0, false, nil
	}
	line = data[pos : pos+nl]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, pos + nl + 1, true, nil
}

// unescape decodes the header escapes written by escape. Undefined escape
// sequences and bare carriage returns are grammar errors per STOMP 1.2.
func unescape(raw []byte) (string, error) {
	if bytes.IndexByte(raw, '\\') < 0 && bytes.IndexByte(raw, '\r') < 0 {
		return string(raw), nil
	}
	var b bytes.Buffer
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\r' {
			return "", errors.Wrapf(ErrControlChar, "%q", string(raw))
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(raw) {
			return "", errors.Wrapf(ErrInvalidEscape, "trailing backslash in %q", string(raw))
		}
		switch raw[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'c':
			b.WriteByte(':')
		default:
			return "", errors.Wrapf(ErrInvalidEscape, `\%c in %q`, raw[i], string(raw))
		}
	}
	return b.String(), nil
}
