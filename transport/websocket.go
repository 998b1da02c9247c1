package transport

import (
	"context"
	"io"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// DialWebSocket connects to a STOMP-over-WebSocket endpoint and returns a
// duplex byte stream suitable for NewClientTransport. Frame bytes are
// carried in binary WebSocket messages; message boundaries are irrelevant
// to the codec, which frames on the NUL terminator like any other stream.
func DialWebSocket(ctx context.Context, url string) (io.ReadWriteCloser, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial websocket %s", url)
	}
	return &wsStream{conn: conn}, nil
}

// wsStream presents a websocket connection as an io.ReadWriteCloser.
type wsStream struct {
	conn    *websocket.Conn
	current io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.current == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.current = r
		}
		n, err := s.current.Read(p)
		if errors.Is(err, io.EOF) {
			// This websocket message is drained; move to the next.
			s.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
