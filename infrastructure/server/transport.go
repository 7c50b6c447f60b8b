package server

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
)

var _ contract.Transport = (*wsTransport)(nil)

// wsTransport adapts a fiber WebSocket connection to contract.Transport.
// WriteControl and Close are safe next to a concurrent WriteMessage.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn, writeTimeout time.Duration) *wsTransport {
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}
}

func (t *wsTransport) ReadFrame() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
	}
	return data, nil
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
	}
	return nil
}

func (t *wsTransport) WriteClose(code int, reason string) error {
	return t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(t.writeTimeout))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
