package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketInspector streams actions as JSON text frames.
type WebsocketInspector struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialInspector connects to a websocket endpoint.
func DialInspector(ctx context.Context, url string, header http.Header) (*WebsocketInspector, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial inspector %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial inspector %s: %w", url, err)
	}
	return &WebsocketInspector{conn: conn}, nil
}

// Send implements Inspector.
func (w *WebsocketInspector) Send(ctx context.Context, a Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteJSON(a)
}

// Close sends a close frame and closes the connection.
func (w *WebsocketInspector) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}
