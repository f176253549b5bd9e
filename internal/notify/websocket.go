package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnected
	WSStateClosed
)

var ErrWebSocketClosed = errors.New("websocket publisher closed")

// WebSocket writes events as JSON frames on a single connection. It dials
// lazily and redials once when a write fails.
type WebSocket struct {
	wsURL   string
	headers HeaderProvider
	timeout time.Duration

	mu    sync.Mutex
	conn  *websocket.Conn
	state WebSocketState
}

func NewWebSocket(wsURL string, timeout time.Duration) *WebSocket {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebSocket{wsURL: strings.TrimSpace(wsURL), timeout: timeout}
}

func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
	ws.mu.Lock()
	ws.headers = h
	ws.mu.Unlock()
}

func (ws *WebSocket) State() WebSocketState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

func (ws *WebSocket) Publish(ctx context.Context, ev Event) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.state == WSStateClosed {
		return ErrWebSocketClosed
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if ws.conn == nil {
			if err := ws.dialLocked(ctx); err != nil {
				return err
			}
		}
		wctx, cancel := context.WithTimeout(ctx, ws.timeout)
		lastErr = wsjson.Write(wctx, ws.conn, ev)
		cancel()
		if lastErr == nil {
			return nil
		}
		ws.dropLocked(websocket.StatusGoingAway, "write failure")
	}
	return lastErr
}

func (ws *WebSocket) dialLocked(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, ws.timeout)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		ws.state = WSStateDisconnected
		return err
	}
	// Nothing is read from the peer; CloseRead handles control frames.
	conn.CloseRead(context.Background())
	ws.conn = conn
	ws.state = WSStateConnected
	return nil
}

func (ws *WebSocket) dropLocked(code websocket.StatusCode, reason string) {
	if ws.conn != nil {
		_ = ws.conn.Close(code, reason)
		ws.conn = nil
	}
	if ws.state != WSStateClosed {
		ws.state = WSStateDisconnected
	}
}

func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.dropLocked(websocket.StatusNormalClosure, "close")
	ws.state = WSStateClosed
	return nil
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
