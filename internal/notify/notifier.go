package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Notifier delivers one event to the configured sink.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

const (
	ModeOff  = "off"
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// New picks a transport by mode. In auto mode WebSocket is tried first and
// HTTP is used once when it fails.
func New(mode string, c *Client, ws *WebSocket, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case "", ModeOff:
		return Nop{}, nil
	case ModeHTTP:
		if c == nil {
			return nil, fmt.Errorf("notify mode %s requires an http client", mode)
		}
		return c, nil
	case ModeWS:
		if ws == nil {
			return nil, fmt.Errorf("notify mode %s requires a websocket", mode)
		}
		return ws, nil
	case ModeAuto:
		if c == nil || ws == nil {
			return nil, fmt.Errorf("notify mode %s requires http and websocket", mode)
		}
		return &auto{ws: ws, http: c, logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown notify mode %q", mode)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type auto struct {
	ws     *WebSocket
	http   *Client
	logger *zap.Logger
}

func (a *auto) Publish(ctx context.Context, ev Event) error {
	err := a.ws.Publish(ctx, ev)
	if err == nil {
		return nil
	}
	a.logger.Warn("notify_fallback", zap.String("session_id", ev.SessionID), zap.String("kind", ev.Kind), zap.Error(err))
	return a.http.Publish(ctx, ev)
}
