package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/game"
)

// startWebhook serves handler on an in-memory listener and returns a client
// wired to it.
func startWebhook(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(); _ = ln.Close() })
	return NewClient("http://notify.test/events",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
	)
}

func sampleEvent() Event {
	return Event{
		SessionID: "s1",
		Kind:      "move",
		FEN:       board.StartFEN,
		Move:      "e2e4",
		Notation:  "e2e4",
		MoveKind:  "ordinary",
		At:        time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestClientPublishRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var got Event
	c := startWebhook(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if string(ctx.Request.Header.Peek("X-Boardsync-Event")) != "move" || string(ctx.Request.Header.Peek("X-Boardsync-Session")) != "s1" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		if err := json.Unmarshal(ctx.PostBody(), &got); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})

	if err := c.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(sampleEvent(), got); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}
}

func TestClientPublishNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := startWebhook(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("bad payload")
	})
	err := c.Publish(context.Background(), sampleEvent())
	if err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("Publish err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func startWSServer(t *testing.T) (string, <-chan Event) {
	t.Helper()
	frames := make(chan Event, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		for {
			var ev Event
			if err := wsjson.Read(r.Context(), c, &ev); err != nil {
				return
			}
			frames <- ev
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), frames
}

func TestWebSocketPublish(t *testing.T) {
	url, frames := startWSServer(t)
	ws := NewWebSocket(url, time.Second)
	t.Cleanup(func() { _ = ws.Close() })
	ws.SetHeaderProvider(func() map[string]string { return map[string]string{"Authorization": "Bearer secret"} })

	if err := ws.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case got := <-frames:
		if diff := cmp.Diff(sampleEvent(), got); diff != "" {
			t.Fatalf("frame (-want +got):\n%s", diff)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame received")
	}
	if ws.State() != WSStateConnected {
		t.Fatalf("state = %v", ws.State())
	}

	_ = ws.Close()
	if err := ws.Publish(context.Background(), sampleEvent()); !errors.Is(err, ErrWebSocketClosed) {
		t.Fatalf("Publish after close = %v", err)
	}
}

func TestAutoFallsBackToHTTP(t *testing.T) {
	var calls atomic.Int32
	c := startWebhook(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	ws := NewWebSocket("ws://127.0.0.1:1/unreachable", 200*time.Millisecond)
	n, err := New(ModeAuto, c, ws, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("http fallback not used")
	}
}

func TestNewValidatesMode(t *testing.T) {
	if n, err := New("", nil, nil, nil); err != nil || n == nil {
		t.Fatalf("off mode: %v", err)
	}
	if _, err := New(ModeHTTP, nil, nil, nil); err == nil {
		t.Fatalf("http without client accepted")
	}
	if _, err := New("smoke", nil, nil, nil); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func TestDispatcherListener(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, time.Second, nil)
	d.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	l := d.Listener("s1")
	cls := board.Classification{
		Kind:     board.Capture,
		Captured: board.Piece{Kind: board.Queen, Side: board.Black},
		Notation: "d1xd8",
	}
	l(game.Event{Kind: game.EventMove, FEN: board.StartFEN, Move: "d1d8", Classification: &cls})
	l(game.Event{Kind: game.EventLoad, FEN: board.StartFEN})

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.Enqueue(sampleEvent()) {
		t.Fatalf("enqueue after close accepted")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	first := rec.events[0]
	if first.SessionID != "s1" || first.MoveKind != "capture" || first.Captured != "queen" || first.Notation != "d1xd8" {
		t.Fatalf("first = %+v", first)
	}
	if rec.events[1].Kind != "load" || rec.events[1].MoveKind != "" {
		t.Fatalf("second = %+v", rec.events[1])
	}
}
