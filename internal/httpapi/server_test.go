package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/internal/store"
	"github.com/park285/boardsync/pkg/boarddto"
)

type sink struct {
	mu     sync.Mutex
	events map[string][]game.Event
}

func (s *sink) Listener(id string) game.Listener {
	return func(ev game.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.events == nil {
			s.events = make(map[string][]game.Event)
		}
		s.events[id] = append(s.events[id], ev)
	}
}

func (s *sink) kinds(id string) []game.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.EventKind
	for _, ev := range s.events[id] {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	client  *fasthttp.Client
	events  *sink
	archive archive.Repository
	store   *store.Redis
}

func newManager(t *testing.T) *game.Manager {
	t.Helper()
	m, err := game.NewManager(game.ManagerConfig{
		Factory:     func() game.Engine { return chess.NewEngine(chess.WithRandomSeed(1)) },
		GameOptions: game.Options{Now: func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func newStore(t *testing.T) *store.Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	st, err := store.Open(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func startServer(t *testing.T, m *game.Manager, st *store.Redis, repo archive.Repository) *harness {
	t.Helper()
	h := &harness{events: &sink{}, archive: repo, store: st}
	cfg := Config{Manager: m, Archive: repo, Events: h.events, RequestTimeout: 5 * time.Second}
	if st != nil {
		cfg.Store = st
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = ln.Close()
	})
	h.client = &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.Header.SetMethod(method)
	req.SetRequestURI("http://boardsync.test" + path)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	if err := h.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func (h *harness) create(t *testing.T, req boarddto.CreateSessionRequest) *boarddto.SessionState {
	t.Helper()
	status, raw := h.do(t, fasthttp.MethodPost, "/sessions", req)
	if status != fasthttp.StatusCreated {
		t.Fatalf("create status = %d body=%s", status, raw)
	}
	return decode[boarddto.CreateSessionResponse](t, raw).State
}

func (h *harness) move(t *testing.T, id, mv string) boarddto.MoveSummary {
	t.Helper()
	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/move", boarddto.MoveRequest{Move: mv})
	if status != fasthttp.StatusOK {
		t.Fatalf("move %s status = %d body=%s", mv, status, raw)
	}
	return decode[boarddto.MoveSummary](t, raw)
}

func TestCreateMoveAndReject(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	st := h.create(t, boarddto.CreateSessionRequest{UserSide: "black", Difficulty: "hard"})
	if st.FEN != board.StartFEN || st.UserSide != "black" || st.Difficulty != "hard" || len(st.Pieces) != 32 {
		t.Fatalf("state = %+v", st)
	}
	if st.Tags[game.TagWhite] != game.PlayerCPU {
		t.Fatalf("tags = %v", st.Tags)
	}

	sum := h.move(t, st.SessionID, "e2e4")
	if sum.Status != "applied" || sum.Kind != "ordinary" || sum.State.SideToMove != "black" {
		t.Fatalf("summary = %+v", sum)
	}
	sum = h.move(t, st.SessionID, "e7e4")
	if sum.Status != "rejected" || len(sum.State.History) != 1 {
		t.Fatalf("illegal move summary = %+v", sum)
	}

	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+st.SessionID+"/move", boarddto.MoveRequest{From: "z9", To: "e4"})
	if status != fasthttp.StatusBadRequest {
		t.Fatalf("bad square status = %d %s", status, raw)
	}
	if diff := cmp.Diff([]game.EventKind{game.EventMove}, h.events.kinds(st.SessionID)); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestCaptureAndPGN(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID
	h.move(t, id, "e2e4")
	h.move(t, id, "d7d5")
	sum := h.move(t, id, "e4d5")
	if sum.Kind != "capture" || sum.Captured != "pawn" || sum.Notation != "e4xd5" {
		t.Fatalf("summary = %+v", sum)
	}
	if diff := cmp.Diff([]string{"pawn"}, sum.State.Captured.White); diff != "" {
		t.Fatalf("captured (-want +got):\n%s", diff)
	}
	if sum.State.Material.White != 1 || len(sum.State.Pieces) != 31 {
		t.Fatalf("material/pieces = %+v %d", sum.State.Material, len(sum.State.Pieces))
	}

	status, raw := h.do(t, fasthttp.MethodGet, "/sessions/"+id+"/pgn", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("pgn status = %d", status)
	}
	if !strings.Contains(string(raw), "1. e4 d5 2. exd5 *") || !strings.Contains(string(raw), `[Date "2026.10.19"]`) {
		t.Fatalf("pgn:\n%s", raw)
	}
}

func TestSetTags(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID

	status, _ := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/tags", boarddto.TagsRequest{Tags: map[string]string{"FEN": "8/8/8/8/8/8/8/8 w - - 0 1"}})
	if status != fasthttp.StatusBadRequest {
		t.Fatalf("FEN tag status = %d", status)
	}
	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/tags", boarddto.TagsRequest{Tags: map[string]string{"White": "Alice", "Round": "4"}})
	if status != fasthttp.StatusOK {
		t.Fatalf("tags status = %d: %s", status, raw)
	}
	state := decode[boarddto.SessionState](t, raw)
	if state.Tags["White"] != "Alice" || state.Tags["Round"] != "4" {
		t.Fatalf("tags = %v", state.Tags)
	}
	_, raw = h.do(t, fasthttp.MethodGet, "/sessions/"+id+"/pgn", nil)
	if !strings.Contains(string(raw), `[White "Alice"]`) || !strings.Contains(string(raw), `[Round "4"]`) {
		t.Fatalf("pgn:\n%s", raw)
	}
}

func TestLoadPosition(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID

	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/load", boarddto.LoadRequest{FEN: "8/8/8 w - - 0 1"})
	if status != fasthttp.StatusUnprocessableEntity {
		t.Fatalf("malformed load status = %d", status)
	}
	if e := decode[boarddto.ErrorResponse](t, raw); e.Error.Code != boarddto.CodeMalformedPosition {
		t.Fatalf("error = %+v", e)
	}

	fen := "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	status, raw = h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/load", boarddto.LoadRequest{FEN: fen})
	if status != fasthttp.StatusOK {
		t.Fatalf("load status = %d %s", status, raw)
	}
	st := decode[boarddto.SessionState](t, raw)
	if st.FEN != fen || st.StartFEN != fen || st.Tags[game.TagSetUp] != "1" {
		t.Fatalf("state = %+v", st)
	}
	if diff := cmp.Diff([]string{"queen"}, st.Captured.White); diff != "" {
		t.Fatalf("inferred ledger (-want +got):\n%s", diff)
	}
}

func TestEngineMoveAndNewGame(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{UserSide: "black"}).SessionID

	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/engine-move", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("engine-move status = %d %s", status, raw)
	}
	sum := decode[boarddto.MoveSummary](t, raw)
	if sum.Status != "applied" || sum.State.SideToMove != "black" || !sum.State.UserToMove {
		t.Fatalf("summary = %+v", sum)
	}

	status, raw = h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/new", boarddto.NewGameRequest{UserSide: "white", Difficulty: "medium"})
	if status != fasthttp.StatusOK {
		t.Fatalf("new status = %d %s", status, raw)
	}
	st := decode[boarddto.SessionState](t, raw)
	if st.FEN != board.StartFEN || len(st.History) != 0 || st.UserSide != "white" || st.Difficulty != "medium" {
		t.Fatalf("state = %+v", st)
	}

	status, _ = h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/new", boarddto.NewGameRequest{Difficulty: "grandmaster"})
	if status != fasthttp.StatusBadRequest {
		t.Fatalf("bad difficulty status = %d", status)
	}
}

func TestSessionsSurviveRestartViaStore(t *testing.T) {
	st := newStore(t)
	first := startServer(t, newManager(t), st, nil)
	id := first.create(t, boarddto.CreateSessionRequest{}).SessionID
	first.move(t, id, "e2e4")

	second := startServer(t, newManager(t), st, nil)
	status, raw := second.do(t, fasthttp.MethodGet, "/sessions/"+id, nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("revive status = %d %s", status, raw)
	}
	got := decode[boarddto.SessionState](t, raw)
	if diff := cmp.Diff([]string{"e2e4"}, got.History); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
	second.move(t, id, "e7e5")
	if diff := cmp.Diff([]game.EventKind{game.EventMove}, second.events.kinds(id)); diff != "" {
		t.Fatalf("revived session not subscribed (-want +got):\n%s", diff)
	}

	status, _ = second.do(t, fasthttp.MethodDelete, "/sessions/"+id, nil)
	if status != fasthttp.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	third := startServer(t, newManager(t), st, nil)
	if status, _ := third.do(t, fasthttp.MethodGet, "/sessions/"+id, nil); status != fasthttp.StatusNotFound {
		t.Fatalf("deleted session revived: %d", status)
	}
}

func TestSaveAndRecentGames(t *testing.T) {
	h := startServer(t, newManager(t), nil, archive.NewMemoryRepository())
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		h.move(t, id, mv)
	}
	status, raw := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/save", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("save status = %d %s", status, raw)
	}
	saved := decode[boarddto.SaveResponse](t, raw).Game
	if saved.Result != "0-1" || saved.SessionID != id {
		t.Fatalf("saved = %+v", saved)
	}

	status, raw = h.do(t, fasthttp.MethodGet, "/games?limit=5", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("games status = %d", status)
	}
	games := decode[boarddto.RecentGamesResponse](t, raw).Games
	if len(games) != 1 || games[0].SessionID != id || !strings.Contains(games[0].PGN, `[Result "0-1"]`) {
		t.Fatalf("games = %+v", games)
	}
}

func TestArchiveNotConfigured(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID
	if status, _ := h.do(t, fasthttp.MethodPost, "/sessions/"+id+"/save", nil); status != fasthttp.StatusServiceUnavailable {
		t.Fatalf("save status = %d", status)
	}
}

func TestBoardPNG(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	id := h.create(t, boarddto.CreateSessionRequest{}).SessionID
	h.move(t, id, "e2e4")
	status, raw := h.do(t, fasthttp.MethodGet, "/sessions/"+id+"/board.png?size=24&orientation=black", nil)
	if status != fasthttp.StatusOK || !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatalf("board.png status = %d len=%d", status, len(raw))
	}
	if status, _ := h.do(t, fasthttp.MethodGet, "/sessions/"+id+"/board.png?orientation=green", nil); status != fasthttp.StatusBadRequest {
		t.Fatalf("bad orientation status = %d", status)
	}
}

func TestRoutingErrors(t *testing.T) {
	h := startServer(t, newManager(t), nil, nil)
	cases := []struct {
		method, path string
		want         int
	}{
		{fasthttp.MethodGet, "/healthz", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/nowhere", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/sessions/6f1c2a3e-9d7b-4c1e-8f00-2a4b6c8d0e12", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/sessions/6f1c2a3e-9d7b-4c1e-8f00-2a4b6c8d0e12/move", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodPost, "/sessions/6f1c2a3e-9d7b-4c1e-8f00-2a4b6c8d0e12/fly", fasthttp.StatusNotFound},
		{fasthttp.MethodPut, "/sessions", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodDelete, "/sessions/6f1c2a3e-9d7b-4c1e-8f00-2a4b6c8d0e12", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/games", fasthttp.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if status, raw := h.do(t, tc.method, tc.path, nil); status != tc.want {
			t.Fatalf("%s %s = %d, want %d (%s)", tc.method, tc.path, status, tc.want, raw)
		}
	}

	status, _ := h.do(t, fasthttp.MethodPost, "/sessions", json.RawMessage(`{"user_side":"purple"}`))
	if status != fasthttp.StatusBadRequest {
		t.Fatalf("bad side status = %d", status)
	}
}
