// Package httpapi exposes sessions over HTTP with fasthttp.
package httpapi

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/game"
)

// SessionStore persists session snapshots between requests and restarts.
type SessionStore interface {
	Save(ctx context.Context, id string, st game.State) error
	Load(ctx context.Context, id string) (*game.State, error)
	Delete(ctx context.Context, id string) error
}

// EventSink hands out a listener for each session the server creates or
// revives.
type EventSink interface {
	Listener(sessionID string) game.Listener
}

type Config struct {
	Manager *game.Manager
	Store   SessionStore
	Archive archive.Repository
	Events  EventSink
	Logger  *zap.Logger
	Now     func() time.Time
	// RequestTimeout bounds engine and storage calls per request.
	RequestTimeout time.Duration
}

type Server struct {
	cfg Config
	log *zap.Logger
	srv *fasthttp.Server
}

func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("httpapi: manager required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{cfg: cfg, log: cfg.Logger}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "boardsync",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       cfg.RequestTimeout + 5*time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

// Serve is used by tests with an in-memory listener.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes:
//
//	GET    /healthz
//	GET    /games
//	GET    /sessions
//	POST   /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	POST   /sessions/{id}/{move|engine-move|load|new|tags|save}
//	GET    /sessions/{id}/{pgn|board.png}
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	method := string(ctx.Method())
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "healthz" && method == fasthttp.MethodGet:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == "games" && method == fasthttp.MethodGet:
		s.handleRecentGames(ctx)
	case path == "sessions":
		switch method {
		case fasthttp.MethodPost:
			s.handleCreate(ctx)
		case fasthttp.MethodGet:
			s.handleList(ctx)
		default:
			methodNotAllowed(ctx)
		}
	case len(parts) == 2 && parts[0] == "sessions":
		switch method {
		case fasthttp.MethodGet:
			s.handleGet(ctx, parts[1])
		case fasthttp.MethodDelete:
			s.handleDelete(ctx, parts[1])
		default:
			methodNotAllowed(ctx)
		}
	case len(parts) == 3 && parts[0] == "sessions":
		s.routeAction(ctx, method, parts[1], parts[2])
	default:
		writeError(ctx, fasthttp.StatusNotFound, codeNotFound("no such route"))
	}

	s.log.Debug("http_request",
		zap.String("method", method),
		zap.String("path", string(ctx.Path())),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) routeAction(ctx *fasthttp.RequestCtx, method, id, action string) {
	post := map[string]func(*fasthttp.RequestCtx, string){
		"move":        s.handleMove,
		"engine-move": s.handleEngineMove,
		"load":        s.handleLoad,
		"new":         s.handleNewGame,
		"save":        s.handleSave,
		"tags":        s.handleTags,
	}
	get := map[string]func(*fasthttp.RequestCtx, string){
		"pgn":       s.handlePGN,
		"board.png": s.handleBoardPNG,
	}
	table := get
	if method == fasthttp.MethodPost {
		table = post
	} else if method != fasthttp.MethodGet {
		methodNotAllowed(ctx)
		return
	}
	h, ok := table[action]
	if !ok {
		if _, other := post[action]; other {
			methodNotAllowed(ctx)
			return
		}
		if _, other := get[action]; other {
			methodNotAllowed(ctx)
			return
		}
		writeError(ctx, fasthttp.StatusNotFound, codeNotFound("no such action"))
		return
	}
	h(ctx, id)
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
}
