package httpapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/internal/pgn"
	"github.com/park285/boardsync/internal/render"
	"github.com/park285/boardsync/pkg/boarddto"
)

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req boarddto.CreateSessionRequest
	if !decodeBody(ctx, &req) {
		return
	}
	side, level, err := parseSettings(req.UserSide, req.Difficulty)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid(err.Error()))
		return
	}

	rctx, cancel := s.requestContext()
	defer cancel()
	id, err := s.cfg.Manager.Create(rctx, func(o *game.Options) {
		if side != board.NoSide {
			o.UserSide = side
		}
		if level != nil {
			o.Difficulty = *level
		}
		if len(req.Tags) > 0 {
			tags := make(map[string]string, len(o.Tags)+len(req.Tags))
			for k, v := range o.Tags {
				tags[k] = v
			}
			for k, v := range req.Tags {
				tags[k] = v
			}
			o.Tags = tags
		}
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	s.subscribe(id)

	var state *boarddto.SessionState
	err = s.withSession(rctx, id, true, func(g *game.Game) error {
		state = sessionState(id, g)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, boarddto.CreateSessionResponse{State: state})
}

func (s *Server) handleList(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string][]string{"sessions": s.cfg.Manager.IDs()})
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.requestContext()
	defer cancel()
	var state *boarddto.SessionState
	err := s.withSession(rctx, id, false, func(g *game.Game) error {
		state = sessionState(id, g)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, state)
}

func (s *Server) handleDelete(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.requestContext()
	defer cancel()
	found := s.cfg.Manager.Delete(id)
	if s.cfg.Store != nil {
		if st, err := s.cfg.Store.Load(rctx, id); err == nil && st != nil {
			found = true
		}
		if err := s.cfg.Store.Delete(rctx, id); err != nil {
			s.writeErr(ctx, err)
			return
		}
	}
	if !found {
		s.writeErr(ctx, game.ErrSessionNotFound)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.MoveRequest
	if !decodeBody(ctx, &req) {
		return
	}
	from, to, err := parseMoveRequest(req)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid(err.Error()))
		return
	}

	rctx, cancel := s.requestContext()
	defer cancel()
	var summary *boarddto.MoveSummary
	err = s.withSession(rctx, id, true, func(g *game.Game) error {
		res, err := g.Move(rctx, from, to)
		if err != nil {
			return err
		}
		summary = moveSummary(id, g, res)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, summary)
}

func (s *Server) handleEngineMove(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.requestContext()
	defer cancel()
	var summary *boarddto.MoveSummary
	err := s.withSession(rctx, id, true, func(g *game.Game) error {
		res, err := g.EngineMove(rctx)
		if err != nil {
			return err
		}
		summary = moveSummary(id, g, res)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, summary)
}

func (s *Server) handleLoad(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.LoadRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if strings.TrimSpace(req.FEN) == "" {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid("fen is required"))
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	var state *boarddto.SessionState
	err := s.withSession(rctx, id, true, func(g *game.Game) error {
		if err := g.LoadPosition(rctx, req.FEN); err != nil {
			return err
		}
		state = sessionState(id, g)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, state)
}

func (s *Server) handleNewGame(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.NewGameRequest
	if !decodeBody(ctx, &req) {
		return
	}
	side, level, err := parseSettings(req.UserSide, req.Difficulty)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid(err.Error()))
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	var state *boarddto.SessionState
	err = s.withSession(rctx, id, true, func(g *game.Game) error {
		if level != nil {
			g.SetDifficulty(*level)
		}
		if err := g.NewGame(rctx); err != nil {
			return err
		}
		if side != board.NoSide {
			if err := g.SetUserSide(side); err != nil {
				return err
			}
		}
		state = sessionState(id, g)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, state)
}

func (s *Server) handleTags(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.TagsRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if len(req.Tags) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid("tags are required"))
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	var state *boarddto.SessionState
	err := s.withSession(rctx, id, true, func(g *game.Game) error {
		names := make([]string, 0, len(req.Tags))
		for name := range req.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := g.SetTag(name, req.Tags[name]); err != nil {
				return badRequest{err}
			}
		}
		state = sessionState(id, g)
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, state)
}

func (s *Server) handleSave(ctx *fasthttp.RequestCtx, id string) {
	if s.cfg.Archive == nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, boarddto.DomainError{Code: boarddto.CodeUnavailable, Message: "archive not configured"})
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	var rec *archive.Game
	err := s.withSession(rctx, id, false, func(g *game.Game) error {
		rec = archive.FromSession(id, g, s.cfg.Now())
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	if err := s.cfg.Archive.SaveGame(rctx, rec); err != nil {
		s.writeErr(ctx, err)
		return
	}
	s.log.Info("game_archived", zap.String("session_id", id), zap.String("result", rec.Result), zap.Int("moves", len(rec.Moves)))
	writeJSON(ctx, fasthttp.StatusOK, boarddto.SaveResponse{Game: gameRecord(rec)})
}

func (s *Server) handleRecentGames(ctx *fasthttp.RequestCtx) {
	if s.cfg.Archive == nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, boarddto.DomainError{Code: boarddto.CodeUnavailable, Message: "archive not configured"})
		return
	}
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	rctx, cancel := s.requestContext()
	defer cancel()
	games, err := s.cfg.Archive.RecentGames(rctx, limit)
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	out := boarddto.RecentGamesResponse{Games: make([]*boarddto.GameRecord, 0, len(games))}
	for _, g := range games {
		out.Games = append(out.Games, gameRecord(g))
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handlePGN(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.requestContext()
	defer cancel()
	var text string
	err := s.withSession(rctx, id, false, func(g *game.Game) error {
		text = pgn.Build(pgn.Record{
			Tags:     g.Tags(),
			StartFEN: g.StartPosition(),
			Moves:    g.Moves(),
			Notation: g.History(),
			ECO:      true,
		})
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/x-chess-pgn; charset=utf-8")
	ctx.SetBodyString(text)
}

func (s *Server) handleBoardPNG(ctx *fasthttp.RequestCtx, id string) {
	args := ctx.QueryArgs()
	opts := render.Options{}
	if v := string(args.Peek("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, codeInvalid("size must be an integer"))
			return
		}
		opts.SquareSize = n
	}
	orientation := string(args.Peek("orientation"))

	rctx, cancel := s.requestContext()
	defer cancel()
	var raw []byte
	err := s.withSession(rctx, id, false, func(g *game.Game) error {
		opts.Orientation = g.UserSide()
		if orientation != "" {
			side, err := board.ParseSide(orientation)
			if err != nil {
				return badRequest{err}
			}
			opts.Orientation = side
		}
		if from, to, ok := g.LastMove(); ok {
			opts.Highlight = &render.Highlight{From: from, To: to}
		}
		tags := g.Tags()
		opts.Caption = tags[game.TagWhite] + " vs " + tags[game.TagBlack]
		opts.Material = g.MaterialTaken(board.White) - g.MaterialTaken(board.Black)
		pieces := g.Pieces()
		var err error
		raw, err = render.PNG(rctx, &pieces, opts)
		if err != nil {
			return badRequest{err}
		}
		return nil
	})
	if err != nil {
		s.writeErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(raw)
}

func parseSettings(sideText, levelText string) (board.Side, *chess.Level, error) {
	side := board.NoSide
	if strings.TrimSpace(sideText) != "" {
		v, err := board.ParseSide(strings.TrimSpace(sideText))
		if err != nil {
			return board.NoSide, nil, err
		}
		side = v
	}
	var level *chess.Level
	if strings.TrimSpace(levelText) != "" {
		v, err := chess.ParseLevel(levelText)
		if err != nil {
			return board.NoSide, nil, err
		}
		level = &v
	}
	return side, level, nil
}

func parseMoveRequest(req boarddto.MoveRequest) (board.Square, board.Square, error) {
	if mv := strings.TrimSpace(req.Move); mv != "" {
		return board.ParseMove(mv)
	}
	from, err := board.ParseSquare(strings.TrimSpace(req.From))
	if err != nil {
		return board.Offboard, board.Offboard, err
	}
	to, err := board.ParseSquare(strings.TrimSpace(req.To))
	if err != nil {
		return board.Offboard, board.Offboard, err
	}
	return from, to, nil
}
