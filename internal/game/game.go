// Package game holds one chess session: the engine collaborator, the mirrored
// piece model with its capture ledgers, move history, and PGN tags.
package game

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
)

// Engine is the rules authority. Positions are six-field FEN strings and
// moves are coordinate strings such as "e2e4".
type Engine interface {
	AttemptMove(ctx context.Context, move string) (bool, error)
	// RequestMove plays a move for the side to move and returns it, or
	// chess.NoMove when there is none.
	RequestMove(ctx context.Context, timeout time.Duration) (string, error)
	CurrentPosition(ctx context.Context) (string, error)
	LoadPosition(ctx context.Context, fen string) error
}

type levelSetter interface {
	SetLevel(chess.Level)
}

// ErrEngine wraps every failure reported by the Engine.
var ErrEngine = errors.New("engine failure")

type Status int

const (
	StatusApplied Status = iota
	StatusRejected
	StatusNoMove
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusRejected:
		return "rejected"
	case StatusNoMove:
		return "no_move"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MoveResult reports what a move request did. Classification is set only
// when Status is StatusApplied.
type MoveResult struct {
	Status         Status
	Move           string
	Classification board.Classification
}

type Options struct {
	UserSide   board.Side
	Difficulty chess.Level
	// Tags override DefaultTags on every NewGame.
	Tags   map[string]string
	Logger *zap.Logger
	Now    func() time.Time
}

// Game is a single session. It is not safe for concurrent use; Manager
// serialises access per session.
type Game struct {
	engine  Engine
	tracker *board.Tracker
	log     *zap.Logger
	now     func() time.Time

	baseTags   map[string]string
	userSide   board.Side
	difficulty chess.Level

	previous string
	current  string
	start    string
	history  []string
	moves    []string
	tags     map[string]string
	started  bool

	listeners    map[int]Listener
	nextListener int
}

// New builds a session and loads the standard initial position into engine.
func New(ctx context.Context, engine Engine, opts Options) (*Game, error) {
	if engine == nil {
		return nil, errors.New("game: nil engine")
	}
	if opts.UserSide == board.NoSide {
		opts.UserSide = board.White
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := &Game{
		engine:     engine,
		tracker:    board.NewTracker(),
		log:        opts.Logger,
		now:        opts.Now,
		baseTags:   mergeTags(DefaultTags(), opts.Tags),
		userSide:   opts.UserSide,
		difficulty: opts.Difficulty,
		listeners:  make(map[int]Listener),
	}
	if ls, ok := engine.(levelSetter); ok {
		ls.SetLevel(g.difficulty)
	}
	if err := g.NewGame(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGame resets the session to the initial position. User side and
// difficulty are kept.
func (g *Game) NewGame(ctx context.Context) error {
	if err := g.engine.LoadPosition(ctx, board.StartFEN); err != nil {
		return fmt.Errorf("%w: load start position: %v", ErrEngine, err)
	}
	g.tracker.Reset()
	g.previous = ""
	g.current = board.StartFEN
	g.start = board.StartFEN
	g.history = nil
	g.moves = nil
	g.started = false
	g.tags = g.freshTags()
	g.tags[TagFEN] = g.current

	g.log.Info("game_reset", zap.String("user_side", g.userSide.String()))
	g.emit(Event{Kind: EventNewGame, FEN: g.current})
	return nil
}

func (g *Game) freshTags() map[string]string {
	tags := maps.Clone(g.baseTags)
	if tags[TagDate] == "" || tags[TagDate] == "????.??.??" {
		tags[TagDate] = g.now().Format("2006.01.02")
	}
	g.applySideTags(tags)
	return tags
}

func (g *Game) applySideTags(tags map[string]string) {
	if g.userSide == board.Black {
		tags[TagWhite], tags[TagBlack] = PlayerCPU, PlayerUser
		return
	}
	tags[TagWhite], tags[TagBlack] = PlayerUser, PlayerCPU
}

// Start marks the game as in progress without making a move.
func (g *Game) Start() { g.started = true }

func (g *Game) Started() bool { return g.started }

// SetUserSide records which side the human plays and updates the player tags.
func (g *Game) SetUserSide(side board.Side) error {
	if side != board.White && side != board.Black {
		return fmt.Errorf("invalid side %v", side)
	}
	g.userSide = side
	g.applySideTags(g.tags)
	g.emit(Event{Kind: EventSettings, FEN: g.current, PreviousFEN: g.previous})
	return nil
}

func (g *Game) SetDifficulty(level chess.Level) {
	g.difficulty = level
	if ls, ok := g.engine.(levelSetter); ok {
		ls.SetLevel(level)
	}
	g.emit(Event{Kind: EventSettings, FEN: g.current, PreviousFEN: g.previous})
}

// Move asks the engine to play from->to for the side to move. An illegal move
// returns StatusRejected and changes nothing.
func (g *Game) Move(ctx context.Context, from, to board.Square) (MoveResult, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return MoveResult{Status: StatusRejected}, nil
	}
	move := from.String() + to.String()
	ok, err := g.engine.AttemptMove(ctx, move)
	if err != nil {
		return MoveResult{}, fmt.Errorf("%w: attempt %s: %v", ErrEngine, move, err)
	}
	if !ok {
		g.log.Debug("move_rejected", zap.String("move", move), zap.String("fen", g.current))
		return MoveResult{Status: StatusRejected, Move: move}, nil
	}
	pieces := g.tracker.Pieces()
	if p, ok := pieces.At(from); ok && p.Kind == board.Pawn && (to.Rank == 0 || to.Rank == 7) {
		move += "q"
	}
	return g.commit(ctx, from, to, move, false)
}

// EngineMove asks the engine to move for the side to move within the current
// difficulty's time budget.
func (g *Game) EngineMove(ctx context.Context) (MoveResult, error) {
	mv, err := g.engine.RequestMove(ctx, chess.MoveTime(g.difficulty))
	if err != nil {
		return MoveResult{}, fmt.Errorf("%w: request move: %v", ErrEngine, err)
	}
	mv = strings.TrimSpace(mv)
	if mv == "" || mv == chess.NoMove {
		return MoveResult{Status: StatusNoMove}, nil
	}
	from, to, err := board.ParseMove(mv)
	if err != nil {
		g.resync(ctx)
		return MoveResult{}, fmt.Errorf("%w: engine move %q: %v", ErrEngine, mv, err)
	}
	return g.commit(ctx, from, to, mv, true)
}

func (g *Game) commit(ctx context.Context, from, to board.Square, move string, byEngine bool) (MoveResult, error) {
	next, err := g.engine.CurrentPosition(ctx)
	if err != nil {
		g.resync(ctx)
		return MoveResult{}, fmt.Errorf("%w: current position: %v", ErrEngine, err)
	}
	c, err := g.tracker.Apply(g.current, next, from, to)
	if err != nil {
		g.resync(ctx)
		return MoveResult{}, err
	}

	g.previous, g.current = g.current, next
	g.history = append(g.history, c.Notation)
	g.moves = append(g.moves, move)
	g.started = true
	g.tags[TagFEN] = g.current

	g.log.Info("move_applied",
		zap.String("move", move),
		zap.String("notation", c.Notation),
		zap.String("kind", c.Kind.String()),
		zap.Bool("engine", byEngine),
		zap.String("fen", g.current),
	)
	g.emit(Event{
		Kind:           EventMove,
		FEN:            g.current,
		PreviousFEN:    g.previous,
		Move:           move,
		Classification: &c,
		ByEngine:       byEngine,
	})
	return MoveResult{Status: StatusApplied, Move: move, Classification: c}, nil
}

// resync puts the engine back on the last committed position after it moved
// but the mirror could not follow.
func (g *Game) resync(ctx context.Context) {
	if err := g.engine.LoadPosition(ctx, g.current); err != nil {
		g.log.Warn("engine_resync_failed", zap.String("fen", g.current), zap.Error(err))
	}
}

// LoadPosition replaces the session with a standalone position. Capture
// ledgers are inferred from missing material. A malformed fen changes nothing.
func (g *Game) LoadPosition(ctx context.Context, fen string) error {
	fen = strings.Join(strings.Fields(fen), " ")
	pos, ledger, err := board.Snapshot(fen)
	if err != nil {
		return err
	}
	if err := g.engine.LoadPosition(ctx, fen); err != nil {
		g.resync(ctx)
		return fmt.Errorf("%w: load position: %w", ErrEngine, err)
	}
	g.tracker.Restore(pos, ledger)
	g.previous = ""
	g.current = fen
	g.start = fen
	g.history = nil
	g.moves = nil
	g.tags[TagFEN] = fen
	g.tags[TagSetUp] = "1"

	g.log.Info("position_loaded", zap.String("fen", fen))
	g.emit(Event{Kind: EventLoad, FEN: fen})
	return nil
}

func (g *Game) Pieces() board.Set { return g.tracker.Pieces() }

// Captured lists what captor has taken, in capture order.
func (g *Game) Captured(captor board.Side) []board.Kind {
	l := g.tracker.Ledger()
	return l.Captured(captor)
}

// RenderCaptured is the space-separated glyph label of captor's ledger.
func (g *Game) RenderCaptured(captor board.Side) string {
	l := g.tracker.Ledger()
	return l.Render(captor)
}

// MaterialTaken is the material value of captor's ledger.
func (g *Game) MaterialTaken(captor board.Side) int {
	l := g.tracker.Ledger()
	return l.Value(captor)
}

// History returns the notation tokens in play order.
func (g *Game) History() []string { return append([]string(nil), g.history...) }

// Moves returns the coordinate moves in play order, promotion included.
func (g *Game) Moves() []string { return append([]string(nil), g.moves...) }

func (g *Game) Tags() map[string]string { return maps.Clone(g.tags) }

// SetTag sets a free-form tag. The FEN tag is owned by the game.
func (g *Game) SetTag(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == TagFEN {
		return fmt.Errorf("tag %q cannot be set", name)
	}
	if value == "" {
		delete(g.tags, name)
		return nil
	}
	g.tags[name] = value
	return nil
}

func (g *Game) CurrentPosition() string { return g.current }

// PreviousPosition is empty before the first move and after a load.
func (g *Game) PreviousPosition() string { return g.previous }

// StartPosition is the position the current move list starts from.
func (g *Game) StartPosition() string { return g.start }

func (g *Game) SideToMove() board.Side { return g.tracker.Position().SideToMove }

func (g *Game) UserSide() board.Side { return g.userSide }

func (g *Game) UserToMove() bool { return g.SideToMove() == g.userSide }

func (g *Game) Difficulty() chess.Level { return g.difficulty }

// LastMove returns the squares of the most recent move, if any.
func (g *Game) LastMove() (from, to board.Square, ok bool) {
	if len(g.moves) == 0 {
		return board.Offboard, board.Offboard, false
	}
	from, to, err := board.ParseMove(g.moves[len(g.moves)-1])
	if err != nil {
		return board.Offboard, board.Offboard, false
	}
	return from, to, true
}
