package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/chess/uci"
)

// NoMove is returned by RequestMove when the side to move has no move.
const NoMove = uci.NoMove

var ErrIllegalPosition = errors.New("engine rejected position")

// Searcher picks a move for a position. *UCISearcher is the production
// implementation; Engine falls back to a random legal move without one.
type Searcher interface {
	BestMove(ctx context.Context, fen string, level Level, budget time.Duration) (string, error)
}

// Book suggests a move for a position; ok is false when it has none.
// *openingbook.Book implements it.
type Book interface {
	Move(fen string) (move string, ok bool)
}

// Engine is the rules authority for one game: legality and position strings
// come from corentings/chess, engine moves from a Searcher when present.
// Safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	game     *nchess.Game
	level    Level
	searcher Searcher
	book     Book
	log      *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type EngineOption func(*Engine)

func WithSearcher(s Searcher) EngineOption { return func(e *Engine) { e.searcher = s } }

// WithBook consults b before the searcher on every engine move.
func WithBook(b Book) EngineOption { return func(e *Engine) { e.book = b } }

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithRandomSeed(seed int64) EngineOption {
	return func(e *Engine) { e.rand = rand.New(rand.NewSource(seed)) }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		game: nchess.NewGame(),
		log:  zap.NewNop(),
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetLevel selects the preset used for searcher-backed moves.
func (e *Engine) SetLevel(l Level) {
	e.mu.Lock()
	e.level = l
	e.mu.Unlock()
}

// AttemptMove plays a coordinate move if legal. A four-character pawn move to
// the last rank is promoted to a queen.
func (e *Engine) AttemptMove(ctx context.Context, move string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	mv := strings.ToLower(strings.TrimSpace(move))
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.game.PushNotationMove(mv, nchess.UCINotation{}, nil) == nil {
		return true, nil
	}
	if len(mv) == 4 && e.game.PushNotationMove(mv+"q", nchess.UCINotation{}, nil) == nil {
		return true, nil
	}
	return false, nil
}

// RequestMove plays and returns a move for the side to move, or NoMove.
func (e *Engine) RequestMove(ctx context.Context, timeout time.Duration) (string, error) {
	e.mu.Lock()
	if e.game.Outcome() != nchess.NoOutcome {
		e.mu.Unlock()
		return NoMove, nil
	}
	fen := e.game.FEN()
	level := e.level
	e.mu.Unlock()

	var mv string
	if e.book != nil {
		if bm, ok := e.book.Move(fen); ok {
			mv = bm
		}
	}
	if mv == "" && e.searcher != nil {
		best, err := e.searcher.BestMove(ctx, fen, level, timeout)
		if err != nil {
			e.log.Warn("engine_search_failed", zap.String("fen", fen), zap.Error(err))
		} else {
			mv = best
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.game.FEN() != fen {
		return "", fmt.Errorf("position changed during search")
	}
	if mv != "" && mv != NoMove {
		if err := e.game.PushNotationMove(mv, nchess.UCINotation{}, nil); err == nil {
			return mv, nil
		}
		e.log.Warn("engine_search_move_illegal", zap.String("fen", fen), zap.String("move", mv))
	}
	if mv == NoMove {
		return NoMove, nil
	}
	for _, cand := range e.shuffledCandidates() {
		if e.game.PushNotationMove(cand, nchess.UCINotation{}, nil) == nil {
			return cand, nil
		}
	}
	return NoMove, nil
}

// CurrentPosition returns the engine's position string.
func (e *Engine) CurrentPosition(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.FEN(), nil
}

// LoadPosition replaces the game with one starting at fen.
func (e *Engine) LoadPosition(ctx context.Context, fen string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalPosition, err)
	}
	g := nchess.NewGame(option)
	e.mu.Lock()
	e.game = g
	e.mu.Unlock()
	return nil
}

// shuffledCandidates lists coordinate moves from every square holding a piece
// of the side to move, in random order. Caller holds e.mu.
func (e *Engine) shuffledCandidates() []string {
	pos := e.game.Position()
	b := pos.Board()
	turn := pos.Turn()
	var out []string
	for from := 0; from < 64; from++ {
		fromSq := nchess.Square(from)
		pc := b.Piece(fromSq)
		if pc == nchess.NoPiece || pc.Color() != turn {
			continue
		}
		for to := 0; to < 64; to++ {
			if to == from {
				continue
			}
			mv := fromSq.String() + nchess.Square(to).String()
			if pc.Type() == nchess.Pawn && (to/8 == 0 || to/8 == 7) {
				mv += "q"
			}
			out = append(out, mv)
		}
	}
	e.randMu.Lock()
	e.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	e.randMu.Unlock()
	return out
}

// UCISearcher runs searches on a pool of UCI engine processes.
type UCISearcher struct {
	pool *uci.Pool

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewUCISearcher(pool *uci.Pool) *UCISearcher {
	return &UCISearcher{pool: pool, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *UCISearcher) BestMove(ctx context.Context, fen string, level Level, budget time.Duration) (string, error) {
	preset := PresetFor(level)
	goTokens, err := BuildGoCommand(preset, budget)
	if err != nil {
		return "", err
	}
	session, err := s.pool.Acquire(ctx, optionsFromPreset(preset))
	if err != nil {
		return "", err
	}
	var releaseErr error
	defer func() { s.pool.Release(session, releaseErr) }()

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: limitsFromPreset(preset, budget),
		Go:     goTokens,
	})
	if err != nil {
		releaseErr = err
		return "", err
	}
	if resp.BestMove == NoMove || len(resp.Candidates) < 2 {
		return resp.BestMove, nil
	}
	s.randMu.Lock()
	pick, err := pickCandidate(preset, resp.Candidates, s.rand)
	s.randMu.Unlock()
	if err != nil || pick.Move == "" {
		return resp.BestMove, nil
	}
	return pick.Move, nil
}

func (s *UCISearcher) Close() error { return s.pool.Close() }
