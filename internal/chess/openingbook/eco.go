package openingbook

import (
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/boardsync/internal/board"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening is an ECO classification.
type Opening struct {
	Code  string
	Title string
}

// Classify names the deepest ECO opening reached by moves played from the
// standard start. Games set up from another position are never classified.
func Classify(startFEN string, moves []string) (Opening, bool) {
	if len(moves) == 0 || !standardStart(startFEN) {
		return Opening{}, false
	}
	g := chesslib.NewGame()
	for _, mv := range moves {
		if err := g.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			break
		}
	}
	played := g.Moves()
	if len(played) == 0 {
		return Opening{}, false
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	eco := ecoBook.Find(played)
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}

func standardStart(fen string) bool {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return true
	}
	fields := strings.Fields(fen)
	std := strings.Fields(board.StartFEN)
	if len(fields) < 4 || len(std) < 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if fields[i] != std[i] {
			return false
		}
	}
	return true
}
