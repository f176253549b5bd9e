// Package pgn renders a session as Portable Game Notation.
package pgn

import (
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess/openingbook"
)

// roster is the seven-tag roster in its required order.
var roster = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

const lineWidth = 80

// Record is what Build needs from a session.
type Record struct {
	Tags     map[string]string
	StartFEN string
	// Moves are coordinate moves; Notation is the fallback movetext when
	// they cannot be replayed.
	Moves    []string
	Notation []string
	// Result overrides the result derived from replaying Moves.
	Result string
	// ECO adds ECO and Opening tags when the moves reach a named opening
	// and the tags do not already carry them.
	ECO bool
}

// Replay converts coordinate moves to SAN and reports the PGN result token.
func Replay(startFEN string, moves []string) ([]string, string, error) {
	game := nchess.NewGame()
	if startFEN != "" && startFEN != board.StartFEN {
		option, err := nchess.FEN(startFEN)
		if err != nil {
			return nil, "*", fmt.Errorf("parse fen %q: %w", startFEN, err)
		}
		game = nchess.NewGame(option)
	}
	sans := make([]string, 0, len(moves))
	for _, mv := range moves {
		pos := game.Position()
		decoded, err := nchess.UCINotation{}.Decode(pos, mv)
		if err != nil {
			return nil, "*", fmt.Errorf("decode move %q: %w", mv, err)
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, decoded)
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, "*", fmt.Errorf("apply move %q: %w", mv, err)
		}
		sans = append(sans, san)
	}
	return sans, resultToken(game.Outcome()), nil
}

func resultToken(o nchess.Outcome) string {
	switch o {
	case nchess.WhiteWon:
		return "1-0"
	case nchess.BlackWon:
		return "0-1"
	case nchess.Draw:
		return "1/2-1/2"
	}
	return "*"
}

// Build renders rec. Moves are written in SAN when they replay cleanly and
// as notation tokens otherwise.
func Build(rec Record) string {
	tokens, result, err := Replay(rec.StartFEN, rec.Moves)
	if err != nil {
		tokens, result = rec.Notation, "*"
	}
	if rec.Result != "" {
		result = rec.Result
	}

	tags := make(map[string]string, len(rec.Tags)+2)
	for k, v := range rec.Tags {
		tags[k] = v
	}
	tags["Result"] = result
	if rec.ECO && tags["ECO"] == "" {
		if o, ok := openingbook.Classify(rec.StartFEN, rec.Moves); ok {
			tags["ECO"] = o.Code
			tags["Opening"] = o.Title
		}
	}
	if rec.StartFEN != "" && rec.StartFEN != board.StartFEN {
		tags["SetUp"] = "1"
		tags["FEN"] = rec.StartFEN
	} else {
		delete(tags, "SetUp")
		delete(tags, "FEN")
	}

	var b strings.Builder
	for _, name := range orderedTags(tags) {
		fmt.Fprintf(&b, "[%s \"%s\"]\n", name, sanitize(tags[name]))
	}
	b.WriteString("\n")
	b.WriteString(movetext(rec.StartFEN, tokens, result))
	b.WriteString("\n")
	return b.String()
}

func orderedTags(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(roster))
	for _, name := range roster {
		seen[name] = true
		v, ok := tags[name]
		if !ok || v == "" {
			tags[name] = "?"
		}
		out = append(out, name)
	}
	var rest []string
	for name := range tags {
		if !seen[name] && tags[name] != "" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func movetext(startFEN string, tokens []string, result string) string {
	number, black := 1, false
	if startFEN != "" {
		if pos, err := board.Decode(startFEN); err == nil {
			number, black = pos.Fullmove, pos.SideToMove == board.Black
		}
	}

	words := make([]string, 0, len(tokens)*3/2+1)
	for i, tok := range tokens {
		switch {
		case i == 0 && black:
			words = append(words, fmt.Sprintf("%d...", number))
		case !black:
			words = append(words, fmt.Sprintf("%d.", number))
		}
		words = append(words, strings.TrimSpace(tok))
		if black {
			number++
		}
		black = !black
	}
	words = append(words, result)

	var b strings.Builder
	width := 0
	for i, w := range words {
		if i > 0 {
			if width+1+len(w) > lineWidth {
				b.WriteString("\n")
				width = 0
			} else {
				b.WriteString(" ")
				width++
			}
		}
		b.WriteString(w)
		width += len(w)
	}
	return b.String()
}

func sanitize(s string) string {
	s = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}
