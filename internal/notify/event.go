// Package notify forwards session changes to an external listener over HTTP
// or WebSocket.
package notify

import (
	"time"

	"github.com/park285/boardsync/internal/game"
)

// Event is the JSON frame sent for every session change.
type Event struct {
	SessionID   string    `json:"session_id"`
	Kind        string    `json:"kind"`
	FEN         string    `json:"fen"`
	PreviousFEN string    `json:"previous_fen,omitempty"`
	Move        string    `json:"move,omitempty"`
	Notation    string    `json:"notation,omitempty"`
	MoveKind    string    `json:"move_kind,omitempty"`
	Captured    string    `json:"captured,omitempty"`
	ByEngine    bool      `json:"by_engine,omitempty"`
	At          time.Time `json:"at"`
}

// FromGameEvent flattens a game event for the wire.
func FromGameEvent(sessionID string, ev game.Event, at time.Time) Event {
	out := Event{
		SessionID:   sessionID,
		Kind:        string(ev.Kind),
		FEN:         ev.FEN,
		PreviousFEN: ev.PreviousFEN,
		Move:        ev.Move,
		ByEngine:    ev.ByEngine,
		At:          at.UTC(),
	}
	if c := ev.Classification; c != nil {
		out.Notation = c.Notation
		out.MoveKind = c.Kind.String()
		if c.Kind.IsCapture() {
			out.Captured = c.Captured.Kind.String()
		}
	}
	return out
}
