package game

import (
	"maps"
	"slices"

	"github.com/park285/boardsync/internal/board"
)

type EventKind string

const (
	EventNewGame  EventKind = "new_game"
	EventMove     EventKind = "move"
	EventLoad     EventKind = "load"
	EventRestore  EventKind = "restore"
	EventSettings EventKind = "settings"
)

// Event is delivered to listeners after a successful mutation.
type Event struct {
	Kind        EventKind
	FEN         string
	PreviousFEN string
	// Move and Classification are set for EventMove only.
	Move           string
	Classification *board.Classification
	ByEngine       bool
}

// Listener is called synchronously with the game lock held by the caller;
// it must not call back into the same Game.
type Listener func(Event)

// Subscribe registers l and returns a function that removes it.
func (g *Game) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	id := g.nextListener
	g.nextListener++
	g.listeners[id] = l
	return func() { delete(g.listeners, id) }
}

func (g *Game) emit(ev Event) {
	for _, id := range slices.Sorted(maps.Keys(g.listeners)) {
		g.listeners[id](ev)
	}
}
