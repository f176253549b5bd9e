package archive

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo is used when no database is configured.
type memrepo struct {
	mu    sync.RWMutex
	games map[string]*Game
}

func NewMemoryRepository() Repository {
	return &memrepo{games: make(map[string]*Game)}
}

func (m *memrepo) SaveGame(ctx context.Context, g *Game) error {
	if g == nil || strings.TrimSpace(g.SessionID) == "" {
		return ErrInvalidGame
	}
	m.mu.Lock()
	m.games[strings.TrimSpace(g.SessionID)] = g.clone()
	m.mu.Unlock()
	return nil
}

func (m *memrepo) GetGame(ctx context.Context, sessionID string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, nil
	}
	return g.clone(), nil
}

func (m *memrepo) RecentGames(ctx context.Context, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	items := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		items = append(items, g.clone())
	}
	m.mu.RUnlock()

	// newest first, session id breaks ties
	sort.Slice(items, func(i, j int) bool {
		if !items[i].SavedAt.Equal(items[j].SavedAt) {
			return items[i].SavedAt.After(items[j].SavedAt)
		}
		return items[i].SessionID < items[j].SessionID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
