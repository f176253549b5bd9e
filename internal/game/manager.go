package game

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrSessionExists    = errors.New("session already exists")
)

// EngineFactory builds a fresh engine for each new session.
type EngineFactory func() Engine

type ManagerConfig struct {
	Factory     EngineFactory
	GameOptions Options
	// MaxSessions caps live sessions; zero means unlimited.
	MaxSessions int
	Logger      *zap.Logger
}

// Manager owns many independent sessions. Each session is guarded by its own
// mutex, so different sessions progress in parallel.
type Manager struct {
	cfg ManagerConfig
	log *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	game    *Game
	touched time.Time
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Factory == nil {
		return nil, errors.New("engine factory required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, log: cfg.Logger, sessions: make(map[string]*entry)}, nil
}

// Create starts a session with opts layered over the manager defaults.
func (m *Manager) Create(ctx context.Context, apply ...func(*Options)) (string, error) {
	return m.create(ctx, uuid.NewString(), nil, apply...)
}

// Adopt registers a session under an existing id, rebuilt from st. It
// returns ErrSessionExists when the id is already live.
func (m *Manager) Adopt(ctx context.Context, id string, st State) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidSessionID
	}
	_, err := m.create(ctx, id, &st)
	return err
}

func (m *Manager) create(ctx context.Context, id string, st *State, apply ...func(*Options)) (string, error) {
	if m.cfg.MaxSessions > 0 && m.Len() >= m.cfg.MaxSessions {
		return "", ErrTooManySessions
	}
	opts := m.cfg.GameOptions
	opts.Logger = m.log.With(zap.String("session_id", id))
	for _, fn := range apply {
		fn(&opts)
	}
	g, err := New(ctx, m.cfg.Factory(), opts)
	if err != nil {
		return "", err
	}
	if st != nil {
		if err := g.Restore(ctx, *st); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return "", ErrSessionExists
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return "", ErrTooManySessions
	}
	m.sessions[id] = &entry{game: g, touched: time.Now()}
	m.log.Info("session_created", zap.String("session_id", id))
	return id, nil
}

// With runs fn with exclusive access to the session.
func (m *Manager) With(id string, fn func(*Game) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = time.Now()
	return fn(e.game)
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.log.Info("session_deleted", zap.String("session_id", id))
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns session ids sorted for stable output.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Expire removes sessions idle for longer than ttl and returns their ids.
func (m *Manager) Expire(ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		m.log.Info("sessions_expired", zap.Int("count", len(removed)))
	}
	return removed
}
