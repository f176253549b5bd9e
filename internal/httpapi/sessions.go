package httpapi

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/game"
)

// withSession runs fn on a live session, reviving it from the store when it
// is not in memory. When mutate is set and fn succeeds, the new snapshot is
// saved to the store.
func (s *Server) withSession(ctx context.Context, id string, mutate bool, fn func(*game.Game) error) error {
	var snap game.State
	run := func(g *game.Game) error {
		if err := fn(g); err != nil {
			return err
		}
		if mutate {
			snap = g.Snapshot()
		}
		return nil
	}

	err := s.cfg.Manager.With(id, run)
	if errors.Is(err, game.ErrSessionNotFound) {
		if rerr := s.revive(ctx, id); rerr != nil {
			return rerr
		}
		err = s.cfg.Manager.With(id, run)
	}
	if err != nil {
		return err
	}
	if mutate {
		s.persist(ctx, id, snap)
	}
	return nil
}

func (s *Server) revive(ctx context.Context, id string) error {
	if s.cfg.Store == nil {
		return game.ErrSessionNotFound
	}
	st, err := s.cfg.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return game.ErrSessionNotFound
	}
	if err := s.cfg.Manager.Adopt(ctx, id, *st); err != nil {
		if errors.Is(err, game.ErrSessionExists) {
			return nil
		}
		return err
	}
	s.subscribe(id)
	s.log.Info("session_revived", zap.String("session_id", id))
	return nil
}

func (s *Server) subscribe(id string) {
	if s.cfg.Events == nil {
		return
	}
	_ = s.cfg.Manager.With(id, func(g *game.Game) error {
		g.Subscribe(s.cfg.Events.Listener(id))
		return nil
	})
}

// persist is best effort; the in-memory session stays authoritative.
func (s *Server) persist(ctx context.Context, id string, st game.State) {
	if s.cfg.Store == nil {
		return
	}
	if err := s.cfg.Store.Save(ctx, id, st); err != nil {
		s.log.Warn("session_persist_error", zap.String("session_id", id), zap.Error(err))
	}
}
