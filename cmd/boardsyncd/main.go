package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/chess/openingbook"
	"github.com/park285/boardsync/internal/chess/uci"
	appcfg "github.com/park285/boardsync/internal/config"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/internal/httpapi"
	"github.com/park285/boardsync/internal/notify"
	"github.com/park285/boardsync/internal/obslog"
	"github.com/park285/boardsync/internal/store"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	for name, d := range cfg.MoveTimes() {
		level, err := chess.ParseLevel(name)
		if err != nil {
			log.Fatalf("difficulty %s: %v", name, err)
		}
		if err := chess.SetMoveTime(level, d); err != nil {
			log.Fatalf("difficulty %s: %v", name, err)
		}
	}
	defaultLevel, err := chess.ParseLevel(cfg.Difficulty.Default)
	if err != nil {
		log.Fatalf("default difficulty: %v", err)
	}

	engineOpts := []chess.EngineOption{chess.WithLogger(logger)}
	if cfg.OpeningBook != "" {
		book, err := openingbook.Open(cfg.OpeningBook)
		if err != nil {
			log.Fatalf("opening book init error: %v", err)
		}
		engineOpts = append(engineOpts, chess.WithBook(book))
	}
	var searcher *chess.UCISearcher
	if cfg.StockfishPath != "" {
		pool, err := uci.NewPool(uci.PoolConfig{
			BinaryPath:         cfg.StockfishPath,
			PerOptionsCapacity: cfg.EnginePoolSize,
			Logger:             logger,
		})
		if err != nil {
			log.Fatalf("engine pool init error: %v", err)
		}
		searcher = chess.NewUCISearcher(pool)
		engineOpts = append(engineOpts, chess.WithSearcher(searcher))
	} else {
		logger.Warn("engine_fallback", zap.String("reason", "STOCKFISH_PATH not set; engine moves are random"))
	}

	mgr, err := game.NewManager(game.ManagerConfig{
		Factory: func() game.Engine { return chess.NewEngine(engineOpts...) },
		GameOptions: game.Options{
			Difficulty: defaultLevel,
			Tags:       cfg.Tags,
			Logger:     logger,
		},
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("session manager init error: %v", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()

	apiCfg := httpapi.Config{Manager: mgr, Logger: logger}

	var sessions *store.Redis
	if cfg.RedisURL != "" {
		sessions, err = store.Open(initCtx, cfg.RedisURL, store.DefaultTTL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		apiCfg.Store = sessions
	}

	var pg *archive.Postgres
	if cfg.DatabaseURL != "" {
		pg, err = archive.OpenPostgres(initCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		apiCfg.Archive = pg
	} else {
		apiCfg.Archive = archive.NewMemoryRepository()
	}

	var dispatcher *notify.Dispatcher
	var ws *notify.WebSocket
	if cfg.Notify.Mode != "" && cfg.Notify.Mode != notify.ModeOff {
		headers := func() map[string]string {
			if cfg.Notify.Token == "" {
				return nil
			}
			return map[string]string{"Authorization": "Bearer " + cfg.Notify.Token}
		}
		var client *notify.Client
		if cfg.Notify.HTTPURL != "" {
			client = notify.NewClient(cfg.Notify.HTTPURL,
				notify.WithTimeout(cfg.Notify.Timeout),
				notify.WithRetry(cfg.Notify.Retries),
				notify.WithHeaderProvider(headers),
			)
		}
		if cfg.Notify.WSURL != "" {
			ws = notify.NewWebSocket(cfg.Notify.WSURL, cfg.Notify.Timeout)
			ws.SetHeaderProvider(headers)
		}
		n, err := notify.New(cfg.Notify.Mode, client, ws, logger)
		if err != nil {
			log.Fatalf("notify init error: %v", err)
		}
		dispatcher = notify.NewDispatcher(n, cfg.Notify.Timeout, logger)
		apiCfg.Events = dispatcher
	}

	srv, err := httpapi.New(apiCfg)
	if err != nil {
		log.Fatalf("http init error: %v", err)
	}

	stopExpiry := make(chan struct{})
	go expireLoop(mgr, cfg.SessionTTL, logger, stopExpiry)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_serve", zap.Error(err))
		}
	}
	close(stopExpiry)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("notify_shutdown", zap.Error(err))
		}
	}
	if ws != nil {
		_ = ws.Close()
	}
	if searcher != nil {
		_ = searcher.Close()
	}
	if sessions != nil {
		_ = sessions.Close()
	}
	if pg != nil {
		_ = pg.Close()
	}
}

// expireLoop evicts idle sessions from memory. Persisted snapshots stay in
// Redis and are revived on the next request.
func expireLoop(mgr *game.Manager, ttl time.Duration, logger *zap.Logger, stop <-chan struct{}) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ids := mgr.Expire(ttl); len(ids) > 0 {
				logger.Info("sessions_expired", zap.Int("count", len(ids)), zap.Strings("session_ids", ids))
			}
		}
	}
}
