package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

type PoolConfig struct {
	BinaryPath string
	// PerOptionsCapacity caps live processes per distinct Options value.
	PerOptionsCapacity int
	Logger             *zap.Logger
}

// Pool keeps warm engine processes grouped by their option set.
type Pool struct {
	binaryPath string
	capacity   int
	log        *zap.Logger

	mu       sync.Mutex
	buckets  map[Options]*bucket
	sessions map[*Session]*bucket
	closed   bool
}

var ErrPoolClosed = errors.New("uci pool closed")

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	capacity := cfg.PerOptionsCapacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		log:        logger,
		buckets:    make(map[Options]*bucket),
		sessions:   make(map[*Session]*bucket),
	}, nil
}

// Acquire returns an idle session for opt, starting one if the bucket has
// room, otherwise waiting for a release.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	b, err := p.bucketFor(opt)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case s := <-b.idle:
			if p.readyOrDiscard(ctx, s, b) {
				return s, nil
			}
			continue
		default:
		}

		s, err := b.create(ctx, p.log)
		if err == nil {
			p.track(s, b)
			return s, nil
		}
		if !errors.Is(err, errBucketFull) {
			return nil, err
		}

		select {
		case s := <-b.idle:
			if p.readyOrDiscard(ctx, s, b) {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) readyOrDiscard(ctx context.Context, s *Session, b *bucket) bool {
	if s == nil {
		return false
	}
	if err := s.EnsureReady(ctx); err != nil {
		p.log.Warn("uci_session_discarded", zap.Stringer("options", b.opt), zap.Error(err))
		b.discard(s)
		return false
	}
	p.track(s, b)
	return true
}

// Release returns s to its bucket. A non-nil err discards the process.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.sessions[s]
	delete(p.sessions, s)
	closed := p.closed
	p.mu.Unlock()

	if !ok {
		_ = s.Close()
		return
	}
	if err != nil || closed || !b.put(s) {
		b.discard(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.mu.Unlock()

	var errs []error
	for _, b := range buckets {
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) track(s *Session, b *bucket) {
	p.mu.Lock()
	p.sessions[s] = b
	p.mu.Unlock()
}

// bucketFor groups sessions by their exact option set; Options is comparable
// and keys the map directly.
func (p *Pool) bucketFor(opt Options) (*bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	b, ok := p.buckets[opt]
	if !ok {
		b = newBucket(p.binaryPath, opt, p.capacity)
		p.buckets[opt] = b
	}
	return b, nil
}

type bucket struct {
	opt        Options
	capacity   int
	binaryPath string

	mu    sync.Mutex
	total int
	idle  chan *Session
}

var errBucketFull = errors.New("session bucket at capacity")

func newBucket(binaryPath string, opt Options, capacity int) *bucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &bucket{
		opt:        opt,
		capacity:   capacity,
		binaryPath: binaryPath,
		idle:       make(chan *Session, capacity),
	}
}

func (b *bucket) create(ctx context.Context, logger *zap.Logger) (*Session, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketFull
	}
	b.total++
	b.mu.Unlock()

	s, err := NewSession(ctx, b.binaryPath, b.opt, logger)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return s, nil
}

func (b *bucket) put(s *Session) bool {
	select {
	case b.idle <- s:
		return true
	default:
		return false
	}
}

func (b *bucket) discard(s *Session) {
	if s != nil {
		_ = s.Close()
	}
	b.decrement()
}

func (b *bucket) drain() []error {
	var errs []error
	for {
		select {
		case s := <-b.idle:
			if s == nil {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			b.decrement()
		default:
			return errs
		}
	}
}

func (b *bucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func (o Options) String() string {
	return fmt.Sprintf("threads=%d skill=%d hash=%d multipv=%d elo=%d",
		o.Threads, o.SkillLevel, o.HashMB, o.MultiPV, o.Elo)
}

// defaultCapacity is the CPU count clamped to 2..4.
func defaultCapacity() int { return min(max(runtime.NumCPU(), 2), 4) }
