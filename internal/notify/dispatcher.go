package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/game"
)

const defaultQueueSize = 256

// Dispatcher publishes events from a queue on its own goroutine so game
// listeners never block on the network. Events are dropped when the queue
// is full.
type Dispatcher struct {
	n       Notifier
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time

	queue chan Event
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(n Notifier, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		n:       n,
		timeout: timeout,
		log:     logger,
		now:     time.Now,
		queue:   make(chan Event, defaultQueueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Enqueue reports false when the event was dropped.
func (d *Dispatcher) Enqueue(ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.log.Warn("notify_queue_full", zap.String("session_id", ev.SessionID), zap.String("kind", ev.Kind))
		return false
	}
}

// Listener adapts the dispatcher to a game's listener for one session.
func (d *Dispatcher) Listener(sessionID string) game.Listener {
	return func(ev game.Event) {
		d.Enqueue(FromGameEvent(sessionID, ev, d.now()))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.n.Publish(ctx, ev); err != nil {
			d.log.Warn("notify_publish_error", zap.String("session_id", ev.SessionID), zap.String("kind", ev.Kind), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
