package events

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event dispatcher closed")
)

// AsyncConfig sizes an Async dispatcher. Zero fields take defaults.
type AsyncConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

func (c AsyncConfig) withDefaults() AsyncConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

// Async hands events to a fixed pool of workers so Emit never waits on the
// downstream emitter. Events for one recipient always go to the same worker
// and are delivered in order. When a worker's queue is full the event is
// dropped and Emit returns ErrQueueFull.
type Async struct {
	next    Emitter
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	queues []chan Event
	wg     sync.WaitGroup
}

func NewAsync(next Emitter, cfg AsyncConfig, log *zap.Logger) *Async {
	cfg = cfg.withDefaults()
	a := &Async{
		next:    next,
		timeout: cfg.SendTimeout,
		log:     log,
		queues:  make([]chan Event, cfg.Workers),
	}
	for i := range a.queues {
		q := make(chan Event, cfg.QueueSize)
		a.queues[i] = q
		a.wg.Add(1)
		go a.work(q)
	}
	return a
}

// Emit queues e. ctx is not passed on: delivery runs on its own context,
// bounded by SendTimeout, so it survives the end of the request.
func (a *Async) Emit(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queues[a.shard(e)] <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) shard(e Event) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(e.RecipientID.String()))
	return int(h.Sum32() % uint32(len(a.queues)))
}

func (a *Async) work(q <-chan Event) {
	defer a.wg.Done()
	for e := range q {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Emit(ctx, e); err != nil {
			a.log.Warn("failed to deliver event",
				zap.String("type", string(e.Type)),
				zap.Stringer("recipient", e.RecipientID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		for _, q := range a.queues {
			close(q)
		}
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
