package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/authgate/internal/auth"
)

// DefaultQueueSize is the buffer used by Async when size is not positive.
const DefaultQueueSize = 256

// AsyncSink runs a wrapped sink on its own goroutine.
//
// Emit never blocks: when the queue is full the event is dropped and
// counted. The wrapped sink receives a context detached from the request.
type AsyncSink struct {
	name    string
	next    auth.EventSink
	queue   chan queued
	logger  *slog.Logger
	dropped atomic.Uint64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

type queued struct {
	ctx context.Context
	e   auth.Event
}

// Async starts a worker delivering to next. Call Close to drain and stop it.
func Async(name string, next auth.EventSink, size int, logger *slog.Logger) *AsyncSink {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &AsyncSink{
		name:   name,
		next:   next,
		queue:  make(chan queued, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit implements auth.EventSink.
func (a *AsyncSink) Emit(ctx context.Context, e auth.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), e: e}:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			a.logger.Warn("event queue full, dropping", "sink", a.name, "type", e.Type, "dropped_total", n)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *AsyncSink) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *AsyncSink) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	<-a.done
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for q := range a.queue {
		a.deliver(q)
	}
}

func (a *AsyncSink) deliver(q queued) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("event sink panicked", "sink", a.name, "type", q.e.Type, "panic", r)
		}
	}()
	a.next.Emit(q.ctx, q.e)
}
