package busauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher keeps sink latency out of the authentication flows.
// Login, registration, verification and password operations enqueue their
// events and move on; a single goroutine delivers them to the configured
// sink in order. With AuditConfig.DropIfFull set, a full queue drops the
// event instead of applying backpressure, and the drop is counted.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	quit       chan struct{}
	delivered  chan struct{}
	dropOnFull bool
	dropped    atomic.Uint64
	stopped    atomic.Bool
	stopOnce   sync.Once
}

// newAuditDispatcher starts the delivery goroutine. It returns nil when
// auditing is disabled; a nil dispatcher accepts Emit and Close calls and
// does nothing, so callers never branch on the audit setting.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, size),
		quit:       make(chan struct{}),
		delivered:  make(chan struct{}),
		dropOnFull: cfg.DropIfFull,
	}
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer close(d.delivered)
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain flushes events already queued at shutdown so a Close right after a
// flow completes does not lose that flow's event.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues one event. In drop mode a full queue loses the event and
// bumps the drop counter; otherwise Emit blocks until there is room, the
// context ends, or the dispatcher shuts down.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopped.Load() {
		return
	}

	if d.dropOnFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops accepting events, flushes the queue, and waits for delivery
// to finish. Safe to call more than once and on a nil dispatcher.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
		<-d.delivered
	})
}

// Dropped reports how many events were discarded because the queue was
// full in drop mode.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
