package credcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher relays events to the configured sink from a single worker
// goroutine so slow sinks never stall credential flows. A nil dispatcher is
// valid and drops everything; the builder returns nil when auditing is
// disabled.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	dropIfFull bool

	quit     chan struct{}
	drained  chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
	dropped  atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		dropIfFull: cfg.DropIfFull,
		quit:       make(chan struct{}),
		drained:    make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver is the worker loop. After a stop request it flushes whatever was
// queued before returning, so Close never loses accepted events.
func (d *auditDispatcher) deliver() {
	defer close(d.drained)
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			for {
				select {
				case event := <-d.events:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues event for delivery. With DropIfFull the call never blocks and
// a full buffer increments the drop counter; otherwise it blocks until the
// buffer accepts the event, ctx is done, or the dispatcher stops.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops accepting events, waits for the worker to flush the queue,
// and returns. Safe to call more than once and on a nil dispatcher.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.quit)
		<-d.drained
	})
}

// Dropped reports how many events were discarded by a full buffer.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
