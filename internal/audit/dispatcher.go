package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// OnDrop, when set, is invoked once per event discarded because the
	// buffer was full. It runs on the emitting goroutine, so keep it
	// cheap: a counter bump or a log line.
	OnDrop func()
}

// Dispatcher decouples audit emission from the request path. Accepted
// events are buffered on a channel and forwarded to the sink by a single
// worker goroutine, so Emit never performs sink I/O inline. A nil
// *Dispatcher is a valid no-op; a disabled configuration is represented
// that way.
type Dispatcher struct {
	sink   Sink
	drop   bool
	onDrop func()

	events  chan Event
	quit    chan struct{}
	worker  sync.WaitGroup
	stopped atomic.Bool
	stop    sync.Once
	dropped atomic.Uint64
}

// NewDispatcher returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		sink:   sink,
		drop:   cfg.DropIfFull,
		onDrop: cfg.OnDrop,
		events: make(chan Event, size),
		quit:   make(chan struct{}),
	}
	d.worker.Add(1)
	go d.forward()
	return d
}

// forward is the single consumer. After Close it drains what is already
// buffered before returning, so an accepted event is never lost to
// shutdown.
func (d *Dispatcher) forward() {
	defer d.worker.Done()

	for {
		select {
		case ev := <-d.events:
			d.sink.Emit(context.Background(), ev)
		case <-d.quit:
			for {
				select {
				case ev := <-d.events:
					d.sink.Emit(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Emit hands an event to the worker. In drop mode a full buffer discards
// the event, counts it, and fires OnDrop; otherwise Emit blocks until
// there is room, ctx is done, or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.drop {
		select {
		case d.events <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
			if d.onDrop != nil {
				d.onDrop()
			}
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops intake and waits for the worker to drain the buffer.
// Idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stop.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
		d.worker.Wait()
	})
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
