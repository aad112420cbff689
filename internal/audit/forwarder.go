package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const deliverTimeout = 5 * time.Second

type forwardItem struct {
	topic string
	ev    Event
}

// Forwarder delivers events to remote sinks off the request path. Enqueue
// never blocks: when the buffer is full the event is dropped with a local
// warning. Sink failures are warned about and never retried.
type Forwarder struct {
	sinks    []Sink
	ch       chan forwardItem
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	onDrop    func()
	onFailure func()
}

// NewForwarder creates a forwarder fanning out to sinks.
func NewForwarder(sinks []Sink, bufferSize int) *Forwarder {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &Forwarder{
		sinks: sinks,
		ch:    make(chan forwardItem, bufferSize),
		done:  make(chan struct{}),
	}
}

// SetHooks registers observers invoked on dropped events and failed
// deliveries. Must be called before Start.
func (f *Forwarder) SetHooks(onDrop, onFailure func()) {
	f.onDrop = onDrop
	f.onFailure = onFailure
}

// Start launches the delivery loop.
func (f *Forwarder) Start() {
	f.wg.Add(1)
	go f.processLoop()
}

// Enqueue queues one event for delivery without blocking. Events enqueued
// after Flush are dropped: the drain has already run and nothing would
// deliver them.
func (f *Forwarder) Enqueue(topic string, ev Event) {
	if f.stopped.Load() {
		log.Warn().Str("request_id", ev.RequestID).Msg("audit forwarder stopped, dropping event")
		if f.onDrop != nil {
			f.onDrop()
		}
		return
	}

	select {
	case f.ch <- forwardItem{topic: topic, ev: ev}:
	default:
		log.Warn().Str("request_id", ev.RequestID).Msg("audit forward buffer full, dropping event")
		if f.onDrop != nil {
			f.onDrop()
		}
	}
}

// Flush stops the loop, draining queued events for at most timeout. Safe to
// call more than once; only the first call drains.
func (f *Forwarder) Flush(timeout time.Duration) {
	f.stopOnce.Do(func() {
		f.stopped.Store(true)
		close(f.done)
	})

	doneCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("audit forwarder flushed")
	case <-time.After(timeout):
		log.Warn().Msg("audit forwarder flush timed out")
	}
}

func (f *Forwarder) processLoop() {
	defer f.wg.Done()

	for {
		select {
		case item := <-f.ch:
			f.deliver(item)
		case <-f.done:
			// Drain remaining entries
			for {
				select {
				case item := <-f.ch:
					f.deliver(item)
				default:
					return
				}
			}
		}
	}
}

// deliver sends one event to every sink. A failing sink is skipped with a
// warning; no retries, and nothing propagates back to the request path.
func (f *Forwarder) deliver(item forwardItem) {
	for _, sink := range f.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := sink.LogEvent(ctx, item.topic, item.ev)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Str("request_id", item.ev.RequestID).
				Str("topic", item.topic).
				Msg("failed to forward audit event")
			if f.onFailure != nil {
				f.onFailure()
			}
		}
	}
}
