// Package notify delivers UI notifications to subscribers.
//
// Each subscriber owns a buffered channel and receives events in publish
// order. A subscriber that falls behind loses events rather than blocking
// the publisher; every drop is logged and counted.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/telemetry/metric"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 256

// Publisher is the notification sink components publish to.
type Publisher interface {
	Publish(ev domain.Event)
}

// Bus fans notifications out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Event
	next   int
	buffer int

	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry
}

var _ Publisher = (*Bus)(nil)

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscriber capacity.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithClock sets the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[int]chan domain.Event),
		buffer: DefaultBuffer,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "notify")
	return b
}

// Subscribe registers a subscriber. The returned channel is closed when
// ctx ends.
func (b *Bus) Subscribe(ctx context.Context) <-chan domain.Event {
	ch := make(chan domain.Event, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish stamps ev if needed and delivers it to every subscriber.
func (b *Bus) Publish(ev domain.Event) {
	if ev.ID == "" {
		stamped := domain.NewEvent(ev.Kind, b.now())
		ev.ID, ev.Time = stamped.ID, stamped.Time
	}

	b.logger.Info("notification",
		"event_id", ev.ID,
		"kind", string(ev.Kind),
		"offer_id", ev.OfferID,
		"error", ev.Error,
	)
	b.metrics.RecordEvent(string(ev.Kind))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.metrics.IncEventsDropped()
			b.logger.Warn("subscriber too slow, notification dropped",
				"subscriber", id,
				"event_id", ev.ID,
				"kind", string(ev.Kind),
			)
		}
	}
}

// Recorder is a Publisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
	notify chan struct{}
}

var _ Publisher = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Publish implements Publisher.
func (r *Recorder) Publish(ev domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Kinds returns the kinds recorded, in order.
func (r *Recorder) Kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// WaitFor blocks until an event of kind is recorded or ctx ends.
func (r *Recorder) WaitFor(ctx context.Context, kind domain.EventKind) (domain.Event, bool) {
	for {
		r.mu.Lock()
		for _, ev := range r.events {
			if ev.Kind == kind {
				r.mu.Unlock()
				return ev, true
			}
		}
		r.mu.Unlock()

		select {
		case <-r.notify:
		case <-ctx.Done():
			return domain.Event{}, false
		}
	}
}
