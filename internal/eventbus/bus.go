package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/metrics"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// Handler reacts to one event. A non-nil error marks the whole event as
// failed, which re-enqueues it for another fan-out to all handlers.
type Handler func(ctx context.Context, e Event) error

// Event is what handlers receive
type Event struct {
	Name    string
	Payload Payload
}

// DeadLetterSink persists events dropped after all retries fail
type DeadLetterSink interface {
	Create(ctx context.Context, event *models.DeadLetterEvent) error
}

// Config tunes the bus. Zero values fall back to defaults.
type Config struct {
	DrainInterval time.Duration
	MaxRetries    int
	Clock         clockwork.Clock
	DeadLetters   DeadLetterSink
	Metrics       *metrics.Metrics
}

const (
	defaultDrainInterval = time.Second
	defaultMaxRetries    = 3
)

type queuedEvent struct {
	event      Event
	enqueuedAt time.Time
	retries    int
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe queue. Delivery is best effort:
// events are held in memory only, drained one at a time in FIFO order, and
// a failing fan-out retries the whole event at the back of the queue.
type Bus struct {
	mu          sync.Mutex
	queue       []*queuedEvent
	handlers    map[string][]subscription
	nextSubID   uint64
	processing  bool
	maxRetries  int
	interval    time.Duration
	clock       clockwork.Clock
	deadLetters DeadLetterSink
	metrics     *metrics.Metrics
}

// New creates a bus. Run must be called for queued events to be processed.
func New(cfg Config) *Bus {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = defaultDrainInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Bus{
		handlers:    make(map[string][]subscription),
		maxRetries:  cfg.MaxRetries,
		interval:    cfg.DrainInterval,
		clock:       cfg.Clock,
		deadLetters: cfg.DeadLetters,
		metrics:     cfg.Metrics,
	}
}

// Subscribe registers a handler for an event name. The returned function
// removes exactly this handler and is safe to call more than once.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[name]
		for i, s := range subs {
			if s.id == id {
				b.handlers[name] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit appends an event to the queue. It never blocks on handlers and never
// fails the caller; processing happens on the drain loop.
func (b *Bus) Emit(name string, payload Payload) {
	now := b.clock.Now()
	if payload != nil {
		m := payload.meta()
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
	}

	b.mu.Lock()
	b.queue = append(b.queue, &queuedEvent{
		event:      Event{Name: name, Payload: payload},
		enqueuedAt: now,
	})
	length := len(b.queue)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IncrementCounter("eventbus.emitted")
		b.metrics.SetGauge("eventbus.queue_length", int64(length))
	}
	log.Debug().Str("event", name).Int("queue_length", length).Msg("Event enqueued")
}

// Run drains the queue on a fixed interval until the context is cancelled.
// One event is in flight at a time; handlers of that event run concurrently.
func (b *Bus) Run(ctx context.Context) error {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			b.drainOne(ctx)
		}
	}
}

// drainOne pops and processes the head of the queue if the bus is idle
func (b *Bus) drainOne(ctx context.Context) {
	b.mu.Lock()
	if b.processing || len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	qe := b.queue[0]
	b.queue = b.queue[1:]
	b.processing = true
	subs := append([]subscription(nil), b.handlers[qe.event.Name]...)
	length := len(b.queue)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetGauge("eventbus.queue_length", int64(length))
	}

	err := b.fanOut(ctx, qe.event, subs)

	b.mu.Lock()
	b.processing = false
	if err != nil {
		qe.retries++
		if qe.retries < b.maxRetries {
			// Retried events go to the back, so FIFO holds only for
			// first-attempt processing.
			b.queue = append(b.queue, qe)
			length = len(b.queue)
			b.mu.Unlock()
			if b.metrics != nil {
				b.metrics.IncrementCounter("eventbus.retried")
				b.metrics.SetGauge("eventbus.queue_length", int64(length))
			}
			log.Warn().
				Err(err).
				Str("event", qe.event.Name).
				Int("retries", qe.retries).
				Msg("Event handler failed, re-enqueueing")
			return
		}
		b.mu.Unlock()
		b.dropEvent(ctx, qe, err)
		return
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IncrementCounter("eventbus.processed")
	}
}

// fanOut invokes every subscribed handler concurrently and returns the first
// failure, if any. A panicking handler counts as a failure rather than
// taking the process down.
func (b *Bus) fanOut(ctx context.Context, e Event, subs []subscription) error {
	if len(subs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subs))
	for i, s := range subs {
		wg.Add(1)
		go func(i int, h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("handler panic: %v", r)
				}
			}()
			errs[i] = h(ctx, e)
		}(i, s.handler)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// dropEvent records an exhausted event in the dead letter table (best
// effort) and logs it
func (b *Bus) dropEvent(ctx context.Context, qe *queuedEvent, cause error) {
	if b.metrics != nil {
		b.metrics.IncrementCounter("eventbus.dropped")
	}
	log.Error().
		Err(cause).
		Str("event", qe.event.Name).
		Int("retries", qe.retries).
		Msg("Event dropped after max retries")

	if b.deadLetters == nil {
		return
	}
	payload, err := json.Marshal(qe.event.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	dl := &models.DeadLetterEvent{
		EventName:  qe.event.Name,
		Payload:    payload,
		Attempts:   qe.retries,
		LastError:  cause.Error(),
		EnqueuedAt: qe.enqueuedAt,
	}
	if err := b.deadLetters.Create(ctx, dl); err != nil {
		log.Error().Err(err).Str("event", qe.event.Name).Msg("Failed to persist dead letter event")
	}
}

// QueueStatus reports the queue length and whether an event is in flight
func (b *Bus) QueueStatus() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue), b.processing
}

// ClearQueue discards all pending events. Intended for test isolation.
func (b *Bus) ClearQueue() {
	b.mu.Lock()
	b.queue = nil
	b.mu.Unlock()
	if b.metrics != nil {
		b.metrics.SetGauge("eventbus.queue_length", 0)
	}
}
