// Package eventbus is the synchronous publish/subscribe hub that the builder
// panels communicate through. Delivery happens on the emitter's goroutine,
// in subscription order. A failing handler never reaches an Emit caller;
// Request hands the failures back.
package eventbus

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/logging"
)

// Wildcard subscribes to every event.
const Wildcard = "*"

// Event is what handlers receive.
type Event struct {
	Name      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler reacts to an event. A returned error is logged and counted.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies one registered handler.
type Subscription struct {
	ID    uint64
	Event string
}

type entry struct {
	id      uint64
	handler Handler
}

// Stats are cumulative delivery counters.
type Stats struct {
	Emitted       uint64 `json:"emitted"`
	Delivered     uint64 `json:"delivered"`
	HandlerErrors uint64 `json:"handlerErrors"`
	HandlerPanics uint64 `json:"handlerPanics"`
}

// Bus is a synchronous event hub.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   atomic.Uint64
	logger   logging.Logger

	emitted   atomic.Uint64
	delivered atomic.Uint64
	errs      atomic.Uint64
	panics    atomic.Uint64
}

// New creates an empty bus.
func New(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{
		handlers: make(map[string][]entry),
		logger:   logger.WithComponent("eventbus"),
	}
}

// Subscribe registers handler for event and returns its subscription.
func (b *Bus) Subscribe(event string, handler Handler) Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], entry{id: id, handler: handler})
	b.mu.Unlock()

	return Subscription{ID: id, Event: event}
}

// On registers handler for event and returns a function that removes it.
func (b *Bus) On(event string, handler Handler) (unsubscribe func()) {
	sub := b.Subscribe(event, handler)
	var once sync.Once
	return func() {
		once.Do(func() { b.Off(sub.Event, sub.ID) })
	}
}

// Off removes the subscription with id from event. Unknown ids are ignored.
func (b *Bus) Off(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[event]
	for i, e := range list {
		if e.id == id {
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, event)
			} else {
				b.handlers[event] = next
			}
			return
		}
	}
}

// HandlerCount returns the number of handlers subscribed to event.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Emit delivers name to every subscriber of name, then to wildcard
// subscribers. Handlers added or removed during delivery take effect on the
// next Emit.
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	b.publish(ctx, name, payload)
}

// Request delivers name like Emit and hands back what the handlers
// reported, so the originator of a request learns whether it was applied.
// It returns nil when every handler succeeded, the error of a single
// failing handler, or the failures joined.
func (b *Bus) Request(ctx context.Context, name string, payload any) error {
	errs := b.publish(ctx, name, payload)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

func (b *Bus) publish(ctx context.Context, name string, payload any) []error {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.RLock()
	targets := make([]entry, 0, len(b.handlers[name])+len(b.handlers[Wildcard]))
	targets = append(targets, b.handlers[name]...)
	if name != Wildcard {
		targets = append(targets, b.handlers[Wildcard]...)
	}
	b.mu.RUnlock()

	b.emitted.Add(1)
	ev := Event{Name: name, Payload: payload, Timestamp: time.Now()}

	var errs []error
	for _, e := range targets {
		if err := b.dispatch(ctx, ev, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Bus) dispatch(ctx context.Context, ev Event, e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error(ctx, fmt.Errorf("panic: %v", r), "Event handler panicked",
				"event", ev.Name, "subscription", e.id, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s handler panicked: %v", ev.Name, r)
		}
	}()

	if err := e.handler(ctx, ev); err != nil {
		b.errs.Add(1)
		b.logger.Warn(ctx, err, "Event handler failed", "event", ev.Name, "subscription", e.id)
		return err
	}
	b.delivered.Add(1)
	return nil
}

// Stats returns a snapshot of the delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Emitted:       b.emitted.Load(),
		Delivered:     b.delivered.Load(),
		HandlerErrors: b.errs.Load(),
		HandlerPanics: b.panics.Load(),
	}
}
