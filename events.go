package pidl

import (
	"sync"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// Handler receives an event name and its positional arguments.
type Handler func(event string, args ...any)

// Subscription is the handle returned by Emitter.On. Go function values are
// not comparable with ==, so removal by identity works through an opaque
// token instead: On hands back this token, and RemoveListener (or
// Subscription.Unsubscribe) consumes it rather than comparing closures.
type Subscription struct {
	event string
	id    int
	emit  *Emitter
}

// Unsubscribe removes the handler this subscription was returned for. It is
// idempotent: unsubscribing twice is a no-op.
func (s Subscription) Unsubscribe() {
	if s.emit == nil {
		return
	}
	s.emit.removeByID(s.event, s.id)
}

type handlerEntry struct {
	id int
	fn Handler
}

// Emitter is the multi-listener pub/sub capability a Pipeline owns. Tasks
// hold no Emitter of their own: Task.Run emits onto a sink, which is either
// the pipeline's Emitter or a per-task buffer. Delivery order matches
// subscription order; Emit is synchronous on the caller's goroutine.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]handlerEntry
	nextID   int
}

// NewEmitter constructs an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]handlerEntry)}
}

// On subscribes handler to event. Handler must not be nil.
func (e *Emitter) On(event string, handler Handler) (Subscription, error) {
	if handler == nil {
		return Subscription{}, pidlerrors.NewArgumentError("handler", "must be callable", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: id, fn: handler})
	return Subscription{event: event, id: id, emit: e}, nil
}

// RemoveListener removes the handler identified by sub, if it is still
// registered for event.
func (e *Emitter) RemoveListener(event string, sub Subscription) {
	e.removeByID(event, sub.id)
}

func (e *Emitter) removeByID(event string, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.handlers[event]
	for i, entry := range entries {
		if entry.id == id {
			e.handlers[event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Emit invokes every handler subscribed to event, in subscription order,
// synchronously on the calling goroutine.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	entries := append([]handlerEntry(nil), e.handlers[event]...)
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(event, args...)
	}
}

// recordedEvent captures one Emit call for later replay.
type recordedEvent struct {
	event string
	args  []any
}

// bufferedEmitter captures events under a mutex instead of delivering them
// immediately. Pipeline uses one per concurrently running task so that every
// subscriber observes a single-threaded event stream once the wave
// completes.
type bufferedEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func newBufferedEmitter() *bufferedEmitter {
	return &bufferedEmitter{}
}

func (b *bufferedEmitter) Emit(event string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event: event, args: args})
}

// flush replays every buffered event onto dest, in recorded order, then
// clears the buffer.
func (b *bufferedEmitter) flush(dest *Emitter) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	for _, rec := range events {
		dest.Emit(rec.event, rec.args...)
	}
}

// sink is anything a Task can emit task/action lifecycle events onto: either
// the pipeline's real Emitter (serial execution) or a bufferedEmitter
// (concurrent wave dispatch).
type sink interface {
	Emit(event string, args ...any)
}

var (
	_ sink = (*Emitter)(nil)
	_ sink = (*bufferedEmitter)(nil)
)
