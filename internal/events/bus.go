package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event names published on the bus.
const (
	InsightCreated      = "insight.created"
	InsightAcknowledged = "insight.acknowledged"
	ActionSuggested     = "action.suggested"
	ActionApproved      = "action.approved"
	ActionRejected      = "action.rejected"
	ActionCompleted     = "action.completed"
	ActionFailed        = "action.failed"
	ScanCompleted       = "scan.completed"
)

type Handler func(ctx context.Context, payload any) error

// Bus is an in-process publish/subscribe hub. It is constructed once in main
// and injected into producers and consumers; it holds no persistent state.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Register subscribes handler to the named event. Handlers run in
// registration order on every subsequent Emit.
func (b *Bus) Register(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit delivers payload to every handler registered for event at the time of
// the call and returns once all of them have run. A handler error or panic is
// logged and never propagates to the emitter or blocks remaining handlers.
func (b *Bus) Emit(ctx context.Context, event string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, event, h, payload)
	}
}

func (b *Bus) dispatch(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", event, "panic", r)
		}
	}()

	if err := h(ctx, payload); err != nil {
		b.log.Error("event handler failed", "event", event, "err", err)
	}
}
