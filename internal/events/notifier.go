package events

import (
	"context"
	"log"
	"sync"

	"bistro/server/internal/models"
)

// Notifier tells readers that ledger state changed. Implementations must not
// block for long; services call Notify after the transaction has committed,
// and a failed notification never undoes the committed change.
type Notifier interface {
	Notify(ctx context.Context, event models.LedgerEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, models.LedgerEvent) {}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event models.LedgerEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event models.LedgerEvent)

func (f NotifierFunc) Notify(ctx context.Context, event models.LedgerEvent) {
	f(ctx, event)
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []models.LedgerEvent
}

func (r *Recorder) Notify(_ context.Context, event models.LedgerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []models.LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LedgerEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in arrival order.
func (r *Recorder) Types() []models.LedgerEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LedgerEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// Logging logs every event at info level.
type Logging struct{}

func (Logging) Notify(_ context.Context, event models.LedgerEvent) {
	log.Printf("📣 %s %s", event.Type, event.EntityID)
}
