package billing

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v2/log"
)

// Outcome describes what processing an event did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// HandlerFunc applies one event type.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Dispatcher routes an event type to exactly one handler.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds eventType to h, replacing any previous binding.
func (d *Dispatcher) Register(eventType string, h HandlerFunc) {
	d.handlers[eventType] = h
}

// Handles reports whether a handler is registered for eventType.
func (d *Dispatcher) Handles(eventType string) bool {
	_, ok := d.handlers[eventType]
	return ok
}

// Types lists the registered event types.
func (d *Dispatcher) Types() []string {
	out := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for ev. Unknown types are logged and ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) (Outcome, error) {
	h, ok := d.handlers[ev.Type]
	if !ok {
		log.Infof("[Billing] ignoring unhandled event type %s (%s)", ev.Type, ev.ID)
		return OutcomeIgnored, nil
	}
	if err := h(ctx, ev); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeApplied, nil
}
