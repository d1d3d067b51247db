package application

import (
	"context"

	"github.com/google/uuid"
)

// Notifier is the post-transition side-effect hook. Implementations must be
// fire-and-forget: Emit never returns an error and a delivery failure must
// never change the outcome of the transition that triggered it. The caller
// only invokes Emit after the transition is durably committed.
type Notifier interface {
	Emit(ctx context.Context, recipientID uuid.UUID, eventType string, payload interface{})
}

// NopNotifier discards all notifications. Useful in tests.
type NopNotifier struct{}

// Emit does nothing.
func (NopNotifier) Emit(context.Context, uuid.UUID, string, interface{}) {}
