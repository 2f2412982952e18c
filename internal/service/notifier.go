package service

import "context"

// Event names published to live-update subscribers.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
	EventSyncScheduled  = "sync.scheduled"
)

// Notifier delivers events to subscribers. Delivery is best effort: Emit never fails the caller.
type Notifier interface {
	Emit(ctx context.Context, event string, payload any)
}

// NopNotifier drops every event.
type NopNotifier struct{}

// Emit implements Notifier.
func (NopNotifier) Emit(context.Context, string, any) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return NopNotifier{}
	}
	return n
}
