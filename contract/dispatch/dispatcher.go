package dispatch

import "context"

// Receipt summarises one Publish call.
type Receipt struct {
	Topics    int // topics that had a registry entry
	Delivered int // callbacks that completed without fault
	Faults    int // callbacks that returned an error or panicked
}

// Dispatcher is the topic pub/sub contract. Consumers that only need the operations can
// depend on this interface instead of the concrete dispatcher package.
type Dispatcher interface {
	Subscribe(sub Subscription) error
	Unsubscribe(h *Handler, topics ...string)
	Publish(ctx context.Context, data any, topics ...string) (Receipt, error)
	Close() error
}
