package dispatch

import "context"

// Callback is the unit of behavior invoked on publish. ev describes the subscription that
// matched; data is the value handed to Publish. A non-nil error is reported as a fault.
type Callback func(ctx context.Context, ev Event, data any) error

// Handler is the identity of a callback. Go funcs are not comparable, so subscriptions
// are matched for removal by *Handler pointer equality.
type Handler struct {
	name string
	call Callback
}

// NewHandler wraps fn into a Handler.
func NewHandler(fn Callback) *Handler { return &Handler{call: fn} }

// Named wraps fn into a Handler carrying a name used in fault reports.
func Named(name string, fn Callback) *Handler { return &Handler{name: name, call: fn} }

// Name returns the handler name, empty when the handler was built with NewHandler.
func (h *Handler) Name() string { return h.name }

// Valid reports whether h can be invoked.
func (h *Handler) Valid() bool { return h != nil && h.call != nil }

// Call invokes the wrapped callback.
func (h *Handler) Call(ctx context.Context, ev Event, data any) error {
	return h.call(ctx, ev, data)
}
