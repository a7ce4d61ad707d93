package dispatch

// Subscription configures one Subscribe call. Every topic listed gets its own independent
// entry carrying the same handler, data and receiver.
type Subscription struct {
	Topics   []string
	Data     any
	Handler  *Handler
	Receiver any
}

// On is shorthand for a Subscription without attached data or receiver.
func On(h *Handler, topics ...string) Subscription {
	return Subscription{Topics: topics, Handler: h}
}
