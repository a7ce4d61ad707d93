package dispatch

// Event describes the subscription a callback is being invoked for.
type Event struct {
	// Topic is the topic the value was published on.
	Topic string
	// AttachedData is the subscriber's own subscribe-time data; nil when none was given.
	// It is distinct from the publish-time value passed as the callback's data argument.
	AttachedData any
	// Receiver is the bound context supplied at subscribe time; nil when unbound.
	Receiver any
}
