package dispatch

import "time"

// Observer receives delivery measurements. Implementations must be cheap and safe for
// concurrent use; they run inline on the publishing goroutine.
type Observer interface {
	// ObservePublish is called once per published topic with the number of live
	// subscriptions when iteration started.
	ObservePublish(topic string, subscribers int)
	// ObserveDelivery is called after each callback with its duration and fault (nil on success).
	ObserveDelivery(topic string, elapsed time.Duration, err error)
}

// NopObserver discards all measurements.
type NopObserver struct{}

func (NopObserver) ObservePublish(string, int)                   {}
func (NopObserver) ObserveDelivery(string, time.Duration, error) {}
