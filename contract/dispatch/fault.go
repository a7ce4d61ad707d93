package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Fault describes a subscriber callback that returned an error or panicked during publish.
type Fault struct {
	Topic    string
	Data     any // the value passed to Publish
	Handler  string
	Err      error
	Panicked bool
	Stack    []byte
	At       time.Time
}

// FaultReporter receives subscriber faults. Implementations must be safe for concurrent use.
// A returned error is logged by the dispatcher and never reaches the publisher.
type FaultReporter interface {
	ReportFault(ctx context.Context, f Fault) error
}

// FaultReporterFunc adapts a function to FaultReporter.
type FaultReporterFunc func(ctx context.Context, f Fault) error

func (fn FaultReporterFunc) ReportFault(ctx context.Context, f Fault) error { return fn(ctx, f) }

// FaultRecord is the wire form of a Fault used by transport reporters.
type FaultRecord struct {
	Topic    string    `json:"topic"`
	Handler  string    `json:"handler,omitempty"`
	Error    string    `json:"error"`
	Panicked bool      `json:"panicked"`
	Stack    string    `json:"stack,omitempty"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

// Record converts f into its wire form.
func (f Fault) Record() FaultRecord {
	r := FaultRecord{
		Topic:    f.Topic,
		Handler:  f.Handler,
		Panicked: f.Panicked,
		Stack:    string(f.Stack),
		Payload:  f.Data,
		At:       f.At,
	}
	if f.Err != nil {
		r.Error = f.Err.Error()
	}

	return r
}

// MarshalJSON encodes the fault record. A payload that cannot be encoded is replaced by its
// %+v rendering so a record is always produced.
func (f Fault) MarshalJSON() ([]byte, error) {
	r := f.Record()

	b, err := json.Marshal(r)
	if err == nil {
		return b, nil
	}

	r.Payload = fmt.Sprintf("%+v", f.Data)

	return json.Marshal(r)
}
