package inmemory

import (
	"context"
	"sync"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
)

// Recorder is a thread-safe in-memory implementation of dispatch.FaultReporter.
// It records reported faults for testing and examples.
type Recorder struct {
	mu     sync.Mutex
	faults []dispatch.Fault
}

// Ensure Recorder implements the reporter contract.
var _ dispatch.FaultReporter = (*Recorder)(nil)

// New creates a new in-memory recorder instance.
func New() *Recorder { return &Recorder{} }

func (r *Recorder) ReportFault(ctx context.Context, f dispatch.Fault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.faults = append(r.faults, f)
	r.mu.Unlock()

	return nil
}

// Faults returns a copy of the recorded faults in report order.
func (r *Recorder) Faults() []dispatch.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]dispatch.Fault(nil), r.faults...)
}

// Topic returns the recorded faults for one topic.
func (r *Recorder) Topic(topic string) []dispatch.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []dispatch.Fault
	for _, f := range r.faults {
		if f.Topic == topic {
			out = append(out, f)
		}
	}

	return out
}

// Len returns the number of recorded faults.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.faults)
}

// Reset drops all recorded faults.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.faults = nil
	r.mu.Unlock()
}
