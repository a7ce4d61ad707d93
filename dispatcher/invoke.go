package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

// PanicError carries a value recovered from a panicking subscriber.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("subscriber panic: %v", e.Value) }

// Unwrap exposes the recovered value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// deliver invokes one subscriber and reports whether it completed without fault.
func (d *Dispatcher) deliver(ctx context.Context, topic string, s *slot, data any) bool {
	ev := dispatch.Event{Topic: topic, AttachedData: s.data, Receiver: s.receiver}

	start := time.Now()
	err := invoke(ctx, s.handler, ev, data)
	d.observer.ObserveDelivery(topic, time.Since(start), err)

	if err == nil {
		return true
	}

	f := dispatch.Fault{
		Topic:   topic,
		Data:    data,
		Handler: s.handler.Name(),
		At:      d.now(),
	}

	var pe *PanicError
	if errors.As(err, &pe) {
		f.Panicked = true
		f.Stack = pe.Stack
		f.Err = fmt.Errorf("deliver %q: %w", topic, errors.Join(berr.ErrSubscriberPanic, err))
	} else {
		f.Err = fmt.Errorf("deliver %q: %w", topic, errors.Join(berr.ErrSubscriberFault, err))
	}

	d.report(ctx, f)

	return false
}

func invoke(ctx context.Context, h *dispatch.Handler, ev dispatch.Event, data any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return h.Call(ctx, ev, data)
}

// report hands f to every reporter. Each call gets its own deadline detached from the
// publisher's cancellation. Reporter failures are logged and swallowed.
func (d *Dispatcher) report(ctx context.Context, f dispatch.Fault) {
	base := context.WithoutCancel(ctx)

	for _, r := range d.reporters {
		if err := d.reportOne(base, r, f); err != nil {
			d.logger.ErrorContext(ctx, "fault reporter failed",
				"topic", f.Topic,
				"reporter", fmt.Sprintf("%T", r),
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) reportOne(ctx context.Context, r dispatch.FaultReporter, f dispatch.Fault) error {
	ctx, cancel := context.WithTimeout(ctx, d.reportTimeout)
	defer cancel()

	return safeReport(ctx, r, f)
}

func safeReport(ctx context.Context, r dispatch.FaultReporter, f dispatch.Fault) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report %q: %w", f.Topic, errors.Join(berr.ErrReportFailed, &PanicError{Value: rec}))
		}
	}()

	return r.ReportFault(ctx, f)
}
