package dispatcher

import (
	"context"
	"log/slog"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
)

// LogReporter returns the default fault reporter: one Error record per fault carrying the
// topic, the published payload and the fault detail.
func LogReporter(logger *slog.Logger) dispatch.FaultReporter { //nolint:ireturn
	if logger == nil {
		logger = slog.Default()
	}

	return dispatch.FaultReporterFunc(func(ctx context.Context, f dispatch.Fault) error {
		attrs := []any{
			"topic", f.Topic,
			"payload", f.Data,
			"error", f.Err,
			"panicked", f.Panicked,
		}
		if f.Handler != "" {
			attrs = append(attrs, "handler", f.Handler)
		}

		if f.Panicked {
			attrs = append(attrs, "stack", string(f.Stack))
		}

		logger.ErrorContext(ctx, "subscriber fault", attrs...)

		return nil
	})
}
