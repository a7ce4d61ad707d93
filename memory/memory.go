package memory

import (
	"log/slog"

	"github.com/next-trace/scg-topic-dispatcher/adapters/inmemory"
	"github.com/next-trace/scg-topic-dispatcher/dispatcher"
)

// New constructs a dispatcher whose subscriber faults are recorded in memory and returns it
// along with the recorder and a cleanup function that closes the dispatcher.
func New(logger *slog.Logger, opts ...dispatcher.Option) (*dispatcher.Dispatcher, *inmemory.Recorder, func()) {
	rec := inmemory.New()
	opts = append([]dispatcher.Option{dispatcher.WithFaultReporter(rec)}, opts...)
	d := dispatcher.New(logger, opts...)
	cleanup := func() { _ = d.Close() }

	return d, rec, cleanup
}
