package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

// DefaultTopic is the Kafka topic fault records are produced to when none is configured.
const DefaultTopic = "dispatcher.faults"

// Writer is a minimal Kafka-like writer interface.
// Users can adapt franz-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements dispatch.FaultReporter using an injected Writer.
// Records are keyed by the dispatcher topic so faults of one topic stay ordered per partition.
type Adapter struct {
	Writer Writer
	Topic  string
}

var _ dispatch.FaultReporter = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) ReportFault(ctx context.Context, f dispatch.Fault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka report: %w", berr.ErrReporterNotConfigured)
	}

	val, err := mustJSON(f)
	if err != nil {
		return fmt.Errorf("kafka report serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err = a.Writer.Write(ctx, a.topic(), []byte(f.Topic), val, faultHeaders(f)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// separate return from preceding multi-line block (wsl)
		return fmt.Errorf("kafka report write: %w", errors.Join(berr.ErrReportFailed, err))
	}

	return nil
}

// helpers (duplicated for simplicity and test isolation)

func (a *Adapter) topic() string {
	if a.Topic != "" {
		return a.Topic
	}

	return DefaultTopic
}

func faultHeaders(f dispatch.Fault) map[string]string {
	h := map[string]string{"x-fault-panicked": strconv.FormatBool(f.Panicked)}
	if f.Handler != "" {
		h["x-fault-handler"] = f.Handler
	}

	return h
}

func mustJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return b, nil
}
