package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

const faultPrefix = "faults."

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements dispatch.FaultReporter using an injected NATS-like Client.
// Subject overrides the default "faults.<topic>" subject when set.
type Adapter struct {
	Client  Client
	Subject string
}

// Ensure Adapter implements the reporter contract.
var _ dispatch.FaultReporter = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// ReportFault publishes f as a JSON fault record.
func (a *Adapter) ReportFault(ctx context.Context, f dispatch.Fault) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	body, err := mustJSON(f)
	if err != nil {
		return fmt.Errorf("nats report serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Client.Publish(a.subjectFor(f), body, faultHeaders(f)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats report publish: %w", errors.Join(berr.ErrReportFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats report: %w", berr.ErrReporterNotConfigured)
	}

	return nil
}

// helpers

func (a *Adapter) subjectFor(f dispatch.Fault) string {
	if a.Subject != "" {
		return a.Subject
	}

	return faultPrefix + f.Topic
}

func faultHeaders(f dispatch.Fault) map[string]string {
	h := map[string]string{
		"x-fault-topic":    f.Topic,
		"x-fault-panicked": strconv.FormatBool(f.Panicked),
	}

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
