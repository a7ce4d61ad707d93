package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/next-trace/scg-topic-dispatcher/adapters/rabbitmq"
	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

type fakePublisher struct {
	calls []rabbitmq.PubMsg
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, m rabbitmq.PubMsg) error {
	_ = ctx
	f.calls = append(f.calls, m)

	return f.err
}

type traceProp struct{}

func (traceProp) Inject(ctx context.Context, headers map[string]string) {
	headers["traceparent"] = "00-abc-def-01"
}

func TestRabbitMQ_ReportFault(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.New(fp)

	f := dispatch.Fault{Topic: "order.created", Handler: "notify", Err: errors.New("boom"), Data: "payload"}
	if err := ad.ReportFault(t.Context(), f); err != nil {
		t.Fatalf("report: %v", err)
	}

	if len(fp.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fp.calls))
	}

	c := fp.calls[0]
	if c.Exchange != rabbitmq.DefaultExchange || c.RoutingKey != "fault.order.created" {
		t.Fatalf("routing: %q %q", c.Exchange, c.RoutingKey)
	}

	if c.Headers["x-fault-topic"] != "order.created" || c.Headers["x-fault-handler"] != "notify" {
		t.Fatalf("headers: %+v", c.Headers)
	}

	var rec dispatch.FaultRecord
	if err := json.Unmarshal(c.Body, &rec); err != nil {
		t.Fatalf("body: %v", err)
	}

	if rec.Error != "boom" || rec.Payload != "payload" {
		t.Fatalf("record: %+v", rec)
	}
}

func TestRabbitMQ_PropagatorAndExchangeOverride(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.NewWithPropagator(fp, traceProp{})
	ad.Exchange = "ops"

	if err := ad.ReportFault(t.Context(), dispatch.Fault{Topic: "t"}); err != nil {
		t.Fatalf("report: %v", err)
	}

	if fp.calls[0].Exchange != "ops" || fp.calls[0].Headers["traceparent"] != "00-abc-def-01" {
		t.Fatalf("msg: %+v", fp.calls[0])
	}
}

func TestRabbitMQ_NilPublisherError(t *testing.T) {
	ad := rabbitmq.New(nil)
	if err := ad.ReportFault(t.Context(), dispatch.Fault{}); !errors.Is(err, berr.ErrReporterNotConfigured) {
		t.Fatalf("expected ErrReporterNotConfigured, got %v", err)
	}
}

func TestRabbitMQ_Publish_ErrorWrapping_And_ContextCancel(t *testing.T) {
	fp := &fakePublisher{err: errors.New("boom")}
	ad := rabbitmq.New(fp)

	if err := ad.ReportFault(t.Context(), dispatch.Fault{Topic: "t"}); !errors.Is(err, berr.ErrReportFailed) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	fp2 := &fakePublisher{err: context.Canceled}
	ad2 := rabbitmq.New(fp2)

	err := ad2.ReportFault(t.Context(), dispatch.Fault{Topic: "t"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
