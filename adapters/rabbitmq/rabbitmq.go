package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is the topic exchange fault records are published to.
	DefaultExchange = "dispatcher.faults"
	routingPrefix   = "fault."
)

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

type Adapter struct {
	Publisher  Publisher
	Exchange   string
	Propagator dispatch.HeaderPropagator // optional, for context propagation into headers
}

var _ dispatch.FaultReporter = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp dispatch.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

// ReportFault publishes f with routing key "fault.<topic>".
func (a *Adapter) ReportFault(ctx context.Context, f dispatch.Fault) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	body, err := mustJSON(f)
	if err != nil {
		return fmt.Errorf("rabbitmq report serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return a.publish(ctx, PubMsg{
		Exchange:   a.exchange(),
		RoutingKey: routingPrefix + f.Topic,
		Body:       body,
		Headers:    faultHeaders(f),
	})
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq report: %w", berr.ErrReporterNotConfigured)
	}

	return nil
}

func (a *Adapter) exchange() string {
	if a.Exchange != "" {
		return a.Exchange
	}

	return DefaultExchange
}

func (a *Adapter) publish(ctx context.Context, msg PubMsg) error {
	// Inject tracing context via configured propagator (keeps adapter decoupled)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, msg.Headers)
	}

	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq report publish: %w", errors.Join(berr.ErrReportFailed, err))
	}

	return nil
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

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}

	h := amqp.Table{}
	for k, v := range headers {
		h[k] = v
	}

	return h
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:     toTable(m.Headers),
			Body:        m.Body,
			ContentType: "application/json",
		},
	)
}

// NewWithAMQPChannel reports over an already opened channel. The caller owns the channel
// and must have declared the exchange.
func NewWithAMQPChannel(ch *amqp.Channel) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}}
}
