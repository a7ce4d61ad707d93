package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Concrete franz-go based constructor and writer wrapper.

type Config struct {
	Brokers  []string
	ClientID string
	Topic    string
	TLS      *tls.Config
	// AllISRAcks waits for every in-sync replica; otherwise the leader ack is enough
	// and idempotent writes are disabled as franz-go requires.
	AllISRAcks  bool
	Compression []kgo.CompressionCodec
	// DeliveryTimeout fails a fault record that could not be produced in time.
	// Zero selects DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration
}

const DefaultDeliveryTimeout = 10 * time.Second

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if len(headers) > 0 {
		rec.Headers = make([]kgo.RecordHeader, 0, len(headers))
		for k, v := range headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
	}

	return w.cl.ProduceSync(ctx, rec).FirstErr()
}

// NewWithKgo builds a franz-go client based Adapter. The returned cleanup should be called to close the client.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrReporterNotConfigured)
	}

	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}

	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Brokers...), kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout)}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if cfg.AllISRAcks {
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	} else {
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	}

	if len(cfg.Compression) > 0 {
		opts = append(opts, kgo.ProducerBatchCompression(cfg.Compression...))
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrReportFailed, err)
	}

	ad := &Adapter{Writer: kgoWriter{cl: cl}, Topic: cfg.Topic}
	cleanup := func() { cl.Close() }

	return ad, cleanup, nil
}
