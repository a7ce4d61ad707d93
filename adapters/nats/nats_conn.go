package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

// DefaultFlushTimeout bounds the server round trip that confirms a published fault.
const DefaultFlushTimeout = 2 * time.Second

type Config struct {
	URL           string
	Name          string
	Subject       string
	ConnTimeout   time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
	// FlushTimeout bounds each report; zero selects DefaultFlushTimeout.
	FlushTimeout time.Duration
	// Logger receives connection lifecycle events; nil uses slog.Default().
	Logger *slog.Logger
}

type natsClient struct {
	nc           *nats.Conn
	flushTimeout time.Duration
}

func (c natsClient) Publish(subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.FlushTimeout(c.flushTimeout)
}

// connEvents logs the fault sink's connection lifecycle.
type connEvents struct{ logger *slog.Logger }

func (e connEvents) disconnected(nc *nats.Conn, err error) {
	if err == nil {
		return
	}

	e.logger.Warn("fault sink disconnected", "sink", "nats", "server", serverOf(nc), "error", err)
}

func (e connEvents) reconnected(nc *nats.Conn) {
	e.logger.Info("fault sink reconnected", "sink", "nats", "server", serverOf(nc))
}

func (e connEvents) closed(nc *nats.Conn) {
	attrs := []any{"sink", "nats"}
	if nc != nil {
		if err := nc.LastError(); err != nil {
			attrs = append(attrs, "error", err)
		}
	}

	e.logger.Info("fault sink closed", attrs...)
}

func (e connEvents) asyncError(_ *nats.Conn, _ *nats.Subscription, err error) {
	e.logger.Error("fault sink async error", "sink", "nats", "error", err)
}

func serverOf(nc *nats.Conn) string {
	if nc == nil {
		return ""
	}

	return nc.ConnectedUrlRedacted()
}

func (cfg Config) options() []nats.Option {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ev := connEvents{logger: logger}
	opts := []nats.Option{
		nats.DisconnectErrHandler(ev.disconnected),
		nats.ReconnectHandler(ev.reconnected),
		nats.ClosedHandler(ev.closed),
		nats.ErrorHandler(ev.asyncError),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	return opts
}

// NewWithNATS dials NATS and returns an Adapter publishing faults over it, plus a cleanup
// that drains the connection.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrReporterNotConfigured)
	}

	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}

	nc, err := nats.Connect(cfg.URL, cfg.options()...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", berr.ErrReportFailed, err)
	}

	ad := &Adapter{Client: natsClient{nc: nc, flushTimeout: cfg.FlushTimeout}, Subject: cfg.Subject}
	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain() //nolint:errcheck // best-effort shutdown; cannot return error here
		}
	}

	return ad, cleanup, nil
}
