package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
)

// Prom records dispatcher activity on a private registry.
type Prom struct {
	reg *prometheus.Registry
	// Counters/Histograms, all labelled by topic
	Publishes   *prometheus.CounterVec
	Deliveries  *prometheus.CounterVec
	Faults      *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Subscribers *prometheus.GaugeVec
}

var _ dispatch.Observer = (*Prom)(nil)

func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg: reg,
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatcher_publishes_total",
			Help: "Publishes that found at least one subscription on the topic",
		}, []string{"topic"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatcher_deliveries_total",
			Help: "Subscriber invocations, successful or not",
		}, []string{"topic"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatcher_subscriber_faults_total",
			Help: "Subscriber invocations that returned an error or panicked",
		}, []string{"topic"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatcher_delivery_seconds",
			Help:    "Time spent inside a single subscriber callback",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"topic"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatcher_subscribers",
			Help: "Live subscriptions on the topic at its latest publish",
		}, []string{"topic"}),
	}
	reg.MustRegister(p.Publishes, p.Deliveries, p.Faults, p.Latency, p.Subscribers)

	return p
}

func (p *Prom) Handler() http.Handler { return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{}) }

// Registry exposes the underlying registry for embedding into a wider exporter.
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

// ObservePublish implements dispatch.Observer.
func (p *Prom) ObservePublish(topic string, subscribers int) {
	p.Publishes.WithLabelValues(topic).Inc()
	p.Subscribers.WithLabelValues(topic).Set(float64(subscribers))
}

// ObserveDelivery implements dispatch.Observer.
func (p *Prom) ObserveDelivery(topic string, elapsed time.Duration, err error) {
	p.Deliveries.WithLabelValues(topic).Inc()
	p.Latency.WithLabelValues(topic).Observe(elapsed.Seconds())

	if err != nil {
		p.Faults.WithLabelValues(topic).Inc()
	}
}
