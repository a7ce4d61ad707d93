package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	berr "github.com/next-trace/scg-topic-dispatcher/contract/errors"
)

// Dispatcher owns a topic registry and delivers published values to subscribers
// synchronously, on the publishing goroutine, in registration order.
//
// Dispatcher is concurrency-safe and contains no global state. Callbacks run without any
// registry lock held, so they may subscribe, unsubscribe or publish re-entrantly.
type Dispatcher struct {
	mu     sync.Mutex
	topics map[string]*topicSlots
	closed bool

	reporters     []dispatch.FaultReporter
	reportTimeout time.Duration
	observer      dispatch.Observer
	now           func() time.Time
	logger        *slog.Logger
}

// DefaultReportTimeout bounds each fault reporter call.
const DefaultReportTimeout = 5 * time.Second

var _ dispatch.Dispatcher = (*Dispatcher)(nil)

// Option configures a Dispatcher instance.
type Option func(*Dispatcher)

// WithFaultReporter routes subscriber faults to the given reporters, in order.
// Configuring any reporter replaces the default log reporter.
func WithFaultReporter(r ...dispatch.FaultReporter) Option {
	return func(d *Dispatcher) { d.reporters = append(d.reporters, r...) }
}

// WithReportTimeout bounds each fault reporter call. Non-positive values keep the default.
func WithReportTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.reportTimeout = timeout
		}
	}
}

// WithObserver installs a delivery observer, e.g. metrics.
func WithObserver(o dispatch.Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithClock overrides the clock used to timestamp faults.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New constructs a Dispatcher. logger may be nil, in which case slog.Default() is used.
func New(logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		topics:        make(map[string]*topicSlots),
		reportTimeout: DefaultReportTimeout,
		observer:      dispatch.NopObserver{},
		now:           time.Now,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(d)
	}

	if len(d.reporters) == 0 {
		d.reporters = []dispatch.FaultReporter{LogReporter(logger)}
	}

	return d
}

// Subscribe appends one subscription per topic in sub.Topics.
// Subscribing the same handler twice yields two live subscriptions.
func (d *Dispatcher) Subscribe(sub dispatch.Subscription) error {
	if !sub.Handler.Valid() {
		return fmt.Errorf("subscribe %v: %w", sub.Topics, berr.ErrHandlerRequired)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("subscribe %v: %w", sub.Topics, berr.ErrDispatcherClosed)
	}

	for _, name := range sub.Topics {
		t, ok := d.topics[name]
		if !ok {
			t = &topicSlots{}
			d.topics[name] = t
		}

		t.add(&slot{handler: sub.Handler, data: sub.Data, receiver: sub.Receiver})
	}

	return nil
}

// SubscribeFunc wraps fn in a new Handler, subscribes it to topics without attached data or
// receiver, and returns the handler for a later Unsubscribe.
func (d *Dispatcher) SubscribeFunc(fn dispatch.Callback, topics ...string) (*dispatch.Handler, error) {
	h := dispatch.NewHandler(fn)
	if err := d.Subscribe(dispatch.On(h, topics...)); err != nil {
		return nil, err
	}

	return h, nil
}

// Unsubscribe removes every subscription of h on each named topic.
// Unknown topics and handlers that were never subscribed are ignored.
func (d *Dispatcher) Unsubscribe(h *dispatch.Handler, topics ...string) {
	if h == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range topics {
		t, ok := d.topics[name]
		if !ok {
			continue
		}

		if t.remove(h) == 0 {
			continue
		}

		t.compact()
		d.dropIfIdle(name, t)
	}
}

// Publish delivers data to every live subscriber of each named topic, topic by topic.
// Subscriber faults are reported and never returned; the only error is ErrDispatcherClosed.
func (d *Dispatcher) Publish(ctx context.Context, data any, topics ...string) (dispatch.Receipt, error) {
	var rc dispatch.Receipt

	for _, name := range topics {
		snapshot, live, t, err := d.begin(name)
		if err != nil {
			return rc, fmt.Errorf("publish %q: %w", name, err)
		}

		if t == nil {
			continue
		}

		rc.Topics++
		d.observer.ObservePublish(name, live)

		for _, s := range snapshot {
			// removed after this publish started
			if s.dead.Load() {
				continue
			}

			if d.deliver(ctx, name, s, data) {
				rc.Delivered++
			} else {
				rc.Faults++
			}
		}

		d.end(name, t)
	}

	return rc, nil
}

// begin marks the topic as being iterated and returns the slots present right now along
// with the number of live subscriptions among them.
func (d *Dispatcher) begin(name string) ([]*slot, int, *topicSlots, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, 0, nil, berr.ErrDispatcherClosed
	}

	t, ok := d.topics[name]
	if !ok {
		return nil, 0, nil, nil
	}

	t.active++

	return t.slots[:len(t.slots):len(t.slots)], t.live, t, nil
}

func (d *Dispatcher) end(name string, t *topicSlots) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t.active--
	t.compact()
	d.dropIfIdle(name, t)
}

// dropIfIdle removes an empty topic from the registry. Caller holds d.mu.
func (d *Dispatcher) dropIfIdle(name string, t *topicSlots) {
	if t.idle() && d.topics[name] == t {
		delete(d.topics, name)
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (d *Dispatcher) Subscribers(topic string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.topics[topic]; ok {
		return t.live
	}

	return 0
}

// Topics returns the sorted names of topics with at least one live subscription.
func (d *Dispatcher) Topics() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.topics))
	for name, t := range d.topics {
		if t.live > 0 {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// Close drops every subscription. Later Subscribe and Publish calls fail with
// ErrDispatcherClosed. Close is idempotent.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.topics = make(map[string]*topicSlots)

	return nil
}
