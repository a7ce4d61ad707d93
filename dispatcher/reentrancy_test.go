package dispatcher_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
	"github.com/next-trace/scg-topic-dispatcher/dispatcher"
)

func Test_Reentrant_UnsubscribeSibling(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}

	s2 := tr.handler("s2")
	s3 := tr.handler("s3")
	s1 := dispatch.Named("s1", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "s1"})
		d.Unsubscribe(s2, ev.Topic)

		return nil
	})

	_ = d.Subscribe(dispatch.On(s1, "T"))
	_ = d.Subscribe(dispatch.On(s2, "T"))
	_ = d.Subscribe(dispatch.On(s3, "T"))

	_, _ = d.Publish(t.Context(), 1, "T")
	if want := []string{"s1", "s3"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("first publish: %v", tr.names())
	}

	tr.calls = nil

	_, _ = d.Publish(t.Context(), 2, "T")
	if want := []string{"s1", "s3"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("second publish: %v", tr.names())
	}

	if d.Subscribers("T") != 2 {
		t.Fatalf("subscribers=%d", d.Subscribers("T"))
	}
}

func Test_Reentrant_UnsubscribeSelf(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}
	after := tr.handler("after")

	var once *dispatch.Handler
	once = dispatch.Named("once", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "once"})
		d.Unsubscribe(once, ev.Topic)

		return nil
	})

	_ = d.Subscribe(dispatch.On(once, "T"))
	_ = d.Subscribe(dispatch.On(after, "T"))

	_, _ = d.Publish(t.Context(), nil, "T")
	_, _ = d.Publish(t.Context(), nil, "T")

	if want := []string{"once", "after", "after"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("calls=%v", tr.names())
	}
}

func Test_Reentrant_SubscribeDuringPublishTakesEffectNextTime(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}
	late := tr.handler("late")
	added := false

	early := dispatch.Named("early", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "early"})

		if !added {
			added = true
			return d.Subscribe(dispatch.On(late, ev.Topic))
		}

		return nil
	})

	_ = d.Subscribe(dispatch.On(early, "T"))

	_, _ = d.Publish(t.Context(), nil, "T")
	if want := []string{"early"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("first publish: %v", tr.names())
	}

	tr.calls = nil

	_, _ = d.Publish(t.Context(), nil, "T")
	if want := []string{"early", "late"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("second publish: %v", tr.names())
	}
}

func Test_Reentrant_UnsubscribeAndResubscribeDuringPublish(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}
	s2 := tr.handler("s2")
	s3 := tr.handler("s3")

	s1 := dispatch.Named("s1", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "s1"})
		d.Unsubscribe(s2, ev.Topic)

		// the fresh entry lands after s3 and must wait for the next publish
		return d.Subscribe(dispatch.On(s2, ev.Topic))
	})

	_ = d.Subscribe(dispatch.On(s1, "T"))
	_ = d.Subscribe(dispatch.On(s2, "T"))
	_ = d.Subscribe(dispatch.On(s3, "T"))

	_, _ = d.Publish(t.Context(), nil, "T")
	if want := []string{"s1", "s3"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("first publish: %v", tr.names())
	}

	tr.calls = nil

	_, _ = d.Publish(t.Context(), nil, "T")
	if want := []string{"s1", "s3"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("second publish: %v", tr.names())
	}

	if d.Subscribers("T") != 3 {
		t.Fatalf("subscribers=%d", d.Subscribers("T"))
	}
}

func Test_Reentrant_NestedPublish(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}
	inner := tr.handler("inner")
	tail := tr.handler("tail")

	outer := dispatch.Named("outer", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "outer"})

		if data == "first" {
			// nested publish on the same topic removes tail before the outer loop reaches it
			d.Unsubscribe(tail, "T")
			_, err := d.Publish(ctx, "nested", "T")

			return err
		}

		return nil
	})

	_ = d.Subscribe(dispatch.On(outer, "T"))
	_ = d.Subscribe(dispatch.On(inner, "T"))
	_ = d.Subscribe(dispatch.On(tail, "T"))

	_, _ = d.Publish(t.Context(), "first", "T")

	if want := []string{"outer", "outer", "inner", "inner"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("calls=%v", tr.names())
	}

	if d.Subscribers("T") != 2 {
		t.Fatalf("subscribers=%d", d.Subscribers("T"))
	}
}

func Test_Reentrant_UnsubscribeEveryoneEmptiesTopic(t *testing.T) {
	d := dispatcher.New(nil)
	tr := &trace{}
	b := tr.handler("b")

	var a *dispatch.Handler
	a = dispatch.Named("a", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "a"})
		d.Unsubscribe(a, ev.Topic)
		d.Unsubscribe(b, ev.Topic)

		return nil
	})

	_ = d.Subscribe(dispatch.On(a, "T"))
	_ = d.Subscribe(dispatch.On(b, "T"))

	_, _ = d.Publish(t.Context(), nil, "T")

	if want := []string{"a"}; !reflect.DeepEqual(tr.names(), want) {
		t.Fatalf("calls=%v", tr.names())
	}

	if len(d.Topics()) != 0 || d.Subscribers("T") != 0 {
		t.Fatalf("topic not dropped: %v", d.Topics())
	}
}

type fanout struct{ counts []int }

func (f *fanout) ObservePublish(_ string, subscribers int) { f.counts = append(f.counts, subscribers) }

func (f *fanout) ObserveDelivery(string, time.Duration, error) {}

func Test_Reentrant_ObserverSeesLiveCountBehindTombstones(t *testing.T) {
	obs := &fanout{}
	d := dispatcher.New(nil, dispatcher.WithObserver(obs))
	tr := &trace{}
	s2 := tr.handler("s2")
	s3 := tr.handler("s3")

	s1 := dispatch.Named("s1", func(ctx context.Context, ev dispatch.Event, data any) error {
		tr.calls = append(tr.calls, call{name: "s1"})

		if data == "outer" {
			// s2 stays in the arena as a tombstone until the outer publish ends
			d.Unsubscribe(s2, ev.Topic)
			_, err := d.Publish(ctx, "nested", ev.Topic)

			return err
		}

		return nil
	})

	_ = d.Subscribe(dispatch.On(s1, "T"))
	_ = d.Subscribe(dispatch.On(s2, "T"))
	_ = d.Subscribe(dispatch.On(s3, "T"))

	_, _ = d.Publish(t.Context(), "outer", "T")

	if want := []int{3, 2}; !reflect.DeepEqual(obs.counts, want) {
		t.Fatalf("observed=%v", obs.counts)
	}
}
