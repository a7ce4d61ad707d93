package dispatcher

import (
	"sync/atomic"

	"github.com/next-trace/scg-topic-dispatcher/contract/dispatch"
)

// slot is one subscription entry. Removal only flips dead; the slot stays in place until
// the arena is compacted while no publish is iterating it.
type slot struct {
	handler  *dispatch.Handler
	data     any
	receiver any
	dead     atomic.Bool
}

// topicSlots is the ordered arena of subscriptions for one topic.
// All fields are guarded by Dispatcher.mu.
type topicSlots struct {
	slots  []*slot
	live   int
	active int  // publishes currently iterating slots
	dirty  bool // tombstones waiting for compaction
}

func (t *topicSlots) add(s *slot) {
	t.slots = append(t.slots, s)
	t.live++
}

// remove tombstones every live slot whose handler is h and reports how many were removed.
func (t *topicSlots) remove(h *dispatch.Handler) int {
	n := 0

	for _, s := range t.slots {
		if s.handler != h || s.dead.Load() {
			continue
		}

		s.dead.Store(true)
		n++
	}

	if n > 0 {
		t.live -= n
		t.dirty = true
	}

	return n
}

// compact drops tombstoned slots in place. Must only run while active == 0.
func (t *topicSlots) compact() {
	if !t.dirty || t.active > 0 {
		return
	}

	kept := t.slots[:0]
	for _, s := range t.slots {
		if !s.dead.Load() {
			kept = append(kept, s)
		}
	}

	for i := len(kept); i < len(t.slots); i++ {
		t.slots[i] = nil
	}

	t.slots = kept
	t.dirty = false
}

// idle reports whether the topic can be dropped from the registry.
func (t *topicSlots) idle() bool { return t.live == 0 && t.active == 0 }
