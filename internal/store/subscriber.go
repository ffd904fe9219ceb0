package store

import "sync"

// subscriber serializes event delivery for one subscription. Events are
// enqueued while the adapter holds its own lock (so ordering follows
// write ordering) and drained afterwards, so a callback may freely call
// back into the store — including unsubscribing itself.
type subscriber struct {
	mu      sync.Mutex
	closed  bool
	pending []any
	active  bool
	deliver func(any)
}

func newSubscriber(deliver func(any)) *subscriber {
	return &subscriber{deliver: deliver}
}

// add queues an event. Call while holding the adapter lock to preserve
// cross-event ordering.
func (s *subscriber) add(ev any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, ev)
}

// drain delivers queued events. Only one drain loop runs at a time; the
// `active` flag hands pending events of a concurrent add over to the
// running loop instead of starting a second one.
func (s *subscriber) drain() {
	s.mu.Lock()
	if s.active || s.closed {
		s.mu.Unlock()
		return
	}
	s.active = true
	for {
		if s.closed || len(s.pending) == 0 {
			s.active = false
			s.mu.Unlock()
			return
		}
		ev := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.deliver(ev)
		s.mu.Lock()
	}
}

// close stops delivery. No new callback is started after close returns.
func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
}

// watch is one registered observation: either a record / doc-level
// collection (segs set) or a one-segment namespace collection.
type watch struct {
	segs      []string
	namespace string
	record    bool
	sub       *subscriber
}

// affectedBy reports whether a write at wsegs can change the watched node.
func (w *watch) affectedBy(wsegs []string) bool {
	if w.namespace != "" {
		return wsegs[0] == w.namespace
	}
	n := len(w.segs)
	if len(wsegs) < n {
		n = len(wsegs)
	}
	for i := 0; i < n; i++ {
		if w.segs[i] != wsegs[i] {
			return false
		}
	}
	return true
}

// affectedByAny is affectedBy over a set of written paths.
func (w *watch) affectedByAny(written [][]string) bool {
	for _, segs := range written {
		if w.affectedBy(segs) {
			return true
		}
	}
	return false
}
