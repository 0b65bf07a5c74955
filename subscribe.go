package pathstore

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jpalmerr/pathstore/internal/tree"
)

// Event describes a single committed write, as seen by a [Store.Watch]
// channel.
//
// Path is the concrete path that changed (for wildcard watchers this names
// the child, not the wildcard pattern). Value is the value that was written;
// container values are shared with the tree and must be treated as read-only.
type Event struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// subscription is one registered listener, exact or wildcard.
//
// active is flipped to false on unsubscribe (and on Destroy) so that
// notifications already collected but not yet delivered are suppressed,
// even mid-batch.
type subscription struct {
	key      string // concrete path, or the wildcard's parent path
	wildcard bool
	fn       func(Event)
	watch    *watchChannel // nil for callback subscriptions
	active   atomic.Bool
}

// notification pairs a subscription with the event it qualified for.
type notification struct {
	sub   *subscription
	event Event
}

// watchChannel wraps a Watch channel so that sends and the close race
// safely: deliver may run concurrently with unsubscribe or Destroy.
type watchChannel struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (w *watchChannel) send(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- e:
	default:
		// watcher is slow, drop the event
	}
}

func (w *watchChannel) shut() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// Subscribe registers fn to be called after each qualifying write.
//
// A path ending in ".*" registers a wildcard subscription scoped to its
// parent: fn fires once per write to a direct child of that parent, never
// for writes to the parent itself or to grandchildren. The bare path "*"
// scopes the wildcard to the tree root (every top-level write). Any other
// path registers an exact subscription on that concrete path.
//
// Subscribing does not replay current state; fn first fires on the next
// qualifying write. Listeners fire in registration order and may reenter
// the store. A panicking listener is recovered and logged, never crashes
// the store.
//
// The returned disposer stops all future notifications, including ones
// pending in an open batch. Calling it more than once is a no-op.
func (s *Store) Subscribe(path string, fn func()) func() {
	return s.register(path, func(Event) { fn() }, nil)
}

// Watch registers a channel-based subscription and returns the event
// channel together with its disposer.
//
// Path semantics are identical to [Store.Subscribe]; the delivered [Event]
// carries the concrete changed path, which for wildcard watchers identifies
// the child that mutated. The channel is buffered (see [WithWatchBuffer]);
// events are sent non-blocking, so a slow consumer misses events rather
// than blocking writers. The channel is closed by the disposer and by
// [Store.Destroy].
func (s *Store) Watch(path string) (<-chan Event, func()) {
	wc := &watchChannel{ch: make(chan Event, s.watchBuffer)}
	stop := s.register(path, wc.send, wc)
	return wc.ch, stop
}

// register adds a subscription under the store lock and returns its
// idempotent disposer.
func (s *Store) register(path string, fn func(Event), wc *watchChannel) func() {
	sub := &subscription{fn: fn, watch: wc}
	sub.active.Store(true)

	switch {
	case path == "*":
		sub.wildcard = true
		sub.key = ""
	case strings.HasSuffix(path, ".*"):
		sub.wildcard = true
		sub.key = strings.TrimSuffix(path, ".*")
	default:
		sub.key = path
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		// inert store: never registers, never fires
		sub.active.Store(false)
		if wc != nil {
			wc.shut()
		}
		return func() {}
	}
	index := s.exact
	if sub.wildcard {
		index = s.wild
	}
	index[sub.key] = append(index[sub.key], sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.removeSubscription(sub)
			if wc != nil {
				wc.shut()
			}
		})
	}
}

func (s *Store) removeSubscription(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.exact
	if sub.wildcard {
		index = s.wild
	}
	subs := index[sub.key]
	for i, candidate := range subs {
		if candidate == sub {
			index[sub.key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(index[sub.key]) == 0 {
		delete(index, sub.key)
	}
}

// collectLocked gathers the notifications a committed write to path should
// produce. Inside a batch it records the path as dirty instead and returns
// nothing; the batch flush collects later. Caller must hold s.mu.
func (s *Store) collectLocked(path string, value any) []notification {
	if s.destroyed {
		return nil
	}
	if s.batchDepth > 0 {
		s.markDirtyLocked(path)
		return nil
	}
	return s.targetsLocked(path, value)
}

// targetsLocked resolves the subscriptions qualifying for a write to path:
// exact subscribers of path first, then wildcard subscribers of the direct
// parent. Single-hop match only; no ancestor walk. Caller must hold s.mu.
func (s *Store) targetsLocked(path string, value any) []notification {
	event := Event{Path: path, Value: value}

	var notes []notification
	for _, sub := range s.exact[path] {
		notes = append(notes, notification{sub: sub, event: event})
	}
	if parent, ok := tree.Parent(path); ok {
		for _, sub := range s.wild[parent] {
			notes = append(notes, notification{sub: sub, event: event})
		}
	}
	return notes
}

// deliver invokes collected notifications outside the store lock, skipping
// subscriptions that were disposed in the meantime.
func (s *Store) deliver(notes []notification) {
	for _, n := range notes {
		if !n.sub.active.Load() {
			continue
		}
		s.invoke(n.sub, n.event)
	}
}

// invoke calls a single listener with panic recovery.
//
// A panicking listener is logged with a correlation ID and full stack trace
// so it can be traced server-side, and the remaining listeners still fire.
func (s *Store) invoke(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("listener panic",
				"correlation_id", correlationID,
				"path", event.Path,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	sub.fn(event)
}
