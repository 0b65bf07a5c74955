package pathstore

import (
	"log/slog"
	"sync"

	"github.com/jpalmerr/pathstore/internal/tree"
)

// Store is a hierarchical, observable key-value store addressed by
// dot-delimited paths.
//
// Store holds in-process, ephemeral state (typically UI or session state)
// as a single tree of JSON-like values. Callers read and write individual
// locations by path, subscribe to exact paths or to the direct children of
// a path, group writes into batches with deduplicated notifications, and
// run asynchronous operations whose status/data/error envelope is written
// back into the tree.
//
// A Store is created with [New] and released with [Store.Destroy]. All
// methods are safe for concurrent use; a single mutex guards the tree, the
// subscriber indices and the async generation table as a unit. Listener
// callbacks run outside the lock, so a listener may reenter the store.
//
// The typical lifecycle is:
//
//	st, err := pathstore.New(pathstore.WithInitialState(seed))
//	if err != nil {
//	    slog.Error("failed to create store", "error", err)
//	    os.Exit(1)
//	}
//	defer st.Destroy()
//
//	unsub := st.Subscribe("user.name", func() { ... })
//	defer unsub()
//
//	st.Set("user.name", "Bob")
type Store struct {
	mu sync.Mutex

	root  map[string]any
	exact map[string][]*subscription // keyed by concrete path, registration order
	wild  map[string][]*subscription // keyed by parent path, registration order

	asyncs map[string]*asyncState
	// epoch distinguishes async generations across Destroy: a pre-destroy
	// generation can never match a post-destroy one with the same number
	epoch uint64

	batchDepth int
	dirtyOrder []string
	dirtySeen  map[string]struct{}

	destroyed bool

	logger       *slog.Logger
	cancelStatus string
	watchBuffer  int
}

// New creates a new [Store] with the given options.
//
// Options have sensible defaults:
//   - Initial state: empty tree
//   - Logger: slog.Default()
//   - Cancel status: none ([Store.Cancel] leaves the visible status as-is)
//   - Watch buffer: 100 events per [Store.Watch] channel
func New(opts ...Option) (*Store, error) {
	cfg := storeConfig{
		logger:      slog.Default(),
		watchBuffer: defaultWatchBuffer,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	root := make(map[string]any)
	if cfg.initial != nil {
		// deep copy so later mutations of the caller's map don't leak in
		root = tree.Clone(cfg.initial).(map[string]any)
	}

	return &Store{
		root:         root,
		exact:        make(map[string][]*subscription),
		wild:         make(map[string][]*subscription),
		asyncs:       make(map[string]*asyncState),
		dirtySeen:    make(map[string]struct{}),
		logger:       cfg.logger,
		cancelStatus: cfg.cancelStatus,
		watchBuffer:  cfg.watchBuffer,
	}, nil
}

// Get returns the value stored at path.
//
// Missing paths, and paths that descend through a non-container value,
// return nil rather than panicking. Get has no side effects and does not
// register any subscription.
//
// Container values are returned by reference; callers must treat them as
// read-only. Use [Store.Snapshot] for an independent copy.
func (s *Store) Get(path string) any {
	segments := tree.Split(path)
	if len(segments) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, _ := tree.Lookup(s.root, segments)
	return value
}

// Set writes value at path, creating intermediate object nodes as needed.
//
// After the write is applied, Set notifies every exact subscriber of path,
// then every wildcard subscriber of path's direct parent, in registration
// order. Each subscription fires at most once per call. Inside a
// [Store.Batch], notification is deferred and deduplicated instead.
//
// An intermediate segment holding a scalar is overwritten with a new object
// node (last write wins); Set never fails.
func (s *Store) Set(path string, value any) {
	segments := tree.Split(path)
	if len(segments) == 0 {
		return
	}

	s.mu.Lock()
	tree.Assign(s.root, segments, value)
	notes := s.collectLocked(path, value)
	s.mu.Unlock()

	s.deliver(notes)
}

// SetMany applies every path→value entry and then notifies each affected
// path's subscribers exactly once.
//
// SetMany is equivalent to wrapping the individual [Store.Set] calls in a
// [Store.Batch]: listeners observe the state after all entries are applied,
// not intermediate states. Iteration order over the map is not specified.
func (s *Store) SetMany(entries map[string]any) {
	s.Batch(func() {
		for path, value := range entries {
			s.Set(path, value)
		}
	})
}

// Snapshot returns a deep copy of the entire state tree.
//
// The returned map is independent of the store; modifications do not affect
// stored state. Intended for serialization (e.g. the HTTP bridge) and for
// external-store synchronization consumers that need a stable view.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return tree.Clone(s.root).(map[string]any)
}

// Destroy releases the store.
//
// Destroy clears both subscriber indices, closes all [Store.Watch] channels
// and invalidates every in-flight async generation, so no notification of
// any kind fires afterwards. The store stays usable in an inert way: later
// Set/SetAsync calls write into the detached tree without observers and
// never panic. Destroy is idempotent.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true

	var watchers []*subscription
	for _, subs := range s.exact {
		watchers = appendWatchers(watchers, subs)
	}
	for _, subs := range s.wild {
		watchers = appendWatchers(watchers, subs)
	}
	for _, subs := range s.exact {
		deactivate(subs)
	}
	for _, subs := range s.wild {
		deactivate(subs)
	}
	s.exact = make(map[string][]*subscription)
	s.wild = make(map[string][]*subscription)

	// invalidate pending generations; in-flight fetchers find their record
	// gone on completion and discard their result
	for _, st := range s.asyncs {
		if st.cancel != nil {
			st.cancel()
		}
	}
	s.asyncs = make(map[string]*asyncState)
	s.epoch++

	s.dirtyOrder = nil
	s.dirtySeen = make(map[string]struct{})
	s.mu.Unlock()

	for _, sub := range watchers {
		sub.watch.shut()
	}
}

// writeManyLocked applies an ordered group of writes and collects their
// notifications as one unit, so the writes and whatever state decision
// motivated them (e.g. an async generation bump) stay atomic. All writes
// land before any notification is collected; inside an open batch the
// paths are recorded as dirty instead, as with any other write. Caller
// must hold s.mu and deliver the returned notifications after unlocking.
func (s *Store) writeManyLocked(entries []Event) []notification {
	for _, e := range entries {
		tree.Assign(s.root, tree.Split(e.Path), e.Value)
	}

	var notes []notification
	for _, e := range entries {
		notes = append(notes, s.collectLocked(e.Path, e.Value)...)
	}
	return notes
}

func appendWatchers(dst []*subscription, subs []*subscription) []*subscription {
	for _, sub := range subs {
		if sub.watch != nil {
			dst = append(dst, sub)
		}
	}
	return dst
}

func deactivate(subs []*subscription) {
	for _, sub := range subs {
		sub.active.Store(false)
	}
}
