package pathstore

import "github.com/jpalmerr/pathstore/internal/tree"

// Batch executes fn with notifications deferred.
//
// Writes made inside fn (via [Store.Set], [Store.SetMany] or nested batches)
// apply to the tree immediately, but their target paths accumulate into a
// dirty set instead of notifying. When the outermost batch completes, each
// dirty path's subscribers are notified exactly once, in the order the paths
// were first touched; repeated writes to the same path do not fire twice.
// Wildcard subscribers fire once per distinct dirty child, matching the
// unbatched per-mutation semantics.
//
// Nested Batch calls collapse into the outer batch's context.
//
// If fn panics, writes already applied remain in place (partial application,
// not rollback), the dirty set still flushes, and the panic then propagates
// to the caller.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer s.endBatch()
	fn()
}

// markDirtyLocked records a path touched during the current batch, keeping
// first-touch order. Caller must hold s.mu.
func (s *Store) markDirtyLocked(path string) {
	if _, seen := s.dirtySeen[path]; seen {
		return
	}
	s.dirtySeen[path] = struct{}{}
	s.dirtyOrder = append(s.dirtyOrder, path)
}

// endBatch closes one nesting level and, when the outermost batch ends,
// flushes the dirty set. Runs in a defer so the flush happens even when the
// batch body panicked.
func (s *Store) endBatch() {
	s.mu.Lock()
	s.batchDepth--
	if s.batchDepth > 0 {
		s.mu.Unlock()
		return
	}

	paths := s.dirtyOrder
	s.dirtyOrder = nil
	s.dirtySeen = make(map[string]struct{})

	var notes []notification
	for _, path := range paths {
		// notify with the value as of flush time, not first write
		value, _ := tree.Lookup(s.root, tree.Split(path))
		notes = append(notes, s.targetsLocked(path, value)...)
	}
	s.mu.Unlock()

	s.deliver(notes)
}
