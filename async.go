package pathstore

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

// Async envelope status values, written under <path>.status by
// [Store.SetAsync].
const (
	StatusLoading = "loading"
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrSuperseded is returned by [Store.SetAsync] when a newer SetAsync or
// [Store.Cancel] on the same path started before this invocation reached
// its terminal state. The superseded result was discarded; no state was
// written and no listener fired.
var ErrSuperseded = errors.New("async operation superseded")

// Fetcher produces the value for an asynchronous operation.
//
// The context is cancelled when the operation is superseded by a newer
// [Store.SetAsync] on the same path, by [Store.Cancel], or by
// [Store.Destroy]. Cancellation is cooperative: a fetcher that ignores the
// context keeps running, only its effect on the store is suppressed.
type Fetcher func(ctx context.Context) (any, error)

// asyncState tracks the current generation of async work at one path.
type asyncState struct {
	gen    uint64
	cancel context.CancelFunc
}

// SetAsync runs fetcher and writes a status/data/error envelope under path.
//
// The envelope lives at the child paths <path>.status, <path>.data and
// <path>.error, so exact subscribers can track individual fields and a
// wildcard subscription on "<path>.*" observes the whole lifecycle.
//
// SetAsync synchronously writes status "loading" (error cleared, data left
// as-is), then invokes fetcher in the calling goroutine; callers wanting
// fire-and-forget semantics run it with go. When fetcher returns:
//
//   - if a newer SetAsync or Cancel on the same path started in the
//     meantime, the result is discarded without any write or notification
//     and SetAsync returns [ErrSuperseded];
//   - on success, status "success", the fetched data and a nil error are
//     written in one batch and SetAsync returns nil;
//   - on failure, status "error" and the error text are written (data is
//     left unchanged) and the fetcher's error is returned.
//
// Per generation the status transition is monotonic:
// loading, then success, error or discarded, with no way back. Both
// envelope writes share a critical section with the generation table, so a
// superseded call can never clobber a newer generation's envelope, no
// matter how concurrent SetAsync calls interleave. A panicking fetcher is
// recovered, logged with a correlation ID and treated as a failure.
func (s *Store) SetAsync(ctx context.Context, path string, fetcher Fetcher) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	epoch := s.epoch
	st := s.asyncs[path]
	if st == nil {
		st = &asyncState{}
		s.asyncs[path] = st
	}
	st.gen++
	gen := st.gen
	if st.cancel != nil {
		// supersede the in-flight generation
		st.cancel()
	}
	genCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	notes := s.writeManyLocked([]Event{
		{Path: path + ".status", Value: StatusLoading},
		{Path: path + ".error", Value: nil},
	})
	s.mu.Unlock()
	defer cancel()

	s.deliver(notes)

	value, err := s.runFetcher(genCtx, path, fetcher)

	s.mu.Lock()
	cur := s.asyncs[path]
	if s.epoch != epoch || cur == nil || cur.gen != gen {
		// superseded by a newer generation, cancelled, or destroyed
		s.mu.Unlock()
		return ErrSuperseded
	}
	cur.cancel = nil
	if err != nil {
		notes = s.writeManyLocked([]Event{
			{Path: path + ".status", Value: StatusError},
			{Path: path + ".error", Value: err.Error()},
		})
	} else {
		notes = s.writeManyLocked([]Event{
			{Path: path + ".status", Value: StatusSuccess},
			{Path: path + ".data", Value: value},
			{Path: path + ".error", Value: nil},
		})
	}
	s.mu.Unlock()

	s.deliver(notes)
	return err
}

// Cancel supersedes the in-flight async operation at path, if any.
//
// The superseded fetcher keeps running (cancellation is cooperative via its
// context) but its result is discarded on completion. By default Cancel
// writes nothing, leaving the visible status at whatever it was; configure
// [WithCancelStatus] to record an explicit terminal status instead. The
// status write shares the critical section with the generation bump, so it
// can never land on top of a newer generation's envelope. Cancel on a path
// with nothing in flight is a no-op.
func (s *Store) Cancel(path string) {
	s.mu.Lock()
	st := s.asyncs[path]
	if st == nil || st.cancel == nil {
		s.mu.Unlock()
		return
	}
	st.gen++
	cancel := st.cancel
	st.cancel = nil
	var notes []notification
	if s.cancelStatus != "" {
		notes = s.writeManyLocked([]Event{
			{Path: path + ".status", Value: s.cancelStatus},
		})
	}
	s.mu.Unlock()

	cancel()
	s.deliver(notes)
}

// runFetcher invokes a fetcher with panic recovery.
//
// If the fetcher panics, the full stack is logged with a correlation ID and
// the panic is converted into an error carrying the ID, so the envelope
// reaches a terminal state instead of the store crashing.
func (s *Store) runFetcher(ctx context.Context, path string, fetcher Fetcher) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("fetcher panic",
				"correlation_id", correlationID,
				"path", path,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			value = nil
			err = fmt.Errorf("fetcher panic (correlation_id: %s)", correlationID)
		}
	}()
	return fetcher(ctx)
}
