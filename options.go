package pathstore

import (
	"errors"
	"log/slog"
)

// defaultWatchBuffer is the channel buffer for [Store.Watch] subscriptions.
const defaultWatchBuffer = 100

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	initial      map[string]any
	logger       *slog.Logger
	cancelStatus string
	watchBuffer  int
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithInitialState], [WithLogger], [WithCancelStatus],
// [WithWatchBuffer].
type Option func(*storeConfig) error

// WithInitialState seeds the store with a starting tree.
//
// The map is deep-copied at construction, so the caller may keep mutating
// its copy without affecting the store. Defaults to an empty tree.
//
// Example:
//
//	st, err := pathstore.New(
//	    pathstore.WithInitialState(map[string]any{
//	        "user": map[string]any{"name": "Alice"},
//	    }),
//	)
func WithInitialState(state map[string]any) Option {
	return func(cfg *storeConfig) error {
		cfg.initial = state
		return nil
	}
}

// WithLogger sets the logger used for listener and fetcher panic reports.
//
// Defaults to slog.Default(). Returns an error if logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithCancelStatus makes [Store.Cancel] write an explicit terminal status
// (e.g. "cancelled") under the cancelled path.
//
// By default Cancel writes nothing and the visible status stays at whatever
// it was before cancellation was requested (usually a stale "loading").
// Setting a cancel status gives observers a distinct terminal state to
// react to.
func WithCancelStatus(status string) Option {
	return func(cfg *storeConfig) error {
		cfg.cancelStatus = status
		return nil
	}
}

// WithWatchBuffer sets the per-channel buffer for [Store.Watch]
// subscriptions.
//
// Events are sent non-blocking; once a watcher's buffer is full, further
// events are dropped for that watcher. Defaults to 100. Returns an error
// if n is not positive.
func WithWatchBuffer(n int) Option {
	return func(cfg *storeConfig) error {
		if n <= 0 {
			return errors.New("watch buffer must be positive")
		}
		cfg.watchBuffer = n
		return nil
	}
}
