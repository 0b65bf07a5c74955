package pathstore

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	st, err := New(append([]Option{WithLogger(testLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return st
}

func TestNew(t *testing.T) {
	st := newTestStore(t)
	if st == nil {
		t.Fatal("New() = nil")
	}

	if got := st.Get("anything"); got != nil {
		t.Errorf("Get(anything) on empty store = %v, want nil", got)
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value any
	}{
		{"top level scalar", "count", 42},
		{"nested string", "user.name", "Alice"},
		{"deep path", "a.b.c.d", true},
		{"slice value", "user.tags", []any{"admin", "ops"}},
		{"map value", "session", map[string]any{"token": "abc"}},
		{"nil value", "empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			st.Set(tt.path, tt.value)

			got := st.Get(tt.path)
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("Get(%q) = %v, want %v", tt.path, got, tt.value)
			}
		})
	}
}

func TestGet_MissingPath(t *testing.T) {
	st := newTestStore(t, WithInitialState(map[string]any{
		"user": map[string]any{"name": "Alice"},
	}))

	if got := st.Get("user.email"); got != nil {
		t.Errorf("Get(user.email) = %v, want nil", got)
	}
	if got := st.Get("session.token"); got != nil {
		t.Errorf("Get(session.token) = %v, want nil", got)
	}
	if got := st.Get(""); got != nil {
		t.Errorf("Get(\"\") = %v, want nil", got)
	}
}

func TestGet_ThroughScalar(t *testing.T) {
	st := newTestStore(t)
	st.Set("count", 3)

	// descending through a scalar must not panic
	if got := st.Get("count.sub.deeper"); got != nil {
		t.Errorf("Get(count.sub.deeper) = %v, want nil", got)
	}
}

func TestSet_OverwritesScalarIntermediate(t *testing.T) {
	st := newTestStore(t)
	st.Set("a", "scalar")
	st.Set("a.b", 1)

	if got := st.Get("a.b"); got != 1 {
		t.Errorf("Get(a.b) = %v, want 1", got)
	}
}

func TestWithInitialState_DeepCopied(t *testing.T) {
	seed := map[string]any{
		"user": map[string]any{"name": "Alice"},
	}
	st := newTestStore(t, WithInitialState(seed))

	// mutating the caller's map must not leak into the store
	seed["user"].(map[string]any)["name"] = "Mallory"

	if got := st.Get("user.name"); got != "Alice" {
		t.Errorf("Get(user.name) = %v, want Alice", got)
	}
}

func TestSnapshot_Independent(t *testing.T) {
	st := newTestStore(t)
	st.Set("user.name", "Alice")

	snap := st.Snapshot()
	snap["user"].(map[string]any)["name"] = "Bob"

	if got := st.Get("user.name"); got != "Alice" {
		t.Errorf("Get(user.name) after snapshot mutation = %v, want Alice", got)
	}
}

// Concrete scenario from the public contract: seeded tree, one write, one
// prior subscriber, exactly one notification.
func TestScenario_UserRename(t *testing.T) {
	st := newTestStore(t, WithInitialState(map[string]any{
		"user": map[string]any{"name": "Alice"},
	}))

	notified := 0
	unsub := st.Subscribe("user.name", func() { notified++ })
	defer unsub()

	st.Set("user.name", "Bob")

	if got := st.Get("user.name"); got != "Bob" {
		t.Errorf("Get(user.name) = %v, want Bob", got)
	}
	if notified != 1 {
		t.Errorf("notifications = %v, want 1", notified)
	}
}

func TestDestroy_StoreIsInert(t *testing.T) {
	st := newTestStore(t)

	notified := 0
	st.Subscribe("a", func() { notified++ })

	st.Destroy()

	// none of these may panic, none may notify
	st.Set("a", 1)
	st.SetMany(map[string]any{"a": 2, "b": 3})
	st.Batch(func() { st.Set("a", 4) })
	st.Cancel("a")
	st.Destroy() // idempotent

	if notified != 0 {
		t.Errorf("notifications after Destroy = %v, want 0", notified)
	}

	// writes still land in the detached tree
	if got := st.Get("a"); got != 4 {
		t.Errorf("Get(a) after Destroy = %v, want 4", got)
	}
}

func TestDestroy_ClosesWatchChannels(t *testing.T) {
	st := newTestStore(t)

	ch, _ := st.Watch("user.*")
	st.Destroy()

	if _, ok := <-ch; ok {
		t.Error("watch channel should be closed after Destroy")
	}
}

func TestSubscribe_AfterDestroy(t *testing.T) {
	st := newTestStore(t)
	st.Destroy()

	fired := false
	unsub := st.Subscribe("a", func() { fired = true })
	st.Set("a", 1)
	unsub()
	unsub() // still a no-op

	if fired {
		t.Error("subscription on destroyed store should never fire")
	}
}
