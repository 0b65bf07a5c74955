package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/pathstore"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *pathstore.Store {
	t.Helper()
	st, err := pathstore.New(
		pathstore.WithLogger(testLogger()),
		pathstore.WithInitialState(map[string]any{
			"user": map[string]any{"name": "Alice"},
		}),
	)
	if err != nil {
		t.Fatalf("pathstore.New() error = %v", err)
	}
	return st
}

func TestHandleState_FullTree(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, nil, testLogger())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var tree map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	user, ok := tree["user"].(map[string]any)
	if !ok || user["name"] != "Alice" {
		t.Errorf("tree = %v, want user.name Alice", tree)
	}
}

func TestHandleState_SinglePath(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, nil, testLogger())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state?path=user.name")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var event pathstore.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if event.Path != "user.name" || event.Value != "Alice" {
		t.Errorf("event = %+v, want {user.name Alice}", event)
	}
}

func TestHandleState_MissingPath(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, nil, testLogger())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state?path=no.such.path")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var event pathstore.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if event.Value != nil {
		t.Errorf("value for missing path = %v, want nil", event.Value)
	}
}

func TestHandleState_MethodNotAllowed(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, nil, testLogger())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/state", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

// readSSEEvent reads the next "data:" line from an SSE stream.
func readSSEEvent(t *testing.T, scanner *bufio.Scanner) pathstore.Event {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event pathstore.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("unmarshal SSE event: %v", err)
		}
		return event
	}
	t.Fatal("SSE stream ended before an event arrived")
	return pathstore.Event{}
}

func TestHandleEvents_StreamsChanges(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, []string{"user.*"}, testLogger())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %v, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)

	// first message is the snapshot
	initial := readSSEEvent(t, scanner)
	if initial.Path != "" {
		t.Errorf("initial event path = %q, want \"\"", initial.Path)
	}
	tree, ok := initial.Value.(map[string]any)
	if !ok || tree["user"] == nil {
		t.Errorf("initial snapshot = %v, want seeded tree", initial.Value)
	}

	st.Set("user.name", "Bob")

	change := readSSEEvent(t, scanner)
	if change.Path != "user.name" || change.Value != "Bob" {
		t.Errorf("change event = %+v, want {user.name Bob}", change)
	}
}

func TestStart_BindsAndShutsDown(t *testing.T) {
	st := newTestStore(t)
	defer st.Destroy()
	srv := New(st, 0, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	addr := srv.Addr()
	if addr == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + strings.Replace(addr, "[::]", "127.0.0.1", 1) + "/api/state")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	cancel()

	// after shutdown completes, new connections must fail
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := http.Get("http://" + strings.Replace(addr, "[::]", "127.0.0.1", 1) + "/api/state"); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("server still accepting connections after context cancellation")
}
