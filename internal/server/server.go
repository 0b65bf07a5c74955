package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/pathstore"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// mergeBuffer is the size of the per-client channel merging all watch
	// subscriptions into one event stream.
	mergeBuffer = 64
)

// Server handles HTTP requests for a pathstore state tree.
//
// Server provides two endpoints:
//   - GET /api/state: Returns the current tree (or one path) as JSON
//   - GET /api/events: Server-Sent Events stream of change events
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      *pathstore.Store
	port       int
	watch      []string
	httpServer *http.Server
	logger     *slog.Logger

	mu   sync.Mutex
	addr string
}

// New creates a new HTTP [Server].
//
// Parameters:
//   - st: The store to expose
//   - port: TCP port to listen on (0 picks a free port)
//   - watch: Subscription paths streamed on /api/events (exact or wildcard)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func New(st *pathstore.Store, port int, watch []string, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		port:   port,
		watch:  watch,
		logger: logger,
	}
}

// Addr returns the listen address after [Server.Start] succeeded, e.g.
// "[::]:8080". Empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// routes builds the request mux. Split out so tests can drive handlers
// through httptest without binding a real port.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a
// 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler: s.routes(),
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running SSE handlers.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	srv := s.httpServer
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleState returns the current tree, or a single path's value when the
// path query parameter is present, as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body any
	if path := r.URL.Query().Get("path"); path != "" {
		body = pathstore.Event{Path: path, Value: s.store.Get(path)}
	} else {
		body = s.store.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleEvents streams change events via Server-Sent Events.
//
// Every configured watch path gets its own store subscription; their events
// are merged into one per-client stream. The first message is a snapshot of
// the whole tree (path ""), so consumers can render current state before
// the first change arrives.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// merge all watch subscriptions into one channel for this client
	events := make(chan pathstore.Event, mergeBuffer)
	var stops []func()
	for _, path := range s.watch {
		ch, stop := s.store.Watch(path)
		stops = append(stops, stop)
		go func(ch <-chan pathstore.Event) {
			for e := range ch {
				select {
				case events <- e:
				case <-r.Context().Done():
					return
				}
			}
		}(ch)
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	// initial snapshot so late joiners see current state
	snapshot, err := json.Marshal(pathstore.Event{Path: "", Value: s.store.Snapshot()})
	if err == nil {
		if err := writeAndFlush(snapshot); err != nil {
			return
		}
	}

	for {
		select {
		case event := <-events:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via
			// BaseContext, so this fires on both client disconnect AND
			// server shutdown
			return
		}
	}
}
