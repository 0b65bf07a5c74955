// Package pathstore provides a hierarchical, observable key-value store for
// in-process state, addressed by dot-delimited paths.
//
// pathstore is designed as an SDK-first library: an application constructs
// a [Store], hands it by reference to whatever consumes it, and releases it
// with [Store.Destroy]. The store holds a single tree of JSON-like values
// and layers four capabilities on top of it: point reads and writes, exact
// and wildcard subscriptions, atomically-notified batched writes, and an
// async-operation lifecycle with cancellation.
//
// # Quick Start
//
//	st, _ := pathstore.New(pathstore.WithInitialState(map[string]any{
//	    "user": map[string]any{"name": "Alice"},
//	}))
//	defer st.Destroy()
//
//	unsub := st.Subscribe("user.name", func() {
//	    fmt.Println("name is now", st.Get("user.name"))
//	})
//	defer unsub()
//
//	st.Set("user.name", "Bob") // fires the subscriber once
//
// # Paths
//
// A path is a string of ASCII identifier segments joined by dots, e.g.
// "user.name". Reads through missing or non-container segments return nil;
// writes create intermediate object nodes as needed. A subscription path
// ending in ".*" is a wildcard scoped to its parent: it fires once per
// write to a direct child, never for the parent itself or for grandchildren.
//
// # Batching
//
// [Store.Batch] applies writes immediately but defers and deduplicates
// notifications until the outermost batch completes, so a path written
// twice fires its subscribers once with the final value. [Store.SetMany]
// is an implicit batch over a map of writes.
//
// # Async operations
//
// [Store.SetAsync] runs a fetcher and maintains a status/data/error
// envelope under the target path, with per-path generations: starting a
// newer operation (or calling [Store.Cancel]) supersedes the in-flight one,
// whose result is silently discarded when it completes.
//
// # Consumers
//
// For external-store synchronization (a render loop, an SSE bridge, a
// polling UI), combine [Store.Subscribe] with [Store.Get] or
// [Store.Snapshot]: a snapshot taken synchronously after a notification
// always reflects the write that triggered it. [Store.Watch] offers the
// same subscription as a buffered channel of [Event] values. The
// internal/server package, exposed through the pathstore CLI, serves both
// over HTTP.
package pathstore
