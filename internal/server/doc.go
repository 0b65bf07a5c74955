// Package server provides the HTTP bridge for a pathstore state tree.
//
// This package is internal to pathstore and exposes a live store to
// external consumers over two endpoints:
//
//   - GET /api/state: the full tree (or one path with ?path=) as JSON
//   - GET /api/events: Server-Sent Events stream of change events for the
//     configured watch paths
//
// The bridge is the reference external-store-sync consumer of the store: it
// only uses Snapshot, Get and Watch, and a snapshot taken after an event is
// guaranteed to reflect the write that produced it.
//
// The server is designed for graceful shutdown via context cancellation.
// Users of the pathstore library should not need to interact with this
// package directly; it is wired up by the pathstore CLI.
package server
