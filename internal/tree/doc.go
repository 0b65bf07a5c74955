// Package tree provides the hierarchical data layer for pathstore.
//
// This package is internal to pathstore and implements the pure operations
// on the state tree: splitting dot-delimited paths into segments, descending
// the tree for reads, creating intermediate containers for writes, and deep
// copying subtrees for snapshots.
//
// The tree is a plain map[string]any holding JSON-like values (maps, slices,
// scalars). All functions here are side-effect free except [Assign], which
// mutates the root it is given. Synchronization is the caller's
// responsibility; the store serializes all access behind its own mutex.
//
// Users of the pathstore library should not need to interact with this
// package directly.
package tree
