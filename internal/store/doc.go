// Package store defines the shared key/value + list store that bee processes
// coordinate through.
//
// Backends:
//
//   - redis: a network Redis server, shared by any number of processes.
//   - pebble: an embedded Pebble database; one process at a time, useful
//     with `bee simulate`.
//   - memory: an in-process map, used by tests and simulations.
//
// All three also implement Atomic, which lets the lease manager claim the
// writer key with set-if-absent and compare-and-refresh instead of a racy
// read followed by a write.
package store
