// Package settlement defines the boundary between the matching core and
// the on-chain note layer, plus an in-memory chain used by tests and the
// demo daemon.
//
// The core never blocks on chain I/O itself. It hands note inputs to a
// Driver and reacts to the transaction statuses the driver reports; the
// lifecycle tracker turns those reports into deal state transitions.
package settlement
