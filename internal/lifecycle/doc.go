// Package lifecycle drives a matched deal through its settlement state
// machine and keeps request status and LP earnings in step with it.
//
// States advance strictly in order from PENDING_ADVANCE to SETTLED; FAILED
// is reachable from any non-terminal state when an external step fails.
// Settlement before cooldown expiry is a no-op that reports remaining time.
package lifecycle
