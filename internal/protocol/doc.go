// Package protocol defines the Voile domain objects: private unlock requests,
// LP liquidity offers, and matched deals, together with their builders and
// validation rules.
//
// Requests are created on the user's device and never leave it before a
// match; only the commitment is ever shared. Offers carry their full
// liquidity state; the matching engine is the sole component allowed to
// mutate available liquidity.
package protocol
