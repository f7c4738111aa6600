// Package matching holds the set of active LP offers and pairs private
// unlock requests against them.
//
// Overview:
//   - Offers are registered with AddOffer and ranked by effective APR when
//     a request arrives; the cheapest offer for the user wins.
//   - Liquidity reservation and deal construction happen as one atomic step
//     under the engine lock, so two concurrent matches can never both drain
//     the same offer.
//   - Commitment and pricing computations are pure; only offer liquidity is
//     shared mutable state, and the engine is its sole writer.
package matching
