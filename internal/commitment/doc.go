// Package commitment implements the hash commitments and nullifiers that make
// Voile unlock requests unlinkable.
//
// Overview:
//   - Request and offer commitments are 4-element MiMC fingerprints binding
//     private fields without revealing them
//   - Nullifiers prevent a request from being settled twice; the settlement
//     layer rejects a repeated nullifier
//   - Deal identifiers mix both commitments with a fresh blinding factor so
//     repeated pairings stay unlinkable
//   - Matched-deal payloads handed to the LP are sealed with BLS12-377
//     Diffie-Hellman key agreement and ChaCha20-Poly1305
//
// Security Model:
//   - MiMC over the BW6-761 scalar field provides hiding and binding for
//     commitments; any backend substituted here must preserve both properties
//   - All randomness (secrets, blinding factors) comes from an injected
//     cryptographically secure source
//   - A Groth16 circuit (ClaimCircuit) proves knowledge of a commitment
//     preimage and nullifier correctness without revealing either
package commitment
