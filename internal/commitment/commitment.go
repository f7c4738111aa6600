// commitment.go - MiMC commitments, nullifiers, and deal identifiers.
//
// A commitment is a Word of four field elements derived from a MiMC hash
// chain: the first element digests the committed fields, and each following
// element digests its predecessor. Identical inputs always produce identical
// Words; without the secret the Word reveals nothing about the inputs.

package commitment

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	bw6761fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

// SecretLen is the required length of nullifier secrets and blinding factors.
const SecretLen = 32

// ErrInvalidKeyMaterial is returned when a secret or blinding factor has the
// wrong length. Key material is never truncated or padded.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// Word is a 4-element commitment fingerprint.
type Word [4]*big.Int

// Equal reports whether two Words are element-wise identical.
func (w Word) Equal(other Word) bool {
	for i := range w {
		if w[i] == nil || other[i] == nil {
			return w[i] == other[i]
		}
		if w[i].Cmp(other[i]) != 0 {
			return false
		}
	}
	return true
}

// Hex encodes the Word as a hex string, suitable as a map key or log field.
func (w Word) Hex() string {
	var buf bytes.Buffer
	for _, e := range w {
		if e != nil {
			buf.Write(e.Bytes())
		}
	}
	return hex.EncodeToString(buf.Bytes())
}

// String returns a short display form of the Word.
func (w Word) String() string {
	h := w.Hex()
	if len(h) > 16 {
		return h[:16] + "…"
	}
	return h
}

// fieldElement reduces v modulo the BW6-761 scalar field and encodes it as a
// canonical 48-byte block, so every native MiMC write is exactly one hash
// block. The in-circuit hash consumes the same elements, which keeps native
// and in-circuit commitments identical.
func fieldElement(v *big.Int) []byte {
	reduced := new(big.Int).Mod(v, bw6761fr.Modulus())
	out := make([]byte, bw6761fr.Bytes)
	reduced.FillBytes(out)
	return out
}

// FieldValue maps arbitrary bytes (secrets, account identifiers) to a field
// element. Exported so proof witnesses can reproduce commitment inputs.
func FieldValue(data []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(data), bw6761fr.Modulus())
}

// hashChain derives a Word from the given inputs: the first element is the
// MiMC digest of all inputs, each subsequent element the digest of the
// previous one.
func hashChain(inputs ...*big.Int) Word {
	h := mimcNative.NewMiMC()
	for _, in := range inputs {
		h.Write(fieldElement(in))
	}
	elem := h.Sum(nil)

	var w Word
	w[0] = new(big.Int).SetBytes(elem)
	for i := 1; i < len(w); i++ {
		h.Reset()
		h.Write(fieldElement(w[i-1]))
		elem = h.Sum(nil)
		w[i] = new(big.Int).SetBytes(elem)
	}
	return w
}

// ForRequest computes the unlock-request commitment:
// Hash(amount, cooldownEnd, nullifierSecret, userAccountID).
func ForRequest(amount *big.Int, cooldownEnd int64, nullifierSecret []byte, userAccountID string) (Word, error) {
	if len(nullifierSecret) != SecretLen {
		return Word{}, fmt.Errorf("nullifier secret must be %d bytes, got %d: %w",
			SecretLen, len(nullifierSecret), ErrInvalidKeyMaterial)
	}
	return hashChain(
		amount,
		big.NewInt(cooldownEnd),
		FieldValue(nullifierSecret),
		FieldValue([]byte(userAccountID)),
	), nil
}

// ForOffer computes the LP offer commitment:
// Hash(offerID, lpAccountID, maxAmount, minAmount).
func ForOffer(offerID uint64, lpAccountID string, maxAmount, minAmount *big.Int) Word {
	return hashChain(
		new(big.Int).SetUint64(offerID),
		FieldValue([]byte(lpAccountID)),
		maxAmount,
		minAmount,
	)
}

// DealID derives an unlinkable deal identifier from both commitments, the
// match timestamp, and a fresh per-deal blinding factor. The blinding factor
// guarantees that the same request/offer pair matched twice yields unrelated
// identifiers.
func DealID(requestCm, offerCm Word, matchedAt int64, blinding []byte) (Word, error) {
	if len(blinding) != SecretLen {
		return Word{}, fmt.Errorf("blinding factor must be %d bytes, got %d: %w",
			SecretLen, len(blinding), ErrInvalidKeyMaterial)
	}
	inputs := make([]*big.Int, 0, 10)
	inputs = append(inputs, requestCm[:]...)
	inputs = append(inputs, offerCm[:]...)
	inputs = append(inputs, big.NewInt(matchedAt), FieldValue(blinding))
	return hashChain(inputs...), nil
}

// Nullifier computes Hash(requestID, nullifierSecret). Presenting the same
// nullifier twice marks a double spend; enforcement lives in the settlement
// layer, this function only computes the value.
func Nullifier(requestID uint64, nullifierSecret []byte) (*big.Int, error) {
	if len(nullifierSecret) != SecretLen {
		return nil, fmt.Errorf("nullifier secret must be %d bytes, got %d: %w",
			SecretLen, len(nullifierSecret), ErrInvalidKeyMaterial)
	}
	h := mimcNative.NewMiMC()
	h.Write(fieldElement(new(big.Int).SetUint64(requestID)))
	h.Write(fieldElement(FieldValue(nullifierSecret)))
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// NewSecret samples a fresh 32-byte secret from the given random source.
// The source must be cryptographically secure.
func NewSecret(rnd io.Reader) ([]byte, error) {
	secret := make([]byte, SecretLen)
	if _, err := io.ReadFull(rnd, secret); err != nil {
		return nil, fmt.Errorf("sampling secret: %w", err)
	}
	return secret, nil
}

// NewFieldID samples a random 63-bit identifier.
func NewFieldID(rnd io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rnd, buf[:]); err != nil {
		return 0, fmt.Errorf("sampling identifier: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]) &^ (1 << 63), nil
}
