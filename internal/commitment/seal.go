// seal.go - Authenticated encryption of matched-deal payloads.
//
// The engine hands the matched deal to the LP over a private channel. The
// payload is sealed with a key agreed via BLS12-377 Diffie-Hellman and
// encrypted with ChaCha20-Poly1305; tampering is detected on open.

package commitment

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeyPair is a BLS12-377 keypair for Diffie-Hellman key agreement.
type KeyPair struct {
	Sk *bls12377_fr.Element
	Pk *bls12377.G1Affine
}

// GenerateKeyPair generates a random BLS12-377 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	var sk bls12377_fr.Element
	if _, err := sk.SetRandom(); err != nil {
		return nil, fmt.Errorf("sampling DH scalar: %w", err)
	}
	g1Jac, _, _, _ := bls12377.Generators()
	var pk bls12377.G1Affine
	pk.FromJacobian(&g1Jac)
	pk.ScalarMultiplication(&pk, sk.BigInt(new(big.Int)))
	return &KeyPair{Sk: &sk, Pk: &pk}, nil
}

// SharedPoint computes the DH shared secret G^ab from our secret and their
// public key.
func SharedPoint(sk *bls12377_fr.Element, pk *bls12377.G1Affine) *bls12377.G1Affine {
	var shared bls12377.G1Affine
	shared.ScalarMultiplication(pk, sk.BigInt(new(big.Int)))
	return &shared
}

// sealKey hashes the shared point down to a 32-byte symmetric key.
func sealKey(shared *bls12377.G1Affine) []byte {
	h := sha256.New()
	xBytes := shared.X.Bytes()
	yBytes := shared.Y.Bytes()
	h.Write(xBytes[:])
	h.Write(yBytes[:])
	return h.Sum(nil)
}

// Seal encrypts a payload for a recipient. The returned box is
// nonce || ciphertext; the nonce is sampled fresh per call.
func Seal(payload []byte, ourSk *bls12377_fr.Element, theirPk *bls12377.G1Affine) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(sealKey(SharedPoint(ourSk, theirPk)))
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(payload)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sampling nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, payload, nil), nil
}

// Open decrypts a box produced by Seal. It fails if the box was tampered
// with or was sealed for a different keypair.
func Open(box []byte, ourSk *bls12377_fr.Element, theirPk *bls12377.G1Affine) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(sealKey(SharedPoint(ourSk, theirPk)))
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}
	if len(box) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed box too short: %d bytes", len(box))
	}
	nonce, ciphertext := box[:aead.NonceSize()], box[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed box: %w", err)
	}
	return plain, nil
}
