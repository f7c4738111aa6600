// circuit.go - Groth16 circuit proving knowledge of a request commitment.
//
// A user presents (commitment, nullifier) publicly and proves in zero
// knowledge that they know the amount, cooldown end, secret, and account
// behind the commitment, and that the nullifier was derived from the same
// secret. The settlement layer can then reject a second claim with the same
// nullifier without ever learning the request contents.

package commitment

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"
)

// ClaimCircuit constrains the first commitment element and the nullifier to
// the same private witness.
type ClaimCircuit struct {
	// Public inputs
	Commitment frontend.Variable `gnark:",public"`
	Nullifier  frontend.Variable `gnark:",public"`

	// Private inputs
	Amount      frontend.Variable
	CooldownEnd frontend.Variable
	Secret      frontend.Variable
	UserID      frontend.Variable
	RequestID   frontend.Variable
}

func (c *ClaimCircuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// commitment = H(amount, cooldownEnd, secret, userID)
	hasher.Write(c.Amount)
	hasher.Write(c.CooldownEnd)
	hasher.Write(c.Secret)
	hasher.Write(c.UserID)
	api.AssertIsEqual(c.Commitment, hasher.Sum())

	// nullifier = H(requestID, secret)
	hasher.Reset()
	hasher.Write(c.RequestID)
	hasher.Write(c.Secret)
	api.AssertIsEqual(c.Nullifier, hasher.Sum())

	return nil
}

// CompileClaimCircuit compiles the claim circuit for the BW6-761 field.
func CompileClaimCircuit() (constraint.ConstraintSystem, error) {
	var circuit ClaimCircuit
	ccs, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("claim circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// ClaimWitness carries the private request fields needed to prove a claim.
type ClaimWitness struct {
	Amount      *big.Int
	CooldownEnd int64
	Secret      []byte
	UserID      string
	RequestID   uint64
	Commitment  *big.Int // first element of the request commitment Word
	Nullifier   *big.Int
}

// ProveClaim generates a Groth16 proof for the witness.
func ProveClaim(w ClaimWitness, ccs constraint.ConstraintSystem, pk groth16.ProvingKey) ([]byte, error) {
	if len(w.Secret) != SecretLen {
		return nil, fmt.Errorf("claim secret must be %d bytes: %w", SecretLen, ErrInvalidKeyMaterial)
	}
	assignment := &ClaimCircuit{
		Commitment:  w.Commitment,
		Nullifier:   w.Nullifier,
		Amount:      w.Amount,
		CooldownEnd: big.NewInt(w.CooldownEnd),
		Secret:      FieldValue(w.Secret),
		UserID:      FieldValue([]byte(w.UserID)),
		RequestID:   new(big.Int).SetUint64(w.RequestID),
	}
	witness, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nil
}

// VerifyClaim checks a proof against the public commitment and nullifier.
func VerifyClaim(proofBytes []byte, cm, nullifier *big.Int, vk groth16.VerifyingKey) error {
	assignment := &ClaimCircuit{
		Commitment: cm,
		Nullifier:  nullifier,
	}
	witness, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, vk, witness); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}
