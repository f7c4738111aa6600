// keys.go - Groth16 key management for the claim circuit.

package commitment

import (
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
)

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the claim circuit.
// If both keys exist on disk they are loaded; otherwise fresh keys are
// generated and saved.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
