// Package keygen provides the key pair generation strategies used by the
// key registry when it creates new entries.
package keygen

import (
	"crypto/sha256"
	"fmt"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// Generator produces the key pair for a named registry entry.
type Generator interface {
	// Generate returns a fresh key pair for the given name.
	Generate(name string) (*interfaces.KeyPair, error)
}

// RandomGenerator draws every key pair from the system randomness source.
// This is the generator used in normal operation.
type RandomGenerator struct{}

// NewRandomGenerator creates a random key pair generator.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Generate returns a fresh random key pair. The name is ignored.
func (g *RandomGenerator) Generate(_ string) (*interfaces.KeyPair, error) {
	return interfaces.NewKeyPair()
}

// DeterministicGenerator derives key pairs from a fixed seed and the entry
// name, so repeated runs against an empty store produce identical keys.
// Useful for reproducible local environments, never for real deployments.
type DeterministicGenerator struct {
	seed []byte
}

// NewDeterministicGenerator creates a generator deriving keys from seed.
func NewDeterministicGenerator(seed []byte) *DeterministicGenerator {
	return &DeterministicGenerator{seed: seed}
}

// Generate derives the key pair for name from the generator's seed.
func (g *DeterministicGenerator) Generate(name string) (*interfaces.KeyPair, error) {
	h := sha256.New()
	h.Write(g.seed)
	h.Write([]byte(":"))
	h.Write([]byte(name))
	material := h.Sum(nil)

	// Re-hash until the candidate is a valid scalar. A single pass almost
	// always suffices.
	for i := 0; i < 128; i++ {
		kp, err := interfaces.KeyPairFromSecret(material)
		if err == nil {
			return kp, nil
		}
		next := sha256.Sum256(material)
		material = next[:]
	}

	return nil, fmt.Errorf("failed to derive a valid key for %q", name)
}
