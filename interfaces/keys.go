package interfaces

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

var (
	// ErrKeyNotFound is returned when no key record exists under the requested name.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists is returned when storing a record under a name that is already taken.
	ErrKeyExists = errors.New("key already exists")

	// ErrInconsistentState is returned when previously provisioned state
	// references keys the configured store does not hold.
	ErrInconsistentState = errors.New("inconsistent provisioning state")
)

// KeyPair wraps a secp256k1 private key used to control Arch accounts and
// sign deployment requests.
type KeyPair struct {
	priv *btcec.PrivateKey
}

// NewKeyPair generates a fresh random key pair.
func NewKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromSecret reconstructs a key pair from a 32-byte secret scalar.
// The secret must be non-zero and below the curve order.
func KeyPairFromSecret(secret []byte) (*KeyPair, error) {
	if len(secret) != 32 {
		return nil, errors.New("invalid secret key length: must be 32 bytes")
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(secret); overflow {
		return nil, errors.New("invalid secret key: not below the curve order")
	}
	if scalar.IsZero() {
		return nil, errors.New("invalid secret key: zero scalar")
	}

	priv, _ := btcec.PrivKeyFromBytes(secret)
	return &KeyPair{priv: priv}, nil
}

// Public returns the x-only public key: the 32-byte x coordinate of the
// compressed secp256k1 point.
func (k *KeyPair) Public() Pubkey {
	var p Pubkey
	copy(p[:], k.priv.PubKey().SerializeCompressed()[1:33])
	return p
}

// SecretBytes returns the 32-byte secret scalar for persistence.
func (k *KeyPair) SecretBytes() []byte {
	return k.priv.Serialize()
}

// SignDigest produces a 64-byte BIP-340 Schnorr signature over a 32-byte digest.
func (k *KeyPair) SignDigest(digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(k.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return sig.Serialize(), nil
}

// KeyRecord binds a human-readable name to a key pair. Records are create-only:
// once stored under a name they are never modified.
type KeyRecord struct {
	Name    string
	Keypair *KeyPair
}

// Pubkey returns the public identifier of the record's key pair.
func (r *KeyRecord) Pubkey() Pubkey {
	return r.Keypair.Public()
}
