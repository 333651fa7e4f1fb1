// Package interfaces defines the core types and contracts shared by the
// provisioning components: pubkeys, key pairs, key stores, template sources
// and the deployment client. It provides the contract between components
// without implementation details.
package interfaces

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/atomic"
)

// Pubkey is a 32-byte account or program identifier on the Arch network.
// For signing accounts it is the x-only form of a secp256k1 public key;
// plain data accounts treat it as an opaque identifier.
type Pubkey [32]byte

// SystemProgram returns the identifier of the system program, the initial
// owner of every freshly created account: all zero bytes except the last,
// which is one.
func SystemProgram() Pubkey {
	var p Pubkey
	p[31] = 1
	return p
}

// PubkeyFromBytes creates a pubkey from raw bytes. Shorter input is
// zero-padded at the end, longer input is truncated to 32 bytes.
func PubkeyFromBytes(source []byte) Pubkey {
	var p Pubkey
	copy(p[:], source)
	return p
}

// PubkeyFromHex parses a pubkey from a hex string with optional 0x prefix.
// The string must hold exactly 64 hex characters.
func PubkeyFromHex(source string) (Pubkey, error) {
	// Remove 0x prefix if present
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return Pubkey{}, errors.New("invalid pubkey length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Pubkey{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return PubkeyFromBytes(raw), nil
}

// String returns the hex representation of the pubkey.
func (p Pubkey) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns the raw 32-byte identifier.
func (p Pubkey) Bytes() []byte {
	return p[:]
}

// Serialize returns the pubkey as a fixed-size 32-byte array.
func (p Pubkey) Serialize() [32]byte {
	return [32]byte(p)
}

// Equal compares two pubkeys for equality.
func (p Pubkey) Equal(other Pubkey) bool {
	return p == other
}

// Cmp compares two pubkeys lexicographically, returning -1, 0 or 1.
func (p Pubkey) Cmp(other Pubkey) int {
	return bytes.Compare(p[:], other[:])
}

// MarshalJSON encodes the pubkey as a hex string.
func (p Pubkey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a pubkey from a hex string.
func (p *Pubkey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := PubkeyFromHex(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsSystemProgram reports whether the pubkey identifies the system program.
func (p Pubkey) IsSystemProgram() bool {
	return p == SystemProgram()
}

// IsZero reports whether every byte of the pubkey is zero.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

var uniqueCounter atomic.Uint64

// NewUniquePubkey returns a pubkey distinct from all previous calls in this
// process. The first eight bytes hold a big-endian counter starting at one,
// the remaining bytes stay zero. Useful for tests and local tooling; the
// result is not derived from any private key.
func NewUniquePubkey() Pubkey {
	var p Pubkey
	binary.BigEndian.PutUint64(p[:8], uniqueCounter.Inc())
	return p
}
