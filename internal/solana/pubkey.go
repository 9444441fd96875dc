package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of an ed25519 public key.
const PublicKeyLength = 32

// PublicKey is a Solana account address.
type PublicKey [PublicKeyLength]byte

// PublicKeyFromBase58 decodes a base58-encoded public key.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode base58 pubkey: %w", err)
	}
	return PublicKeyFromBytes(raw)
}

// MustPublicKeyFromBase58 decodes a base58 public key, panicking on error.
// Intended for package-level constants.
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes builds a public key from raw bytes.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if len(raw) != PublicKeyLength {
		return PublicKey{}, fmt.Errorf("invalid pubkey length %d, want %d", len(raw), PublicKeyLength)
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// Bytes returns the raw key bytes.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether the key is all zeroes.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Equals reports whether two keys are identical.
func (pk PublicKey) Equals(other PublicKey) bool {
	return pk == other
}

// IsOnCurve reports whether the key bytes form a valid ed25519 curve point.
// Program-derived addresses must be off-curve so no private key exists.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
