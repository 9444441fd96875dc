package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// Seed constraints enforced by the runtime.
const (
	MaxSeedLength = 32
	MaxSeeds      = 16
)

// pdaMarker is appended to the hash input so PDAs can never collide with
// hashes produced by other protocols.
var pdaMarker = []byte("ProgramDerivedAddress")

// ErrInvalidSeeds is returned when seed constraints are violated.
var ErrInvalidSeeds = errors.New("invalid program address seeds")

// CreateProgramAddress derives the address for the given seeds and program.
// Fails when the resulting point lies on the ed25519 curve, in which case the
// caller should retry with a different bump seed.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("%w: %d seeds exceeds maximum %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: seed length %d exceeds maximum %d", ErrInvalidSeeds, len(seed), MaxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write(pdaMarker)

	var pk PublicKey
	copy(pk[:], h.Sum(nil))

	if pk.IsOnCurve() {
		return PublicKey{}, errors.New("derived address falls on the ed25519 curve")
	}
	return pk, nil
}

// FindProgramAddress finds the first off-curve address for the seeds by
// searching bump seeds from 255 downward. Returns the address and the bump
// that produced it.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(append(seeds, []byte{uint8(bump)}), programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if errors.Is(err, ErrInvalidSeeds) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, errors.New("no viable program address bump found")
}
