package crypto

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"lukechampine.com/blake3"
)

const (
	// MaxSeeds bounds the number of seed components accepted per derivation.
	MaxSeeds = 16
	// MaxSeedLength bounds the size of a single seed component.
	MaxSeedLength = 32
)

var derivedAddressMarker = []byte("chronicles/derived-authority")

var (
	// ErrOnCurve indicates the candidate digest is a valid ed25519 point and
	// therefore cannot serve as a keyless derived authority.
	ErrOnCurve = errors.New("crypto: derived address lies on the ed25519 curve")
	// ErrNoViableBump is returned when every bump value produced an on-curve
	// digest.
	ErrNoViableBump = errors.New("crypto: unable to find a viable bump")
	// ErrNonCanonicalBump is returned when a caller-supplied bump is valid but
	// is not the highest bump the search would have selected.
	ErrNonCanonicalBump = errors.New("crypto: bump is not canonical")
	// ErrInvalidSeeds covers seed count and length violations.
	ErrInvalidSeeds = errors.New("crypto: invalid derivation seeds")
)

// CreateDerivedAddress hashes seeds, bump and program into a candidate
// authority. It fails with ErrOnCurve when the candidate has a private key.
func CreateDerivedAddress(program Identity, bump uint8, seeds ...[]byte) (Identity, error) {
	if len(seeds) > MaxSeeds {
		return ZeroIdentity, fmt.Errorf("%w: %d seeds exceeds %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}
	h := blake3.New(IdentityLength, nil)
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return ZeroIdentity, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeeds, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write(derivedAddressMarker)

	var out Identity
	copy(out[:], h.Sum(nil))
	if isOnCurve(out[:]) {
		return ZeroIdentity, ErrOnCurve
	}
	return out, nil
}

// FindDerivedAddress searches bumps from 255 downwards and returns the first
// off-curve address together with its canonical bump.
func FindDerivedAddress(program Identity, seeds ...[]byte) (Identity, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateDerivedAddress(program, uint8(bump), seeds...)
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return ZeroIdentity, 0, err
		}
		return addr, uint8(bump), nil
	}
	return ZeroIdentity, 0, ErrNoViableBump
}

// VerifyDerivedAddress recomputes the canonical derivation and rejects any
// bump other than the canonical one. The derived address is returned on
// success.
func VerifyDerivedAddress(program Identity, bump uint8, seeds ...[]byte) (Identity, error) {
	addr, canonical, err := FindDerivedAddress(program, seeds...)
	if err != nil {
		return ZeroIdentity, err
	}
	if bump != canonical {
		return ZeroIdentity, fmt.Errorf("%w: got %d want %d", ErrNonCanonicalBump, bump, canonical)
	}
	return addr, nil
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
