package issuance

import (
	"encoding/binary"
	"errors"
	"fmt"

	"chronicles/crypto"
)

// Derivation labels. Each is combined with the little-endian deployment seed
// and the program identity.
var (
	labelConfig    = []byte("config")
	labelAuthority = []byte("upd_auth")
	labelTreasury  = []byte("treasury")
	labelAntiscam  = []byte("antiscam")
)

// Bumps carries the caller-declared canonical bumps for every derived
// identity of a deployment.
type Bumps struct {
	Config    uint8 `json:"config" toml:"config"`
	Authority uint8 `json:"authority" toml:"authority"`
	Treasury  uint8 `json:"treasury" toml:"treasury"`
	Antiscam  uint8 `json:"antiscam" toml:"antiscam"`
}

// Authorities is the full set of derived identities for a deployment.
type Authorities struct {
	Config    crypto.Identity `json:"config"`
	Authority crypto.Identity `json:"authority"`
	Treasury  crypto.Identity `json:"treasury"`
	Antiscam  crypto.Identity `json:"antiscam"`
	Bumps     Bumps           `json:"bumps"`
}

func seedBytes(seed uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	return buf[:]
}

func derivationSeeds(label string, seed uint64) [][]byte {
	le := seedBytes(seed)
	switch label {
	case "config":
		return [][]byte{labelConfig, le}
	case "authority":
		return [][]byte{labelAuthority, le}
	case "treasury":
		return [][]byte{labelTreasury, le}
	case "antiscam":
		return [][]byte{labelTreasury, labelAntiscam, le}
	default:
		return nil
	}
}

// DeriveAuthorities computes every derived identity of the deployment
// (program, seed) together with its canonical bump.
func DeriveAuthorities(program crypto.Identity, seed uint64) (Authorities, error) {
	var out Authorities
	targets := []struct {
		label string
		addr  *crypto.Identity
		bump  *uint8
	}{
		{"config", &out.Config, &out.Bumps.Config},
		{"authority", &out.Authority, &out.Bumps.Authority},
		{"treasury", &out.Treasury, &out.Bumps.Treasury},
		{"antiscam", &out.Antiscam, &out.Bumps.Antiscam},
	}
	for _, target := range targets {
		addr, bump, err := crypto.FindDerivedAddress(program, derivationSeeds(target.label, seed)...)
		if err != nil {
			return Authorities{}, fmt.Errorf("issuance: derive %s: %w", target.label, err)
		}
		*target.addr = addr
		*target.bump = bump
	}
	return out, nil
}

// VerifyAuthorities checks caller-declared bumps against the canonical
// derivation and returns the derived identities. A mismatching bump yields
// ErrNonCanonicalBump.
func VerifyAuthorities(program crypto.Identity, seed uint64, bumps Bumps) (Authorities, error) {
	out := Authorities{Bumps: bumps}
	targets := []struct {
		label    string
		declared uint8
		addr     *crypto.Identity
	}{
		{"config", bumps.Config, &out.Config},
		{"authority", bumps.Authority, &out.Authority},
		{"treasury", bumps.Treasury, &out.Treasury},
		{"antiscam", bumps.Antiscam, &out.Antiscam},
	}
	for _, target := range targets {
		addr, err := crypto.VerifyDerivedAddress(program, target.declared, derivationSeeds(target.label, seed)...)
		if errors.Is(err, crypto.ErrNonCanonicalBump) {
			return Authorities{}, fmt.Errorf("%w: %s: %v", ErrNonCanonicalBump, target.label, err)
		}
		if err != nil {
			return Authorities{}, fmt.Errorf("issuance: derive %s: %w", target.label, err)
		}
		*target.addr = addr
	}
	return out, nil
}
