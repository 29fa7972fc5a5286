package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// IdentityLength is the byte length of every account, program and derived
// authority identity.
const IdentityLength = 32

// ErrInvalidIdentity is returned when a textual or binary identity cannot be
// decoded into exactly IdentityLength bytes.
var ErrInvalidIdentity = errors.New("crypto: invalid identity")

// Identity is a 32-byte account identity. Signing identities are ed25519
// public keys; derived authorities are digests that deliberately fall off the
// curve so that no private key can exist for them.
type Identity [IdentityLength]byte

// ZeroIdentity is the unset identity.
var ZeroIdentity Identity

// NewIdentity copies b into an Identity.
func NewIdentity(b []byte) (Identity, error) {
	var id Identity
	if len(b) != IdentityLength {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidIdentity, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MustIdentity is like ParseIdentity but panics on malformed input. Intended
// for constants and tests.
func MustIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseIdentity decodes the base58 text form of an identity.
func ParseIdentity(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ZeroIdentity, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	decoded := base58.Decode(trimmed)
	if len(decoded) == 0 {
		return ZeroIdentity, fmt.Errorf("%w: %q is not base58", ErrInvalidIdentity, trimmed)
	}
	return NewIdentity(decoded)
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

// Bytes returns a copy of the identity bytes.
func (id Identity) Bytes() []byte {
	out := make([]byte, IdentityLength)
	copy(out, id[:])
	return out
}

func (id Identity) IsZero() bool {
	return id == ZeroIdentity
}

// MarshalText implements encoding.TextMarshaler so identities render as
// base58 in JSON, YAML and TOML documents.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// --- Key Management ---

// PrivateKey is an ed25519 signing key whose public half is an Identity.
type PrivateKey struct {
	ed25519.PrivateKey
}

// GeneratePrivateKey creates a fresh signing key.
func GeneratePrivateKey() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: priv}, nil
}

// Identity returns the public identity of the key.
func (k *PrivateKey) Identity() Identity {
	var id Identity
	copy(id[:], k.Public().(ed25519.PublicKey))
	return id
}
