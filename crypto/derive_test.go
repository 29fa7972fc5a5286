package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testProgram() Identity {
	var program Identity
	for i := range program {
		program[i] = byte(i + 1)
	}
	return program
}

func TestFindDerivedAddressDeterministic(t *testing.T) {
	program := testProgram()
	first, bump, err := FindDerivedAddress(program, []byte("upd_auth"))
	require.NoError(t, err)
	second, bump2, err := FindDerivedAddress(program, []byte("upd_auth"))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, bump, bump2)
	require.False(t, isOnCurve(first[:]))

	other, _, err := FindDerivedAddress(program, []byte("treasury"))
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestFindDerivedAddressDependsOnProgram(t *testing.T) {
	a, _, err := FindDerivedAddress(testProgram(), []byte("treasury"))
	require.NoError(t, err)
	var otherProgram Identity
	otherProgram[0] = 0xff
	b, _, err := FindDerivedAddress(otherProgram, []byte("treasury"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyDerivedAddressRejectsNonCanonicalBump(t *testing.T) {
	program := testProgram()
	seeds := [][]byte{[]byte("treasury"), []byte("antiscam")}
	addr, bump, err := FindDerivedAddress(program, seeds...)
	require.NoError(t, err)

	got, err := VerifyDerivedAddress(program, bump, seeds...)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	// Any lower bump that still produces an off-curve digest must be refused.
	for candidate := int(bump) - 1; candidate >= 0; candidate-- {
		if _, err := CreateDerivedAddress(program, uint8(candidate), seeds...); err != nil {
			continue
		}
		_, err := VerifyDerivedAddress(program, uint8(candidate), seeds...)
		if !errors.Is(err, ErrNonCanonicalBump) {
			t.Fatalf("expected ErrNonCanonicalBump for bump %d, got %v", candidate, err)
		}
		return
	}
	t.Skip("no alternative off-curve bump below the canonical one")
}

func TestCreateDerivedAddressSeedLimits(t *testing.T) {
	program := testProgram()
	_, err := CreateDerivedAddress(program, 255, make([]byte, MaxSeedLength+1))
	require.ErrorIs(t, err, ErrInvalidSeeds)

	seeds := make([][]byte, MaxSeeds+1)
	_, err = CreateDerivedAddress(program, 255, seeds...)
	require.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestIdentityTextRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	id := key.Identity()

	parsed, err := ParseIdentity(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseIdentity("0OIl")
	require.ErrorIs(t, err, ErrInvalidIdentity)
	_, err = ParseIdentity("")
	require.ErrorIs(t, err, ErrInvalidIdentity)
}
