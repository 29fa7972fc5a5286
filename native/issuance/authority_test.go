package issuance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chronicles/crypto"
)

var testProgram = crypto.Identity{0x70, 0x72, 0x6f, 0x67, 0x72, 0x61, 0x6d}

func TestDeriveAuthoritiesDistinctPerSeed(t *testing.T) {
	first, err := DeriveAuthorities(testProgram, 1)
	require.NoError(t, err)
	again, err := DeriveAuthorities(testProgram, 1)
	require.NoError(t, err)
	require.Equal(t, first, again)

	second, err := DeriveAuthorities(testProgram, 2)
	require.NoError(t, err)
	require.NotEqual(t, first.Config, second.Config)
	require.NotEqual(t, first.Authority, second.Authority)

	ids := map[crypto.Identity]struct{}{
		first.Config: {}, first.Authority: {}, first.Treasury: {}, first.Antiscam: {},
	}
	require.Len(t, ids, 4)
}

func TestVerifyAuthoritiesRejectsNonCanonicalBump(t *testing.T) {
	derived, err := DeriveAuthorities(testProgram, 42)
	require.NoError(t, err)

	verified, err := VerifyAuthorities(testProgram, 42, derived.Bumps)
	require.NoError(t, err)
	require.Equal(t, derived, verified)

	bumps := derived.Bumps
	bumps.Treasury++
	_, err = VerifyAuthorities(testProgram, 42, bumps)
	require.ErrorIs(t, err, ErrNonCanonicalBump)
	require.Equal(t, KindConfiguration, KindOf(err))
}
