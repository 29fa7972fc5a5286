package issuance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAndReserveUncapped(t *testing.T) {
	cfg := &Configuration{MintedStandard: 1_000_000}
	res, err := CheckAndReserve(cfg, RoleStandard)
	require.NoError(t, err)
	require.False(t, res.Capped)
	require.False(t, res.LowSupply)
}

func TestCheckAndReserveCap(t *testing.T) {
	cfg := &Configuration{Scammed: CollectionRef{HasCap: true, Cap: 10}, MintedScammed: 4}
	res, err := CheckAndReserve(cfg, RoleScammed)
	require.NoError(t, err)
	require.Equal(t, uint64(6), res.Remaining)
	require.False(t, res.LowSupply)

	cfg.MintedScammed = 5
	res, err = CheckAndReserve(cfg, RoleScammed)
	require.NoError(t, err)
	require.True(t, res.LowSupply)

	cfg.MintedScammed = 10
	_, err = CheckAndReserve(cfg, RoleScammed)
	require.ErrorIs(t, err, ErrMaxSupplyExceeded)
	require.Equal(t, uint64(10), cfg.MintedScammed)
}

func TestCheckAndReserveUnknownRole(t *testing.T) {
	_, err := CheckAndReserve(&Configuration{}, Role(9))
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestRecordMint(t *testing.T) {
	cfg := &Configuration{Standard: CollectionRef{HasCap: true, Cap: 2}}
	next, err := RecordMint(cfg, RoleStandard)
	require.NoError(t, err)
	require.Equal(t, uint64(1), next)
	_, err = RecordMint(cfg, RoleStandard)
	require.NoError(t, err)

	_, err = RecordMint(cfg, RoleStandard)
	require.ErrorIs(t, err, ErrMaxSupplyExceeded)
	require.Equal(t, uint64(2), cfg.MintedStandard)

	cfg = &Configuration{MintedScammed: math.MaxUint64}
	_, err = RecordMint(cfg, RoleScammed)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
	require.Equal(t, uint64(math.MaxUint64), cfg.MintedScammed)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Scammed ")
	require.NoError(t, err)
	require.Equal(t, RoleScammed, role)

	_, err = ParseRole("premium")
	require.ErrorIs(t, err, ErrInvalidRole)
}
