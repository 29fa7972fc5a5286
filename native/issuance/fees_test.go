package issuance

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFeeSettings(t *testing.T) {
	cases := []struct {
		name     string
		rate     uint16
		treasury uint8
		antiscam uint8
		want     error
	}{
		{name: "defaults", rate: 500, treasury: 60, antiscam: 40},
		{name: "ceiling", rate: MaxFeeRateBps, treasury: 100, antiscam: 0},
		{name: "zero rate", rate: 0, treasury: 50, antiscam: 50},
		{name: "above ceiling", rate: MaxFeeRateBps + 1, treasury: 60, antiscam: 40, want: ErrInvalidFeeAmount},
		{name: "split short", rate: 500, treasury: 60, antiscam: 39, want: ErrInvalidFeeDistribution},
		{name: "split long", rate: 500, treasury: 61, antiscam: 40, want: ErrInvalidFeeDistribution},
		// distribution is checked before the rate ceiling
		{name: "both invalid", rate: 9000, treasury: 90, antiscam: 90, want: ErrInvalidFeeDistribution},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFeeSettings(tc.rate, tc.treasury, tc.antiscam)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCalculateSplitLaunchSettings(t *testing.T) {
	cfg := &Configuration{
		FeeRateBps:      500,
		TreasuryPercent: 60,
		AntiscamPercent: 40,
		MinimumPayment:  1_000_000_000,
	}
	split, err := CalculateSplit(cfg)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000_000), split.Fee)
	require.Equal(t, uint64(30_000_000), split.Treasury)
	require.Equal(t, uint64(20_000_000), split.Antiscam)
}

func TestCalculateSplitRoundingLoss(t *testing.T) {
	payments := []uint64{MinimumPaymentFloor, 10_000_001, 123_456_789, 999_999_999_999}
	for _, payment := range payments {
		for rate := uint16(0); rate <= MaxFeeRateBps; rate += 333 {
			for treasury := uint8(0); treasury <= 100; treasury += 7 {
				cfg := &Configuration{
					FeeRateBps:      rate,
					TreasuryPercent: treasury,
					AntiscamPercent: 100 - treasury,
					MinimumPayment:  payment,
				}
				split, err := CalculateSplit(cfg)
				require.NoError(t, err)
				require.Equal(t, payment*uint64(rate)/BasisPointsDenominator, split.Fee)
				require.LessOrEqual(t, split.Treasury+split.Antiscam, split.Fee)
				require.LessOrEqual(t, split.Fee-(split.Treasury+split.Antiscam), uint64(1))
			}
		}
	}
}

func TestCalculateSplitOverflowFailsClosed(t *testing.T) {
	cfg := &Configuration{
		FeeRateBps:      5000,
		TreasuryPercent: 60,
		AntiscamPercent: 40,
		MinimumPayment:  math.MaxUint64,
	}
	_, err := CalculateSplit(cfg)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
	require.Equal(t, KindArithmetic, KindOf(err))
}

func TestCheckedAdd(t *testing.T) {
	sum, err := checkedAdd(math.MaxUint64-1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), sum)

	_, err = checkedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindAuthorization, KindOf(ErrUnauthorized))
	require.Equal(t, KindConfiguration, KindOf(ErrInvalidMinimumPayment))
	require.Equal(t, KindStateGate, KindOf(ErrProgramPaused))
	require.Equal(t, KindStateGate, KindOf(ErrMaxSupplyExceeded))
	require.Equal(t, KindConflict, KindOf(ErrDuplicateNFTMint))
	require.Equal(t, KindInput, KindOf(ErrInvalidDestination))
	require.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
}
