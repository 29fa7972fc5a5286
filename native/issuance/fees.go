package issuance

import (
	"fmt"

	"github.com/holiman/uint256"
)

var (
	bpsDenominator     = uint256.NewInt(BasisPointsDenominator)
	percentDenominator = uint256.NewInt(PercentDenominator)
)

// ValidateFeeSettings checks a fee configuration: the split must total
// exactly 100 and the rate must not exceed MaxFeeRateBps.
func ValidateFeeSettings(rateBps uint16, treasuryPct, antiscamPct uint8) error {
	if uint16(treasuryPct)+uint16(antiscamPct) != uint16(PercentDenominator) {
		return fmt.Errorf("%w: got %d+%d", ErrInvalidFeeDistribution, treasuryPct, antiscamPct)
	}
	if rateBps > MaxFeeRateBps {
		return fmt.Errorf("%w: got %d", ErrInvalidFeeAmount, rateBps)
	}
	return nil
}

// CalculateSplit computes the fee owed on cfg.MinimumPayment and its split
// between treasury and antiscam. Every product must fit in a uint64; an
// intermediate outside that range fails with ErrArithmeticOverflow instead of
// saturating or wrapping.
func CalculateSplit(cfg *Configuration) (Split, error) {
	if cfg == nil {
		return Split{}, ErrNotInitialized
	}
	fee, err := mulDiv(cfg.MinimumPayment, uint64(cfg.FeeRateBps), bpsDenominator)
	if err != nil {
		return Split{}, fmt.Errorf("%w: minimum payment %d at %d bps", err, cfg.MinimumPayment, cfg.FeeRateBps)
	}
	treasury, err := mulDiv(fee, uint64(cfg.TreasuryPercent), percentDenominator)
	if err != nil {
		return Split{}, fmt.Errorf("%w: treasury share", err)
	}
	antiscam, err := mulDiv(fee, uint64(cfg.AntiscamPercent), percentDenominator)
	if err != nil {
		return Split{}, fmt.Errorf("%w: antiscam share", err)
	}
	return Split{Fee: fee, Treasury: treasury, Antiscam: antiscam}, nil
}

func mulDiv(a, b uint64, denom *uint256.Int) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !product.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return product.Div(product, denom).Uint64(), nil
}

// checkedAdd returns a+b or ErrArithmeticOverflow.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return sum.Uint64(), nil
}
