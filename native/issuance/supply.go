package issuance

import "fmt"

// Reservation is the outcome of a successful supply check.
type Reservation struct {
	Role      Role
	Capped    bool
	Remaining uint64
	// LowSupply is set when Remaining is at or below LowSupplyThreshold.
	// It is a warning only.
	LowSupply bool
}

// CheckAndReserve verifies that role still has room under its cap. It does
// not mutate cfg; the counter moves only in RecordMint once the external
// mint has succeeded.
func CheckAndReserve(cfg *Configuration, role Role) (Reservation, error) {
	ref, err := cfg.Collection(role)
	if err != nil {
		return Reservation{}, err
	}
	minted, err := cfg.Minted(role)
	if err != nil {
		return Reservation{}, err
	}
	res := Reservation{Role: role, Capped: ref.HasCap}
	if !ref.HasCap {
		return res, nil
	}
	if *minted >= ref.Cap {
		return Reservation{}, fmt.Errorf("%w: %s minted %d of %d", ErrMaxSupplyExceeded, role, *minted, ref.Cap)
	}
	res.Remaining = ref.Cap - *minted
	res.LowSupply = res.Remaining <= LowSupplyThreshold
	return res, nil
}

// RecordMint increments the minted counter for role with a checked add and
// re-validates the cap. It returns the new counter value.
func RecordMint(cfg *Configuration, role Role) (uint64, error) {
	ref, err := cfg.Collection(role)
	if err != nil {
		return 0, err
	}
	minted, err := cfg.Minted(role)
	if err != nil {
		return 0, err
	}
	next, err := checkedAdd(*minted, 1)
	if err != nil {
		return 0, fmt.Errorf("%w: %s minted counter", err, role)
	}
	if ref.HasCap && next > ref.Cap {
		return 0, fmt.Errorf("%w: %s minted %d of %d", ErrMaxSupplyExceeded, role, *minted, ref.Cap)
	}
	*minted = next
	return next, nil
}
