package issuance

import (
	"fmt"
	"strings"

	"chronicles/crypto"
)

const (
	// SchemaVersion is stamped on every configuration record.
	SchemaVersion uint8 = 1

	MaxFeeRateBps          uint16 = 5000
	BasisPointsDenominator uint64 = 10_000
	PercentDenominator     uint64 = 100
	// MinimumPaymentFloor is the protocol floor for MinimumPayment.
	MinimumPaymentFloor uint64 = 10_000_000

	DefaultFeeRateBps      uint16 = 500
	DefaultTreasuryPercent uint8  = 60
	DefaultAntiscamPercent uint8  = 40
	DefaultMinimumPayment  uint64 = 1_000_000_000

	// LowSupplyThreshold triggers the non-fatal low-supply warning.
	LowSupplyThreshold uint64 = 5
)

// Role selects one of the two collections a deployment issues into.
type Role uint8

const (
	RoleStandard Role = iota + 1
	RoleScammed
)

func (r Role) String() string {
	switch r {
	case RoleStandard:
		return "standard"
	case RoleScammed:
		return "scammed"
	default:
		return "unknown"
	}
}

// ParseRole accepts the textual role names used by the HTTP and CLI
// surfaces.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return RoleStandard, nil
	case "scammed":
		return RoleScammed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// CollectionRef points at a collection in the asset engine and caches its
// supply cap.
type CollectionRef struct {
	ID     crypto.Identity `json:"id"`
	HasCap bool            `json:"hasCap"`
	Cap    uint64          `json:"cap,omitempty"`
}

// Configuration is the per-deployment singleton. It is created by
// Initialize and mutated only by admin calls.
type Configuration struct {
	Version uint8  `json:"version"`
	Seed    uint64 `json:"seed"`

	Admin         crypto.Identity `json:"admin"`
	ConfigBump    uint8           `json:"configBump"`
	Authority     crypto.Identity `json:"authority"`
	AuthorityBump uint8           `json:"authorityBump"`
	Treasury      crypto.Identity `json:"treasury"`
	TreasuryBump  uint8           `json:"treasuryBump"`
	Antiscam      crypto.Identity `json:"antiscam"`
	AntiscamBump  uint8           `json:"antiscamBump"`

	Standard CollectionRef `json:"standard"`
	Scammed  CollectionRef `json:"scammed"`

	FeeRateBps      uint16 `json:"feeRateBps"`
	TreasuryPercent uint8  `json:"treasuryPercent"`
	AntiscamPercent uint8  `json:"antiscamPercent"`
	MinimumPayment  uint64 `json:"minimumPayment"`
	Paused          bool   `json:"paused"`

	MintedStandard uint64 `json:"mintedStandard"`
	MintedScammed  uint64 `json:"mintedScammed"`
}

// Collection returns the reference bound to role.
func (c *Configuration) Collection(role Role) (*CollectionRef, error) {
	switch role {
	case RoleStandard:
		return &c.Standard, nil
	case RoleScammed:
		return &c.Scammed, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, role)
	}
}

// Minted returns a pointer to the minted counter for role.
func (c *Configuration) Minted(role Role) (*uint64, error) {
	switch role {
	case RoleStandard:
		return &c.MintedStandard, nil
	case RoleScammed:
		return &c.MintedScammed, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, role)
	}
}

// Clone returns a value copy suitable for use as a request snapshot.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// MintGuard records that an asset identity has been claimed. Issued flips
// to true once the asset and its attributes exist.
type MintGuard struct {
	Asset     crypto.Identity `json:"asset"`
	Role      uint8           `json:"role"`
	Claimant  crypto.Identity `json:"claimant"`
	ClaimedAt uint64          `json:"claimedAt"`
	Issued    bool            `json:"issued"`
}

// RuggedUser is a self-registered victim record that the admin verifies
// before the holder may mint into the scammed collection.
type RuggedUser struct {
	Owner             crypto.Identity `json:"owner"`
	CompromisedWallet crypto.Identity `json:"compromisedWallet"`
	Verified          bool            `json:"verified"`
}

// Split is the result of the fee calculation.
type Split struct {
	Fee      uint64 `json:"fee"`
	Treasury uint64 `json:"treasury"`
	Antiscam uint64 `json:"antiscam"`
}
