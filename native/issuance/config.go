package issuance

import (
	"errors"
	"fmt"

	corestate "chronicles/core/state"
	"chronicles/crypto"
)

// FeeSettings groups the three admin-controlled fee parameters.
type FeeSettings struct {
	RateBps         uint16 `json:"rateBps" toml:"rate_bps"`
	TreasuryPercent uint8  `json:"treasuryPercent" toml:"treasury_percent"`
	AntiscamPercent uint8  `json:"antiscamPercent" toml:"antiscam_percent"`
}

// DefaultFeeSettings returns the launch fee parameters (5%, split 60/40).
func DefaultFeeSettings() FeeSettings {
	return FeeSettings{
		RateBps:         DefaultFeeRateBps,
		TreasuryPercent: DefaultTreasuryPercent,
		AntiscamPercent: DefaultAntiscamPercent,
	}
}

// InitializeParams configures a new deployment. Nil Fees and a zero
// MinimumPayment select the defaults.
type InitializeParams struct {
	Bumps          Bumps
	Fees           *FeeSettings
	MinimumPayment uint64
	Standard       crypto.Identity
	Scammed        crypto.Identity
}

// ConfigStore persists the configuration singleton of one deployment.
type ConfigStore struct {
	address crypto.Identity
}

// NewConfigStore binds a store to the derived configuration address.
func NewConfigStore(address crypto.Identity) ConfigStore {
	return ConfigStore{address: address}
}

// Address is the derived identity the configuration lives under.
func (s ConfigStore) Address() crypto.Identity { return s.address }

// Load returns the stored configuration or ErrNotInitialized.
func (s ConfigStore) Load(st engineState) (*Configuration, error) {
	cfg := new(Configuration)
	ok, err := st.KVGet(configKey(s.address), cfg)
	if err != nil {
		return nil, fmt.Errorf("issuance: load config: %w", err)
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// Save overwrites the stored configuration.
func (s ConfigStore) Save(st engineState, cfg *Configuration) error {
	if cfg == nil {
		return ErrNotInitialized
	}
	return st.KVPut(configKey(s.address), cfg)
}

// Create stores cfg only if no configuration exists yet.
func (s ConfigStore) Create(st engineState, cfg *Configuration) error {
	err := st.KVCreate(configKey(s.address), cfg)
	if errors.Is(err, corestate.ErrKeyExists) {
		return ErrAlreadyInitialized
	}
	return err
}

// newConfiguration validates params and builds the initial configuration.
func newConfiguration(admin crypto.Identity, seed uint64, derived Authorities, params InitializeParams) (*Configuration, error) {
	if admin.IsZero() {
		return nil, ErrUnauthorized
	}
	fees := DefaultFeeSettings()
	if params.Fees != nil {
		fees = *params.Fees
	}
	if err := ValidateFeeSettings(fees.RateBps, fees.TreasuryPercent, fees.AntiscamPercent); err != nil {
		return nil, err
	}
	minimum := params.MinimumPayment
	if minimum == 0 {
		minimum = DefaultMinimumPayment
	}
	if minimum < MinimumPaymentFloor {
		return nil, fmt.Errorf("%w: %d < %d", ErrInvalidMinimumPayment, minimum, MinimumPaymentFloor)
	}
	return &Configuration{
		Version:         SchemaVersion,
		Seed:            seed,
		Admin:           admin,
		ConfigBump:      derived.Bumps.Config,
		Authority:       derived.Authority,
		AuthorityBump:   derived.Bumps.Authority,
		Treasury:        derived.Treasury,
		TreasuryBump:    derived.Bumps.Treasury,
		Antiscam:        derived.Antiscam,
		AntiscamBump:    derived.Bumps.Antiscam,
		Standard:        CollectionRef{ID: params.Standard},
		Scammed:         CollectionRef{ID: params.Scammed},
		FeeRateBps:      fees.RateBps,
		TreasuryPercent: fees.TreasuryPercent,
		AntiscamPercent: fees.AntiscamPercent,
		MinimumPayment:  minimum,
	}, nil
}

func requireAdmin(cfg *Configuration, caller crypto.Identity) error {
	if cfg == nil {
		return ErrNotInitialized
	}
	if caller.IsZero() || caller != cfg.Admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// applyFeeSettings mutates cfg only when every check passes.
func applyFeeSettings(cfg *Configuration, caller crypto.Identity, fees FeeSettings) error {
	if err := requireAdmin(cfg, caller); err != nil {
		return err
	}
	if err := ValidateFeeSettings(fees.RateBps, fees.TreasuryPercent, fees.AntiscamPercent); err != nil {
		return err
	}
	cfg.FeeRateBps = fees.RateBps
	cfg.TreasuryPercent = fees.TreasuryPercent
	cfg.AntiscamPercent = fees.AntiscamPercent
	return nil
}

func applyMinimumPayment(cfg *Configuration, caller crypto.Identity, value uint64) error {
	if err := requireAdmin(cfg, caller); err != nil {
		return err
	}
	if value < MinimumPaymentFloor {
		return fmt.Errorf("%w: %d < %d", ErrInvalidMinimumPayment, value, MinimumPaymentFloor)
	}
	cfg.MinimumPayment = value
	return nil
}

func applyTogglePaused(cfg *Configuration, caller crypto.Identity) (bool, error) {
	if err := requireAdmin(cfg, caller); err != nil {
		return false, err
	}
	cfg.Paused = !cfg.Paused
	return cfg.Paused, nil
}
