package issuance

import (
	"errors"
	"fmt"

	corestate "chronicles/core/state"
	"chronicles/crypto"
)

// DuplicateGuard enforces at-most-one issuance attempt per asset identity.
// A claim is created with first-writer-wins semantics and is never removed,
// so an identity whose attempt aborted stays blocked.
type DuplicateGuard struct {
	config crypto.Identity
}

// NewDuplicateGuard scopes guard records to one deployment.
func NewDuplicateGuard(config crypto.Identity) DuplicateGuard {
	return DuplicateGuard{config: config}
}

// Claim creates the guard record for asset. A second claim on the same
// identity fails with ErrDuplicateNFTMint whether or not the first attempt
// finished.
func (g DuplicateGuard) Claim(st engineState, asset crypto.Identity, role Role, claimant crypto.Identity, now uint64) (*MintGuard, error) {
	if asset.IsZero() {
		return nil, fmt.Errorf("%w: asset identity required", ErrInvalidTraits)
	}
	record := &MintGuard{
		Asset:     asset,
		Role:      uint8(role),
		Claimant:  claimant,
		ClaimedAt: now,
	}
	err := st.KVCreate(guardKey(g.config, asset), record)
	if errors.Is(err, corestate.ErrKeyExists) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNFTMint, asset)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Finalize marks the claim for asset as issued.
func (g DuplicateGuard) Finalize(st engineState, asset crypto.Identity) error {
	record, ok, err := g.Get(st, asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("issuance: guard for %s missing", asset)
	}
	if record.Issued {
		return fmt.Errorf("%w: %s already issued", ErrDuplicateNFTMint, asset)
	}
	record.Issued = true
	return st.KVPut(guardKey(g.config, asset), record)
}

// Get loads the guard record for asset.
func (g DuplicateGuard) Get(st engineState, asset crypto.Identity) (*MintGuard, bool, error) {
	record := new(MintGuard)
	ok, err := st.KVGet(guardKey(g.config, asset), record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record, true, nil
}
