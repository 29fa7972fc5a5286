package config

import (
	"fmt"
	"math"
	"strings"

	"chronicles/crypto"
	"chronicles/native/issuance"
)

// ValidateDeployment checks a deployment before any state is written.
func ValidateDeployment(d *Deployment) error {
	if d == nil {
		return fmt.Errorf("deployment: missing")
	}
	program, err := crypto.ParseIdentity(d.Program)
	if err != nil || program.IsZero() {
		return fmt.Errorf("deployment: invalid Program %q", d.Program)
	}
	if admin, err := crypto.ParseIdentity(d.Admin); err != nil || admin.IsZero() {
		return fmt.Errorf("deployment: invalid Admin %q", d.Admin)
	}
	if d.Fees != nil {
		if err := issuance.ValidateFeeSettings(d.Fees.RateBps, d.Fees.TreasuryPercent, d.Fees.AntiscamPercent); err != nil {
			return fmt.Errorf("deployment: fees: %w", err)
		}
	}
	if d.MinimumPayment != 0 && d.MinimumPayment < issuance.MinimumPaymentFloor {
		return fmt.Errorf("deployment: %w: %d", issuance.ErrInvalidMinimumPayment, d.MinimumPayment)
	}
	if d.Bumps != nil {
		if _, err := issuance.VerifyAuthorities(program, d.Seed, *d.Bumps); err != nil {
			return fmt.Errorf("deployment: bumps: %w", err)
		}
	}

	roles := make(map[issuance.Role]struct{})
	ids := make(map[crypto.Identity]struct{})
	for i, c := range d.Collections {
		role, err := issuance.ParseRole(c.Role)
		if err != nil {
			return fmt.Errorf("deployment: collections[%d]: %w", i, err)
		}
		if _, dup := roles[role]; dup {
			return fmt.Errorf("deployment: collections[%d]: role %s declared twice", i, role)
		}
		roles[role] = struct{}{}
		id, err := crypto.ParseIdentity(c.ID)
		if err != nil || id.IsZero() {
			return fmt.Errorf("deployment: collections[%d]: invalid id %q", i, c.ID)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("deployment: collections[%d]: id %s declared twice", i, id)
		}
		ids[id] = struct{}{}
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.URI) == "" {
			return fmt.Errorf("deployment: collections[%d]: name and uri required", i)
		}
	}

	seen := make(map[crypto.Identity]struct{})
	var total uint64
	for i, a := range d.Allocations {
		addr, err := crypto.ParseIdentity(a.Address)
		if err != nil || addr.IsZero() {
			return fmt.Errorf("deployment: allocations[%d]: invalid address %q", i, a.Address)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("deployment: allocations[%d]: address %s listed twice", i, addr)
		}
		seen[addr] = struct{}{}
		if a.Amount == 0 {
			return fmt.Errorf("deployment: allocations[%d]: amount must be positive", i)
		}
		if total > math.MaxUint64-a.Amount {
			return fmt.Errorf("deployment: allocations overflow uint64")
		}
		total += a.Amount
	}
	return nil
}
