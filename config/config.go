package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"chronicles/crypto"
	"chronicles/native/issuance"
)

// Load reads and validates the deployment file at path. Unknown keys are
// rejected so typos cannot silently fall back to defaults.
func Load(path string) (*Deployment, error) {
	cfg := &Deployment{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("deployment file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := ValidateDeployment(cfg); err != nil {
		return nil, fmt.Errorf("deployment file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a deployment for program administered by admin with
// launch fee settings, the canonical bumps and uncapped collections left
// for the operator to fill in.
func Default(program, admin crypto.Identity, seed uint64) (*Deployment, error) {
	derived, err := issuance.DeriveAuthorities(program, seed)
	if err != nil {
		return nil, err
	}
	fees := issuance.DefaultFeeSettings()
	return &Deployment{
		Program:        program.String(),
		Seed:           seed,
		Admin:          admin.String(),
		MinimumPayment: issuance.DefaultMinimumPayment,
		Fees:           &fees,
		Bumps:          &derived.Bumps,
		Collections:    []Collection{},
		Allocations:    []Allocation{},
	}, nil
}

// Persist writes cfg to path as TOML, creating parent directories.
func Persist(path string, cfg *Deployment) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Resolved is a validated deployment with every identity parsed.
type Resolved struct {
	Program     crypto.Identity
	Seed        uint64
	Admin       crypto.Identity
	Params      issuance.InitializeParams
	Collections []issuance.CreateCollectionParams
	Allocations []ResolvedAllocation
}

// ResolvedAllocation is an Allocation with a parsed address.
type ResolvedAllocation struct {
	Address crypto.Identity
	Amount  uint64
}

// Resolve parses identities and computes any bumps the file omits.
func (d *Deployment) Resolve() (*Resolved, error) {
	if err := ValidateDeployment(d); err != nil {
		return nil, err
	}
	program, _ := crypto.ParseIdentity(d.Program)
	admin, _ := crypto.ParseIdentity(d.Admin)

	bumps := issuance.Bumps{}
	if d.Bumps != nil {
		bumps = *d.Bumps
	} else {
		derived, err := issuance.DeriveAuthorities(program, d.Seed)
		if err != nil {
			return nil, err
		}
		bumps = derived.Bumps
	}

	out := &Resolved{
		Program: program,
		Seed:    d.Seed,
		Admin:   admin,
		Params: issuance.InitializeParams{
			Bumps:          bumps,
			Fees:           d.Fees,
			MinimumPayment: d.MinimumPayment,
		},
	}
	for _, c := range d.Collections {
		id, _ := crypto.ParseIdentity(c.ID)
		role, _ := issuance.ParseRole(c.Role)
		switch role {
		case issuance.RoleStandard:
			out.Params.Standard = id
		case issuance.RoleScammed:
			out.Params.Scammed = id
		}
		out.Collections = append(out.Collections, issuance.CreateCollectionParams{
			ID:          id,
			Name:        c.Name,
			URI:         c.URI,
			HasCap:      c.Cap > 0,
			Cap:         c.Cap,
			EditionName: c.EditionName,
			EditionURI:  c.EditionURI,
			Role:        role,
		})
	}
	for _, a := range d.Allocations {
		addr, _ := crypto.ParseIdentity(a.Address)
		out.Allocations = append(out.Allocations, ResolvedAllocation{Address: addr, Amount: a.Amount})
	}
	return out, nil
}
