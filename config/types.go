package config

import "chronicles/native/issuance"

// Deployment describes one issuance deployment: the program and seed the
// authorities derive from, the initial admin, launch parameters, the
// collections to create and genesis balances.
type Deployment struct {
	Program        string                `toml:"Program"`
	Seed           uint64                `toml:"Seed"`
	Admin          string                `toml:"Admin"`
	MinimumPayment uint64                `toml:"MinimumPayment,omitempty"`
	Fees           *issuance.FeeSettings `toml:"fees,omitempty"`
	// Bumps are optional. When present they must match the canonical
	// derivation; when absent they are computed at bootstrap.
	Bumps       *issuance.Bumps `toml:"bumps,omitempty"`
	Collections []Collection    `toml:"collections"`
	Allocations []Allocation    `toml:"allocations"`
}

// Collection is created under the derived authority and bound to Role.
type Collection struct {
	Role        string `toml:"role"`
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	URI         string `toml:"uri"`
	Cap         uint64 `toml:"cap,omitempty"`
	EditionName string `toml:"edition_name,omitempty"`
	EditionURI  string `toml:"edition_uri,omitempty"`
}

// Allocation credits Amount base units to Address at genesis.
type Allocation struct {
	Address string `toml:"address"`
	Amount  uint64 `toml:"amount"`
}
