package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chronicles/crypto"
	"chronicles/native/issuance"
)

var (
	testProgram  = crypto.Identity{0x70, 0x01}
	testAdmin    = crypto.Identity{0xad, 0x01}
	testStandard = crypto.Identity{0x51, 0x01}
	testScammed  = crypto.Identity{0x5c, 0x01}
	testHolder   = crypto.Identity{0xbe, 0x01}
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployment.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write deployment: %v", err)
	}
	return path
}

func TestLoadParsesDeployment(t *testing.T) {
	path := writeFile(t, fmt.Sprintf(`Program = "%s"
Seed = 9
Admin = "%s"
MinimumPayment = 2000000000

[fees]
rate_bps = 250
treasury_percent = 70
antiscam_percent = 30

[[collections]]
role = "standard"
id = "%s"
name = "Rug Pull Chronicles"
uri = "https://chronicles.invalid/standard.json"
cap = 1000
edition_name = "First Edition"

[[collections]]
role = "scammed"
id = "%s"
name = "Scammed Chronicles"
uri = "https://chronicles.invalid/scammed.json"

[[allocations]]
address = "%s"
amount = 5000000000
`, testProgram, testAdmin, testStandard, testScammed, testHolder))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != 9 || cfg.MinimumPayment != 2_000_000_000 {
		t.Fatalf("unexpected scalars: %+v", cfg)
	}
	if cfg.Fees == nil || cfg.Fees.RateBps != 250 || cfg.Fees.TreasuryPercent != 70 {
		t.Fatalf("unexpected fees: %+v", cfg.Fees)
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Program != testProgram || resolved.Admin != testAdmin {
		t.Fatalf("identities not parsed: %+v", resolved)
	}
	if resolved.Params.Standard != testStandard || resolved.Params.Scammed != testScammed {
		t.Fatalf("collection refs not bound: %+v", resolved.Params)
	}
	derived, err := issuance.DeriveAuthorities(testProgram, 9)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if resolved.Params.Bumps != derived.Bumps {
		t.Fatalf("bumps not computed: got %+v want %+v", resolved.Params.Bumps, derived.Bumps)
	}
	if len(resolved.Collections) != 2 || !resolved.Collections[0].HasCap || resolved.Collections[0].Cap != 1000 {
		t.Fatalf("unexpected collections: %+v", resolved.Collections)
	}
	if resolved.Collections[1].HasCap || resolved.Collections[1].Role != issuance.RoleScammed {
		t.Fatalf("unexpected scammed collection: %+v", resolved.Collections[1])
	}
	if len(resolved.Allocations) != 1 || resolved.Allocations[0].Address != testHolder {
		t.Fatalf("unexpected allocations: %+v", resolved.Allocations)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, fmt.Sprintf("Program = %q\nAdmin = %q\nFeeRate = 10\n", testProgram, testAdmin))
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "FeeRate") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultRoundTrip(t *testing.T) {
	cfg, err := Default(testProgram, testAdmin, 3)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	path := filepath.Join(t.TempDir(), "nested", "deployment.toml")
	if err := Persist(path, cfg); err != nil {
		t.Fatalf("persist: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Bumps == nil || *loaded.Bumps != *cfg.Bumps {
		t.Fatalf("bumps lost in round trip: %+v", loaded.Bumps)
	}
	if loaded.Admin != testAdmin.String() {
		t.Fatalf("admin lost in round trip: %s", loaded.Admin)
	}
}

func TestValidateDeployment(t *testing.T) {
	base := func() *Deployment {
		return &Deployment{
			Program: testProgram.String(),
			Admin:   testAdmin.String(),
			Collections: []Collection{
				{Role: "standard", ID: testStandard.String(), Name: "a", URI: "b"},
			},
			Allocations: []Allocation{{Address: testHolder.String(), Amount: 1}},
		}
	}
	if err := ValidateDeployment(base()); err != nil {
		t.Fatalf("base deployment rejected: %v", err)
	}

	cases := map[string]func(*Deployment){
		"missing program": func(d *Deployment) { d.Program = "" },
		"bad admin":       func(d *Deployment) { d.Admin = "not-base58-0OIl" },
		"bad split": func(d *Deployment) {
			d.Fees = &issuance.FeeSettings{RateBps: 100, TreasuryPercent: 10, AntiscamPercent: 10}
		},
		"rate ceiling": func(d *Deployment) {
			d.Fees = &issuance.FeeSettings{RateBps: 6000, TreasuryPercent: 50, AntiscamPercent: 50}
		},
		"below floor":       func(d *Deployment) { d.MinimumPayment = 1 },
		"unknown role":      func(d *Deployment) { d.Collections[0].Role = "premium" },
		"duplicate role":    func(d *Deployment) { d.Collections = append(d.Collections, d.Collections[0]) },
		"missing uri":       func(d *Deployment) { d.Collections[0].URI = " " },
		"zero allocation":   func(d *Deployment) { d.Allocations[0].Amount = 0 },
		"duplicate address": func(d *Deployment) { d.Allocations = append(d.Allocations, d.Allocations[0]) },
		"non canonical bump": func(d *Deployment) {
			derived, _ := issuance.DeriveAuthorities(testProgram, 0)
			bumps := derived.Bumps
			bumps.Antiscam++
			d.Bumps = &bumps
		},
	}
	for name, mutate := range cases {
		d := base()
		mutate(d)
		if err := ValidateDeployment(d); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
