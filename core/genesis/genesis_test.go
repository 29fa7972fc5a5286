package genesis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"chronicles/config"
	"chronicles/core/state"
	"chronicles/crypto"
	"chronicles/native/issuance"
	"chronicles/storage"
)

var (
	testProgram  = crypto.Identity{0x70, 0x02}
	testAdmin    = crypto.Identity{0xad, 0x02}
	testStandard = crypto.Identity{0x51, 0x02}
	testScammed  = crypto.Identity{0x5c, 0x02}
	holderA      = crypto.Identity{0x0a}
	holderB      = crypto.Identity{0x0b}
)

func testDeployment(t *testing.T) *config.Resolved {
	t.Helper()
	deployment, err := config.Default(testProgram, testAdmin, 4)
	if err != nil {
		t.Fatalf("default deployment: %v", err)
	}
	deployment.Collections = []config.Collection{
		{Role: "scammed", ID: testScammed.String(), Name: "Scammed Chronicles", URI: "https://chronicles.invalid/scammed.json"},
		{Role: "standard", ID: testStandard.String(), Name: "Rug Pull Chronicles", URI: "https://chronicles.invalid/standard.json", Cap: 100},
	}
	deployment.Allocations = []config.Allocation{
		{Address: holderB.String(), Amount: 200},
		{Address: holderA.String(), Amount: 100},
	}
	resolved, err := deployment.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return resolved
}

func newEngine(t *testing.T) (*issuance.Engine, *state.Store) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	store := state.NewStore(db)
	engine, err := issuance.NewEngine(testProgram, 4)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetStore(store)
	engine.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return engine, store
}

func TestApplyBootstrapsDeployment(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)
	resolved := testDeployment(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	report, err := Apply(ctx, engine, store, resolved, logger)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !report.Initialized || report.CollectionsCreated != 2 || !report.AllocationsApplied {
		t.Fatalf("unexpected report: %+v", report)
	}

	cfg, err := engine.Config(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Admin != testAdmin {
		t.Fatalf("unexpected admin %s", cfg.Admin)
	}
	if cfg.Standard.ID != testStandard || !cfg.Standard.HasCap || cfg.Standard.Cap != 100 {
		t.Fatalf("standard collection not bound: %+v", cfg.Standard)
	}
	if cfg.Scammed.ID != testScammed || cfg.Scammed.HasCap {
		t.Fatalf("scammed collection not bound: %+v", cfg.Scammed)
	}
	for id, want := range map[crypto.Identity]uint64{holderA: 100, holderB: 200} {
		got, err := engine.Balance(ctx, id)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if got != want {
			t.Fatalf("balance of %s: got %d want %d", id, got, want)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)
	resolved := testDeployment(t)

	if _, err := Apply(ctx, engine, store, resolved, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	report, err := Apply(ctx, engine, store, resolved, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.Initialized || report.CollectionsCreated != 0 || report.AllocationsApplied {
		t.Fatalf("second apply changed state: %+v", report)
	}
	got, err := engine.Balance(ctx, holderA)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got != 100 {
		t.Fatalf("allocation credited twice: %d", got)
	}
}

func TestApplyRejectsMismatchedEngine(t *testing.T) {
	_, store := newEngine(t)
	other, err := issuance.NewEngine(testProgram, 5)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	other.SetStore(store)
	if _, err := Apply(context.Background(), other, store, testDeployment(t), nil); err == nil {
		t.Fatal("expected seed mismatch error")
	}
}
