package genesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"chronicles/config"
	"chronicles/core/state"
	"chronicles/native/assets"
	"chronicles/native/bank"
	"chronicles/native/issuance"
)

var allocationsKey = []byte("genesis/allocations")

// Report summarises what Apply changed.
type Report struct {
	Initialized        bool
	CollectionsCreated int
	AllocationsApplied bool
}

// Apply brings a store up to the deployment described by resolved. It is
// safe to run on every start: an existing configuration, existing
// collections and already-credited allocations are left alone.
func Apply(ctx context.Context, engine *issuance.Engine, store *state.Store, resolved *config.Resolved, logger *slog.Logger) (Report, error) {
	var report Report
	if engine == nil || store == nil || resolved == nil {
		return report, fmt.Errorf("genesis: engine, store and deployment are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if engine.Program() != resolved.Program || engine.Seed() != resolved.Seed {
		return report, fmt.Errorf("genesis: engine deployment %s/%d does not match file %s/%d",
			engine.Program(), engine.Seed(), resolved.Program, resolved.Seed)
	}

	// 1) Configuration
	_, err := engine.Initialize(ctx, resolved.Admin, resolved.Params)
	switch {
	case err == nil:
		report.Initialized = true
	case errors.Is(err, issuance.ErrAlreadyInitialized):
		logger.InfoContext(ctx, "deployment already initialized")
	default:
		return report, fmt.Errorf("genesis: initialize: %w", err)
	}

	// 2) Collections (standard first)
	collections := append([]issuance.CreateCollectionParams(nil), resolved.Collections...)
	sort.SliceStable(collections, func(i, j int) bool { return collections[i].Role < collections[j].Role })
	for _, params := range collections {
		_, err := engine.CreateCollection(ctx, resolved.Admin, params)
		switch {
		case err == nil:
			report.CollectionsCreated++
		case errors.Is(err, assets.ErrCollectionExists):
		default:
			return report, fmt.Errorf("genesis: collection %s: %w", params.ID, err)
		}
	}

	// 3) Allocations (sorted by address, credited once)
	allocations := append([]config.ResolvedAllocation(nil), resolved.Allocations...)
	sort.Slice(allocations, func(i, j int) bool {
		return bytes.Compare(allocations[i].Address[:], allocations[j].Address[:]) < 0
	})
	err = store.Update(ctx, func(m *state.Manager) error {
		if err := m.KVCreate(allocationsKey, uint64(len(allocations))); err != nil {
			return err
		}
		for _, alloc := range allocations {
			if err := bank.Credit(m, alloc.Address, alloc.Amount); err != nil {
				return fmt.Errorf("alloc[%s]: %w", alloc.Address, err)
			}
		}
		return nil
	})
	switch {
	case err == nil:
		report.AllocationsApplied = true
	case errors.Is(err, state.ErrKeyExists):
	default:
		return report, fmt.Errorf("genesis: allocations: %w", err)
	}

	logger.InfoContext(ctx, "genesis applied",
		"initialized", report.Initialized,
		"collections_created", report.CollectionsCreated,
		"allocations_applied", report.AllocationsApplied)
	return report, nil
}
