package issuance

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"chronicles/core/events"
	"chronicles/crypto"
)

// Initialize creates the deployment configuration with caller as admin.
// Declared bumps must match the canonical derivation. A second call fails
// with ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, caller crypto.Identity, params InitializeParams) (*Configuration, error) {
	var cfg *Configuration
	err := e.observe(ctx, "initialize", []attribute.KeyValue{attribute.Int64("seed", int64(e.seed))}, func(ctx context.Context) error {
		derived, err := VerifyAuthorities(e.program, e.seed, params.Bumps)
		if err != nil {
			return err
		}
		built, err := newConfiguration(caller, e.seed, derived, params)
		if err != nil {
			return err
		}
		err = e.update(ctx, func(st engineState, buf *eventBuffer) error {
			if err := e.configs.Create(st, built); err != nil {
				return err
			}
			buf.add(events.IssuanceInitialized{
				Config:    derived.Config,
				Admin:     caller,
				Authority: derived.Authority,
				Treasury:  derived.Treasury,
				Antiscam:  derived.Antiscam,
				Seed:      e.seed,
			})
			return nil
		})
		if err != nil {
			return err
		}
		cfg = built
		e.logger.InfoContext(ctx, "issuance deployment initialized",
			"config", derived.Config.String(),
			"admin", caller.String(),
			"seed", e.seed)
		return nil
	})
	return cfg, err
}

// UpdateFeeSettings replaces the fee rate and split. Checks run in order:
// admin, distribution, rate ceiling. The configuration is untouched on
// failure.
func (e *Engine) UpdateFeeSettings(ctx context.Context, caller crypto.Identity, fees FeeSettings) (*Configuration, error) {
	return e.mutateConfig(ctx, "update_fee_settings", nil, func(_ engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := applyFeeSettings(cfg, caller, fees); err != nil {
			return err
		}
		buf.add(events.FeeSettingsUpdated{
			RateBps:         cfg.FeeRateBps,
			TreasuryPercent: cfg.TreasuryPercent,
			AntiscamPercent: cfg.AntiscamPercent,
		})
		return nil
	})
}

// UpdateMinimumPayment sets the amount fees are computed from.
func (e *Engine) UpdateMinimumPayment(ctx context.Context, caller crypto.Identity, value uint64) (*Configuration, error) {
	return e.mutateConfig(ctx, "update_minimum_payment", nil, func(_ engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := applyMinimumPayment(cfg, caller, value); err != nil {
			return err
		}
		buf.add(events.MinimumPaymentUpdated{Amount: value})
		return nil
	})
}

// TogglePaused flips the circuit breaker and returns the new state.
func (e *Engine) TogglePaused(ctx context.Context, caller crypto.Identity) (bool, error) {
	var paused bool
	_, err := e.mutateConfig(ctx, "toggle_paused", nil, func(_ engineState, cfg *Configuration, buf *eventBuffer) error {
		next, err := applyTogglePaused(cfg, caller)
		if err != nil {
			return err
		}
		paused = next
		buf.add(events.PauseToggled{Paused: next})
		return nil
	})
	if err != nil {
		return false, err
	}
	if e.metrics != nil {
		e.metrics.SetPaused(paused)
	}
	return paused, nil
}

// mutateConfig loads, mutates and saves the configuration in one unit of
// work.
func (e *Engine) mutateConfig(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(st engineState, cfg *Configuration, buf *eventBuffer) error) (*Configuration, error) {
	var out *Configuration
	err := e.observe(ctx, op, attrs, func(ctx context.Context) error {
		return e.update(ctx, func(st engineState, buf *eventBuffer) error {
			cfg, err := e.configs.Load(st)
			if err != nil {
				return err
			}
			if err := fn(st, cfg, buf); err != nil {
				return err
			}
			if err := e.configs.Save(st, cfg); err != nil {
				return err
			}
			out = cfg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
