package issuance

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"chronicles/core/events"
	"chronicles/crypto"
	"chronicles/native/assets"
)

// AddFreezeDelegate attaches a FreezeDelegate plugin to an asset owned by
// caller. A zero delegate leaves the owner in control. Freeze controls are
// not gated by the pause flag.
func (e *Engine) AddFreezeDelegate(ctx context.Context, caller, asset crypto.Identity, frozen bool, delegate crypto.Identity) error {
	return e.assetOp(ctx, "add_freeze_delegate", asset, func(st engineState, buf *eventBuffer) error {
		plugin := assets.Plugin{
			Kind:      assets.PluginFreezeDelegate,
			Authority: delegate,
			Frozen:    frozen,
		}
		if err := e.assets.AddPlugin(st, asset, caller, plugin); err != nil {
			return err
		}
		effective := delegate
		if effective.IsZero() {
			effective = caller
		}
		buf.add(events.FreezeDelegateAdded{Asset: asset, Delegate: effective, Frozen: frozen})
		return nil
	})
}

// FreezeAsset sets the frozen flag; caller must be the freeze delegate.
func (e *Engine) FreezeAsset(ctx context.Context, caller, asset crypto.Identity) error {
	return e.setFrozen(ctx, "freeze_asset", caller, asset, true)
}

// ThawAsset clears the frozen flag; caller must be the freeze delegate.
func (e *Engine) ThawAsset(ctx context.Context, caller, asset crypto.Identity) error {
	return e.setFrozen(ctx, "thaw_asset", caller, asset, false)
}

func (e *Engine) setFrozen(ctx context.Context, op string, caller, asset crypto.Identity, frozen bool) error {
	return e.assetOp(ctx, op, asset, func(st engineState, buf *eventBuffer) error {
		update := assets.Plugin{Kind: assets.PluginFreezeDelegate, Frozen: frozen}
		if err := e.assets.UpdatePlugin(st, asset, caller, update); err != nil {
			return err
		}
		buf.add(events.AssetFreezeChanged{Asset: asset, Frozen: frozen})
		return nil
	})
}

// assetOp runs fn against an initialized deployment without touching the
// configuration.
func (e *Engine) assetOp(ctx context.Context, op string, asset crypto.Identity, fn func(st engineState, buf *eventBuffer) error) error {
	attrs := []attribute.KeyValue{attribute.String("asset", asset.String())}
	return e.observe(ctx, op, attrs, func(ctx context.Context) error {
		return e.update(ctx, func(st engineState, buf *eventBuffer) error {
			if _, err := e.configs.Load(st); err != nil {
				return err
			}
			return fn(st, buf)
		})
	})
}
