package issuance

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"chronicles/core/events"
	"chronicles/crypto"
	"chronicles/native/assets"
)

// CreateCollectionParams describes a collection created under the derived
// update authority. HasCap attaches a MasterEdition plugin carrying Cap.
// When Role is set the new collection is bound to that role immediately.
type CreateCollectionParams struct {
	ID          crypto.Identity
	Name        string
	URI         string
	HasCap      bool
	Cap         uint64
	EditionName string
	EditionURI  string
	Role        Role
}

// CreateCollection creates a collection in the asset engine with the
// derived authority as its update authority. If the collection is (or is
// being) bound to a role, the role's cached cap is refreshed.
func (e *Engine) CreateCollection(ctx context.Context, caller crypto.Identity, params CreateCollectionParams) (*Configuration, error) {
	attrs := []attribute.KeyValue{attribute.String("collection", params.ID.String())}
	return e.mutateConfig(ctx, "create_collection", attrs, func(st engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		if params.HasCap && params.Cap == 0 {
			return fmt.Errorf("%w: supply cap must be positive", ErrInvalidTraits)
		}
		var plugins []assets.Plugin
		if params.HasCap || params.EditionName != "" || params.EditionURI != "" {
			plugins = append(plugins, assets.Plugin{
				Kind:         assets.PluginMasterEdition,
				Authority:    cfg.Authority,
				HasMaxSupply: params.HasCap,
				MaxSupply:    params.Cap,
				EditionName:  params.EditionName,
				EditionURI:   params.EditionURI,
			})
		}
		if err := e.assets.CreateCollection(st, assets.CreateCollectionParams{
			ID:              params.ID,
			UpdateAuthority: cfg.Authority,
			Name:            params.Name,
			URI:             params.URI,
			Plugins:         plugins,
		}); err != nil {
			return err
		}

		role := params.Role
		if role == 0 {
			switch params.ID {
			case cfg.Standard.ID:
				role = RoleStandard
			case cfg.Scammed.ID:
				role = RoleScammed
			}
		}
		if role != 0 {
			ref, err := cfg.Collection(role)
			if err != nil {
				return err
			}
			*ref = CollectionRef{ID: params.ID, HasCap: params.HasCap, Cap: params.Cap}
		}
		roleName := ""
		if role != 0 {
			roleName = role.String()
		}
		buf.add(events.CollectionCreated{
			Role:       roleName,
			Collection: params.ID,
			Name:       params.Name,
			URI:        params.URI,
			HasCap:     params.HasCap,
			Cap:        params.Cap,
		})
		return nil
	})
}

// UpdateCollectionRef rebinds role to collection id. When the collection
// already exists its MasterEdition cap is cached on the reference; a
// collection that does not exist yet is bound without a cap. Minted
// counters are preserved across rebinding.
func (e *Engine) UpdateCollectionRef(ctx context.Context, caller crypto.Identity, role Role, id crypto.Identity) (*Configuration, error) {
	attrs := []attribute.KeyValue{
		attribute.String("role", role.String()),
		attribute.String("collection", id.String()),
	}
	return e.mutateConfig(ctx, "update_collection_ref", attrs, func(st engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		ref, err := cfg.Collection(role)
		if err != nil {
			return err
		}
		if id.IsZero() {
			return fmt.Errorf("%w: collection identity required", ErrCollectionNotSet)
		}
		next := CollectionRef{ID: id}
		collection, err := e.assets.Collection(st, id)
		switch {
		case errors.Is(err, assets.ErrNotFound):
		case err != nil:
			return err
		default:
			if collection.UpdateAuthority != cfg.Authority {
				return fmt.Errorf("%w: collection %s is not governed by %s", assets.ErrInvalidAuthority, id, cfg.Authority)
			}
			if edition, ok := collection.Plugin(assets.PluginMasterEdition); ok && edition.HasMaxSupply {
				next.HasCap = true
				next.Cap = edition.MaxSupply
			}
		}
		*ref = next
		buf.add(events.CollectionRefUpdated{
			Role:       role.String(),
			Collection: id,
			HasCap:     next.HasCap,
			Cap:        next.Cap,
		})
		return nil
	})
}

// UpdateCollectionMetadata renames the collection bound to role or replaces
// its uri. Empty values are left unchanged.
func (e *Engine) UpdateCollectionMetadata(ctx context.Context, caller crypto.Identity, role Role, name, uri string) (*Configuration, error) {
	return e.mutateConfig(ctx, "update_collection_metadata", []attribute.KeyValue{attribute.String("role", role.String())}, func(st engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		ref, err := boundCollection(cfg, role)
		if err != nil {
			return err
		}
		if err := e.assets.UpdateCollection(st, ref.ID, cfg.Authority, name, uri); err != nil {
			return err
		}
		buf.add(events.CollectionMetadataUpdated{Collection: ref.ID, Name: name, URI: uri})
		return nil
	})
}

// AddCollectionRoyalties records a royalty table on the standard collection.
// The table is informational; no transfer path enforces it.
func (e *Engine) AddCollectionRoyalties(ctx context.Context, caller crypto.Identity, basisPoints uint16, creators []assets.Creator) (*Configuration, error) {
	attrs := []attribute.KeyValue{attribute.Int("royalty.bps", int(basisPoints))}
	return e.mutateConfig(ctx, "add_collection_royalties", attrs, func(st engineState, cfg *Configuration, buf *eventBuffer) error {
		if err := requireAdmin(cfg, caller); err != nil {
			return err
		}
		ref, err := boundCollection(cfg, RoleStandard)
		if err != nil {
			return err
		}
		plugin := assets.Plugin{
			Kind:        assets.PluginRoyalties,
			Authority:   cfg.Authority,
			BasisPoints: basisPoints,
			Creators:    append([]assets.Creator(nil), creators...),
		}
		if err := e.assets.AddCollectionPlugin(st, ref.ID, cfg.Authority, plugin); err != nil {
			return err
		}
		buf.add(events.RoyaltiesAdded{Collection: ref.ID, BasisPoints: basisPoints, CreatorCount: len(creators)})
		return nil
	})
}

func boundCollection(cfg *Configuration, role Role) (*CollectionRef, error) {
	ref, err := cfg.Collection(role)
	if err != nil {
		return nil, err
	}
	if ref.ID.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotSet, role)
	}
	return ref, nil
}
