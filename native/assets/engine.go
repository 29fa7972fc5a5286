package assets

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chronicles/crypto"
)

const (
	MaxNameLength       = 32
	MaxURILength        = 200
	MaxAttributes       = 32
	MaxAttributeKey     = 64
	MaxAttributeValue   = 256
	MaxRoyaltyBasisPts  = 10_000
	MaxRoyaltyCreators  = 5
	royaltyPercentTotal = 100
)

var (
	ErrNotFound          = errors.New("assets: record not found")
	ErrAssetExists       = errors.New("assets: asset already exists")
	ErrCollectionExists  = errors.New("assets: collection already exists")
	ErrInvalidAuthority  = errors.New("assets: invalid authority")
	ErrPluginExists      = errors.New("assets: plugin already attached")
	ErrPluginNotFound    = errors.New("assets: plugin not attached")
	ErrInvalidPlugin     = errors.New("assets: invalid plugin")
	ErrInvalidMetadata   = errors.New("assets: invalid name or uri")
	ErrCollectionMissing = errors.New("assets: collection does not exist")
)

var (
	collectionPrefix = []byte("assets/collection/")
	assetPrefix      = []byte("assets/asset/")
)

// State is the raw byte store the engine persists its CBOR records in.
type State interface {
	RawGet(key []byte) ([]byte, error)
	RawPut(key, value []byte) error
}

// Engine is an in-process asset engine: it owns collections, assets and
// their plugins, and enforces existence and authority on every call. It
// keeps no state of its own; every call operates on the supplied State.
type Engine struct {
	nowFn func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{nowFn: time.Now}
}

// SetNowFunc overrides the clock used for creation timestamps.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now != nil {
		e.nowFn = now
	}
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn().Unix()
}

// CreateCollectionParams describes a new collection.
type CreateCollectionParams struct {
	ID              crypto.Identity
	UpdateAuthority crypto.Identity
	Name            string
	URI             string
	Plugins         []Plugin
}

// CreateAssetParams describes a new asset. Authority must be the update
// authority of the target collection.
type CreateAssetParams struct {
	ID         crypto.Identity
	Collection crypto.Identity
	Authority  crypto.Identity
	Owner      crypto.Identity
	Name       string
	URI        string
	Plugins    []Plugin
}

// CreateCollection stores a new collection.
func (e *Engine) CreateCollection(st State, params CreateCollectionParams) error {
	if params.ID.IsZero() || params.UpdateAuthority.IsZero() {
		return fmt.Errorf("%w: collection and authority required", ErrInvalidAuthority)
	}
	if err := validateMetadata(params.Name, params.URI); err != nil {
		return err
	}
	existing, err := e.Collection(st, params.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrCollectionExists, params.ID)
	}
	for _, plugin := range params.Plugins {
		if err := validateCollectionPlugin(plugin); err != nil {
			return err
		}
	}
	plugins, err := mergePlugins(nil, params.Plugins)
	if err != nil {
		return err
	}
	collection := &Collection{
		ID:              params.ID,
		UpdateAuthority: params.UpdateAuthority,
		Name:            params.Name,
		URI:             params.URI,
		Plugins:         plugins,
		CreatedAt:       e.now(),
	}
	return e.putCollection(st, collection)
}

// CreateAsset issues a new asset into an existing collection.
func (e *Engine) CreateAsset(st State, params CreateAssetParams) error {
	if params.ID.IsZero() || params.Owner.IsZero() {
		return fmt.Errorf("%w: asset and owner required", ErrInvalidMetadata)
	}
	if err := validateMetadata(params.Name, params.URI); err != nil {
		return err
	}
	collection, err := e.Collection(st, params.Collection)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCollectionMissing, params.Collection)
	}
	if err != nil {
		return err
	}
	if params.Authority != collection.UpdateAuthority {
		return fmt.Errorf("%w: %s is not the collection update authority", ErrInvalidAuthority, params.Authority)
	}
	existing, err := e.Asset(st, params.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAssetExists, params.ID)
	}
	for _, plugin := range params.Plugins {
		if err := validateAssetPlugin(plugin); err != nil {
			return err
		}
	}
	plugins, err := mergePlugins(nil, params.Plugins)
	if err != nil {
		return err
	}
	asset := &Asset{
		ID:         params.ID,
		Collection: params.Collection,
		Owner:      params.Owner,
		Name:       params.Name,
		URI:        params.URI,
		Plugins:    plugins,
		CreatedAt:  e.now(),
	}
	collection.NumMinted++
	collection.CurrentSize++
	if err := e.putAsset(st, asset); err != nil {
		return err
	}
	return e.putCollection(st, collection)
}

// AddPlugin attaches a new plugin to an asset. Authority-managed plugins
// (Attributes) require the collection update authority; owner-managed
// plugins (FreezeDelegate) require the asset owner. For FreezeDelegate the
// plugin's Authority names the delegate and defaults to the owner.
func (e *Engine) AddPlugin(st State, assetID, authority crypto.Identity, plugin Plugin) error {
	asset, collection, err := e.assetWithCollection(st, assetID)
	if err != nil {
		return err
	}
	if err := validateAssetPlugin(plugin); err != nil {
		return err
	}
	if _, exists := asset.Plugin(plugin.Kind); exists {
		return fmt.Errorf("%w: %s on %s", ErrPluginExists, plugin.Kind, assetID)
	}
	switch plugin.Kind {
	case PluginAttributes:
		if authority != collection.UpdateAuthority {
			return fmt.Errorf("%w: attributes require the update authority", ErrInvalidAuthority)
		}
		plugin.Authority = collection.UpdateAuthority
	case PluginFreezeDelegate:
		if authority != asset.Owner {
			return fmt.Errorf("%w: freeze delegate requires the owner", ErrInvalidAuthority)
		}
		if plugin.Authority.IsZero() {
			plugin.Authority = asset.Owner
		}
	}
	asset.Plugins = append(asset.Plugins, plugin)
	return e.putAsset(st, asset)
}

// UpdatePlugin replaces the mutable fields of an attached plugin. Only the
// plugin authority may update it.
func (e *Engine) UpdatePlugin(st State, assetID, authority crypto.Identity, update Plugin) error {
	asset, _, err := e.assetWithCollection(st, assetID)
	if err != nil {
		return err
	}
	current, ok := asset.Plugin(update.Kind)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrPluginNotFound, update.Kind, assetID)
	}
	if authority != current.Authority {
		return fmt.Errorf("%w: %s does not control %s", ErrInvalidAuthority, authority, update.Kind)
	}
	switch update.Kind {
	case PluginAttributes:
		if err := validateAssetPlugin(update); err != nil {
			return err
		}
		current.Attributes = append([]Attribute(nil), update.Attributes...)
	case PluginFreezeDelegate:
		current.Frozen = update.Frozen
	default:
		return fmt.Errorf("%w: %s is not updatable on assets", ErrInvalidPlugin, update.Kind)
	}
	return e.putAsset(st, asset)
}

// AddCollectionPlugin attaches a plugin to a collection. Requires the
// collection update authority.
func (e *Engine) AddCollectionPlugin(st State, collectionID, authority crypto.Identity, plugin Plugin) error {
	collection, err := e.Collection(st, collectionID)
	if err != nil {
		return err
	}
	if authority != collection.UpdateAuthority {
		return fmt.Errorf("%w: %s is not the collection update authority", ErrInvalidAuthority, authority)
	}
	if err := validateCollectionPlugin(plugin); err != nil {
		return err
	}
	plugins, err := mergePlugins(collection.Plugins, []Plugin{plugin})
	if err != nil {
		return err
	}
	collection.Plugins = plugins
	return e.putCollection(st, collection)
}

// UpdateCollection replaces the collection name and/or uri. Empty values are
// left unchanged.
func (e *Engine) UpdateCollection(st State, collectionID, authority crypto.Identity, name, uri string) error {
	collection, err := e.Collection(st, collectionID)
	if err != nil {
		return err
	}
	if authority != collection.UpdateAuthority {
		return fmt.Errorf("%w: %s is not the collection update authority", ErrInvalidAuthority, authority)
	}
	if name != "" {
		collection.Name = name
	}
	if uri != "" {
		collection.URI = uri
	}
	if err := validateMetadata(collection.Name, collection.URI); err != nil {
		return err
	}
	return e.putCollection(st, collection)
}

// Collection loads a collection by id.
func (e *Engine) Collection(st State, id crypto.Identity) (*Collection, error) {
	data, err := st.RawGet(recordKey(collectionPrefix, id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, id)
	}
	collection := new(Collection)
	if err := decode(data, collection); err != nil {
		return nil, fmt.Errorf("assets: decode collection %s: %w", id, err)
	}
	return collection, nil
}

// Asset loads an asset by id.
func (e *Engine) Asset(st State, id crypto.Identity) (*Asset, error) {
	data, err := st.RawGet(recordKey(assetPrefix, id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id)
	}
	asset := new(Asset)
	if err := decode(data, asset); err != nil {
		return nil, fmt.Errorf("assets: decode asset %s: %w", id, err)
	}
	return asset, nil
}

func (e *Engine) assetWithCollection(st State, assetID crypto.Identity) (*Asset, *Collection, error) {
	asset, err := e.Asset(st, assetID)
	if err != nil {
		return nil, nil, err
	}
	collection, err := e.Collection(st, asset.Collection)
	if err != nil {
		return nil, nil, err
	}
	return asset, collection, nil
}

func (e *Engine) putCollection(st State, collection *Collection) error {
	data, err := encode(collection)
	if err != nil {
		return fmt.Errorf("assets: encode collection: %w", err)
	}
	return st.RawPut(recordKey(collectionPrefix, collection.ID), data)
}

func (e *Engine) putAsset(st State, asset *Asset) error {
	data, err := encode(asset)
	if err != nil {
		return fmt.Errorf("assets: encode asset: %w", err)
	}
	return st.RawPut(recordKey(assetPrefix, asset.ID), data)
}

func recordKey(prefix []byte, id crypto.Identity) []byte {
	buf := make([]byte, len(prefix)+crypto.IdentityLength)
	copy(buf, prefix)
	copy(buf[len(prefix):], id[:])
	return buf
}

func mergePlugins(existing, added []Plugin) ([]Plugin, error) {
	out := append([]Plugin(nil), existing...)
	for _, plugin := range added {
		if _, ok := findPlugin(out, plugin.Kind); ok {
			return nil, fmt.Errorf("%w: %s", ErrPluginExists, plugin.Kind)
		}
		out = append(out, plugin)
	}
	return out, nil
}

func validateMetadata(name, uri string) error {
	name = strings.TrimSpace(name)
	uri = strings.TrimSpace(uri)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrInvalidMetadata, MaxNameLength)
	}
	if uri == "" || len(uri) > MaxURILength {
		return fmt.Errorf("%w: uri must be 1..%d bytes", ErrInvalidMetadata, MaxURILength)
	}
	return nil
}

func validateAssetPlugin(plugin Plugin) error {
	switch plugin.Kind {
	case PluginAttributes:
		if len(plugin.Attributes) == 0 || len(plugin.Attributes) > MaxAttributes {
			return fmt.Errorf("%w: attributes must hold 1..%d entries", ErrInvalidPlugin, MaxAttributes)
		}
		for _, attr := range plugin.Attributes {
			if attr.Key == "" || len(attr.Key) > MaxAttributeKey || len(attr.Value) > MaxAttributeValue {
				return fmt.Errorf("%w: attribute %q out of bounds", ErrInvalidPlugin, attr.Key)
			}
		}
		return nil
	case PluginFreezeDelegate:
		return nil
	default:
		return fmt.Errorf("%w: %s cannot be attached to an asset", ErrInvalidPlugin, plugin.Kind)
	}
}

func validateCollectionPlugin(plugin Plugin) error {
	switch plugin.Kind {
	case PluginRoyalties:
		if plugin.BasisPoints > MaxRoyaltyBasisPts {
			return fmt.Errorf("%w: royalty basis points %d exceed %d", ErrInvalidPlugin, plugin.BasisPoints, MaxRoyaltyBasisPts)
		}
		if len(plugin.Creators) == 0 || len(plugin.Creators) > MaxRoyaltyCreators {
			return fmt.Errorf("%w: royalties need 1..%d creators", ErrInvalidPlugin, MaxRoyaltyCreators)
		}
		total := 0
		for _, creator := range plugin.Creators {
			if creator.Address.IsZero() {
				return fmt.Errorf("%w: creator address required", ErrInvalidPlugin)
			}
			total += int(creator.Percentage)
		}
		if total != royaltyPercentTotal {
			return fmt.Errorf("%w: creator shares sum to %d", ErrInvalidPlugin, total)
		}
		return nil
	case PluginMasterEdition:
		if plugin.HasMaxSupply && plugin.MaxSupply == 0 {
			return fmt.Errorf("%w: master edition max supply must be positive", ErrInvalidPlugin)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s cannot be attached to a collection", ErrInvalidPlugin, plugin.Kind)
	}
}
