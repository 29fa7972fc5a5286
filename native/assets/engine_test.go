package assets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chronicles/crypto"
)

type memoryState struct {
	data map[string][]byte
}

func newMemoryState() *memoryState {
	return &memoryState{data: make(map[string][]byte)}
}

func (m *memoryState) RawGet(key []byte) ([]byte, error) {
	return m.data[string(key)], nil
}

func (m *memoryState) RawPut(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

var (
	authority  = crypto.Identity{0xa1}
	owner      = crypto.Identity{0x0e}
	collection = crypto.Identity{0xc0}
	assetID    = crypto.Identity{0xa5}
)

func newEngineWithCollection(t *testing.T) (*Engine, *memoryState) {
	t.Helper()
	engine := NewEngine()
	engine.SetNowFunc(func() time.Time { return time.Unix(1700000000, 0) })
	st := newMemoryState()
	require.NoError(t, engine.CreateCollection(st, CreateCollectionParams{
		ID:              collection,
		UpdateAuthority: authority,
		Name:            "Chronicles",
		URI:             "https://example.invalid/collection.json",
		Plugins: []Plugin{{
			Kind:         PluginMasterEdition,
			HasMaxSupply: true,
			MaxSupply:    10,
		}},
	}))
	return engine, st
}

func TestCreateAssetRequiresCollectionAuthority(t *testing.T) {
	engine, st := newEngineWithCollection(t)
	params := CreateAssetParams{
		ID:         assetID,
		Collection: collection,
		Authority:  owner,
		Owner:      owner,
		Name:       "Chronicle #1",
		URI:        "https://example.invalid/1.json",
	}
	require.ErrorIs(t, engine.CreateAsset(st, params), ErrInvalidAuthority)

	params.Authority = authority
	require.NoError(t, engine.CreateAsset(st, params))
	require.ErrorIs(t, engine.CreateAsset(st, params), ErrAssetExists)

	stored, err := engine.Asset(st, assetID)
	require.NoError(t, err)
	require.Equal(t, owner, stored.Owner)
	require.Equal(t, int64(1700000000), stored.CreatedAt)

	coll, err := engine.Collection(st, collection)
	require.NoError(t, err)
	require.Equal(t, uint64(1), coll.NumMinted)
	edition, ok := coll.Plugin(PluginMasterEdition)
	require.True(t, ok)
	require.Equal(t, uint64(10), edition.MaxSupply)
}

func TestCreateAssetUnknownCollection(t *testing.T) {
	engine := NewEngine()
	err := engine.CreateAsset(newMemoryState(), CreateAssetParams{
		ID:         assetID,
		Collection: collection,
		Authority:  authority,
		Owner:      owner,
		Name:       "x",
		URI:        "y",
	})
	require.ErrorIs(t, err, ErrCollectionMissing)
}

func TestAttributesAndFreezeDelegateAuthority(t *testing.T) {
	engine, st := newEngineWithCollection(t)
	require.NoError(t, engine.CreateAsset(st, CreateAssetParams{
		ID: assetID, Collection: collection, Authority: authority, Owner: owner,
		Name: "Chronicle #1", URI: "https://example.invalid/1.json",
	}))

	attrs := Plugin{Kind: PluginAttributes, Attributes: []Attribute{{Key: "id", Value: "1"}}}
	require.ErrorIs(t, engine.AddPlugin(st, assetID, owner, attrs), ErrInvalidAuthority)
	require.NoError(t, engine.AddPlugin(st, assetID, authority, attrs))
	require.ErrorIs(t, engine.AddPlugin(st, assetID, authority, attrs), ErrPluginExists)

	delegate := crypto.Identity{0xde}
	freeze := Plugin{Kind: PluginFreezeDelegate, Authority: delegate}
	require.ErrorIs(t, engine.AddPlugin(st, assetID, authority, freeze), ErrInvalidAuthority)
	require.NoError(t, engine.AddPlugin(st, assetID, owner, freeze))

	require.ErrorIs(t, engine.UpdatePlugin(st, assetID, owner, Plugin{Kind: PluginFreezeDelegate, Frozen: true}), ErrInvalidAuthority)
	require.NoError(t, engine.UpdatePlugin(st, assetID, delegate, Plugin{Kind: PluginFreezeDelegate, Frozen: true}))

	stored, err := engine.Asset(st, assetID)
	require.NoError(t, err)
	require.True(t, stored.Frozen())
	require.Equal(t, "1", stored.AttributeMap()["id"])
}

func TestRoyaltiesValidation(t *testing.T) {
	engine, st := newEngineWithCollection(t)
	bad := Plugin{Kind: PluginRoyalties, BasisPoints: 500, Creators: []Creator{{Address: owner, Percentage: 90}}}
	require.ErrorIs(t, engine.AddCollectionPlugin(st, collection, authority, bad), ErrInvalidPlugin)

	good := Plugin{Kind: PluginRoyalties, BasisPoints: 500, Creators: []Creator{
		{Address: owner, Percentage: 60},
		{Address: authority, Percentage: 40},
	}}
	require.ErrorIs(t, engine.AddCollectionPlugin(st, collection, owner, good), ErrInvalidAuthority)
	require.NoError(t, engine.AddCollectionPlugin(st, collection, authority, good))
	require.ErrorIs(t, engine.AddCollectionPlugin(st, collection, authority, good), ErrPluginExists)
}

func TestUpdateCollectionMetadata(t *testing.T) {
	engine, st := newEngineWithCollection(t)
	require.ErrorIs(t, engine.UpdateCollection(st, collection, owner, "New", ""), ErrInvalidAuthority)
	require.NoError(t, engine.UpdateCollection(st, collection, authority, "New", ""))
	coll, err := engine.Collection(st, collection)
	require.NoError(t, err)
	require.Equal(t, "New", coll.Name)
	require.Equal(t, "https://example.invalid/collection.json", coll.URI)
}
