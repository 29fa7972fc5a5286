package assets

import "chronicles/crypto"

// PluginKind enumerates the plugins the engine understands.
type PluginKind uint8

const (
	PluginAttributes PluginKind = iota + 1
	PluginFreezeDelegate
	PluginRoyalties
	PluginMasterEdition
)

func (k PluginKind) String() string {
	switch k {
	case PluginAttributes:
		return "attributes"
	case PluginFreezeDelegate:
		return "freeze_delegate"
	case PluginRoyalties:
		return "royalties"
	case PluginMasterEdition:
		return "master_edition"
	default:
		return "unknown"
	}
}

// Attribute is a single key/value pair of an Attributes plugin.
type Attribute struct {
	Key   string `cbor:"1,keyasint" json:"key"`
	Value string `cbor:"2,keyasint" json:"value"`
}

// Creator is a royalty recipient and its share in percent.
type Creator struct {
	Address    crypto.Identity `cbor:"1,keyasint" json:"address"`
	Percentage uint8           `cbor:"2,keyasint" json:"percentage"`
}

// Plugin is a tagged union; only the fields relevant to Kind are populated.
type Plugin struct {
	Kind      PluginKind      `cbor:"1,keyasint" json:"kind"`
	Authority crypto.Identity `cbor:"2,keyasint" json:"authority"`

	Attributes []Attribute `cbor:"3,keyasint,omitempty" json:"attributes,omitempty"`

	Frozen bool `cbor:"4,keyasint,omitempty" json:"frozen,omitempty"`

	BasisPoints uint16    `cbor:"5,keyasint,omitempty" json:"basisPoints,omitempty"`
	Creators    []Creator `cbor:"6,keyasint,omitempty" json:"creators,omitempty"`

	HasMaxSupply bool   `cbor:"7,keyasint,omitempty" json:"hasMaxSupply,omitempty"`
	MaxSupply    uint64 `cbor:"8,keyasint,omitempty" json:"maxSupply,omitempty"`
	EditionName  string `cbor:"9,keyasint,omitempty" json:"editionName,omitempty"`
	EditionURI   string `cbor:"10,keyasint,omitempty" json:"editionUri,omitempty"`
}

// Collection groups assets under a shared update authority.
type Collection struct {
	ID              crypto.Identity `cbor:"1,keyasint" json:"id"`
	UpdateAuthority crypto.Identity `cbor:"2,keyasint" json:"updateAuthority"`
	Name            string          `cbor:"3,keyasint" json:"name"`
	URI             string          `cbor:"4,keyasint" json:"uri"`
	NumMinted       uint64          `cbor:"5,keyasint" json:"numMinted"`
	CurrentSize     uint64          `cbor:"6,keyasint" json:"currentSize"`
	Plugins         []Plugin        `cbor:"7,keyasint,omitempty" json:"plugins,omitempty"`
	CreatedAt       int64           `cbor:"8,keyasint" json:"createdAt"`
}

// Asset is a single issued instance.
type Asset struct {
	ID         crypto.Identity `cbor:"1,keyasint" json:"id"`
	Collection crypto.Identity `cbor:"2,keyasint" json:"collection"`
	Owner      crypto.Identity `cbor:"3,keyasint" json:"owner"`
	Name       string          `cbor:"4,keyasint" json:"name"`
	URI        string          `cbor:"5,keyasint" json:"uri"`
	Plugins    []Plugin        `cbor:"6,keyasint,omitempty" json:"plugins,omitempty"`
	CreatedAt  int64           `cbor:"7,keyasint" json:"createdAt"`
}

// Plugin returns the plugin of the given kind, if attached.
func (a *Asset) Plugin(kind PluginKind) (*Plugin, bool) {
	return findPlugin(a.Plugins, kind)
}

// Plugin returns the collection plugin of the given kind, if attached.
func (c *Collection) Plugin(kind PluginKind) (*Plugin, bool) {
	return findPlugin(c.Plugins, kind)
}

// AttributeMap flattens the Attributes plugin, if any.
func (a *Asset) AttributeMap() map[string]string {
	out := make(map[string]string)
	if p, ok := a.Plugin(PluginAttributes); ok {
		for _, attr := range p.Attributes {
			out[attr.Key] = attr.Value
		}
	}
	return out
}

// Frozen reports whether a freeze delegate currently holds the asset.
func (a *Asset) Frozen() bool {
	p, ok := a.Plugin(PluginFreezeDelegate)
	return ok && p.Frozen
}

func findPlugin(plugins []Plugin, kind PluginKind) (*Plugin, bool) {
	for i := range plugins {
		if plugins[i].Kind == kind {
			return &plugins[i], true
		}
	}
	return nil, false
}
