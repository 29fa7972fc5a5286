package events

import (
	"strconv"
	"time"

	"chronicles/core/types"
	"chronicles/crypto"
)

const (
	TypeIssuanceInitialized       = "issuance.initialized"
	TypeFeeSettingsUpdated        = "issuance.fees.updated"
	TypeMinimumPaymentUpdated     = "issuance.minimum_payment.updated"
	TypePauseToggled              = "issuance.pause.toggled"
	TypeCollectionCreated         = "issuance.collection.created"
	TypeCollectionRefUpdated      = "issuance.collection.ref_updated"
	TypeCollectionMetadataUpdated = "issuance.collection.metadata_updated"
	TypeRoyaltiesAdded            = "issuance.collection.royalties_added"
	TypeAssetMinted               = "issuance.asset.minted"
	TypeSupplyLow                 = "issuance.supply.low"
	TypeFreezeDelegateAdded       = "issuance.asset.freeze_delegate_added"
	TypeAssetFreezeChanged        = "issuance.asset.freeze_changed"
	TypeRuggedUserRegistered      = "issuance.rugged.registered"
	TypeRuggedUserVerified        = "issuance.rugged.verified"
)

// IssuanceInitialized is emitted once per deployment when the configuration
// record is created.
type IssuanceInitialized struct {
	Config    crypto.Identity
	Admin     crypto.Identity
	Authority crypto.Identity
	Treasury  crypto.Identity
	Antiscam  crypto.Identity
	Seed      uint64
}

func (IssuanceInitialized) EventType() string { return TypeIssuanceInitialized }

func (e IssuanceInitialized) Event() *types.Event {
	return &types.Event{Type: TypeIssuanceInitialized, Attributes: map[string]string{
		"config":    e.Config.String(),
		"admin":     e.Admin.String(),
		"authority": e.Authority.String(),
		"treasury":  e.Treasury.String(),
		"antiscam":  e.Antiscam.String(),
		"seed":      strconv.FormatUint(e.Seed, 10),
	}}
}

type FeeSettingsUpdated struct {
	RateBps         uint16
	TreasuryPercent uint8
	AntiscamPercent uint8
}

func (FeeSettingsUpdated) EventType() string { return TypeFeeSettingsUpdated }

func (e FeeSettingsUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFeeSettingsUpdated, Attributes: map[string]string{
		"rateBps":         strconv.FormatUint(uint64(e.RateBps), 10),
		"treasuryPercent": strconv.FormatUint(uint64(e.TreasuryPercent), 10),
		"antiscamPercent": strconv.FormatUint(uint64(e.AntiscamPercent), 10),
	}}
}

type MinimumPaymentUpdated struct {
	Amount uint64
}

func (MinimumPaymentUpdated) EventType() string { return TypeMinimumPaymentUpdated }

func (e MinimumPaymentUpdated) Event() *types.Event {
	return &types.Event{Type: TypeMinimumPaymentUpdated, Attributes: map[string]string{
		"amount": formatAmount(e.Amount),
	}}
}

type PauseToggled struct {
	Paused bool
}

func (PauseToggled) EventType() string { return TypePauseToggled }

func (e PauseToggled) Event() *types.Event {
	return &types.Event{Type: TypePauseToggled, Attributes: map[string]string{
		"paused": formatBool(e.Paused),
	}}
}

type CollectionCreated struct {
	Role       string
	Collection crypto.Identity
	Name       string
	URI        string
	HasCap     bool
	Cap        uint64
}

func (CollectionCreated) EventType() string { return TypeCollectionCreated }

func (e CollectionCreated) Event() *types.Event {
	attrs := map[string]string{
		"role":       normalizeRole(e.Role),
		"collection": e.Collection.String(),
		"name":       e.Name,
		"uri":        e.URI,
	}
	if e.HasCap {
		attrs["cap"] = formatAmount(e.Cap)
	}
	return &types.Event{Type: TypeCollectionCreated, Attributes: attrs}
}

type CollectionRefUpdated struct {
	Role       string
	Collection crypto.Identity
	HasCap     bool
	Cap        uint64
}

func (CollectionRefUpdated) EventType() string { return TypeCollectionRefUpdated }

func (e CollectionRefUpdated) Event() *types.Event {
	attrs := map[string]string{
		"role":       normalizeRole(e.Role),
		"collection": e.Collection.String(),
	}
	if e.HasCap {
		attrs["cap"] = formatAmount(e.Cap)
	}
	return &types.Event{Type: TypeCollectionRefUpdated, Attributes: attrs}
}

type CollectionMetadataUpdated struct {
	Collection crypto.Identity
	Name       string
	URI        string
}

func (CollectionMetadataUpdated) EventType() string { return TypeCollectionMetadataUpdated }

func (e CollectionMetadataUpdated) Event() *types.Event {
	attrs := map[string]string{"collection": e.Collection.String()}
	if e.Name != "" {
		attrs["name"] = e.Name
	}
	if e.URI != "" {
		attrs["uri"] = e.URI
	}
	return &types.Event{Type: TypeCollectionMetadataUpdated, Attributes: attrs}
}

type RoyaltiesAdded struct {
	Collection   crypto.Identity
	BasisPoints  uint16
	CreatorCount int
}

func (RoyaltiesAdded) EventType() string { return TypeRoyaltiesAdded }

func (e RoyaltiesAdded) Event() *types.Event {
	return &types.Event{Type: TypeRoyaltiesAdded, Attributes: map[string]string{
		"collection":  e.Collection.String(),
		"basisPoints": strconv.FormatUint(uint64(e.BasisPoints), 10),
		"creators":    strconv.Itoa(e.CreatorCount),
	}}
}

// AssetMinted is emitted after a mint has been committed.
type AssetMinted struct {
	Role        string
	Asset       crypto.Identity
	Collection  crypto.Identity
	Owner       crypto.Identity
	Number      uint64
	TreasuryFee uint64
	AntiscamFee uint64
	MintedAt    time.Time
}

func (AssetMinted) EventType() string { return TypeAssetMinted }

func (e AssetMinted) Event() *types.Event {
	return &types.Event{Type: TypeAssetMinted, Attributes: map[string]string{
		"role":        normalizeRole(e.Role),
		"asset":       e.Asset.String(),
		"collection":  e.Collection.String(),
		"owner":       e.Owner.String(),
		"number":      strconv.FormatUint(e.Number, 10),
		"treasuryFee": formatAmount(e.TreasuryFee),
		"antiscamFee": formatAmount(e.AntiscamFee),
		"mintedAt":    strconv.FormatInt(e.MintedAt.Unix(), 10),
	}}
}

// SupplyLow is a non-fatal warning raised when a capped collection is close
// to exhaustion.
type SupplyLow struct {
	Role       string
	Collection crypto.Identity
	Remaining  uint64
}

func (SupplyLow) EventType() string { return TypeSupplyLow }

func (e SupplyLow) Event() *types.Event {
	return &types.Event{Type: TypeSupplyLow, Attributes: map[string]string{
		"role":       normalizeRole(e.Role),
		"collection": e.Collection.String(),
		"remaining":  formatAmount(e.Remaining),
	}}
}

type FreezeDelegateAdded struct {
	Asset    crypto.Identity
	Delegate crypto.Identity
	Frozen   bool
}

func (FreezeDelegateAdded) EventType() string { return TypeFreezeDelegateAdded }

func (e FreezeDelegateAdded) Event() *types.Event {
	return &types.Event{Type: TypeFreezeDelegateAdded, Attributes: map[string]string{
		"asset":    e.Asset.String(),
		"delegate": e.Delegate.String(),
		"frozen":   formatBool(e.Frozen),
	}}
}

type AssetFreezeChanged struct {
	Asset  crypto.Identity
	Frozen bool
}

func (AssetFreezeChanged) EventType() string { return TypeAssetFreezeChanged }

func (e AssetFreezeChanged) Event() *types.Event {
	return &types.Event{Type: TypeAssetFreezeChanged, Attributes: map[string]string{
		"asset":  e.Asset.String(),
		"frozen": formatBool(e.Frozen),
	}}
}

type RuggedUserRegistered struct {
	Owner       crypto.Identity
	Compromised crypto.Identity
}

func (RuggedUserRegistered) EventType() string { return TypeRuggedUserRegistered }

func (e RuggedUserRegistered) Event() *types.Event {
	return &types.Event{Type: TypeRuggedUserRegistered, Attributes: map[string]string{
		"owner":       e.Owner.String(),
		"compromised": e.Compromised.String(),
	}}
}

type RuggedUserVerified struct {
	Owner crypto.Identity
}

func (RuggedUserVerified) EventType() string { return TypeRuggedUserVerified }

func (e RuggedUserVerified) Event() *types.Event {
	return &types.Event{Type: TypeRuggedUserVerified, Attributes: map[string]string{
		"owner": e.Owner.String(),
	}}
}
