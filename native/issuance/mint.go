package issuance

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chronicles/core/events"
	"chronicles/crypto"
	"chronicles/native/assets"
	"chronicles/native/bank"
)

const (
	MaxCategoryFieldLength = 64
	MaxScamDetailsLength   = 256
	MaxTraitsLength        = 32

	RuggedAssetName = "Rugged NFT"
	RuggedURIBase   = "https://ruggedcollection.io/"
)

// Mint stages, in order. Any stage may end in an abort.
const (
	stageValidating         = "validating"
	stageFeeCollecting      = "fee_collecting"
	stageAssetCreating      = "asset_creating"
	stageAttributeAttaching = "attribute_attaching"
	stageFinalized          = "finalized"
)

// MintStandardParams describes a standard-collection mint. The category
// fields become attributes of the asset.
type MintStandardParams struct {
	Asset            crypto.Identity `json:"asset"`
	Name             string          `json:"name"`
	URI              string          `json:"uri"`
	ScamYear         string          `json:"scamYear"`
	USDAmount        string          `json:"usdAmount"`
	PlatformCategory string          `json:"platformCategory"`
	AttackType       string          `json:"attackType"`
}

// MintScammedParams describes a scammed-collection mint.
type MintScammedParams struct {
	Asset       crypto.Identity `json:"asset"`
	Name        string          `json:"name"`
	URI         string          `json:"uri"`
	ScamDetails string          `json:"scamDetails"`
}

// MintRuggedParams describes a fee-free mint by a verified rugged user into
// the scammed collection, delivered to a fresh wallet.
type MintRuggedParams struct {
	Asset       crypto.Identity `json:"asset"`
	Traits      []byte          `json:"traits"`
	Destination crypto.Identity `json:"destination"`
}

// MintReceipt summarises a finalized mint.
type MintReceipt struct {
	Asset      crypto.Identity `json:"asset"`
	Collection crypto.Identity `json:"collection"`
	Role       string          `json:"role"`
	Owner      crypto.Identity `json:"owner"`
	Payer      crypto.Identity `json:"payer"`
	Number     uint64          `json:"number"`
	Fees       Split           `json:"fees"`
	MintedAt   time.Time       `json:"mintedAt"`
}

type inputField struct {
	key   string
	value string
	max   int
}

type mintRequest struct {
	role      Role
	asset     crypto.Identity
	payer     crypto.Identity
	owner     crypto.Identity
	name      string
	uri       string
	fields    []inputField
	chargeFee bool
	// check runs after the generic input checks and before the guard claim.
	check func(st engineState) error
	// extra adds attributes resolved by check.
	extra func() []assets.Attribute
}

// MintStandard issues one asset into the standard collection, charging the
// configured fee to caller.
func (e *Engine) MintStandard(ctx context.Context, caller crypto.Identity, params MintStandardParams) (*MintReceipt, error) {
	return e.mint(ctx, "mint_standard", mintRequest{
		role:  RoleStandard,
		asset: params.Asset,
		payer: caller,
		owner: caller,
		name:  params.Name,
		uri:   params.URI,
		fields: []inputField{
			{key: "scam_year", value: params.ScamYear, max: MaxCategoryFieldLength},
			{key: "usd_amount_stolen", value: params.USDAmount, max: MaxCategoryFieldLength},
			{key: "platform_category", value: params.PlatformCategory, max: MaxCategoryFieldLength},
			{key: "type_of_attack", value: params.AttackType, max: MaxCategoryFieldLength},
		},
		chargeFee: true,
	})
}

// MintScammed issues one asset into the scammed collection, charging the
// configured fee to caller.
func (e *Engine) MintScammed(ctx context.Context, caller crypto.Identity, params MintScammedParams) (*MintReceipt, error) {
	return e.mint(ctx, "mint_scammed", mintRequest{
		role:  RoleScammed,
		asset: params.Asset,
		payer: caller,
		owner: caller,
		name:  params.Name,
		uri:   params.URI,
		fields: []inputField{
			{key: "scam_details", value: params.ScamDetails, max: MaxScamDetailsLength},
		},
		chargeFee: true,
	})
}

// MintRugged issues a fee-free asset into the scammed collection for a
// verified rugged user. The asset is delivered to Destination, which must
// differ from the wallet recorded as compromised.
func (e *Engine) MintRugged(ctx context.Context, caller crypto.Identity, params MintRuggedParams) (*MintReceipt, error) {
	var compromised crypto.Identity
	return e.mint(ctx, "mint_rugged", mintRequest{
		role:  RoleScammed,
		asset: params.Asset,
		payer: caller,
		owner: params.Destination,
		name:  RuggedAssetName,
		uri:   RuggedURIBase + params.Asset.String(),
		fields: []inputField{
			{key: "traits", value: hex.EncodeToString(params.Traits), max: 2 * MaxTraitsLength},
		},
		check: func(st engineState) error {
			user, ok, err := e.loadRuggedUser(st, caller)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrRuggedUserNotFound, caller)
			}
			if !user.Verified {
				return fmt.Errorf("%w: %s", ErrRuggedUserNotVerified, caller)
			}
			if params.Destination.IsZero() || params.Destination == user.CompromisedWallet {
				return fmt.Errorf("%w: %s", ErrInvalidDestination, params.Destination)
			}
			compromised = user.CompromisedWallet
			return validateTraits(params.Traits)
		},
		extra: func() []assets.Attribute {
			return []assets.Attribute{{Key: "original_asset", Value: compromised.String()}}
		},
	})
}

// mint runs the two-unit issuance protocol.
//
// Unit A validates against a configuration snapshot and claims the asset
// identity; it commits on its own so the claim outlives a later abort.
// Unit B collects fees, creates the asset, attaches attributes, bumps the
// counter and finalizes the claim; any failure discards all of unit B.
func (e *Engine) mint(ctx context.Context, op string, req mintRequest) (*MintReceipt, error) {
	var receipt *MintReceipt
	attrs := []attribute.KeyValue{
		attribute.String("role", req.role.String()),
		attribute.String("asset", req.asset.String()),
		attribute.String("payer", req.payer.String()),
	}
	err := e.observe(ctx, op, attrs, func(ctx context.Context) error {
		mintedAt := e.now()
		snapshot, err := e.validateAndClaim(ctx, req, mintedAt)
		if err != nil {
			return err
		}
		receipt, err = e.collectAndIssue(ctx, req, snapshot, mintedAt)
		if err != nil {
			e.logger.WarnContext(ctx, "mint aborted after claim; asset identity stays reserved",
				"asset", req.asset.String(),
				"role", req.role.String(),
				"error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (e *Engine) stage(ctx context.Context, req mintRequest, stage string) {
	trace.SpanFromContext(ctx).AddEvent(stage)
	e.logger.DebugContext(ctx, "mint stage",
		"stage", stage,
		"asset", req.asset.String(),
		"role", req.role.String())
}

func (e *Engine) validateAndClaim(ctx context.Context, req mintRequest, mintedAt time.Time) (*Configuration, error) {
	var snapshot *Configuration
	err := e.update(ctx, func(st engineState, buf *eventBuffer) error {
		e.stage(ctx, req, stageValidating)
		cfg, err := e.configs.Load(st)
		if err != nil {
			return err
		}
		if cfg.Paused {
			return ErrProgramPaused
		}
		ref, err := boundCollection(cfg, req.role)
		if err != nil {
			return err
		}
		reservation, err := CheckAndReserve(cfg, req.role)
		if err != nil {
			return err
		}
		if req.chargeFee {
			if _, err := CalculateSplit(cfg); err != nil {
				return err
			}
		}
		if err := req.validateInputs(); err != nil {
			return err
		}
		if req.check != nil {
			if err := req.check(st); err != nil {
				return err
			}
		}
		if _, err := e.guards.Claim(st, req.asset, req.role, req.payer, uint64(mintedAt.Unix())); err != nil {
			return err
		}
		if reservation.LowSupply {
			e.logger.WarnContext(ctx, "collection supply running low",
				"role", req.role.String(),
				"collection", ref.ID.String(),
				"remaining", reservation.Remaining)
			buf.add(events.SupplyLow{Role: req.role.String(), Collection: ref.ID, Remaining: reservation.Remaining})
		}
		snapshot = cfg.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (e *Engine) collectAndIssue(ctx context.Context, req mintRequest, snapshot *Configuration, mintedAt time.Time) (*MintReceipt, error) {
	var receipt *MintReceipt
	var remaining uint64
	var capped bool
	err := e.update(ctx, func(st engineState, buf *eventBuffer) error {
		live, err := e.configs.Load(st)
		if err != nil {
			return err
		}
		ref, err := boundCollection(snapshot, req.role)
		if err != nil {
			return err
		}
		liveRef, err := boundCollection(live, req.role)
		if err != nil {
			return err
		}
		if liveRef.ID != ref.ID {
			return fmt.Errorf("%w: %s moved from %s to %s", ErrCollectionRebound, req.role, ref.ID, liveRef.ID)
		}

		e.stage(ctx, req, stageFeeCollecting)
		var split Split
		if req.chargeFee {
			split, err = CalculateSplit(snapshot)
			if err != nil {
				return err
			}
			if err := bank.Transfer(st, req.payer, snapshot.Treasury, split.Treasury); err != nil {
				return fmt.Errorf("issuance: treasury fee: %w", err)
			}
			if err := bank.Transfer(st, req.payer, snapshot.Antiscam, split.Antiscam); err != nil {
				return fmt.Errorf("issuance: antiscam fee: %w", err)
			}
			for _, leg := range []struct {
				to     crypto.Identity
				amount uint64
				memo   string
			}{
				{snapshot.Treasury, split.Treasury, "treasury_fee"},
				{snapshot.Antiscam, split.Antiscam, "antiscam_fee"},
			} {
				if leg.amount > 0 {
					buf.add(events.Transfer{From: req.payer, To: leg.to, Amount: leg.amount, Memo: leg.memo})
				}
			}
		}

		e.stage(ctx, req, stageAssetCreating)
		if err := e.assets.CreateAsset(st, assets.CreateAssetParams{
			ID:         req.asset,
			Collection: ref.ID,
			Authority:  snapshot.Authority,
			Owner:      req.owner,
			Name:       req.name,
			URI:        req.uri,
		}); err != nil {
			return err
		}

		e.stage(ctx, req, stageAttributeAttaching)
		current, err := live.Minted(req.role)
		if err != nil {
			return err
		}
		number, err := checkedAdd(*current, 1)
		if err != nil {
			return err
		}
		plugin := assets.Plugin{Kind: assets.PluginAttributes, Attributes: req.attributes(number, mintedAt)}
		if err := e.assets.AddPlugin(st, req.asset, snapshot.Authority, plugin); err != nil {
			return err
		}

		count, err := RecordMint(live, req.role)
		if err != nil {
			return err
		}
		if err := e.configs.Save(st, live); err != nil {
			return err
		}
		if err := e.guards.Finalize(st, req.asset); err != nil {
			return err
		}
		e.stage(ctx, req, stageFinalized)

		if liveRef.HasCap {
			capped = true
			remaining = liveRef.Cap - count
		}
		receipt = &MintReceipt{
			Asset:      req.asset,
			Collection: ref.ID,
			Role:       req.role.String(),
			Owner:      req.owner,
			Payer:      req.payer,
			Number:     count,
			Fees:       split,
			MintedAt:   mintedAt,
		}
		buf.add(events.AssetMinted{
			Role:        req.role.String(),
			Asset:       req.asset,
			Collection:  ref.ID,
			Owner:       req.owner,
			Number:      count,
			TreasuryFee: split.Treasury,
			AntiscamFee: split.Antiscam,
			MintedAt:    mintedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordMint(req.role.String(), receipt.Fees.Treasury, receipt.Fees.Antiscam)
		if capped {
			e.metrics.SetSupplyRemaining(req.role.String(), remaining)
		}
	}
	return receipt, nil
}

func (r mintRequest) validateInputs() error {
	if r.payer.IsZero() || r.owner.IsZero() {
		return fmt.Errorf("%w: payer and owner required", ErrInvalidTraits)
	}
	if r.asset.IsZero() {
		return fmt.Errorf("%w: asset identity required", ErrInvalidTraits)
	}
	name := strings.TrimSpace(r.name)
	if name == "" || utf8.RuneCountInString(name) > assets.MaxNameLength {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrInvalidTraits, assets.MaxNameLength)
	}
	uri := strings.TrimSpace(r.uri)
	if uri == "" || len(uri) > assets.MaxURILength {
		return fmt.Errorf("%w: uri must be 1..%d bytes", ErrInvalidTraits, assets.MaxURILength)
	}
	for _, field := range r.fields {
		value := strings.TrimSpace(field.value)
		if value == "" || len(value) > field.max {
			return fmt.Errorf("%w: %s must be 1..%d bytes", ErrInvalidTraits, field.key, field.max)
		}
	}
	return nil
}

// attributes builds the attribute list: sequence id, category fields, then
// provenance.
func (r mintRequest) attributes(number uint64, mintedAt time.Time) []assets.Attribute {
	out := make([]assets.Attribute, 0, len(r.fields)+3)
	out = append(out, assets.Attribute{Key: "id", Value: strconv.FormatUint(number, 10)})
	for _, field := range r.fields {
		out = append(out, assets.Attribute{Key: field.key, Value: strings.TrimSpace(field.value)})
	}
	if r.extra != nil {
		out = append(out, r.extra()...)
	}
	out = append(out,
		assets.Attribute{Key: "minted_by", Value: r.payer.String()},
		assets.Attribute{Key: "minted_at", Value: strconv.FormatInt(mintedAt.Unix(), 10)},
	)
	return out
}

func validateTraits(traits []byte) error {
	if len(traits) == 0 || len(traits) > MaxTraitsLength {
		return fmt.Errorf("%w: traits must be 1..%d bytes", ErrInvalidTraits, MaxTraitsLength)
	}
	return nil
}
