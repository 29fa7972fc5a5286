package issuance

import (
	"errors"

	"chronicles/crypto"
	"chronicles/native/assets"
	"chronicles/native/bank"
)

// Kind classifies every error the engine returns. Each request terminates
// with exactly one error whose Kind is stable for clients and dashboards.
type Kind string

const (
	KindNone           Kind = ""
	KindAuthorization  Kind = "authorization"
	KindConfiguration  Kind = "configuration"
	KindStateGate      Kind = "state_gate"
	KindArithmetic     Kind = "arithmetic"
	KindConflict       Kind = "conflict"
	KindInput          Kind = "input"
	KindExternalEngine Kind = "external_engine"
	KindInternal       Kind = "internal"
)

var (
	ErrUnauthorized = errors.New("issuance: caller is not the admin")

	ErrInvalidFeeDistribution = errors.New("issuance: treasury and antiscam percentages must sum to 100")
	ErrInvalidFeeAmount       = errors.New("issuance: fee rate exceeds 5000 basis points")
	ErrInvalidMinimumPayment  = errors.New("issuance: minimum payment below protocol floor")
	ErrAlreadyInitialized     = errors.New("issuance: deployment already initialized")
	ErrNotInitialized         = errors.New("issuance: deployment not initialized")
	ErrNonCanonicalBump       = errors.New("issuance: bump does not match canonical derivation")
	ErrCollectionNotSet       = errors.New("issuance: collection not configured for role")
	ErrInvalidRole            = errors.New("issuance: unknown collection role")

	ErrProgramPaused     = errors.New("issuance: program is paused")
	ErrMaxSupplyExceeded = errors.New("issuance: collection supply cap reached")

	ErrArithmeticOverflow = errors.New("issuance: arithmetic overflow")

	ErrDuplicateNFTMint  = errors.New("issuance: asset identity already claimed")
	ErrCollectionRebound = errors.New("issuance: collection rebound during mint")

	ErrInvalidTraits         = errors.New("issuance: invalid traits")
	ErrInvalidDestination    = errors.New("issuance: destination must differ from the compromised wallet")
	ErrRuggedUserNotVerified = errors.New("issuance: rugged user not verified")
	ErrRuggedUserExists      = errors.New("issuance: rugged user already registered")
	ErrRuggedUserNotFound    = errors.New("issuance: rugged user not registered")

	errNilStore = errors.New("issuance: store not configured")
)

var kindTable = []struct {
	kind Kind
	errs []error
}{
	{KindAuthorization, []error{ErrUnauthorized}},
	{KindConfiguration, []error{
		ErrInvalidFeeDistribution, ErrInvalidFeeAmount, ErrInvalidMinimumPayment,
		ErrAlreadyInitialized, ErrNotInitialized, ErrNonCanonicalBump,
		ErrCollectionNotSet, ErrInvalidRole, crypto.ErrNonCanonicalBump,
	}},
	{KindStateGate, []error{ErrProgramPaused, ErrMaxSupplyExceeded}},
	{KindArithmetic, []error{ErrArithmeticOverflow}},
	{KindConflict, []error{ErrDuplicateNFTMint, ErrCollectionRebound, ErrRuggedUserExists}},
	{KindInput, []error{
		ErrInvalidTraits, ErrInvalidDestination, ErrRuggedUserNotVerified, ErrRuggedUserNotFound,
	}},
	{KindExternalEngine, []error{
		assets.ErrNotFound, assets.ErrAssetExists, assets.ErrCollectionExists,
		assets.ErrInvalidAuthority, assets.ErrPluginExists, assets.ErrPluginNotFound,
		assets.ErrInvalidPlugin, assets.ErrInvalidMetadata, assets.ErrCollectionMissing,
		bank.ErrInsufficientFunds, bank.ErrBalanceOverflow, bank.ErrSelfTransfer,
	}},
}

// KindOf maps err onto the error taxonomy. Unrecognised errors, including
// storage failures and cancellations, are reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, entry := range kindTable {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.kind
			}
		}
	}
	return KindInternal
}
