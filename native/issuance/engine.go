package issuance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chronicles/core/events"
	corestate "chronicles/core/state"
	"chronicles/core/types"
	"chronicles/crypto"
	"chronicles/native/assets"
	"chronicles/native/bank"
	"chronicles/observability"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVCreate(key []byte, value interface{}) error
	RawGet(key []byte) ([]byte, error)
	RawPut(key, value []byte) error
	GetAccount(id crypto.Identity) (*types.Account, error)
	PutAccount(id crypto.Identity, account *types.Account) error
	Accounts(fn func(crypto.Identity, *types.Account) error) error
}

type unitOfWork interface {
	Update(ctx context.Context, fn func(*corestate.Manager) error) error
	View(ctx context.Context, fn func(*corestate.Manager) error) error
}

type assetEngine interface {
	CreateCollection(st assets.State, params assets.CreateCollectionParams) error
	CreateAsset(st assets.State, params assets.CreateAssetParams) error
	AddPlugin(st assets.State, asset, authority crypto.Identity, plugin assets.Plugin) error
	UpdatePlugin(st assets.State, asset, authority crypto.Identity, update assets.Plugin) error
	AddCollectionPlugin(st assets.State, collection, authority crypto.Identity, plugin assets.Plugin) error
	UpdateCollection(st assets.State, collection, authority crypto.Identity, name, uri string) error
	Collection(st assets.State, id crypto.Identity) (*assets.Collection, error)
	Asset(st assets.State, id crypto.Identity) (*assets.Asset, error)
}

type engineMetrics interface {
	ObserveOperation(operation, kind string, duration time.Duration)
	RecordMint(role string, treasuryFee, antiscamFee uint64)
	SetSupplyRemaining(role string, remaining uint64)
	SetPaused(paused bool)
}

// Engine orchestrates configuration, fee collection and issuance for one
// deployment, identified by its program identity and seed. Every operation
// runs inside one or more units of work on the configured store; events are
// buffered and emitted only after the unit that produced them commits.
type Engine struct {
	program crypto.Identity
	seed    uint64
	derived Authorities
	configs ConfigStore
	guards  DuplicateGuard
	store   unitOfWork
	assets  assetEngine
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics engineMetrics
	nowFn   func() time.Time
}

// NewEngine derives the deployment authorities for (program, seed) and
// returns an engine with default collaborators. A store must be configured
// with SetStore before use.
func NewEngine(program crypto.Identity, seed uint64) (*Engine, error) {
	if program.IsZero() {
		return nil, fmt.Errorf("issuance: program identity required")
	}
	derived, err := DeriveAuthorities(program, seed)
	if err != nil {
		return nil, err
	}
	return &Engine{
		program: program,
		seed:    seed,
		derived: derived,
		configs: NewConfigStore(derived.Config),
		guards:  NewDuplicateGuard(derived.Config),
		assets:  assets.NewEngine(),
		emitter: events.NoopEmitter{},
		logger:  slog.Default().With("component", "issuance"),
		tracer:  otel.Tracer("chronicles/issuance"),
		metrics: observability.Issuance(),
		nowFn:   time.Now,
	}, nil
}

// SetStore configures the transactional state backend.
func (e *Engine) SetStore(store unitOfWork) { e.store = store }

// SetAssets replaces the asset engine.
func (e *Engine) SetAssets(engine assetEngine) {
	if engine == nil {
		e.assets = assets.NewEngine()
		return
	}
	e.assets = engine
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("component", "issuance")
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// Program returns the program identity the deployment is derived from.
func (e *Engine) Program() crypto.Identity { return e.program }

// Seed returns the deployment seed.
func (e *Engine) Seed() uint64 { return e.seed }

// Authorities returns the derived identities of the deployment.
func (e *Engine) Authorities() Authorities { return e.derived }

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

// eventBuffer collects events raised inside a unit of work.
type eventBuffer struct {
	pending []events.Event
}

func (b *eventBuffer) add(evt events.Event) {
	b.pending = append(b.pending, evt)
}

func (e *Engine) update(ctx context.Context, fn func(st engineState, buf *eventBuffer) error) error {
	if e.store == nil {
		return errNilStore
	}
	buf := &eventBuffer{}
	err := e.store.Update(ctx, func(m *corestate.Manager) error {
		buf.pending = buf.pending[:0]
		return fn(m, buf)
	})
	if err != nil {
		return err
	}
	for _, evt := range buf.pending {
		observability.Events().RecordEvent(evt.EventType())
		e.emitter.Emit(evt)
	}
	return nil
}

func (e *Engine) view(ctx context.Context, fn func(st engineState) error) error {
	if e.store == nil {
		return errNilStore
	}
	return e.store.View(ctx, func(m *corestate.Manager) error {
		return fn(m)
	})
}

// observe wraps one public operation with a span, metrics and a log line on
// failure.
func (e *Engine) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "issuance."+op, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	kind := KindOf(err)
	if e.metrics != nil {
		e.metrics.ObserveOperation(op, string(kind), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.WarnContext(ctx, "issuance operation aborted",
			"operation", op,
			"kind", string(kind),
			"error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Config returns the committed configuration.
func (e *Engine) Config(ctx context.Context) (*Configuration, error) {
	var cfg *Configuration
	err := e.view(ctx, func(st engineState) error {
		loaded, err := e.configs.Load(st)
		cfg = loaded
		return err
	})
	return cfg, err
}

// Quote returns the fee split a mint would currently be charged.
func (e *Engine) Quote(ctx context.Context) (Split, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return Split{}, err
	}
	return CalculateSplit(cfg)
}

// Guard returns the duplicate-guard record for asset, if any.
func (e *Engine) Guard(ctx context.Context, asset crypto.Identity) (*MintGuard, bool, error) {
	var (
		record *MintGuard
		found  bool
	)
	err := e.view(ctx, func(st engineState) error {
		var err error
		record, found, err = e.guards.Get(st, asset)
		return err
	})
	return record, found, err
}

// Asset loads an issued asset from the asset engine.
func (e *Engine) Asset(ctx context.Context, id crypto.Identity) (*assets.Asset, error) {
	var asset *assets.Asset
	err := e.view(ctx, func(st engineState) error {
		var err error
		asset, err = e.assets.Asset(st, id)
		return err
	})
	return asset, err
}

// Collection loads a collection from the asset engine.
func (e *Engine) Collection(ctx context.Context, id crypto.Identity) (*assets.Collection, error) {
	var collection *assets.Collection
	err := e.view(ctx, func(st engineState) error {
		var err error
		collection, err = e.assets.Collection(st, id)
		return err
	})
	return collection, err
}

// Balance returns the spendable balance of id.
func (e *Engine) Balance(ctx context.Context, id crypto.Identity) (uint64, error) {
	var balance uint64
	err := e.view(ctx, func(st engineState) error {
		var err error
		balance, err = bank.Balance(st, id)
		return err
	})
	return balance, err
}

// AccountBalance is one entry of a balances listing.
type AccountBalance struct {
	Account crypto.Identity `json:"account"`
	Balance uint64          `json:"balance"`
}

// MaxBalancesPage bounds a single Balances call.
const MaxBalancesPage = 1000

var errPageFull = errors.New("issuance: page full")

// Balances lists stored accounts in identity order, starting strictly after
// after (the zero identity starts at the beginning). At most limit entries
// are returned; limit <= 0 or above MaxBalancesPage is clamped.
func (e *Engine) Balances(ctx context.Context, after crypto.Identity, limit int) ([]AccountBalance, error) {
	if limit <= 0 || limit > MaxBalancesPage {
		limit = MaxBalancesPage
	}
	out := make([]AccountBalance, 0, limit)
	err := e.view(ctx, func(st engineState) error {
		err := st.Accounts(func(id crypto.Identity, account *types.Account) error {
			if !after.IsZero() && bytes.Compare(id[:], after[:]) <= 0 {
				return nil
			}
			out = append(out, AccountBalance{Account: id, Balance: account.Balance})
			if len(out) == limit {
				return errPageFull
			}
			return nil
		})
		if errors.Is(err, errPageFull) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
