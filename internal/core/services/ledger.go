package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
)

const defaultAssetCacheSize = 256

type ledgerOptions struct {
	assetCacheSize int
	batchSize      int
	now            func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*ledgerOptions)

// WithAssetCacheSize bounds the number of assets kept in memory.
func WithAssetCacheSize(size int) LedgerOption {
	return func(o *ledgerOptions) {
		o.assetCacheSize = size
	}
}

// WithCoinSelectionBatchSize sets how many value objects are claimed per storage round trip.
func WithCoinSelectionBatchSize(size int) LedgerOption {
	return func(o *ledgerOptions) {
		o.batchSize = size
	}
}

// WithClock replaces time.Now for timestamps written by the ledger.
func WithClock(now func() time.Time) LedgerOption {
	return func(o *ledgerOptions) {
		o.now = now
	}
}

// Ledger is the entry point of the engine: atomic blocks, the asset registry and reads.
type Ledger struct {
	BaseService
	store    portsrepo.LedgerStore
	assets   *AssetCache
	executor *PlanExecutor
	now      func() time.Time
}

// NewLedger creates a ledger running on store.
func NewLedger(store portsrepo.LedgerStore, opts ...LedgerOption) (*Ledger, error) {
	o := ledgerOptions{
		assetCacheSize: defaultAssetCacheSize,
		batchSize:      defaultCoinSelectionBatchSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	assets, err := NewAssetCache(store, o.assetCacheSize)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		store:    store,
		assets:   assets,
		executor: NewPlanExecutor(store, assets, o.batchSize, o.now),
		now:      o.now,
	}, nil
}

// Atomic runs fn and commits everything it staged as one storage transaction. Nothing
// is written when fn fails, when a Money was never sliced or a slice was left with
// value, or when execution fails (for instance with ErrInsufficientFunds).
func (l *Ledger) Atomic(ctx context.Context, fn func(tx *TxContext) error) error {
	tx := newTxContext(l)
	defer tx.markClosed()

	if err := fn(tx); err != nil {
		l.LogDebug(ctx, "Atomic block body failed", slog.String("error", err.Error()))
		return err
	}

	plan, locks, err := tx.seal()
	if err != nil {
		l.LogInfo(ctx, "Atomic block rejected", slog.String("error", err.Error()))
		return err
	}
	if plan.Len() == 0 && len(locks) == 0 {
		return nil
	}
	return l.execute(ctx, plan, locks)
}

// ExecutePlan applies a caller-assembled plan. When locks is nil the collateral is
// derived from the plan's Burn, Transfer and Reserve operations.
func (l *Ledger) ExecutePlan(ctx context.Context, plan *domain.ExecutionPlan, locks []domain.LockRequest) error {
	if locks == nil {
		derived, ok := plan.RequiredCollateral()
		if !ok {
			return fmt.Errorf("%w: plan spends more than %d for one owner", apperrors.ErrInvalidAmount, domain.MaxAmount)
		}
		locks = derived
	}
	return l.execute(ctx, plan, locks)
}

func (l *Ledger) execute(ctx context.Context, plan *domain.ExecutionPlan, locks []domain.LockRequest) error {
	err := l.executor.Execute(ctx, plan, locks)
	switch {
	case err == nil:
		l.LogDebug(ctx, "Execution plan committed",
			slog.Int("operations", plan.Len()),
			slog.Int("locks", len(locks)))
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrDuplicateIdempotencyKey):
		l.LogInfo(ctx, "Execution plan rejected", slog.String("error", err.Error()))
	default:
		l.LogError(ctx, err, "Execution plan failed", slog.Int("operations", plan.Len()))
	}
	return err
}

// CreateAsset registers asset. Registering the same code again returns the stored asset
// when unit and decimals match and ErrDuplicate otherwise.
func (l *Ledger) CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	asset.Code = normalizeCode(asset.Code)
	if asset.ID == uuid.Nil {
		asset.ID = domain.NewID()
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	stored, err := l.store.UpsertAsset(ctx, asset)
	if err != nil {
		l.LogError(ctx, err, "Failed to store asset", slog.String("code", asset.Code))
		return nil, fmt.Errorf("failed to create asset %s: %w", asset.Code, err)
	}
	l.assets.Put(*stored)

	if stored.Unit != asset.Unit || stored.Decimals != asset.Decimals {
		return nil, fmt.Errorf("%w: asset %s is registered with unit %d and %d decimals",
			apperrors.ErrDuplicate, stored.Code, stored.Unit, stored.Decimals)
	}
	l.LogInfo(ctx, "Asset registered", slog.String("code", stored.Code), slog.String("asset_id", stored.ID.String()))
	return stored, nil
}

// GetAsset returns the asset registered under code.
func (l *Ledger) GetAsset(ctx context.Context, code string) (*domain.Asset, error) {
	asset, err := l.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListAssets returns every registered asset ordered by code.
func (l *Ledger) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	assets, err := l.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// Balance returns the committed balance of owner in the asset with code.
func (l *Ledger) Balance(ctx context.Context, code string, owner uuid.UUID) (*domain.Balance, error) {
	asset, err := l.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	balance, err := l.store.GetBalance(ctx, asset.ID, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s in %s: %w", owner, asset.Code, err)
	}
	return &balance, nil
}

// ValueObjects lists every value object owner has held in the asset, in any state.
func (l *Ledger) ValueObjects(ctx context.Context, code string, owner uuid.UUID) ([]domain.ValueObject, error) {
	asset, err := l.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	vos, err := l.store.ListValueObjects(ctx, asset.ID, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list value objects of %s in %s: %w", owner, asset.Code, err)
	}
	return vos, nil
}

// Holdings returns the owner's non-empty balances across assets.
func (l *Ledger) Holdings(ctx context.Context, owner uuid.UUID) (domain.Portfolio, error) {
	holdings, err := l.store.GetHoldings(ctx, owner)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to get holdings of %s: %w", owner, err)
	}
	return domain.NewPortfolio(owner, holdings), nil
}

// GetTransaction returns the log row with id or ErrTransactionNotFound.
func (l *Ledger) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := l.store.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetTransactionByIdempotencyKey returns the log row recorded with key.
func (l *Ledger) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	txn, err := l.store.FindTransactionByIdempotencyKey(ctx, domain.HashIdempotencyKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}
	return txn, nil
}

// TransactionsForOwner lists rows where owner sent or received value with
// from <= created_at < to. A zero to means no upper bound.
func (l *Ledger) TransactionsForOwner(ctx context.Context, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	txns, err := l.store.ListTransactionsByOwner(ctx, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of %s: %w", owner, err)
	}
	return txns, nil
}

// TransactionsForAsset lists rows of one asset with from <= created_at < to.
// A zero to means no upper bound.
func (l *Ledger) TransactionsForAsset(ctx context.Context, code string, from, to time.Time) ([]domain.Transaction, error) {
	asset, err := l.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	txns, err := l.store.ListTransactionsByAsset(ctx, asset.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of %s: %w", asset.Code, err)
	}
	return txns, nil
}
