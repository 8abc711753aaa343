package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
)

// LedgerTx is the write side of the ledger, only reachable inside RunInTx.
type LedgerTx interface {
	// LockAlive claims up to limit alive value objects of (assetID, owner) that sort after
	// the cursor (nil means from the start), ordered by ascending amount then id. Rows
	// claimed by another in-flight transaction are skipped, never waited on.
	LockAlive(ctx context.Context, assetID, owner uuid.UUID, after *domain.CoinCursor, limit int) ([]domain.ValueObject, error)

	// InsertValueObjects stores freshly minted value objects.
	InsertValueObjects(ctx context.Context, vos []domain.ValueObject) error

	// MarkBurned moves value objects claimed by this transaction to the burned state.
	MarkBurned(ctx context.Context, ids []uuid.UUID) error

	// InsertTransaction appends a log row. A hashed idempotency key that is already in use
	// fails with *apperrors.DuplicateIdempotencyKeyError.
	InsertTransaction(ctx context.Context, txn domain.Transaction) error
}

// AssetReader defines read operations for the asset registry.
type AssetReader interface {
	// FindAssetByCode returns apperrors.ErrAssetNotFound when the code is unknown.
	FindAssetByCode(ctx context.Context, code string) (*domain.Asset, error)

	// FindAssetByID returns apperrors.ErrAssetNotFound when the id is unknown.
	FindAssetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error)

	// ListAssets returns every registered asset ordered by code.
	ListAssets(ctx context.Context) ([]domain.Asset, error)
}

// AssetWriter defines write operations for the asset registry.
type AssetWriter interface {
	// UpsertAsset registers asset unless its code already exists, and returns the stored
	// row either way. Existing assets are never modified.
	UpsertAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
}

// BalanceReader defines aggregate reads over committed value objects.
type BalanceReader interface {
	GetBalance(ctx context.Context, assetID, owner uuid.UUID) (domain.Balance, error)

	// GetHoldings returns one balance per asset the owner has ever held value in.
	GetHoldings(ctx context.Context, owner uuid.UUID) ([]domain.Holding, error)

	// ListValueObjects returns every value object of (assetID, owner) in any state.
	ListValueObjects(ctx context.Context, assetID, owner uuid.UUID) ([]domain.ValueObject, error)
}

// TransactionReader defines read operations for the transaction log.
type TransactionReader interface {
	// FindTransactionByID returns apperrors.ErrTransactionNotFound when missing.
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// FindTransactionByIdempotencyKey looks a row up by hashed key.
	FindTransactionByIdempotencyKey(ctx context.Context, hashedKey string) (*domain.Transaction, error)

	// ListTransactionsByOwner returns rows where owner is sender or receiver and
	// from <= created_at < to, oldest first. A zero to means no upper bound.
	ListTransactionsByOwner(ctx context.Context, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error)

	// ListTransactionsByAsset returns rows of one asset with from <= created_at < to,
	// oldest first. A zero to means no upper bound.
	ListTransactionsByAsset(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]domain.Transaction, error)
}

// LedgerStore is the complete storage adapter contract a ledger runs on.
type LedgerStore interface {
	TransactionManager
	AssetReader
	AssetWriter
	BalanceReader
	TransactionReader
}
