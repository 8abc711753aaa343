package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerStore keeps the ledger in PostgreSQL. Claims are row locks taken with
// FOR UPDATE SKIP LOCKED, so concurrent spenders of one owner never wait on each other.
type PgxLedgerStore struct {
	BaseRepository
}

// newPgxLedgerStore creates a new ledger store on the pool.
func newPgxLedgerStore(pool *pgxpool.Pool) *PgxLedgerStore {
	return &PgxLedgerStore{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// RunInTx runs fn in a database transaction; it commits only if fn succeeds.
func (r *PgxLedgerStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(context.WithoutCancel(ctx), tx)

	if err := fn(ctx, &pgxLedgerTx{tx: tx, claimed: make(map[uuid.UUID]struct{})}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

type pgxLedgerTx struct {
	tx      pgx.Tx
	claimed map[uuid.UUID]struct{}
}

const valueObjectColumns = `value_object_id, asset_id, owner, amount, state, reserved_for, created_at`

func (t *pgxLedgerTx) LockAlive(ctx context.Context, assetID, owner uuid.UUID, after *domain.CoinCursor, limit int) ([]domain.ValueObject, error) {
	// amounts are positive, so (0, nil uuid) sorts before every row
	cursor := domain.CoinCursor{}
	if after != nil {
		cursor = *after
	}
	var rowLimit any
	if limit > 0 {
		rowLimit = limit
	}

	query := `
		SELECT ` + valueObjectColumns + `
		FROM value_objects
		WHERE asset_id = $1 AND owner = $2 AND state = 'alive'
			AND (amount, value_object_id) > ($3, $4)
		ORDER BY amount, value_object_id
		LIMIT $5
		FOR UPDATE SKIP LOCKED;
	`
	rows, err := t.tx.Query(ctx, query, assetID, owner, int64(cursor.Amount), cursor.ID, rowLimit)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to lock value objects", err)
	}
	vos, err := pgx.CollectRows(rows, scanValueObject)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan value objects", err)
	}
	for _, vo := range vos {
		t.claimed[vo.ID] = struct{}{}
	}
	return vos, nil
}

func (t *pgxLedgerTx) InsertValueObjects(ctx context.Context, vos []domain.ValueObject) error {
	if len(vos) == 0 {
		return nil
	}
	query := `
		INSERT INTO value_objects (` + valueObjectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	batch := &pgx.Batch{}
	for _, vo := range vos {
		if vo.Amount == 0 || vo.Amount > domain.MaxAmount {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s has invalid amount %d", vo.ID, vo.Amount), nil)
		}
		batch.Queue(query, vo.ID, vo.AssetID, vo.Owner, int64(vo.Amount), string(vo.State), vo.ReservedFor, vo.CreatedAt)
	}

	br := t.tx.SendBatch(ctx, batch)
	for range vos {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return apperrors.NewStorageError("failed to insert value object", err)
		}
	}
	if err := br.Close(); err != nil {
		return apperrors.NewStorageError("failed to close value object batch", err)
	}
	return nil
}

func (t *pgxLedgerTx) MarkBurned(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uuid.UUID]struct{}, len(ids))
	params := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := t.claimed[id]; !ok {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s is not claimed by this transaction", id), nil)
		}
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		params = append(params, id.String())
	}

	query := `
		UPDATE value_objects
		SET state = 'burned', burned_at = NOW()
		WHERE value_object_id = ANY($1::uuid[]) AND state = 'alive';
	`
	tag, err := t.tx.Exec(ctx, query, params)
	if err != nil {
		return apperrors.NewStorageError("failed to burn value objects", err)
	}
	if tag.RowsAffected() != int64(len(params)) {
		return apperrors.NewStorageError(
			fmt.Sprintf("burned %d of %d value objects", tag.RowsAffected(), len(params)), nil)
	}
	return nil
}

func (t *pgxLedgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, asset_id, sender, receiver, burned_amount, minted_amount,
			metadata, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING;
	`
	tag, err := t.tx.Exec(ctx, query,
		txn.ID,
		txn.AssetID,
		txn.Sender,
		txn.Receiver,
		int64(txn.BurnedAmount),
		int64(txn.MintedAmount),
		txn.Metadata,
		txn.IdempotencyKey,
		txn.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to insert transaction", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// only the idempotency key can conflict silently
	var existing uuid.UUID
	err = t.tx.QueryRow(ctx, `SELECT transaction_id FROM transactions WHERE idempotency_key = $1;`, txn.IdempotencyKey).
		Scan(&existing)
	if err != nil {
		return apperrors.NewStorageError("failed to find transaction holding the idempotency key", err)
	}
	return &apperrors.DuplicateIdempotencyKeyError{TransactionID: existing}
}

func scanValueObject(row pgx.CollectableRow) (domain.ValueObject, error) {
	var (
		vo     domain.ValueObject
		amount int64
		state  string
	)
	err := row.Scan(&vo.ID, &vo.AssetID, &vo.Owner, &amount, &state, &vo.ReservedFor, &vo.CreatedAt)
	vo.Amount = uint64(amount)
	vo.State = domain.ValueObjectState(state)
	vo.CreatedAt = vo.CreatedAt.UTC()
	return vo, err
}

const assetColumns = `asset_id, code, unit, decimals`

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var (
		asset    domain.Asset
		unit     int64
		decimals int16
	)
	if err := row.Scan(&asset.ID, &asset.Code, &unit, &decimals); err != nil {
		return nil, err
	}
	asset.Unit = uint64(unit)
	asset.Decimals = uint8(decimals)
	return &asset, nil
}

func (r *PgxLedgerStore) findAsset(ctx context.Context, where string, arg any) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE ` + where + ` = $1;`
	asset, err := scanAsset(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to find asset by %s", where), err)
	}
	return asset, nil
}

// FindAssetByCode retrieves an asset by its code.
func (r *PgxLedgerStore) FindAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	return r.findAsset(ctx, "code", code)
}

// FindAssetByID retrieves an asset by its id.
func (r *PgxLedgerStore) FindAssetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	return r.findAsset(ctx, "asset_id", id)
}

// ListAssets retrieves all assets.
func (r *PgxLedgerStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY code;`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query assets", err)
	}
	assets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Asset, error) {
		asset, err := scanAsset(row)
		if err != nil {
			return domain.Asset{}, err
		}
		return *asset, nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan assets", err)
	}
	return assets, nil
}

// UpsertAsset inserts the asset unless its code is taken, then returns the stored row.
func (r *PgxLedgerStore) UpsertAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	query := `
		INSERT INTO assets (asset_id, code, unit, decimals)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, query, asset.ID, asset.Code, int64(asset.Unit), int16(asset.Decimals)); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to save asset %s", asset.Code), err)
	}
	return r.FindAssetByCode(ctx, asset.Code)
}

const balanceAggregates = `
	COALESCE(SUM(v.amount) FILTER (WHERE v.state = 'alive'), 0)::bigint,
	COALESCE(SUM(v.amount) FILTER (WHERE v.state = 'reserved'), 0)::bigint,
	MAX(v.created_at)`

func scanBalance(row pgx.Row, b *domain.Balance, dest ...any) error {
	var (
		available, reserved int64
		updatedAt           *time.Time
	)
	if err := row.Scan(append(dest, &available, &reserved, &updatedAt)...); err != nil {
		return err
	}
	b.Available = uint64(available)
	b.Reserved = uint64(reserved)
	b.Total = b.Available + b.Reserved
	if updatedAt != nil {
		b.UpdatedAt = updatedAt.UTC()
	}
	return nil
}

// GetBalance sums the committed value objects of (assetID, owner).
func (r *PgxLedgerStore) GetBalance(ctx context.Context, assetID, owner uuid.UUID) (domain.Balance, error) {
	query := `SELECT ` + balanceAggregates + `
		FROM value_objects v
		WHERE v.asset_id = $1 AND v.owner = $2;
	`
	b := domain.Balance{Owner: owner, AssetID: assetID}
	if err := scanBalance(r.Pool.QueryRow(ctx, query, assetID, owner), &b); err != nil {
		return domain.Balance{}, apperrors.NewStorageError("failed to compute balance", err)
	}
	return b, nil
}

// GetHoldings returns one balance per asset the owner has held, ordered by asset code.
func (r *PgxLedgerStore) GetHoldings(ctx context.Context, owner uuid.UUID) ([]domain.Holding, error) {
	query := `
		SELECT a.asset_id, a.code, a.unit, a.decimals, ` + balanceAggregates + `
		FROM value_objects v
		JOIN assets a ON a.asset_id = v.asset_id
		WHERE v.owner = $1
		GROUP BY a.asset_id, a.code, a.unit, a.decimals
		ORDER BY a.code;
	`
	rows, err := r.Pool.Query(ctx, query, owner)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query holdings", err)
	}
	holdings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Holding, error) {
		var (
			h        domain.Holding
			unit     int64
			decimals int16
		)
		h.Balance.Owner = owner
		if err := scanBalance(row, &h.Balance, &h.Asset.ID, &h.Asset.Code, &unit, &decimals); err != nil {
			return domain.Holding{}, err
		}
		h.Asset.Unit = uint64(unit)
		h.Asset.Decimals = uint8(decimals)
		h.Balance.AssetID = h.Asset.ID
		return h, nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan holdings", err)
	}
	return holdings, nil
}

// ListValueObjects returns every value object of (assetID, owner), oldest first.
func (r *PgxLedgerStore) ListValueObjects(ctx context.Context, assetID, owner uuid.UUID) ([]domain.ValueObject, error) {
	query := `
		SELECT ` + valueObjectColumns + `
		FROM value_objects
		WHERE asset_id = $1 AND owner = $2
		ORDER BY created_at, value_object_id;
	`
	rows, err := r.Pool.Query(ctx, query, assetID, owner)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query value objects", err)
	}
	vos, err := pgx.CollectRows(rows, scanValueObject)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan value objects", err)
	}
	return vos, nil
}

const transactionSelect = `
	SELECT t.transaction_id, t.asset_id, a.code, t.sender, t.receiver, t.burned_amount, t.minted_amount,
		t.metadata, t.idempotency_key, t.created_at
	FROM transactions t
	JOIN assets a ON a.asset_id = t.asset_id`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn            domain.Transaction
		burned, minted int64
	)
	err := row.Scan(&txn.ID, &txn.AssetID, &txn.AssetCode, &txn.Sender, &txn.Receiver,
		&burned, &minted, &txn.Metadata, &txn.IdempotencyKey, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	txn.BurnedAmount = uint64(burned)
	txn.MintedAmount = uint64(minted)
	txn.CreatedAt = txn.CreatedAt.UTC()
	return &txn, nil
}

func (r *PgxLedgerStore) findTransaction(ctx context.Context, where string, arg any) (*domain.Transaction, error) {
	txn, err := scanTransaction(r.Pool.QueryRow(ctx, transactionSelect+` WHERE `+where+` = $1;`, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.NewStorageError("failed to find transaction", err)
	}
	return txn, nil
}

// FindTransactionByID retrieves one transaction log row.
func (r *PgxLedgerStore) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.findTransaction(ctx, "t.transaction_id", id)
}

// FindTransactionByIdempotencyKey retrieves the row stored under a hashed key.
func (r *PgxLedgerStore) FindTransactionByIdempotencyKey(ctx context.Context, hashedKey string) (*domain.Transaction, error) {
	return r.findTransaction(ctx, "t.idempotency_key", hashedKey)
}

// ListTransactionsByOwner lists rows sent or received by owner within [from, to).
func (r *PgxLedgerStore) ListTransactionsByOwner(ctx context.Context, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return r.listTransactions(ctx, `(t.sender = $1 OR t.receiver = $1)`, owner, from, to)
}

// ListTransactionsByAsset lists rows of one asset within [from, to).
func (r *PgxLedgerStore) ListTransactionsByAsset(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return r.listTransactions(ctx, `t.asset_id = $1`, assetID, from, to)
}

func (r *PgxLedgerStore) listTransactions(ctx context.Context, scope string, arg any, from, to time.Time) ([]domain.Transaction, error) {
	var upper *time.Time
	if !to.IsZero() {
		upper = &to
	}
	query := transactionSelect + `
		WHERE ` + scope + `
			AND t.created_at >= $2
			AND ($3::timestamptz IS NULL OR t.created_at < $3)
		ORDER BY t.created_at, t.transaction_id;
	`
	rows, err := r.Pool.Query(ctx, query, arg, from, upper)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query transactions", err)
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		txn, err := scanTransaction(row)
		if err != nil {
			return domain.Transaction{}, err
		}
		return *txn, nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan transactions", err)
	}
	return txns, nil
}
