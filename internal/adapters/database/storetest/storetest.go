// Package storetest holds the behaviour every ledger store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one test.
type Factory func(t *testing.T) portsrepo.LedgerStore

var errAbort = errors.New("abort")

// Run executes the shared store tests against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AssetUpsertKeepsFirstDefinition", func(t *testing.T) { testAssetUpsert(t, newStore(t)) })
	t.Run("AssetNotFound", func(t *testing.T) { testAssetNotFound(t, newStore(t)) })
	t.Run("MintedValueIsVisibleAfterCommit", func(t *testing.T) { testMintAndBalance(t, newStore(t)) })
	t.Run("LockAliveOrdersAndPages", func(t *testing.T) { testLockAliveOrdering(t, newStore(t)) })
	t.Run("RollbackDiscardsWrites", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("BurnRequiresClaim", func(t *testing.T) { testBurnRequiresClaim(t, newStore(t)) })
	t.Run("BurnedValueLeavesBalance", func(t *testing.T) { testBurn(t, newStore(t)) })
	t.Run("IdempotencyKeyIsUnique", func(t *testing.T) { testIdempotency(t, newStore(t)) })
	t.Run("TransactionQueries", func(t *testing.T) { testTransactionQueries(t, newStore(t)) })
	t.Run("Holdings", func(t *testing.T) { testHoldings(t, newStore(t)) })
}

// Asset registers a fresh asset with the given unit.
func Asset(t *testing.T, store portsrepo.LedgerStore, code string, unit uint64) domain.Asset {
	t.Helper()
	stored, err := store.UpsertAsset(context.Background(), domain.NewAsset(code, unit, 2))
	require.NoError(t, err)
	return *stored
}

// Mint commits value objects of the given amounts for owner.
func Mint(t *testing.T, store portsrepo.LedgerStore, asset domain.Asset, owner uuid.UUID, amounts ...uint64) []domain.ValueObject {
	t.Helper()
	now := time.Now().UTC()
	vos := make([]domain.ValueObject, 0, len(amounts))
	for _, amount := range amounts {
		vos = append(vos, domain.FragmentAmount(amount, amount, asset.ID, owner, nil, now)...)
	}
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertValueObjects(ctx, vos)
	})
	require.NoError(t, err)
	return vos
}

func testAssetUpsert(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	first := Asset(t, store, "USD", 10_000)

	again, err := store.UpsertAsset(ctx, domain.NewAsset("USD", 5, 0))
	require.NoError(t, err)
	assert.Equal(t, first, *again)

	byCode, err := store.FindAssetByCode(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, first, *byCode)

	byID, err := store.FindAssetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *byID)

	Asset(t, store, "EUR", 10_000)
	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "EUR", assets[0].Code)
	assert.Equal(t, "USD", assets[1].Code)
}

func testAssetNotFound(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	_, err := store.FindAssetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = store.FindAssetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)

	_, err = store.FindTransactionByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}

func testMintAndBalance(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	asset := Asset(t, store, "USD", 100)
	owner := uuid.New()
	authority := uuid.New()

	Mint(t, store, asset, owner, 100, 100, 50)
	reserved := domain.FragmentAmount(30, 100, asset.ID, authority, &authority, time.Now().UTC())
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertValueObjects(ctx, reserved)
	}))

	balance, err := store.GetBalance(ctx, asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), balance.Available)
	assert.Equal(t, uint64(0), balance.Reserved)
	assert.Equal(t, uint64(250), balance.Total)

	authorityBalance, err := store.GetBalance(ctx, asset.ID, authority)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), authorityBalance.Available)
	assert.Equal(t, uint64(30), authorityBalance.Reserved)

	vos, err := store.ListValueObjects(ctx, asset.ID, owner)
	require.NoError(t, err)
	assert.Len(t, vos, 3)

	empty, err := store.GetBalance(ctx, asset.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), empty.Total)
}

func testLockAliveOrdering(t *testing.T, store portsrepo.LedgerStore) {
	asset := Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	Mint(t, store, asset, owner, 50, 10, 30, 20, 40)
	Mint(t, store, asset, uuid.New(), 1)

	var pages [][]uint64
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		var cursor *domain.CoinCursor
		for {
			batch, err := tx.LockAlive(ctx, asset.ID, owner, cursor, 2)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return nil
			}
			page := make([]uint64, 0, len(batch))
			for _, vo := range batch {
				assert.Equal(t, owner, vo.Owner)
				assert.Equal(t, domain.StateAlive, vo.State)
				page = append(page, vo.Amount)
			}
			pages = append(pages, page)
			next := domain.CursorOf(batch[len(batch)-1])
			cursor = &next
		}
	})
	require.NoError(t, err)
	assert.Equal(t, [][]uint64{{10, 20}, {30, 40}, {50}}, pages)
}

func testRollback(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	asset := Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	Mint(t, store, asset, owner, 100)

	err := store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		vos, err := tx.LockAlive(ctx, asset.ID, owner, nil, 10)
		if err != nil {
			return err
		}
		if err := tx.MarkBurned(ctx, []uuid.UUID{vos[0].ID}); err != nil {
			return err
		}
		minted := domain.FragmentAmount(500, 1_000, asset.ID, owner, nil, time.Now().UTC())
		if err := tx.InsertValueObjects(ctx, minted); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	balance, err := store.GetBalance(ctx, asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance.Available)

	// the claim was released with the rollback
	err = store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		vos, err := tx.LockAlive(ctx, asset.ID, owner, nil, 10)
		if err != nil {
			return err
		}
		assert.Len(t, vos, 1)
		return nil
	})
	require.NoError(t, err)
}

func testBurnRequiresClaim(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	asset := Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	vos := Mint(t, store, asset, owner, 100)

	err := store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.MarkBurned(ctx, []uuid.UUID{vos[0].ID})
	})
	require.Error(t, err)

	balance, err := store.GetBalance(ctx, asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance.Available)
}

func testBurn(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	asset := Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	Mint(t, store, asset, owner, 100, 200)

	err := store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		vos, err := tx.LockAlive(ctx, asset.ID, owner, nil, 1)
		if err != nil {
			return err
		}
		return tx.MarkBurned(ctx, []uuid.UUID{vos[0].ID})
	})
	require.NoError(t, err)

	balance, err := store.GetBalance(ctx, asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), balance.Available)

	vos, err := store.ListValueObjects(ctx, asset.ID, owner)
	require.NoError(t, err)
	states := map[domain.ValueObjectState]uint64{}
	for _, vo := range vos {
		states[vo.State] += vo.Amount
	}
	assert.Equal(t, map[domain.ValueObjectState]uint64{domain.StateBurned: 100, domain.StateAlive: 200}, states)

	err = store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		vos, err := tx.LockAlive(ctx, asset.ID, owner, nil, 10)
		if err != nil {
			return err
		}
		require.Len(t, vos, 1)
		assert.Equal(t, uint64(200), vos[0].Amount)
		return nil
	})
	require.NoError(t, err)
}

func newTransaction(asset domain.Asset, sender, receiver *uuid.UUID, amount uint64, at time.Time, key string) domain.Transaction {
	txn := domain.Transaction{
		ID:           domain.NewID(),
		AssetID:      asset.ID,
		AssetCode:    asset.Code,
		Sender:       sender,
		Receiver:     receiver,
		BurnedAmount: amount,
		MintedAmount: amount,
		Metadata:     "test",
		CreatedAt:    at.UTC().Truncate(time.Microsecond),
	}
	if key != "" {
		hashed := domain.HashIdempotencyKey(key)
		txn.IdempotencyKey = &hashed
	}
	return txn
}

func insertTransactions(t *testing.T, store portsrepo.LedgerStore, txns ...domain.Transaction) error {
	t.Helper()
	return store.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for _, txn := range txns {
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
		}
		return nil
	})
}

func testIdempotency(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	asset := Asset(t, store, "USD", 1_000)
	alice, bob := uuid.New(), uuid.New()
	now := time.Now()

	first := newTransaction(asset, &alice, &bob, 10, now, "order-1")
	require.NoError(t, insertTransactions(t, store, first))

	err := insertTransactions(t, store, newTransaction(asset, &alice, &bob, 10, now, "order-1"))
	var dup *apperrors.DuplicateIdempotencyKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.TransactionID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateIdempotencyKey)

	inBlock := newTransaction(asset, &alice, &bob, 10, now, "order-2")
	err = insertTransactions(t, store, inBlock, newTransaction(asset, &alice, &bob, 10, now, "order-2"))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, inBlock.ID, dup.TransactionID)

	_, err = store.FindTransactionByIdempotencyKey(ctx, domain.HashIdempotencyKey("order-2"))
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	found, err := store.FindTransactionByIdempotencyKey(ctx, domain.HashIdempotencyKey("order-1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	// rows without a key never conflict
	require.NoError(t, insertTransactions(t, store,
		newTransaction(asset, &alice, &bob, 1, now, ""),
		newTransaction(asset, &alice, &bob, 1, now, "")))
}

func testTransactionQueries(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	usd := Asset(t, store, "USD", 1_000)
	eur := Asset(t, store, "EUR", 1_000)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mint := newTransaction(usd, nil, &alice, 100, base, "")
	pay := newTransaction(usd, &alice, &bob, 40, base.Add(time.Hour), "")
	burn := newTransaction(usd, &bob, nil, 5, base.Add(2*time.Hour), "")
	other := newTransaction(eur, &carol, &alice, 7, base.Add(3*time.Hour), "")
	require.NoError(t, insertTransactions(t, store, mint, pay, burn, other))

	got, err := store.FindTransactionByID(ctx, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, pay.ID, got.ID)
	assert.Equal(t, "USD", got.AssetCode)
	require.NotNil(t, got.Sender)
	require.NotNil(t, got.Receiver)
	assert.Equal(t, alice, *got.Sender)
	assert.Equal(t, bob, *got.Receiver)
	assert.Equal(t, uint64(40), got.BurnedAmount)
	assert.True(t, pay.CreatedAt.Equal(got.CreatedAt))

	ids := func(txns []domain.Transaction) []uuid.UUID {
		out := make([]uuid.UUID, len(txns))
		for i, txn := range txns {
			out[i] = txn.ID
		}
		return out
	}

	forAlice, err := store.ListTransactionsByOwner(ctx, alice, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mint.ID, pay.ID, other.ID}, ids(forAlice))

	window, err := store.ListTransactionsByOwner(ctx, alice, base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pay.ID}, ids(window))

	forUSD, err := store.ListTransactionsByAsset(ctx, usd.ID, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mint.ID, pay.ID}, ids(forUSD))
}

func testHoldings(t *testing.T, store portsrepo.LedgerStore) {
	ctx := context.Background()
	usd := Asset(t, store, "USD", 1_000)
	eur := Asset(t, store, "EUR", 1_000)
	owner := uuid.New()

	Mint(t, store, usd, owner, 300)
	Mint(t, store, eur, owner, 20, 30)
	Mint(t, store, eur, uuid.New(), 999)

	holdings, err := store.GetHoldings(ctx, owner)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "EUR", holdings[0].Asset.Code)
	assert.Equal(t, uint64(50), holdings[0].Balance.Total)
	assert.Equal(t, "USD", holdings[1].Asset.Code)
	assert.Equal(t, uint64(300), holdings[1].Balance.Available)
}
