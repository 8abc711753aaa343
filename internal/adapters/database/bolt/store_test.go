package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SscSPs/voledger/internal/adapters/database/bolt"
	"github.com/SscSPs/voledger/internal/adapters/database/storetest"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/SscSPs/voledger/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *bolt.Store {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) portsrepo.LedgerStore {
		return openStore(t)
	})
}

func TestStore_ReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := bolt.Open(path)
	require.NoError(t, err)
	asset := storetest.Asset(t, store, "USD", 100)
	owner := uuid.New()
	storetest.Mint(t, store, asset, owner, 70, 30)
	require.NoError(t, store.Close())

	reopened, err := bolt.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	balance, err := reopened.GetBalance(context.Background(), asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance.Available)
}

func TestStore_LedgerTransfer(t *testing.T) {
	ctx := context.Background()
	ledger, err := services.NewLedger(openStore(t), services.WithCoinSelectionBatchSize(2))
	require.NoError(t, err)
	_, err = ledger.CreateAsset(ctx, domain.NewAsset("PTS", 10, 0))
	require.NoError(t, err)
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, ledger.Atomic(ctx, func(tx *services.TxContext) error {
		return tx.Mint(ctx, "PTS", alice, 55, "")
	}))

	var handle *domain.TransactionHandle
	require.NoError(t, ledger.Atomic(ctx, func(tx *services.TxContext) error {
		money, err := tx.Money(ctx, "PTS", alice, 33)
		if err != nil {
			return err
		}
		slice, err := money.Slice(33)
		if err != nil {
			return err
		}
		handle, err = slice.TransferTo(bob, "bolt", services.WithIdempotencyKey("k-1"))
		return err
	}))

	aliceBalance, err := ledger.Balance(ctx, "PTS", alice)
	require.NoError(t, err)
	bobBalance, err := ledger.Balance(ctx, "PTS", bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(22), aliceBalance.Available)
	assert.Equal(t, uint64(33), bobBalance.Available)

	vos, err := ledger.ValueObjects(ctx, "PTS", bob)
	require.NoError(t, err)
	for _, vo := range vos {
		assert.LessOrEqual(t, vo.Amount, uint64(10))
	}

	txn, err := ledger.GetTransactionByIdempotencyKey(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, handle.TransactionID, txn.ID)

	history, err := ledger.TransactionsForOwner(ctx, bob, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bolt", history[0].Metadata)
}
