package memory_test

import (
	"context"
	"testing"

	"github.com/SscSPs/voledger/internal/adapters/database/memory"
	"github.com/SscSPs/voledger/internal/adapters/database/storetest"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) portsrepo.LedgerStore {
		return memory.NewStore()
	})
}

func TestStore_ClaimedRowsAreSkipped(t *testing.T) {
	store := memory.NewStore()
	asset := storetest.Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	storetest.Mint(t, store, asset, owner, 10, 20, 30)

	err := store.RunInTx(context.Background(), func(ctx context.Context, outer portsrepo.LedgerTx) error {
		claimed, err := outer.LockAlive(ctx, asset.ID, owner, nil, 2)
		require.NoError(t, err)
		require.Len(t, claimed, 2)

		done := make(chan []uint64)
		go func() {
			var seen []uint64
			_ = store.RunInTx(ctx, func(ctx context.Context, inner portsrepo.LedgerTx) error {
				vos, err := inner.LockAlive(ctx, asset.ID, owner, nil, 10)
				if err != nil {
					return err
				}
				for _, vo := range vos {
					seen = append(seen, vo.Amount)
				}
				return nil
			})
			done <- seen
		}()
		assert.Equal(t, []uint64{30}, <-done)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_CanceledContextRollsBack(t *testing.T) {
	store := memory.NewStore()
	asset := storetest.Asset(t, store, "USD", 1_000)
	owner := uuid.New()
	storetest.Mint(t, store, asset, owner, 10)

	ctx, cancel := context.WithCancel(context.Background())
	err := store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		vos, err := tx.LockAlive(ctx, asset.ID, owner, nil, 10)
		if err != nil {
			return err
		}
		cancel()
		return tx.MarkBurned(ctx, []uuid.UUID{vos[0].ID})
	})
	require.Error(t, err)

	balance, err := store.GetBalance(context.Background(), asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance.Available)
}
