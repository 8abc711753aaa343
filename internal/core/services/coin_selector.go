package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
)

const defaultCoinSelectionBatchSize = 32

// coinSelection is the collateral claimed for one lock request.
type coinSelection struct {
	key    domain.LockKey
	coins  []domain.ValueObject
	locked uint64
	used   uint64
}

// selectCoins claims alive value objects of the request's owner, smallest first, until
// they cover req.Amount. Batches come from LockAlive, which skips rows other
// transactions hold. Rows of the last batch beyond the covering one stay alive and are
// released when the storage transaction ends.
func selectCoins(ctx context.Context, tx portsrepo.LedgerTx, req domain.LockRequest, batchSize int) (*coinSelection, error) {
	if batchSize <= 0 {
		batchSize = defaultCoinSelectionBatchSize
	}
	sel := &coinSelection{key: req.Key()}
	var cursor *domain.CoinCursor

	for sel.locked < req.Amount {
		batch, err := tx.LockAlive(ctx, req.AssetID, req.Owner, cursor, batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to lock value objects of %s: %w", req.Owner, err)
		}
		for _, vo := range batch {
			sel.coins = append(sel.coins, vo)
			sel.locked += vo.Amount
			if sel.locked >= req.Amount {
				break
			}
		}
		if len(batch) < batchSize {
			break
		}
		next := domain.CursorOf(batch[len(batch)-1])
		cursor = &next
	}

	if sel.locked < req.Amount {
		return nil, fmt.Errorf("%w: owner %s holds %d claimable of %d required in asset %s",
			apperrors.ErrInsufficientFunds, req.Owner, sel.locked, req.Amount, req.AssetID)
	}
	return sel, nil
}

// spend records amount of the selection as used by the plan.
func (s *coinSelection) spend(amount uint64) error {
	if amount > s.locked-s.used {
		return fmt.Errorf("%w: plan spends %d more than the %d locked for %s",
			apperrors.ErrInvalidAmount, amount-(s.locked-s.used), s.locked, s.key.Owner)
	}
	s.used += amount
	return nil
}

// change is the locked value that returns to the owner.
func (s *coinSelection) change() uint64 {
	return s.locked - s.used
}

// mergeLocks folds requests for the same (asset, owner) into one, keeping first-seen order.
func mergeLocks(locks []domain.LockRequest) ([]domain.LockRequest, error) {
	index := make(map[domain.LockKey]int, len(locks))
	merged := make([]domain.LockRequest, 0, len(locks))
	for _, req := range locks {
		if req.Amount > domain.MaxAmount {
			return nil, fmt.Errorf("%w: lock of %d exceeds %d", apperrors.ErrInvalidAmount, req.Amount, domain.MaxAmount)
		}
		i, ok := index[req.Key()]
		if !ok {
			index[req.Key()] = len(merged)
			merged = append(merged, req)
			continue
		}
		if merged[i].Amount > domain.MaxAmount-req.Amount {
			return nil, fmt.Errorf("%w: locks for %s exceed %d", apperrors.ErrInvalidAmount, req.Owner, domain.MaxAmount)
		}
		merged[i].Amount += req.Amount
	}
	return merged, nil
}
