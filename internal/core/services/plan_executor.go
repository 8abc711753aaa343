package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
)

// PlanExecutor applies an execution plan to a store in a single storage transaction.
type PlanExecutor struct {
	store     portsrepo.TransactionManager
	assets    *AssetCache
	batchSize int
	now       func() time.Time
}

// NewPlanExecutor creates an executor. batchSize bounds how many value objects a single
// LockAlive call claims.
func NewPlanExecutor(store portsrepo.TransactionManager, assets *AssetCache, batchSize int, now func() time.Time) *PlanExecutor {
	if now == nil {
		now = time.Now
	}
	return &PlanExecutor{store: store, assets: assets, batchSize: batchSize, now: now}
}

// Execute locks the requested collateral, applies plan in order and returns change to
// every locked owner. Either all of it commits or none of it does.
//
// Phases, inside one storage transaction:
//  1. claim alive value objects covering each lock request, or fail with ErrInsufficientFunds
//  2. apply the operations, tracking how much of each owner's collateral they use
//  3. burn every claimed value object and mint locked-minus-used back to its owner
func (e *PlanExecutor) Execute(ctx context.Context, plan *domain.ExecutionPlan, locks []domain.LockRequest) error {
	merged, err := mergeLocks(locks)
	if err != nil {
		return err
	}
	ops := plan.Operations()

	return e.store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		now := e.now().UTC()

		selections := make(map[domain.LockKey]*coinSelection, len(merged))
		for _, req := range merged {
			sel, err := selectCoins(ctx, tx, req, e.batchSize)
			if err != nil {
				return err
			}
			selections[req.Key()] = sel
		}

		spend := func(assetID, owner uuid.UUID, amount uint64) error {
			if amount > domain.MaxAmount {
				return fmt.Errorf("%w: %d exceeds %d", apperrors.ErrInvalidAmount, amount, domain.MaxAmount)
			}
			sel, ok := selections[domain.LockKey{AssetID: assetID, Owner: owner}]
			if !ok {
				return fmt.Errorf("%w: no collateral locked for owner %s in asset %s", apperrors.ErrInvalidAmount, owner, assetID)
			}
			return sel.spend(amount)
		}

		for _, op := range ops {
			switch o := op.(type) {
			case domain.MintOp:
				if err := e.mint(ctx, tx, o.AssetID, o.To, o.Amount, nil, now); err != nil {
					return err
				}
			case domain.TransferOp:
				if err := spend(o.AssetID, o.From, o.Amount); err != nil {
					return err
				}
				if err := e.mint(ctx, tx, o.AssetID, o.To, o.Amount, nil, now); err != nil {
					return err
				}
			case domain.ReserveOp:
				if err := spend(o.AssetID, o.From, o.Amount); err != nil {
					return err
				}
				authority := o.Authority
				if err := e.mint(ctx, tx, o.AssetID, o.Authority, o.Amount, &authority, now); err != nil {
					return err
				}
			case domain.BurnOp:
				if err := spend(o.AssetID, o.From, o.Amount); err != nil {
					return err
				}
			case domain.RecordTransactionOp:
				if err := tx.InsertTransaction(ctx, o.Transaction); err != nil {
					return fmt.Errorf("failed to record transaction %s: %w", o.Transaction.ID, err)
				}
			default:
				return fmt.Errorf("unsupported operation %T", op)
			}
		}

		for _, req := range merged {
			sel := selections[req.Key()]
			if len(sel.coins) > 0 {
				ids := make([]uuid.UUID, len(sel.coins))
				for i, vo := range sel.coins {
					ids[i] = vo.ID
				}
				if err := tx.MarkBurned(ctx, ids); err != nil {
					return fmt.Errorf("failed to burn collateral of %s: %w", req.Owner, err)
				}
			}
			if err := e.mint(ctx, tx, req.AssetID, req.Owner, sel.change(), nil, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *PlanExecutor) mint(ctx context.Context, tx portsrepo.LedgerTx, assetID, owner uuid.UUID, amount uint64, reservedFor *uuid.UUID, now time.Time) error {
	if amount == 0 {
		return nil
	}
	if amount > domain.MaxAmount {
		return fmt.Errorf("%w: %d exceeds %d", apperrors.ErrInvalidAmount, amount, domain.MaxAmount)
	}
	asset, err := e.assets.ByID(ctx, assetID)
	if err != nil {
		return err
	}
	fragments := domain.FragmentAmount(amount, asset.Unit, asset.ID, owner, reservedFor, now)
	if err := tx.InsertValueObjects(ctx, fragments); err != nil {
		return fmt.Errorf("failed to mint %d %s to %s: %w", amount, asset.Code, owner, err)
	}
	return nil
}
