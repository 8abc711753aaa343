package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
)

// TransactionOption customises a transaction log row written by TransferTo, Burn or
// RecordTransaction.
type TransactionOption func(*transactionOptions)

type transactionOptions struct {
	idempotencyKey *string
}

// WithIdempotencyKey attaches a caller chosen key to the row. A second row with the same
// key fails its whole block with *apperrors.DuplicateIdempotencyKeyError.
func WithIdempotencyKey(key string) TransactionOption {
	return func(o *transactionOptions) {
		hashed := domain.HashIdempotencyKey(key)
		o.idempotencyKey = &hashed
	}
}

// TxContext accumulates the plan and lock requests of one atomic block. It is safe for
// use by several goroutines inside the block and unusable once the block returns.
type TxContext struct {
	ledger *Ledger

	mu        sync.Mutex
	closed    bool
	plan      domain.ExecutionPlan
	locks     []domain.LockRequest
	lockIndex map[domain.LockKey]int
	moneys    []*Money
	slices    []*Slice
}

func newTxContext(l *Ledger) *TxContext {
	return &TxContext{ledger: l, lockIndex: make(map[domain.LockKey]int)}
}

// Mint creates amount of the asset for owner. Mints are not logged automatically;
// call RecordTransaction when an audit row is wanted.
func (tx *TxContext) Mint(ctx context.Context, code string, owner uuid.UUID, amount uint64, metadata string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	asset, err := tx.ledger.assets.ByCode(ctx, code)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return apperrors.ErrBlockClosed
	}
	tx.plan.Add(domain.MintOp{AssetID: asset.ID, To: owner, Amount: amount, Metadata: metadata})
	return nil
}

// Money claims amount of owner's value for this block. It must be sliced, and every
// slice consumed, before the block ends. Funds are only checked when the block executes.
func (tx *TxContext) Money(ctx context.Context, code string, owner uuid.UUID, amount uint64) (*Money, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	asset, err := tx.ledger.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return nil, apperrors.ErrBlockClosed
	}
	if err := tx.addLockLocked(asset.ID, owner, amount); err != nil {
		return nil, err
	}
	m := &Money{tx: tx, asset: asset, owner: owner, amount: amount, remaining: amount}
	tx.moneys = append(tx.moneys, m)
	return m, nil
}

// Reserve moves amount of owner's value into reserved value objects held by authority.
// Reservations are not logged automatically.
func (tx *TxContext) Reserve(ctx context.Context, code string, owner, authority uuid.UUID, amount uint64, metadata string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	asset, err := tx.ledger.assets.ByCode(ctx, code)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return apperrors.ErrBlockClosed
	}
	if err := tx.addLockLocked(asset.ID, owner, amount); err != nil {
		return err
	}
	tx.plan.Add(domain.ReserveOp{AssetID: asset.ID, From: owner, Authority: authority, Amount: amount, Metadata: metadata})
	return nil
}

// RecordTransaction appends an explicit audit row to the block.
func (tx *TxContext) RecordTransaction(ctx context.Context, code string, sender, receiver *uuid.UUID, burned, minted uint64, metadata string, opts ...TransactionOption) (*domain.TransactionHandle, error) {
	if burned > domain.MaxAmount || minted > domain.MaxAmount {
		return nil, fmt.Errorf("%w: amounts must not exceed %d", apperrors.ErrInvalidAmount, domain.MaxAmount)
	}
	asset, err := tx.ledger.assets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return nil, apperrors.ErrBlockClosed
	}
	return tx.recordLocked(asset, sender, receiver, burned, minted, metadata, opts), nil
}

// Balance reads owner's committed balance. Effects staged in this block are not included.
func (tx *TxContext) Balance(ctx context.Context, code string, owner uuid.UUID) (*domain.Balance, error) {
	if tx.isClosed() {
		return nil, apperrors.ErrBlockClosed
	}
	return tx.ledger.Balance(ctx, code, owner)
}

func (tx *TxContext) recordLocked(asset domain.Asset, sender, receiver *uuid.UUID, burned, minted uint64, metadata string, opts []TransactionOption) *domain.TransactionHandle {
	var o transactionOptions
	for _, opt := range opts {
		opt(&o)
	}
	txn := domain.Transaction{
		ID:             domain.NewID(),
		AssetID:        asset.ID,
		AssetCode:      asset.Code,
		Sender:         copyID(sender),
		Receiver:       copyID(receiver),
		BurnedAmount:   burned,
		MintedAmount:   minted,
		Metadata:       metadata,
		IdempotencyKey: o.idempotencyKey,
		CreatedAt:      tx.ledger.now().UTC(),
	}
	tx.plan.Add(domain.RecordTransactionOp{Transaction: txn})
	return &domain.TransactionHandle{
		TransactionID: txn.ID,
		AssetID:       asset.ID,
		Sender:        copyID(sender),
		Receiver:      copyID(receiver),
		Amount:        max(burned, minted),
	}
}

func (tx *TxContext) addLockLocked(assetID, owner uuid.UUID, amount uint64) error {
	key := domain.LockKey{AssetID: assetID, Owner: owner}
	i, ok := tx.lockIndex[key]
	if !ok {
		tx.lockIndex[key] = len(tx.locks)
		tx.locks = append(tx.locks, domain.LockRequest{AssetID: assetID, Owner: owner, Amount: amount})
		return nil
	}
	if tx.locks[i].Amount > domain.MaxAmount-amount {
		return fmt.Errorf("%w: block locks more than %d of %s", apperrors.ErrInvalidAmount, domain.MaxAmount, owner)
	}
	tx.locks[i].Amount += amount
	return nil
}

func (tx *TxContext) isClosed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.closed
}

func (tx *TxContext) markClosed() {
	tx.mu.Lock()
	tx.closed = true
	tx.mu.Unlock()
}

// seal closes the context and checks that all claimed value is accounted for.
func (tx *TxContext) seal() (*domain.ExecutionPlan, []domain.LockRequest, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.closed = true

	for _, m := range tx.moneys {
		if !m.sliced {
			return nil, nil, apperrors.NewStorageError(
				fmt.Sprintf("money of %d %s for %s created but never sliced", m.amount, m.asset.Code, m.owner), nil)
		}
	}
	for _, s := range tx.slices {
		if !s.consumed && s.remaining > 0 {
			return nil, nil, fmt.Errorf("%w: %d %s of %s neither transferred nor burned",
				apperrors.ErrUnconsumedSlice, s.remaining, s.asset.Code, s.owner)
		}
	}

	plan := &domain.ExecutionPlan{}
	for _, op := range tx.plan.Operations() {
		plan.Add(op)
	}
	locks := make([]domain.LockRequest, len(tx.locks))
	copy(locks, tx.locks)
	return plan, locks, nil
}

func checkAmount(amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrInvalidAmount)
	}
	if amount > domain.MaxAmount {
		return fmt.Errorf("%w: %d exceeds %d", apperrors.ErrInvalidAmount, amount, domain.MaxAmount)
	}
	return nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
