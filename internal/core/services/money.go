package services

import (
	"fmt"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
)

// Money is value of one owner claimed by an atomic block. It can only be spent through
// slices; whatever is never sliced returns to the owner as change.
type Money struct {
	tx        *TxContext
	asset     domain.Asset
	owner     uuid.UUID
	amount    uint64
	remaining uint64
	sliced    bool
}

// Asset returns the money's asset.
func (m *Money) Asset() domain.Asset { return m.asset }

// Owner returns whose value the money claims.
func (m *Money) Owner() uuid.UUID { return m.owner }

// Amount returns the claimed amount.
func (m *Money) Amount() uint64 { return m.amount }

// Remaining returns the amount not yet carved into slices.
func (m *Money) Remaining() uint64 {
	m.tx.mu.Lock()
	defer m.tx.mu.Unlock()
	return m.remaining
}

// Slice carves amount out of the money. amount must be positive and at most Remaining.
func (m *Money) Slice(amount uint64) (*Slice, error) {
	m.tx.mu.Lock()
	defer m.tx.mu.Unlock()
	if m.tx.closed {
		return nil, apperrors.ErrBlockClosed
	}
	if err := carve(&m.remaining, amount); err != nil {
		return nil, err
	}
	m.sliced = true
	return m.tx.newSliceLocked(m.asset, m.owner, amount), nil
}

// Slice is a portion of a Money that must be transferred, burned or fully sub-sliced
// before its block ends.
type Slice struct {
	tx        *TxContext
	asset     domain.Asset
	owner     uuid.UUID
	amount    uint64
	remaining uint64
	consumed  bool
}

func (tx *TxContext) newSliceLocked(asset domain.Asset, owner uuid.UUID, amount uint64) *Slice {
	s := &Slice{tx: tx, asset: asset, owner: owner, amount: amount, remaining: amount}
	tx.slices = append(tx.slices, s)
	return s
}

// Amount returns the amount the slice was carved with.
func (s *Slice) Amount() uint64 { return s.amount }

// Remaining returns the value still held by the slice.
func (s *Slice) Remaining() uint64 {
	s.tx.mu.Lock()
	defer s.tx.mu.Unlock()
	return s.remaining
}

// IsConsumed reports whether TransferTo or Burn has been called.
func (s *Slice) IsConsumed() bool {
	s.tx.mu.Lock()
	defer s.tx.mu.Unlock()
	return s.consumed
}

// Slice carves a sub-slice out of this slice's remaining value.
func (s *Slice) Slice(amount uint64) (*Slice, error) {
	s.tx.mu.Lock()
	defer s.tx.mu.Unlock()
	if s.tx.closed {
		return nil, apperrors.ErrBlockClosed
	}
	if s.consumed {
		return nil, apperrors.ErrSliceConsumed
	}
	if err := carve(&s.remaining, amount); err != nil {
		return nil, err
	}
	return s.tx.newSliceLocked(s.asset, s.owner, amount), nil
}

// TransferTo moves the slice's remaining value to recipient and logs it.
func (s *Slice) TransferTo(recipient uuid.UUID, metadata string, opts ...TransactionOption) (*domain.TransactionHandle, error) {
	s.tx.mu.Lock()
	defer s.tx.mu.Unlock()
	amount, err := s.consumeLocked()
	if err != nil {
		return nil, err
	}
	s.tx.plan.Add(domain.TransferOp{AssetID: s.asset.ID, From: s.owner, To: recipient, Amount: amount, Metadata: metadata})
	sender := s.owner
	return s.tx.recordLocked(s.asset, &sender, &recipient, amount, amount, metadata, opts), nil
}

// Burn destroys the slice's remaining value and logs it.
func (s *Slice) Burn(metadata string, opts ...TransactionOption) (*domain.TransactionHandle, error) {
	s.tx.mu.Lock()
	defer s.tx.mu.Unlock()
	amount, err := s.consumeLocked()
	if err != nil {
		return nil, err
	}
	s.tx.plan.Add(domain.BurnOp{AssetID: s.asset.ID, From: s.owner, Amount: amount, Metadata: metadata})
	sender := s.owner
	return s.tx.recordLocked(s.asset, &sender, nil, amount, 0, metadata, opts), nil
}

func (s *Slice) consumeLocked() (uint64, error) {
	if s.tx.closed {
		return 0, apperrors.ErrBlockClosed
	}
	if s.consumed {
		return 0, apperrors.ErrSliceConsumed
	}
	if s.remaining == 0 {
		return 0, fmt.Errorf("%w: slice was fully carved into sub-slices", apperrors.ErrInvalidAmount)
	}
	amount := s.remaining
	s.remaining = 0
	s.consumed = true
	return amount, nil
}

func carve(remaining *uint64, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: slice amount must be positive", apperrors.ErrInvalidAmount)
	}
	if amount > *remaining {
		return fmt.Errorf("%w: cannot slice %d, only %d remaining", apperrors.ErrInvalidAmount, amount, *remaining)
	}
	*remaining -= amount
	return nil
}
