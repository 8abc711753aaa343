// Package memory is an in-process ledger store. Value objects claimed by an open
// transaction carry a claim marker; other transactions skip them instead of waiting,
// and all writes of a transaction are staged and applied at commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
)

type valueObjectRow struct {
	vo        domain.ValueObject
	claimedBy uuid.UUID
}

// Store keeps the whole ledger in maps guarded by one mutex. The mutex is held only for
// single claim, read and commit steps, never across a whole transaction.
type Store struct {
	mu           sync.Mutex
	assets       map[uuid.UUID]domain.Asset
	assetCodes   map[string]uuid.UUID
	valueObjects map[uuid.UUID]*valueObjectRow
	byKey        map[domain.LockKey][]uuid.UUID
	transactions []domain.Transaction
	txnByID      map[uuid.UUID]int
	idempotency  map[string]uuid.UUID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		assets:       make(map[uuid.UUID]domain.Asset),
		assetCodes:   make(map[string]uuid.UUID),
		valueObjects: make(map[uuid.UUID]*valueObjectRow),
		byKey:        make(map[domain.LockKey][]uuid.UUID),
		txnByID:      make(map[uuid.UUID]int),
		idempotency:  make(map[string]uuid.UUID),
	}
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// Close implements io.Closer; there is nothing to release.
func (s *Store) Close() error { return nil }

// RunInTx runs fn with a fresh transaction and commits its staged writes if fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx := &memTx{store: s, id: uuid.New(), claimed: make(map[uuid.UUID]struct{})}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError("transaction aborted", err)
	}
	return tx.commit()
}

type memTx struct {
	store   *Store
	id      uuid.UUID
	claimed map[uuid.UUID]struct{}
	minted  []domain.ValueObject
	burned  []uuid.UUID
	txns    []domain.Transaction
	done    bool
}

func (tx *memTx) LockAlive(ctx context.Context, assetID, owner uuid.UUID, after *domain.CoinCursor, limit int) ([]domain.ValueObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("lock aborted", err)
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]domain.ValueObject, 0)
	for _, id := range s.byKey[domain.LockKey{AssetID: assetID, Owner: owner}] {
		row := s.valueObjects[id]
		if row.vo.State != domain.StateAlive {
			continue
		}
		if row.claimedBy != uuid.Nil && row.claimedBy != tx.id {
			continue
		}
		if after != nil && !after.After(row.vo) {
			continue
		}
		candidates = append(candidates, row.vo)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return domain.LessForSelection(candidates[i], candidates[j])
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, vo := range candidates {
		s.valueObjects[vo.ID].claimedBy = tx.id
		tx.claimed[vo.ID] = struct{}{}
	}
	return candidates, nil
}

func (tx *memTx) InsertValueObjects(_ context.Context, vos []domain.ValueObject) error {
	for _, vo := range vos {
		if vo.Amount == 0 {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s has zero amount", vo.ID), nil)
		}
	}
	tx.minted = append(tx.minted, vos...)
	return nil
}

func (tx *memTx) MarkBurned(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := tx.claimed[id]; !ok {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s is not claimed by this transaction", id), nil)
		}
	}
	tx.burned = append(tx.burned, ids...)
	return nil
}

func (tx *memTx) InsertTransaction(_ context.Context, txn domain.Transaction) error {
	if txn.IdempotencyKey != nil {
		for _, staged := range tx.txns {
			if staged.IdempotencyKey != nil && *staged.IdempotencyKey == *txn.IdempotencyKey {
				return &apperrors.DuplicateIdempotencyKeyError{TransactionID: staged.ID}
			}
		}
		s := tx.store
		s.mu.Lock()
		existing, taken := s.idempotency[*txn.IdempotencyKey]
		s.mu.Unlock()
		if taken {
			return &apperrors.DuplicateIdempotencyKeyError{TransactionID: existing}
		}
	}
	tx.txns = append(tx.txns, txn)
	return nil
}

// commit applies the staged writes. Idempotency keys are re-checked under the lock
// because a concurrent transaction may have committed the same key since staging.
func (tx *memTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range tx.txns {
		if txn.IdempotencyKey == nil {
			continue
		}
		if existing, taken := s.idempotency[*txn.IdempotencyKey]; taken {
			return &apperrors.DuplicateIdempotencyKeyError{TransactionID: existing}
		}
	}
	for _, id := range tx.burned {
		row := s.valueObjects[id]
		if row == nil || row.vo.State != domain.StateAlive || row.claimedBy != tx.id {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s cannot be burned", id), nil)
		}
	}

	for _, id := range tx.burned {
		s.valueObjects[id].vo.State = domain.StateBurned
	}
	for _, vo := range tx.minted {
		s.valueObjects[vo.ID] = &valueObjectRow{vo: vo}
		key := domain.LockKey{AssetID: vo.AssetID, Owner: vo.Owner}
		s.byKey[key] = append(s.byKey[key], vo.ID)
	}
	for _, txn := range tx.txns {
		s.txnByID[txn.ID] = len(s.transactions)
		s.transactions = append(s.transactions, txn)
		if txn.IdempotencyKey != nil {
			s.idempotency[*txn.IdempotencyKey] = txn.ID
		}
	}
	return nil
}

// release drops every claim marker the transaction still holds.
func (tx *memTx) release() {
	if tx.done {
		return
	}
	tx.done = true
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range tx.claimed {
		if row := s.valueObjects[id]; row != nil && row.claimedBy == tx.id {
			row.claimedBy = uuid.Nil
		}
	}
}

func (s *Store) FindAssetByCode(_ context.Context, code string) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.assetCodes[code]
	if !ok {
		return nil, apperrors.ErrAssetNotFound
	}
	asset := s.assets[id]
	return &asset, nil
}

func (s *Store) FindAssetByID(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, apperrors.ErrAssetNotFound
	}
	return &asset, nil
}

func (s *Store) ListAssets(_ context.Context) ([]domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assets := make([]domain.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Code < assets[j].Code })
	return assets, nil
}

func (s *Store) UpsertAsset(_ context.Context, asset domain.Asset) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.assetCodes[asset.Code]; ok {
		existing := s.assets[id]
		return &existing, nil
	}
	s.assets[asset.ID] = asset
	s.assetCodes[asset.Code] = asset.ID
	return &asset, nil
}

func (s *Store) GetBalance(_ context.Context, assetID, owner uuid.UUID) (domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(assetID, owner), nil
}

func (s *Store) balanceLocked(assetID, owner uuid.UUID) domain.Balance {
	b := domain.Balance{Owner: owner, AssetID: assetID}
	for _, id := range s.byKey[domain.LockKey{AssetID: assetID, Owner: owner}] {
		vo := s.valueObjects[id].vo
		switch vo.State {
		case domain.StateAlive:
			b.Available += vo.Amount
		case domain.StateReserved:
			b.Reserved += vo.Amount
		}
		if vo.CreatedAt.After(b.UpdatedAt) {
			b.UpdatedAt = vo.CreatedAt
		}
	}
	b.Total = b.Available + b.Reserved
	return b
}

func (s *Store) GetHoldings(_ context.Context, owner uuid.UUID) ([]domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holdings := make([]domain.Holding, 0)
	for key := range s.byKey {
		if key.Owner != owner {
			continue
		}
		holdings = append(holdings, domain.Holding{
			Asset:   s.assets[key.AssetID],
			Balance: s.balanceLocked(key.AssetID, owner),
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Asset.Code < holdings[j].Asset.Code })
	return holdings, nil
}

func (s *Store) ListValueObjects(_ context.Context, assetID, owner uuid.UUID) ([]domain.ValueObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byKey[domain.LockKey{AssetID: assetID, Owner: owner}]
	vos := make([]domain.ValueObject, 0, len(ids))
	for _, id := range ids {
		vos = append(vos, s.valueObjects[id].vo)
	}
	return vos, nil
}

func (s *Store) FindTransactionByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.txnByID[id]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	txn := s.transactions[i]
	return &txn, nil
}

func (s *Store) FindTransactionByIdempotencyKey(_ context.Context, hashedKey string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.idempotency[hashedKey]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	txn := s.transactions[s.txnByID[id]]
	return &txn, nil
}

func (s *Store) ListTransactionsByOwner(_ context.Context, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return s.filterTransactions(from, to, func(txn domain.Transaction) bool { return txn.Involves(owner) }), nil
}

func (s *Store) ListTransactionsByAsset(_ context.Context, assetID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return s.filterTransactions(from, to, func(txn domain.Transaction) bool { return txn.AssetID == assetID }), nil
}

func (s *Store) filterTransactions(from, to time.Time, match func(domain.Transaction) bool) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.CreatedAt.Before(from) || (!to.IsZero() && !txn.CreatedAt.Before(to)) {
			continue
		}
		if match(txn) {
			out = append(out, txn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
