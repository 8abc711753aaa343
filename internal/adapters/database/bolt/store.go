// Package bolt is an embedded ledger store on a single bbolt file. bbolt allows one
// writer at a time, so a storage transaction never meets value objects claimed by
// another one and LockAlive has nothing to skip.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketAssets      = []byte("assets")
	bucketAssetCodes  = []byte("asset_codes")
	bucketVOs         = []byte("value_objects")
	bucketAlive       = []byte("alive_index")
	bucketHoldings    = []byte("holding_index")
	bucketTxns        = []byte("transactions")
	bucketTxnsByOwner = []byte("transaction_owner_index")
	bucketTxnsByAsset = []byte("transaction_asset_index")
	bucketIdempotency = []byte("idempotency_keys")
)

// Store is a LedgerStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.createBuckets(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAssets, bucketAssetCodes, bucketVOs, bucketAlive, bucketHoldings,
			bucketTxns, bucketTxnsByOwner, bucketTxnsByAsset, bucketIdempotency} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

// Path returns the database file name.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn inside one bbolt read-write transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	var fnErr error
	err := s.db.Update(func(btx *bolt.Tx) error {
		tx := &boltTx{tx: btx, claimed: make(map[uuid.UUID]struct{})}
		if fnErr = fn(ctx, tx); fnErr != nil {
			return fnErr
		}
		if err := ctx.Err(); err != nil {
			fnErr = apperrors.NewStorageError("transaction aborted", err)
			return fnErr
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return apperrors.NewStorageError("commit failed", err)
	}
	return nil
}

type boltTx struct {
	tx      *bolt.Tx
	claimed map[uuid.UUID]struct{}
}

func (t *boltTx) LockAlive(ctx context.Context, assetID, owner uuid.UUID, after *domain.CoinCursor, limit int) ([]domain.ValueObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("lock aborted", err)
	}
	prefix := pairPrefix(assetID, owner)
	vos := t.tx.Bucket(bucketVOs)
	c := t.tx.Bucket(bucketAlive).Cursor()

	var k []byte
	if after == nil {
		k, _ = c.Seek(prefix)
	} else {
		from := cursorKey(prefix, *after)
		k, _ = c.Seek(from)
		if bytes.Equal(k, from) {
			k, _ = c.Next()
		}
	}

	out := make([]domain.ValueObject, 0)
	for ; k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if limit > 0 && len(out) == limit {
			break
		}
		id := k[len(k)-16:]
		vo, err := decodeValueObject(vos.Get(id))
		if err != nil {
			return nil, apperrors.NewStorageError("reading alive value object", err)
		}
		out = append(out, vo)
		t.claimed[vo.ID] = struct{}{}
	}
	return out, nil
}

func (t *boltTx) InsertValueObjects(_ context.Context, vos []domain.ValueObject) error {
	for _, vo := range vos {
		if vo.Amount == 0 {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s has zero amount", vo.ID), nil)
		}
		if err := t.putValueObject(vo); err != nil {
			return err
		}
		if err := t.tx.Bucket(bucketHoldings).Put(holdingKey(vo), nil); err != nil {
			return apperrors.NewStorageError("indexing value object", err)
		}
		if vo.State == domain.StateAlive {
			if err := t.tx.Bucket(bucketAlive).Put(aliveKey(vo), nil); err != nil {
				return apperrors.NewStorageError("indexing alive value object", err)
			}
		}
	}
	return nil
}

func (t *boltTx) putValueObject(vo domain.ValueObject) error {
	data, err := encodeValueObject(vo)
	if err != nil {
		return apperrors.NewStorageError("encoding value object", err)
	}
	if err := t.tx.Bucket(bucketVOs).Put(vo.ID[:], data); err != nil {
		return apperrors.NewStorageError("writing value object", err)
	}
	return nil
}

func (t *boltTx) MarkBurned(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := t.claimed[id]; !ok {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s is not claimed by this transaction", id), nil)
		}
		data := t.tx.Bucket(bucketVOs).Get(id[:])
		if data == nil {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s does not exist", id), nil)
		}
		vo, err := decodeValueObject(data)
		if err != nil {
			return apperrors.NewStorageError("reading value object", err)
		}
		if vo.State != domain.StateAlive {
			return apperrors.NewStorageError(fmt.Sprintf("value object %s cannot be burned", id), nil)
		}
		if err := t.tx.Bucket(bucketAlive).Delete(aliveKey(vo)); err != nil {
			return apperrors.NewStorageError("unindexing value object", err)
		}
		vo.State = domain.StateBurned
		if err := t.putValueObject(vo); err != nil {
			return err
		}
		delete(t.claimed, id)
	}
	return nil
}

func (t *boltTx) InsertTransaction(_ context.Context, txn domain.Transaction) error {
	if txn.IdempotencyKey != nil {
		keys := t.tx.Bucket(bucketIdempotency)
		if existing := keys.Get([]byte(*txn.IdempotencyKey)); existing != nil {
			id, err := uuid.FromBytes(existing)
			if err != nil {
				return apperrors.NewStorageError("reading idempotency key", err)
			}
			return &apperrors.DuplicateIdempotencyKeyError{TransactionID: id}
		}
		if err := keys.Put([]byte(*txn.IdempotencyKey), txn.ID[:]); err != nil {
			return apperrors.NewStorageError("writing idempotency key", err)
		}
	}

	data, err := encodeTransaction(txn)
	if err != nil {
		return apperrors.NewStorageError("encoding transaction", err)
	}
	if err := t.tx.Bucket(bucketTxns).Put(txn.ID[:], data); err != nil {
		return apperrors.NewStorageError("writing transaction", err)
	}

	byOwner := t.tx.Bucket(bucketTxnsByOwner)
	for _, party := range []*uuid.UUID{txn.Sender, txn.Receiver} {
		if party == nil {
			continue
		}
		if err := byOwner.Put(timeKey(*party, txn.CreatedAt, txn.ID), nil); err != nil {
			return apperrors.NewStorageError("indexing transaction", err)
		}
	}
	if err := t.tx.Bucket(bucketTxnsByAsset).Put(timeKey(txn.AssetID, txn.CreatedAt, txn.ID), nil); err != nil {
		return apperrors.NewStorageError("indexing transaction", err)
	}
	return nil
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	err := s.db.View(fn)
	if err == nil || errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	var storageErr *apperrors.StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return apperrors.NewStorageError("read failed", err)
}

func (s *Store) FindAssetByCode(_ context.Context, code string) (*domain.Asset, error) {
	var asset *domain.Asset
	err := s.view(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketAssetCodes).Get([]byte(code))
		if id == nil {
			return apperrors.ErrAssetNotFound
		}
		var err error
		asset, err = decodeAsset(tx.Bucket(bucketAssets).Get(id))
		return err
	})
	return asset, err
}

func (s *Store) FindAssetByID(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	var asset *domain.Asset
	err := s.view(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAssets).Get(id[:])
		if data == nil {
			return apperrors.ErrAssetNotFound
		}
		var err error
		asset, err = decodeAsset(data)
		return err
	})
	return asset, err
}

func (s *Store) ListAssets(_ context.Context) ([]domain.Asset, error) {
	assets := make([]domain.Asset, 0)
	err := s.view(func(tx *bolt.Tx) error {
		byID := tx.Bucket(bucketAssets)
		// asset_codes is keyed by code, so this walks in code order
		return tx.Bucket(bucketAssetCodes).ForEach(func(_, id []byte) error {
			asset, err := decodeAsset(byID.Get(id))
			if err != nil {
				return err
			}
			assets = append(assets, *asset)
			return nil
		})
	})
	return assets, err
}

func (s *Store) UpsertAsset(_ context.Context, asset domain.Asset) (*domain.Asset, error) {
	var stored *domain.Asset
	err := s.db.Update(func(tx *bolt.Tx) error {
		codes := tx.Bucket(bucketAssetCodes)
		if id := codes.Get([]byte(asset.Code)); id != nil {
			var err error
			stored, err = decodeAsset(tx.Bucket(bucketAssets).Get(id))
			return err
		}
		data, err := encodeAsset(asset)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketAssets).Put(asset.ID[:], data); err != nil {
			return err
		}
		if err := codes.Put([]byte(asset.Code), asset.ID[:]); err != nil {
			return err
		}
		stored = &asset
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("upserting asset %s", asset.Code), err)
	}
	return stored, nil
}

// scanValueObjects calls fn for every value object indexed under prefix in holding_index.
func scanValueObjects(tx *bolt.Tx, prefix []byte, fn func(vo domain.ValueObject)) error {
	vos := tx.Bucket(bucketVOs)
	c := tx.Bucket(bucketHoldings).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		vo, err := decodeValueObject(vos.Get(k[len(k)-16:]))
		if err != nil {
			return err
		}
		fn(vo)
	}
	return nil
}

func addToBalance(b *domain.Balance, vo domain.ValueObject) {
	switch vo.State {
	case domain.StateAlive:
		b.Available += vo.Amount
	case domain.StateReserved:
		b.Reserved += vo.Amount
	}
	b.Total = b.Available + b.Reserved
	if vo.CreatedAt.After(b.UpdatedAt) {
		b.UpdatedAt = vo.CreatedAt
	}
}

func (s *Store) GetBalance(_ context.Context, assetID, owner uuid.UUID) (domain.Balance, error) {
	b := domain.Balance{Owner: owner, AssetID: assetID}
	err := s.view(func(tx *bolt.Tx) error {
		return scanValueObjects(tx, pairPrefix(owner, assetID), func(vo domain.ValueObject) {
			addToBalance(&b, vo)
		})
	})
	return b, err
}

func (s *Store) GetHoldings(_ context.Context, owner uuid.UUID) ([]domain.Holding, error) {
	balances := make(map[uuid.UUID]*domain.Balance)
	holdings := make([]domain.Holding, 0)
	err := s.view(func(tx *bolt.Tx) error {
		err := scanValueObjects(tx, owner[:], func(vo domain.ValueObject) {
			b, ok := balances[vo.AssetID]
			if !ok {
				b = &domain.Balance{Owner: owner, AssetID: vo.AssetID}
				balances[vo.AssetID] = b
			}
			addToBalance(b, vo)
		})
		if err != nil {
			return err
		}
		for assetID, b := range balances {
			asset, err := decodeAsset(tx.Bucket(bucketAssets).Get(assetID[:]))
			if err != nil {
				return err
			}
			holdings = append(holdings, domain.Holding{Asset: *asset, Balance: *b})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Asset.Code < holdings[j].Asset.Code })
	return holdings, nil
}

func (s *Store) ListValueObjects(_ context.Context, assetID, owner uuid.UUID) ([]domain.ValueObject, error) {
	out := make([]domain.ValueObject, 0)
	err := s.view(func(tx *bolt.Tx) error {
		return scanValueObjects(tx, pairPrefix(owner, assetID), func(vo domain.ValueObject) {
			out = append(out, vo)
		})
	})
	return out, err
}

func (s *Store) FindTransactionByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.view(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTxns).Get(id[:])
		if data == nil {
			return apperrors.ErrTransactionNotFound
		}
		var err error
		txn, err = decodeTransaction(data)
		return err
	})
	return txn, err
}

func (s *Store) FindTransactionByIdempotencyKey(_ context.Context, hashedKey string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.view(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketIdempotency).Get([]byte(hashedKey))
		if id == nil {
			return apperrors.ErrTransactionNotFound
		}
		var err error
		txn, err = decodeTransaction(tx.Bucket(bucketTxns).Get(id))
		return err
	})
	return txn, err
}

func (s *Store) ListTransactionsByOwner(_ context.Context, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return s.listTransactions(bucketTxnsByOwner, owner, from, to)
}

func (s *Store) ListTransactionsByAsset(_ context.Context, assetID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	return s.listTransactions(bucketTxnsByAsset, assetID, from, to)
}

// listTransactions walks a scope|created_at|id index from from up to, not including, to.
func (s *Store) listTransactions(index []byte, scope uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0)
	err := s.view(func(tx *bolt.Tx) error {
		txns := tx.Bucket(bucketTxns)
		c := tx.Bucket(index).Cursor()
		prefix := scope[:]

		start := prefix
		if !from.IsZero() {
			start = timeKey(scope, from, uuid.Nil)
		}
		var end []byte
		if !to.IsZero() {
			end = timeKey(scope, to, uuid.Nil)
		}

		for k, _ := c.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if end != nil && bytes.Compare(k, end) >= 0 {
				break
			}
			txn, err := decodeTransaction(txns.Get(k[len(k)-16:]))
			if err != nil {
				return err
			}
			out = append(out, *txn)
		}
		return nil
	})
	return out, err
}
