package bolt

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type (
	assetRecord struct {
		_        struct{} `cbor:",toarray"`
		ID       []byte
		Code     string
		Unit     uint64
		Decimals uint8
	}

	valueObjectRecord struct {
		_           struct{} `cbor:",toarray"`
		ID          []byte
		AssetID     []byte
		Owner       []byte
		Amount      uint64
		State       string
		ReservedFor []byte
		CreatedAt   int64
	}

	transactionRecord struct {
		_              struct{} `cbor:",toarray"`
		ID             []byte
		AssetID        []byte
		AssetCode      string
		Sender         []byte
		Receiver       []byte
		BurnedAmount   uint64
		MintedAmount   uint64
		Metadata       string
		IdempotencyKey string
		CreatedAt      int64
	}
)

func encodeAsset(a domain.Asset) ([]byte, error) {
	return cbor.Marshal(assetRecord{ID: a.ID[:], Code: a.Code, Unit: a.Unit, Decimals: a.Decimals})
}

func decodeAsset(data []byte) (*domain.Asset, error) {
	var r assetRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding asset: %w", err)
	}
	id, err := uuid.FromBytes(r.ID)
	if err != nil {
		return nil, fmt.Errorf("decoding asset id: %w", err)
	}
	return &domain.Asset{ID: id, Code: r.Code, Unit: r.Unit, Decimals: r.Decimals}, nil
}

func encodeValueObject(vo domain.ValueObject) ([]byte, error) {
	return cbor.Marshal(valueObjectRecord{
		ID:          vo.ID[:],
		AssetID:     vo.AssetID[:],
		Owner:       vo.Owner[:],
		Amount:      vo.Amount,
		State:       string(vo.State),
		ReservedFor: optionalIDBytes(vo.ReservedFor),
		CreatedAt:   vo.CreatedAt.UnixNano(),
	})
}

func decodeValueObject(data []byte) (domain.ValueObject, error) {
	var r valueObjectRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return domain.ValueObject{}, fmt.Errorf("decoding value object: %w", err)
	}
	vo := domain.ValueObject{
		Amount:    r.Amount,
		State:     domain.ValueObjectState(r.State),
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	var err error
	if vo.ID, err = uuid.FromBytes(r.ID); err != nil {
		return domain.ValueObject{}, fmt.Errorf("decoding value object id: %w", err)
	}
	if vo.AssetID, err = uuid.FromBytes(r.AssetID); err != nil {
		return domain.ValueObject{}, fmt.Errorf("decoding value object asset: %w", err)
	}
	if vo.Owner, err = uuid.FromBytes(r.Owner); err != nil {
		return domain.ValueObject{}, fmt.Errorf("decoding value object owner: %w", err)
	}
	if vo.ReservedFor, err = optionalID(r.ReservedFor); err != nil {
		return domain.ValueObject{}, fmt.Errorf("decoding value object authority: %w", err)
	}
	return vo, nil
}

func encodeTransaction(txn domain.Transaction) ([]byte, error) {
	r := transactionRecord{
		ID:           txn.ID[:],
		AssetID:      txn.AssetID[:],
		AssetCode:    txn.AssetCode,
		Sender:       optionalIDBytes(txn.Sender),
		Receiver:     optionalIDBytes(txn.Receiver),
		BurnedAmount: txn.BurnedAmount,
		MintedAmount: txn.MintedAmount,
		Metadata:     txn.Metadata,
		CreatedAt:    txn.CreatedAt.UnixNano(),
	}
	if txn.IdempotencyKey != nil {
		r.IdempotencyKey = *txn.IdempotencyKey
	}
	return cbor.Marshal(r)
}

func decodeTransaction(data []byte) (*domain.Transaction, error) {
	var r transactionRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	txn := &domain.Transaction{
		AssetCode:    r.AssetCode,
		BurnedAmount: r.BurnedAmount,
		MintedAmount: r.MintedAmount,
		Metadata:     r.Metadata,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.IdempotencyKey != "" {
		key := r.IdempotencyKey
		txn.IdempotencyKey = &key
	}
	var err error
	if txn.ID, err = uuid.FromBytes(r.ID); err != nil {
		return nil, fmt.Errorf("decoding transaction id: %w", err)
	}
	if txn.AssetID, err = uuid.FromBytes(r.AssetID); err != nil {
		return nil, fmt.Errorf("decoding transaction asset: %w", err)
	}
	if txn.Sender, err = optionalID(r.Sender); err != nil {
		return nil, fmt.Errorf("decoding transaction sender: %w", err)
	}
	if txn.Receiver, err = optionalID(r.Receiver); err != nil {
		return nil, fmt.Errorf("decoding transaction receiver: %w", err)
	}
	return txn, nil
}

func optionalIDBytes(id *uuid.UUID) []byte {
	if id == nil {
		return nil
	}
	return id[:]
}

func optionalID(b []byte) (*uuid.UUID, error) {
	if len(b) == 0 {
		return nil, nil
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Index keys. All integers are big endian so byte order equals numeric order.

// aliveKey is asset|owner|amount|id; a prefix scan yields coins in selection order.
func aliveKey(vo domain.ValueObject) []byte {
	k := make([]byte, 0, 56)
	k = append(k, vo.AssetID[:]...)
	k = append(k, vo.Owner[:]...)
	k = binary.BigEndian.AppendUint64(k, vo.Amount)
	return append(k, vo.ID[:]...)
}

func cursorKey(prefix []byte, c domain.CoinCursor) []byte {
	k := append([]byte{}, prefix...)
	k = binary.BigEndian.AppendUint64(k, c.Amount)
	return append(k, c.ID[:]...)
}

// holdingKey is owner|asset|id.
func holdingKey(vo domain.ValueObject) []byte {
	k := make([]byte, 0, 48)
	k = append(k, vo.Owner[:]...)
	k = append(k, vo.AssetID[:]...)
	return append(k, vo.ID[:]...)
}

func pairPrefix(a, b uuid.UUID) []byte {
	k := make([]byte, 0, 32)
	k = append(k, a[:]...)
	return append(k, b[:]...)
}

// timeKey is scope|created_at|id. The sign bit is flipped so times before 1970 sort first.
func timeKey(scope uuid.UUID, at time.Time, id uuid.UUID) []byte {
	k := make([]byte, 0, 40)
	k = append(k, scope[:]...)
	k = binary.BigEndian.AppendUint64(k, encodeTime(at))
	return append(k, id[:]...)
}

func encodeTime(at time.Time) uint64 {
	return uint64(at.UnixNano()) ^ (1 << 63)
}
