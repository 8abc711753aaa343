package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller may not read or act on the requested resource.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientFunds is returned when the alive value objects of an owner that could be
// claimed do not cover the amount a block needs to spend.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount covers zero amounts, over-slicing and amounts above domain.MaxAmount.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrUnconsumedSlice is returned at block end when a slice still holds value that was
// neither transferred nor burned.
var ErrUnconsumedSlice = errors.New("unconsumed slice")

// ErrSliceConsumed is returned when TransferTo or Burn is called on an already consumed slice.
var ErrSliceConsumed = errors.New("slice already consumed")

// ErrBlockClosed is returned when a transaction context, or anything derived from it, is
// used after its atomic block has returned.
var ErrBlockClosed = errors.New("atomic block already closed")

// ErrAssetNotFound indicates no asset is registered under the given code or id.
var ErrAssetNotFound = fmt.Errorf("asset %w", ErrNotFound)

// ErrTransactionNotFound indicates no transaction log row exists for the given id or key.
var ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

// ErrDuplicateIdempotencyKey is the sentinel behind DuplicateIdempotencyKeyError.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// ErrStorage is the sentinel behind StorageError.
var ErrStorage = errors.New("storage error")

// StorageError wraps failures of the storage backend and block level consistency
// violations that are not covered by a more specific sentinel.
type StorageError struct {
	Detail string
	Err    error
}

// NewStorageError builds a StorageError. err may be nil.
func NewStorageError(detail string, err error) *StorageError {
	return &StorageError{Detail: detail, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "storage error: " + e.Detail
	}
	return fmt.Sprintf("storage error: %s: %v", e.Detail, e.Err)
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

// DuplicateIdempotencyKeyError reports which transaction already consumed an idempotency key.
type DuplicateIdempotencyKeyError struct {
	TransactionID uuid.UUID
}

func (e *DuplicateIdempotencyKeyError) Error() string {
	return fmt.Sprintf("duplicate idempotency key: already used by transaction %s", e.TransactionID)
}

func (e *DuplicateIdempotencyKeyError) Unwrap() error {
	return ErrDuplicateIdempotencyKey
}
