package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Transaction is an append-only audit row describing value moved, minted or destroyed.
// Sender is nil for mints, Receiver is nil for burns.
type Transaction struct {
	ID             uuid.UUID  `json:"id"`
	AssetID        uuid.UUID  `json:"assetId"`
	AssetCode      string     `json:"assetCode"`
	Sender         *uuid.UUID `json:"sender,omitempty"`
	Receiver       *uuid.UUID `json:"receiver,omitempty"`
	BurnedAmount   uint64     `json:"burnedAmount"`
	MintedAmount   uint64     `json:"mintedAmount"`
	Metadata       string     `json:"metadata"`
	IdempotencyKey *string    `json:"idempotencyKey,omitempty"` // hashed, see HashIdempotencyKey
	CreatedAt      time.Time  `json:"createdAt"`
}

// Involves reports whether owner is the sender or the receiver of t.
func (t Transaction) Involves(owner uuid.UUID) bool {
	return (t.Sender != nil && *t.Sender == owner) || (t.Receiver != nil && *t.Receiver == owner)
}

// TransactionHandle is returned by every operation that writes a transaction log row.
type TransactionHandle struct {
	TransactionID uuid.UUID  `json:"transactionId"`
	AssetID       uuid.UUID  `json:"assetId"`
	Sender        *uuid.UUID `json:"sender,omitempty"`
	Receiver      *uuid.UUID `json:"receiver,omitempty"`
	Amount        uint64     `json:"amount"`
}

// TODO: add TransactionHandle.Revert as a compensating plan (burn from the receiver,
// mint back to the sender) once receivers can be made to consent to it.

// HashIdempotencyKey returns the form in which idempotency keys are stored and looked up.
func HashIdempotencyKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
