package dto

import (
	"time"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Amounts in requests and responses are display amounts: "12.34" of an asset with two
// decimals. They are converted with domain.Asset.ToInternal / ToDisplay.

// MintRequest defines the data needed to create new value for an owner.
type MintRequest struct {
	Asset          string          `json:"asset" binding:"required,assetcode"`
	Owner          string          `json:"owner" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount"`
	Metadata       string          `json:"metadata" binding:"max=1024"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty" binding:"max=255"`
}

// PaymentRequest is one recipient of a transfer.
type PaymentRequest struct {
	To       string          `json:"to" binding:"required,uuid"`
	Amount   decimal.Decimal `json:"amount"`
	Metadata string          `json:"metadata" binding:"max=1024"`
}

// TransferRequest pays one or more recipients out of the caller's balance in one block.
type TransferRequest struct {
	Asset          string           `json:"asset" binding:"required,assetcode"`
	Payments       []PaymentRequest `json:"payments" binding:"required,min=1,max=100,dive"`
	IdempotencyKey string           `json:"idempotencyKey,omitempty" binding:"max=255"`
}

// BurnRequest destroys value held by the caller.
type BurnRequest struct {
	Asset          string          `json:"asset" binding:"required,assetcode"`
	Amount         decimal.Decimal `json:"amount"`
	Metadata       string          `json:"metadata" binding:"max=1024"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty" binding:"max=255"`
}

// ReserveRequest moves value of the caller into reserved value held by an authority.
type ReserveRequest struct {
	Asset          string          `json:"asset" binding:"required,assetcode"`
	Authority      string          `json:"authority" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount"`
	Metadata       string          `json:"metadata" binding:"max=1024"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty" binding:"max=255"`
}

// ReceiptResponse describes one transaction row written by a request.
type ReceiptResponse struct {
	TransactionID string          `json:"transactionID"`
	Asset         string          `json:"asset"`
	Sender        *string         `json:"sender,omitempty"`
	Receiver      *string         `json:"receiver,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// ReceiptsResponse is returned by requests that may write several rows.
type ReceiptsResponse struct {
	Receipts []ReceiptResponse `json:"receipts"`
}

// TransactionResponse defines the data returned for a transaction log row.
type TransactionResponse struct {
	TransactionID string          `json:"transactionID"`
	Asset         string          `json:"asset"`
	Sender        *string         `json:"sender,omitempty"`
	Receiver      *string         `json:"receiver,omitempty"`
	BurnedAmount  decimal.Decimal `json:"burnedAmount"`
	MintedAmount  decimal.Decimal `json:"mintedAmount"`
	Metadata      string          `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ToReceiptResponse converts a handle into its display form.
func ToReceiptResponse(h *domain.TransactionHandle, asset domain.Asset) ReceiptResponse {
	return ReceiptResponse{
		TransactionID: h.TransactionID.String(),
		Asset:         asset.Code,
		Sender:        idString(h.Sender),
		Receiver:      idString(h.Receiver),
		Amount:        asset.ToDisplay(h.Amount),
	}
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction, asset domain.Asset) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.ID.String(),
		Asset:         asset.Code,
		Sender:        idString(txn.Sender),
		Receiver:      idString(txn.Receiver),
		BurnedAmount:  asset.ToDisplay(txn.BurnedAmount),
		MintedAmount:  asset.ToDisplay(txn.MintedAmount),
		Metadata:      txn.Metadata,
		CreatedAt:     txn.CreatedAt,
	}
}
