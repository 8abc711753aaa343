package services

import (
	"context"

	"github.com/SscSPs/voledger/internal/dto"
	"github.com/google/uuid"
)

// IssuerSvc defines operations that create value
type IssuerSvc interface {
	// Mint creates value for req.Owner and records it in the transaction log.
	Mint(ctx context.Context, req dto.MintRequest, issuerID uuid.UUID) (*dto.ReceiptResponse, error)
}

// SpenderSvc defines operations that move or destroy value held by the caller
type SpenderSvc interface {
	// Transfer pays every recipient of req from senderID's balance atomically.
	Transfer(ctx context.Context, req dto.TransferRequest, senderID uuid.UUID) (*dto.ReceiptsResponse, error)

	// Burn destroys value held by ownerID.
	Burn(ctx context.Context, req dto.BurnRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error)

	// Reserve moves value of ownerID into reserved value held by req.Authority.
	Reserve(ctx context.Context, req dto.ReserveRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error)
}

// PaymentSvcFacade combines all value-moving service interfaces
type PaymentSvcFacade interface {
	IssuerSvc
	SpenderSvc
}
