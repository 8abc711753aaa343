package services

import (
	"context"

	"github.com/SscSPs/voledger/internal/dto"
	"github.com/google/uuid"
)

// ReportingSvcFacade defines read-only views over balances and the transaction log.
// requesterID may only read its own data unless privileged is set.
type ReportingSvcFacade interface {
	GetBalance(ctx context.Context, owner uuid.UUID, assetCode string, requesterID uuid.UUID, privileged bool) (*dto.BalanceResponse, error)
	GetHoldings(ctx context.Context, owner uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.HoldingsResponse, error)
	ListTransactions(ctx context.Context, owner uuid.UUID, params dto.ListTransactionsParams, requesterID uuid.UUID, privileged bool) (*dto.ListTransactionsResponse, error)
	GetTransaction(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.TransactionResponse, error)
}
