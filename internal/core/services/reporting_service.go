package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/SscSPs/voledger/internal/utils/pagination"
	"github.com/google/uuid"
)

// reportingService implements the ReportingSvcFacade interface
type reportingService struct {
	BaseService
	ledger *Ledger
}

// NewReportingService creates a new reporting service reading from ledger
func NewReportingService(ledger *Ledger) portssvc.ReportingSvcFacade {
	return &reportingService{ledger: ledger}
}

// Ensure reportingService implements the ReportingSvcFacade interface
var _ portssvc.ReportingSvcFacade = (*reportingService)(nil)

// authorize lets owners read their own data and privileged callers read anyone's.
func (s *reportingService) authorize(ctx context.Context, owner, requesterID uuid.UUID, privileged bool) error {
	if privileged || owner == requesterID {
		return nil
	}
	s.LogInfo(ctx, "Reporting request denied",
		slog.String("owner", owner.String()),
		slog.String("requester_id", requesterID.String()))
	return fmt.Errorf("%w: %s may not read data of %s", apperrors.ErrForbidden, requesterID, owner)
}

// GetBalance returns the committed balance of owner in one asset
func (s *reportingService) GetBalance(ctx context.Context, owner uuid.UUID, assetCode string, requesterID uuid.UUID, privileged bool) (*dto.BalanceResponse, error) {
	if err := s.authorize(ctx, owner, requesterID, privileged); err != nil {
		return nil, err
	}
	asset, err := s.ledger.GetAsset(ctx, assetCode)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(ctx, asset.Code, owner)
	if err != nil {
		s.LogError(ctx, err, "Failed to retrieve balance",
			slog.String("owner", owner.String()),
			slog.String("asset", asset.Code))
		return nil, err
	}
	resp := dto.ToBalanceResponse(*balance, *asset)
	return &resp, nil
}

// GetHoldings returns every non-empty balance of owner
func (s *reportingService) GetHoldings(ctx context.Context, owner uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.HoldingsResponse, error) {
	if err := s.authorize(ctx, owner, requesterID, privileged); err != nil {
		return nil, err
	}
	portfolio, err := s.ledger.Holdings(ctx, owner)
	if err != nil {
		s.LogError(ctx, err, "Failed to retrieve holdings", slog.String("owner", owner.String()))
		return nil, err
	}
	resp := dto.ToHoldingsResponse(portfolio)
	s.LogInfo(ctx, "Holdings generated successfully",
		slog.String("owner", owner.String()),
		slog.Int("asset_count", len(resp.Holdings)))
	return &resp, nil
}

// ListTransactions returns the transaction history of owner within params' window
func (s *reportingService) ListTransactions(ctx context.Context, owner uuid.UUID, params dto.ListTransactionsParams, requesterID uuid.UUID, privileged bool) (*dto.ListTransactionsResponse, error) {
	if err := s.authorize(ctx, owner, requesterID, privileged); err != nil {
		return nil, err
	}
	if !params.To.IsZero() && !params.To.After(params.From) {
		return nil, fmt.Errorf("%w: to must be after from", apperrors.ErrValidation)
	}

	txns, err := s.ledger.TransactionsForOwner(ctx, owner, params.From, params.To)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions",
			slog.String("owner", owner.String()),
			slog.String("from", params.From.Format(time.RFC3339)))
		return nil, err
	}

	page, next, err := paginate(txns, params.Limit, params.NextToken)
	if err != nil {
		return nil, err
	}

	assets := make(map[string]domain.Asset)
	resp := &dto.ListTransactionsResponse{Transactions: make([]dto.TransactionResponse, len(page)), NextToken: next}
	for i := range page {
		asset, ok := assets[page[i].AssetCode]
		if !ok {
			found, err := s.ledger.GetAsset(ctx, page[i].AssetCode)
			if err != nil {
				return nil, err
			}
			asset = *found
			assets[asset.Code] = asset
		}
		resp.Transactions[i] = dto.ToTransactionResponse(&page[i], asset)
	}
	return resp, nil
}

// paginate cuts one page out of txns, which are ordered oldest first. The page starts
// after the row the token points at, or at the first younger row if that one is gone.
func paginate(txns []domain.Transaction, limit int, token string) ([]domain.Transaction, *string, error) {
	start := 0
	if token != "" {
		after, afterID, err := pagination.DecodeToken(token)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		start = len(txns)
		for i := range txns {
			if txns[i].ID == afterID {
				start = i + 1
				break
			}
			if txns[i].CreatedAt.After(after) {
				start = i
				break
			}
		}
	}

	end := len(txns)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := txns[start:end]
	if end == len(txns) || len(page) == 0 {
		return page, nil, nil
	}
	last := page[len(page)-1]
	next := pagination.EncodeToken(last.CreatedAt, last.ID)
	return page, &next, nil
}

// GetTransaction returns one log row. Only its sender, receiver or a privileged caller may read it.
func (s *reportingService) GetTransaction(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.TransactionResponse, error) {
	txn, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !privileged && !txn.Involves(requesterID) {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrForbidden, id)
	}
	asset, err := s.ledger.GetAsset(ctx, txn.AssetCode)
	if err != nil {
		return nil, err
	}
	resp := dto.ToTransactionResponse(txn, *asset)
	return &resp, nil
}
