package dto

import (
	"time"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceResponse represents an owner's balance in one asset
type BalanceResponse struct {
	Owner     string          `json:"owner"`
	Asset     string          `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// HoldingsResponse represents every non-empty balance of an owner
type HoldingsResponse struct {
	Owner    string            `json:"owner"`
	Holdings []BalanceResponse `json:"holdings"`
}

// ListTransactionsParams filters the transaction history of an owner.
// Rows match from <= createdAt < to; a zero To means no upper bound.
// A zero Limit returns the whole window in one page.
type ListTransactionsParams struct {
	From      time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int       `form:"limit" binding:"omitempty,min=1,max=500"`
	NextToken string    `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of transaction history
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToBalanceResponse converts a domain.Balance to its display form
func ToBalanceResponse(b domain.Balance, asset domain.Asset) BalanceResponse {
	resp := BalanceResponse{
		Owner:     b.Owner.String(),
		Asset:     asset.Code,
		Available: asset.ToDisplay(b.Available),
		Reserved:  asset.ToDisplay(b.Reserved),
		Total:     asset.ToDisplay(b.Total),
	}
	if !b.UpdatedAt.IsZero() {
		updated := b.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// ToHoldingsResponse converts a domain.Portfolio, largest holdings first
func ToHoldingsResponse(p domain.Portfolio) HoldingsResponse {
	p.SortByLargest()
	resp := HoldingsResponse{Owner: p.Owner.String(), Holdings: make([]BalanceResponse, len(p.Holdings))}
	for i, h := range p.Holdings {
		resp.Holdings[i] = ToBalanceResponse(h.Balance, h.Asset)
	}
	return resp
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
