package domain_test

import (
	"testing"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio(t *testing.T) {
	owner := uuid.New()
	usd := domain.Fiat("USD")
	eur := domain.Fiat("EUR")
	gbp := domain.Fiat("GBP")

	p := domain.NewPortfolio(owner, []domain.Holding{
		{Asset: usd, Balance: domain.Balance{Total: 10_000}},
		{Asset: eur, Balance: domain.Balance{Total: 50_000}},
		{Asset: gbp, Balance: domain.Balance{Total: 0}},
	})
	require.Len(t, p.Holdings, 2)

	_, ok := p.Get("GBP")
	assert.False(t, ok)
	h, ok := p.Get("USD")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(100).Equal(h.Quantity()))

	rates := map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.1"),
	}
	assert.True(t, decimal.NewFromInt(150).Equal(p.Value(rates)))

	p.SortByLargest()
	assert.Equal(t, "EUR", p.Holdings[0].Asset.Code)
	p.SortBySmallest()
	assert.Equal(t, "USD", p.Holdings[0].Asset.Code)
	p.SortByValue(rates, true)
	assert.Equal(t, "USD", p.Holdings[0].Asset.Code)
	p.SortByValue(rates, false)
	assert.Equal(t, "EUR", p.Holdings[0].Asset.Code)
}
