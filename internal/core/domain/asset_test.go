package domain_test

import (
	"testing"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsset_Presets(t *testing.T) {
	usd := domain.Fiat("usd")
	assert.Equal(t, "USD", usd.Code)
	assert.Equal(t, uint64(10_000), usd.Unit)
	assert.Equal(t, uint8(2), usd.Decimals)
	assert.NoError(t, usd.Validate())

	eth := domain.Crypto("ETH", 18)
	assert.Equal(t, uint64(1_000_000_000_000_000_000), eth.Unit)
	assert.NoError(t, eth.Validate())
}

func TestAsset_Validate(t *testing.T) {
	assert.Error(t, domain.NewAsset("", 100, 2).Validate())
	assert.Error(t, domain.NewAsset("USD", 0, 2).Validate())
	assert.Error(t, domain.NewAsset("USD", 100, 19).Validate())
	assert.NoError(t, domain.NewAsset("USD", 100, 2).Validate())
}

func TestAsset_ToInternal(t *testing.T) {
	usd := domain.Fiat("USD")

	tests := []struct {
		name    string
		display string
		want    uint64
		wantErr bool
	}{
		{name: "whole", display: "100", want: 10_000},
		{name: "cents", display: "12.34", want: 1234},
		{name: "truncates extra digits", display: "1.239", want: 123},
		{name: "zero", display: "0", want: 0},
		{name: "negative", display: "-1", wantErr: true},
		{name: "overflow", display: "100000000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usd.ToInternal(decimal.RequireFromString(tt.display))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsset_ToDisplay(t *testing.T) {
	usd := domain.Fiat("USD")
	assert.True(t, decimal.RequireFromString("12.34").Equal(usd.ToDisplay(1234)))

	jpy := domain.NewAsset("JPY", 1000, 0)
	assert.True(t, decimal.NewFromInt(500).Equal(jpy.ToDisplay(500)))
}
