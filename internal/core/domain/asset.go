package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single value object, operation or lock may carry.
// Every backend stores amounts in a signed 64-bit column.
const MaxAmount uint64 = math.MaxInt64

// Asset is a denomination tracked by the ledger (e.g. "USD").
type Asset struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`     // unique, upper case
	Unit     uint64    `json:"unit"`     // maximum size of a single value object, > 0
	Decimals uint8     `json:"decimals"` // display only, never used by ledger math
}

// NewAsset returns an asset with a fresh id. Call Validate before persisting it.
func NewAsset(code string, unit uint64, decimals uint8) Asset {
	return Asset{
		ID:       NewID(),
		Code:     strings.ToUpper(strings.TrimSpace(code)),
		Unit:     unit,
		Decimals: decimals,
	}
}

// Fiat returns a two-decimal asset fragmented into value objects of at most 100.00.
func Fiat(code string) Asset {
	return NewAsset(code, 10_000, 2)
}

// Crypto returns an asset fragmented at one whole coin (10^18 base units).
func Crypto(code string, decimals uint8) Asset {
	return NewAsset(code, 1_000_000_000_000_000_000, decimals)
}

// Validate checks the invariants an asset must hold before it is registered.
func (a Asset) Validate() error {
	if a.Code == "" {
		return fmt.Errorf("asset code must not be empty")
	}
	if a.Unit == 0 {
		return fmt.Errorf("asset %s: unit must be positive", a.Code)
	}
	if a.Unit > MaxAmount {
		return fmt.Errorf("asset %s: unit exceeds %d", a.Code, MaxAmount)
	}
	if a.Decimals > 18 {
		return fmt.Errorf("asset %s: at most 18 decimals are supported", a.Code)
	}
	return nil
}

// ToInternal converts a display amount (e.g. 12.34 USD) to base units, truncating any
// digits beyond the asset's decimals.
func (a Asset) ToInternal(display decimal.Decimal) (uint64, error) {
	if display.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", display)
	}
	scaled := display.Shift(int32(a.Decimals)).Truncate(0)
	if scaled.GreaterThan(decimal.NewFromUint64(MaxAmount)) {
		return 0, fmt.Errorf("amount %s exceeds the maximum for %s", display, a.Code)
	}
	return scaled.BigInt().Uint64(), nil
}

// ToDisplay converts base units into the asset's display representation.
func (a Asset) ToDisplay(internal uint64) decimal.Decimal {
	return decimal.NewFromUint64(internal).Shift(-int32(a.Decimals))
}

// NewID returns a time ordered identifier for ledger rows.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
