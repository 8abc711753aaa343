package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is an owner's position in one asset. Total is Available + Reserved.
type Balance struct {
	Owner     uuid.UUID `json:"owner"`
	AssetID   uuid.UUID `json:"assetId"`
	Available uint64    `json:"available"`
	Reserved  uint64    `json:"reserved"`
	Total     uint64    `json:"total"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Holding pairs an asset with the owner's balance in it.
type Holding struct {
	Asset   Asset   `json:"asset"`
	Balance Balance `json:"balance"`
}

// Quantity returns the holding's total in display units.
func (h Holding) Quantity() decimal.Decimal {
	return h.Asset.ToDisplay(h.Balance.Total)
}

// Value prices the holding with a per display unit rate.
func (h Holding) Value(rate decimal.Decimal) decimal.Decimal {
	return h.Quantity().Mul(rate)
}

// Portfolio is the set of non-empty holdings of one owner.
type Portfolio struct {
	Owner    uuid.UUID `json:"owner"`
	Holdings []Holding `json:"holdings"`
}

// NewPortfolio keeps only holdings with a positive total.
func NewPortfolio(owner uuid.UUID, holdings []Holding) Portfolio {
	kept := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Balance.Total > 0 {
			kept = append(kept, h)
		}
	}
	return Portfolio{Owner: owner, Holdings: kept}
}

// Get returns the holding for an asset code.
func (p Portfolio) Get(code string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.Asset.Code == code {
			return h, true
		}
	}
	return Holding{}, false
}

// Value sums the holdings priced with rates keyed by asset code. Assets without a rate
// are skipped.
func (p Portfolio) Value(rates map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, h := range p.Holdings {
		if rate, ok := rates[h.Asset.Code]; ok {
			total = total.Add(h.Value(rate))
		}
	}
	return total
}

// SortByLargest orders holdings by display quantity, largest first.
func (p *Portfolio) SortByLargest() {
	sort.SliceStable(p.Holdings, func(i, j int) bool {
		return p.Holdings[i].Quantity().GreaterThan(p.Holdings[j].Quantity())
	})
}

// SortBySmallest orders holdings by display quantity, smallest first.
func (p *Portfolio) SortBySmallest() {
	sort.SliceStable(p.Holdings, func(i, j int) bool {
		return p.Holdings[i].Quantity().LessThan(p.Holdings[j].Quantity())
	})
}

// SortByValue orders holdings by their value under rates. Holdings without a rate count as zero.
func (p *Portfolio) SortByValue(rates map[string]decimal.Decimal, descending bool) {
	value := func(h Holding) decimal.Decimal {
		if rate, ok := rates[h.Asset.Code]; ok {
			return h.Value(rate)
		}
		return decimal.Zero
	}
	sort.SliceStable(p.Holdings, func(i, j int) bool {
		if descending {
			return value(p.Holdings[i]).GreaterThan(value(p.Holdings[j]))
		}
		return value(p.Holdings[i]).LessThan(value(p.Holdings[j]))
	})
}
