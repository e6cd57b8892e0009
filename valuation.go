package folio

import (
	"context"
	"fmt"

	"github.com/etnz/folio/date"
)

// Valuation derives the state of a portfolio on any day by replaying its
// ledger, and values it with a PriceSource.
//
// It is stateless: every answer is a pure function of the ledger, the day and
// the prices.
type Valuation struct {
	prices PriceSource
}

// NewValuation returns a valuation engine pricing securities with src.
func NewValuation(src PriceSource) *Valuation {
	return &Valuation{prices: src}
}

// Composition returns the securities held on a given day.
func (v *Valuation) Composition(l *Ledger, on date.Date) Composition {
	return l.HoldingsAsOf(on)
}

// CostBasis returns the capital deployed up to a given day.
func (v *Valuation) CostBasis(l *Ledger, on date.Date) Money {
	return l.CostBasisAsOf(on)
}

// TotalValue returns the market value of the securities held on a given day.
//
// Before the first transaction of the ledger the value is zero.
func (v *Valuation) TotalValue(ctx context.Context, l *Ledger, on date.Date) (Money, error) {
	h, err := v.Holding(ctx, l, on)
	if err != nil {
		return Money{}, err
	}
	return h.MarketValue, nil
}

// Position is the valuation of a single security in a Holding.
type Position struct {
	Ticker      string    `json:"ticker"`
	Quantity    Quantity  `json:"quantity"`
	PriceDate   date.Date `json:"price_date"` // trading day the price was recorded on
	Price       Money     `json:"price"`
	MarketValue Money     `json:"market_value"`
}

// Holding is the detailed valuation of a portfolio on a given day.
type Holding struct {
	Portfolio   string     `json:"portfolio"`
	Date        date.Date  `json:"date"`
	Positions   []Position `json:"positions"` // in ticker order
	MarketValue Money      `json:"market_value"`
	CostBasis   Money      `json:"cost_basis"`
}

// Gain returns the market value minus the cost basis.
func (h *Holding) Gain() Money { return h.MarketValue.Sub(h.CostBasis) }

// Holding values every position held on a given day.
func (v *Valuation) Holding(ctx context.Context, l *Ledger, on date.Date) (*Holding, error) {
	h := &Holding{
		Portfolio: l.Name(),
		Date:      on,
		CostBasis: l.CostBasisAsOf(on),
	}
	composition := l.HoldingsAsOf(on)
	for _, ticker := range composition.Tickers() {
		q := composition[ticker]
		day, price, err := v.prices.CloseOnOrBefore(ctx, ticker, on)
		if err != nil {
			return nil, fmt.Errorf("cannot value %s in %q: %w", ticker, l.Name(), priceError(ticker, on, err))
		}
		value := price.Mul(q)
		h.Positions = append(h.Positions, Position{
			Ticker:      ticker,
			Quantity:    q,
			PriceDate:   day,
			Price:       price,
			MarketValue: value,
		})
		h.MarketValue = h.MarketValue.Add(value)
	}
	return h, nil
}
