package folio

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/etnz/folio/date"
)

// DefaultLookback is the number of calendar days a PriceSource searches for a
// trading day before reporting ErrPriceNotFound.
const DefaultLookback = 7

// PriceSource resolves the closing price of a security on a given day.
//
// When the day is not a trading day (weekend, holiday, missing data) the
// source falls back to the nearest trading day before (CloseOnOrBefore) or
// after (CloseOnOrAfter) it, within a bounded window. Both methods return the
// trading day the price was actually recorded on.
//
// Implementations return an *UnknownTickerError for tickers they know nothing
// about, and an error wrapping ErrPriceNotFound when no trading day exists in
// the window.
type PriceSource interface {
	CloseOnOrBefore(ctx context.Context, ticker string, on date.Date) (date.Date, Money, error)
	CloseOnOrAfter(ctx context.Context, ticker string, on date.Date) (date.Date, Money, error)
}

// Market is an in-memory PriceSource holding daily closing prices.
type Market struct {
	lookback int

	mu     sync.RWMutex
	prices map[string]*date.History[Money]
}

// NewMarket returns a new empty market data collection.
func NewMarket() *Market {
	return &Market{
		lookback: DefaultLookback,
		prices:   make(map[string]*date.History[Money]),
	}
}

// SetLookback changes the number of calendar days searched around a non trading day.
func (m *Market) SetLookback(days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookback = days
}

// Add records the closing price of ticker on a given day.
func (m *Market) Add(ticker string, on date.Date, close Money) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.prices[ticker]
	if !ok {
		h = new(date.History[Money])
		m.prices[ticker] = h
	}
	h.Append(on, close)
}

// Has reports whether the market knows ticker.
func (m *Market) Has(ticker string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.prices[ticker]
	return ok
}

// Tickers returns the known tickers in alphabetical order.
func (m *Market) Tickers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.prices))
}

// Prices iterates over the closing prices of ticker in chronological order.
func (m *Market) Prices(ticker string) iter.Seq2[date.Date, Money] {
	return func(yield func(date.Date, Money) bool) {
		var days []date.Date
		var values []Money
		m.mu.RLock()
		if h, ok := m.prices[ticker]; ok {
			for day, v := range h.Values() {
				days, values = append(days, day), append(values, v)
			}
		}
		m.mu.RUnlock()
		for i, day := range days {
			if !yield(day, values[i]) {
				return
			}
		}
	}
}

func (m *Market) history(ticker string) (*date.History[Money], int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.prices[ticker]
	if !ok {
		return nil, 0, &UnknownTickerError{Ticker: ticker}
	}
	return h, m.lookback, nil
}

// CloseOnOrBefore implements PriceSource.
func (m *Market) CloseOnOrBefore(_ context.Context, ticker string, on date.Date) (date.Date, Money, error) {
	h, lookback, err := m.history(ticker)
	if err != nil {
		return date.Date{}, Money{}, err
	}
	m.mu.RLock()
	day, v, ok := h.ValueAsOf(on)
	m.mu.RUnlock()
	if !ok || on.Sub(day) > lookback {
		return date.Date{}, Money{}, ErrPriceNotFound
	}
	return day, v, nil
}

// CloseOnOrAfter implements PriceSource.
func (m *Market) CloseOnOrAfter(_ context.Context, ticker string, on date.Date) (date.Date, Money, error) {
	h, lookback, err := m.history(ticker)
	if err != nil {
		return date.Date{}, Money{}, err
	}
	m.mu.RLock()
	day, v, ok := h.ValueOnOrAfter(on)
	m.mu.RUnlock()
	if !ok || day.Sub(on) > lookback {
		return date.Date{}, Money{}, ErrPriceNotFound
	}
	return day, v, nil
}

// Closes implements RangeSource.
func (m *Market) Closes(_ context.Context, ticker string, from, to date.Date) (PriceSeries, error) {
	h, _, err := m.history(ticker)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	series := make(PriceSeries, 0)
	for day, v := range h.Between(from, to) {
		series = append(series, Close{Date: day, Price: v})
	}
	return series, nil
}

var (
	_ PriceSource = (*Market)(nil)
	_ RangeSource = (*Market)(nil)
)
