package folio

import (
	"context"
	"math"

	"github.com/etnz/folio/date"
	"github.com/markcheno/go-talib"
)

// DefaultBaselineWindow is the moving average window used to detect price crossovers.
const DefaultBaselineWindow = 30

// epsilon below which a difference between a price and an average is considered null.
const epsilon = 1e-9

// Direction is the sign of a price change.
type Direction int

const (
	Flat Direction = iota
	Gain
	Loss
)

func (d Direction) String() string {
	switch d {
	case Gain:
		return "gain"
	case Loss:
		return "loss"
	default:
		return "flat"
	}
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Change is the price change of a security between two trading days.
type Change struct {
	Ticker    string    `json:"ticker"`
	From      date.Date `json:"from"`
	To        date.Date `json:"to"`
	Start     Money     `json:"start"`
	End       Money     `json:"end"`
	Delta     Money     `json:"delta"`
	Direction Direction `json:"direction"`
}

func newChange(ticker string, from, to Close) *Change {
	c := &Change{
		Ticker: ticker,
		From:   from.Date,
		To:     to.Date,
		Start:  from.Price,
		End:    to.Price,
		Delta:  to.Price.Sub(from.Price),
	}
	switch c.Delta.Sign() {
	case 1:
		c.Direction = Gain
	case -1:
		c.Direction = Loss
	}
	return c
}

// Average is a simple moving average of a security on a given day.
type Average struct {
	Ticker string    `json:"ticker"`
	Date   date.Date `json:"date"`
	Window int       `json:"window"`
	From   date.Date `json:"from"` // first trading day in the window
	To     date.Date `json:"to"`   // last trading day in the window
	Value  float64   `json:"value"`
}

// Signal labels a crossover day.
type Signal string

const (
	BuyOpportunity  Signal = "Buy opportunity"
	SellOpportunity Signal = "Sell opportunity"
	BuySignal       Signal = "Buy"
	SellSignal      Signal = "Sell"
)

// Crossover is a trading day on which a series crossed its reference.
type Crossover struct {
	Date   date.Date `json:"date"`
	Signal Signal    `json:"signal"`
}

// Analytics computes indicators on the price history of individual securities.
type Analytics struct {
	prices   PriceSource
	baseline int
}

// NewAnalytics returns an analytics engine reading prices from src and using
// 'baseline' as the moving average window for price crossovers.
// A baseline below 1 selects DefaultBaselineWindow.
func NewAnalytics(src PriceSource, baseline int) *Analytics {
	if baseline < 1 {
		baseline = DefaultBaselineWindow
	}
	return &Analytics{prices: src, baseline: baseline}
}

// Baseline returns the moving average window used by CrossoverOverPeriod.
func (a *Analytics) Baseline() int { return a.baseline }

// GainOrLose compares the close on a day with the close of the previous trading day.
//
// When 'on' is not a trading day, the last trading day before it is used.
func (a *Analytics) GainOrLose(ctx context.Context, ticker string, on date.Date) (*Change, error) {
	closes, err := recentCloses(ctx, a.prices, ticker, on, 2)
	if err != nil {
		return nil, err
	}
	switch len(closes) {
	case 0:
		return nil, &PriceUnavailableError{Ticker: ticker, On: on, Err: ErrPriceNotFound}
	case 1:
		return nil, &InsufficientHistoryError{Ticker: ticker, On: on, Window: 2, Available: 1}
	}
	return newChange(ticker, closes[0], closes[1]), nil
}

// GainOrLoseOverPeriod compares the first close on or after start with the
// last close on or before end.
func (a *Analytics) GainOrLoseOverPeriod(ctx context.Context, ticker string, start, end date.Date) (*Change, error) {
	if end.Before(start) {
		return nil, &InvalidRangeError{Range: date.NewRange(start, end)}
	}
	sDay, sPrice, err := a.prices.CloseOnOrAfter(ctx, ticker, start)
	if err != nil {
		return nil, priceError(ticker, start, err)
	}
	eDay, ePrice, err := a.prices.CloseOnOrBefore(ctx, ticker, end)
	if err != nil {
		return nil, priceError(ticker, end, err)
	}
	if eDay.Before(sDay) {
		// No trading day in [start, end].
		return nil, &PriceUnavailableError{Ticker: ticker, On: start, Err: ErrPriceNotFound}
	}
	return newChange(ticker, Close{sDay, sPrice}, Close{eDay, ePrice}), nil
}

// MovingAverage returns the mean of the 'window' most recent closes on or before a day.
func (a *Analytics) MovingAverage(ctx context.Context, ticker string, window int, on date.Date) (*Average, error) {
	if window < 1 {
		return nil, &InvalidWindowError{Short: window}
	}
	closes, err := recentCloses(ctx, a.prices, ticker, on, window)
	if err != nil {
		return nil, err
	}
	if len(closes) < window {
		return nil, &InsufficientHistoryError{Ticker: ticker, On: on, Window: window, Available: len(closes)}
	}
	sma := talib.Sma(closes.Floats(), window)
	return &Average{
		Ticker: ticker,
		Date:   on,
		Window: window,
		From:   closes[0].Date,
		To:     closes[len(closes)-1].Date,
		Value:  sma[len(sma)-1],
	}, nil
}

// CrossoverOverPeriod returns the trading days in [start, end] on which the
// close crossed its baseline moving average: a "Buy opportunity" when crossing
// above, a "Sell opportunity" when crossing below.
func (a *Analytics) CrossoverOverPeriod(ctx context.Context, ticker string, start, end date.Date) ([]Crossover, error) {
	t, err := a.Trend(ctx, ticker, start, end, a.baseline)
	if err != nil {
		return nil, err
	}
	return t.Crossovers, nil
}

// Trend is the closes of a security over a period together with their moving average.
type Trend struct {
	Ticker     string      `json:"ticker"`
	Window     int         `json:"window"`
	Closes     PriceSeries `json:"closes"`     // trading days in the period
	Average    []float64   `json:"average"`    // moving average on each day of Closes
	Crossovers []Crossover `json:"crossovers"` // of the close through its average
}

// Trend returns the closes of ticker in [start, end], their 'window' days
// moving average, and the days the close crossed it.
func (a *Analytics) Trend(ctx context.Context, ticker string, start, end date.Date, window int) (*Trend, error) {
	if window < 1 {
		return nil, &InvalidWindowError{Short: window}
	}
	series, first, err := a.series(ctx, ticker, start, end, window)
	if err != nil {
		return nil, err
	}
	t := &Trend{Ticker: ticker, Window: window, Closes: PriceSeries{}, Average: []float64{}, Crossovers: []Crossover{}}
	if first == len(series) {
		return t, nil
	}
	closes := series.Floats()
	sma := talib.Sma(closes, window)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = closes[i] - sma[i]
	}
	t.Closes = series[first:]
	t.Average = sma[first:]
	t.Crossovers = crossovers(series, diff, first, window-1, BuyOpportunity, SellOpportunity)
	return t, nil
}

// MovingCrossoversOverPeriod returns the trading days in [start, end] on which
// the short moving average crossed the long one: "Buy" when crossing above,
// "Sell" when crossing below.
func (a *Analytics) MovingCrossoversOverPeriod(ctx context.Context, ticker string, start, end date.Date, short, long int) ([]Crossover, error) {
	if short < 1 || short >= long {
		return nil, &InvalidWindowError{Short: short, Long: long}
	}
	series, first, err := a.series(ctx, ticker, start, end, long)
	if err != nil {
		return nil, err
	}
	if first == len(series) {
		return []Crossover{}, nil
	}
	closes := series.Floats()
	shortMA, longMA := talib.Sma(closes, short), talib.Sma(closes, long)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = shortMA[i] - longMA[i]
	}
	return crossovers(series, diff, first, long-1, BuySignal, SellSignal), nil
}

// series fetches the closes in [start, end] with enough history before start
// to compute a moving average of 'window' on the trading day preceding start.
// It returns the series and the index of the first trading day in range.
func (a *Analytics) series(ctx context.Context, ticker string, start, end date.Date, window int) (PriceSeries, int, error) {
	if end.Before(start) {
		return nil, 0, &InvalidRangeError{Range: date.NewRange(start, end)}
	}
	series, err := FetchSeries(ctx, a.prices, ticker, start, end, window)
	if err != nil {
		return nil, 0, err
	}
	first := series.index(start)
	switch {
	case len(series) == 0:
		return nil, 0, &PriceUnavailableError{Ticker: ticker, On: start, Err: ErrPriceNotFound}
	case first == len(series):
		// No trading day in range, nothing to report.
		return series, first, nil
	case first < window:
		return nil, 0, &InsufficientHistoryError{Ticker: ticker, On: start.Add(-1), Window: window, Available: first}
	}
	return series, first, nil
}

// crossovers reports the days from 'first' on where the sign of diff differs
// from the last non-zero sign. diff is meaningful from index 'valid' on.
func crossovers(series PriceSeries, diff []float64, first, valid int, up, down Signal) []Crossover {
	result := make([]Crossover, 0)
	last := 0
	for i := first - 1; i >= valid && last == 0; i-- {
		last = sign(diff[i])
	}
	for i := first; i < len(series); i++ {
		s := sign(diff[i])
		if s == 0 {
			continue
		}
		if last != 0 && s != last {
			signal := up
			if s < 0 {
				signal = down
			}
			result = append(result, Crossover{Date: series[i].Date, Signal: signal})
		}
		last = s
	}
	return result
}

func sign(x float64) int {
	switch {
	case math.IsNaN(x) || math.Abs(x) < epsilon:
		return 0
	case x > 0:
		return 1
	default:
		return -1
	}
}
