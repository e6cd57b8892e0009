package folio

import (
	"context"
	"errors"
	"slices"

	"github.com/etnz/folio/date"
)

// MaxHistoryGap is the number of calendar days without any close after which
// the price history of a security is considered to start.
const MaxHistoryGap = 366

// Close is the closing price of a security on a trading day.
type Close struct {
	Date  date.Date `json:"date"`
	Price Money     `json:"price"`
}

// PriceSeries is a chronological sequence of closing prices for one security.
type PriceSeries []Close

// Floats returns the prices as float64, for indicator computations.
func (s PriceSeries) Floats() []float64 {
	values := make([]float64, len(s))
	for i, c := range s {
		values[i] = c.Price.InexactFloat64()
	}
	return values
}

// index returns the index of the first close on or after day, or len(s).
func (s PriceSeries) index(day date.Date) int {
	i, _ := slices.BinarySearchFunc(s, day, func(c Close, d date.Date) int { return c.Date.Compare(d) })
	return i
}

// RangeSource is implemented by price sources able to return every close of
// a period at once.
//
// Closes returns the closes of ticker in [from, to] in chronological order,
// possibly none, or an *UnknownTickerError.
type RangeSource interface {
	Closes(ctx context.Context, ticker string, from, to date.Date) (PriceSeries, error)
}

// recentCloses returns up to n closes ending with the close on or before 'on'.
//
// The latest close must be within the look-back window of the source, older
// ones are searched through gaps of up to MaxHistoryGap days.
func recentCloses(ctx context.Context, src PriceSource, ticker string, on date.Date, n int) (PriceSeries, error) {
	day, price, err := src.CloseOnOrBefore(ctx, ticker, on)
	if errors.Is(err, ErrPriceNotFound) {
		return PriceSeries{}, nil
	}
	if err != nil {
		return nil, priceError(ticker, on, err)
	}
	prior, err := closesBefore(ctx, src, ticker, day.Add(-1), n-1)
	if err != nil {
		return nil, err
	}
	return append(prior, Close{Date: day, Price: price}), nil
}

// closesBefore returns up to n closes on or before 'on', in chronological
// order. It stops when no close exists in the MaxHistoryGap days preceding
// the oldest close found.
func closesBefore(ctx context.Context, src PriceSource, ticker string, on date.Date, n int) (PriceSeries, error) {
	if n <= 0 {
		return PriceSeries{}, nil
	}
	if rs, ok := src.(RangeSource); ok {
		return rangeBefore(ctx, rs, ticker, on, n)
	}
	series := make(PriceSeries, 0, n)
	oldest := on
	for d := on; len(series) < n && oldest.Sub(d) <= MaxHistoryGap; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day, price, err := src.CloseOnOrBefore(ctx, ticker, d)
		if errors.Is(err, ErrPriceNotFound) {
			d = d.Add(-1)
			continue
		}
		if err != nil {
			return nil, priceError(ticker, d, err)
		}
		series = append(series, Close{Date: day, Price: price})
		oldest = day
		d = day.Add(-1)
	}
	slices.Reverse(series)
	return series, nil
}

// rangeBefore is closesBefore for a RangeSource, fetching whole periods
// backward from 'on'.
func rangeBefore(ctx context.Context, src RangeSource, ticker string, on date.Date, n int) (PriceSeries, error) {
	// about five trading days a week, with some room for holidays.
	span := 2*n + DefaultLookback
	var series PriceSeries
	oldest := on
	for to := on; len(series) < n && oldest.Sub(to) <= MaxHistoryGap; {
		from := to.Add(1 - span)
		chunk, err := src.Closes(ctx, ticker, from, to)
		if err != nil {
			return nil, priceError(ticker, to, err)
		}
		if len(chunk) > 0 {
			oldest = chunk[0].Date
		}
		series = slices.Concat(chunk, series)
		to = from.Add(-1)
	}
	if len(series) > n {
		series = series[len(series)-n:]
	}
	return series, nil
}

// closesBetween returns every trading day close in [from, to].
func closesBetween(ctx context.Context, src PriceSource, ticker string, from, to date.Date) (PriceSeries, error) {
	if rs, ok := src.(RangeSource); ok {
		series, err := rs.Closes(ctx, ticker, from, to)
		if err != nil {
			return nil, priceError(ticker, from, err)
		}
		return series, nil
	}
	var series PriceSeries
	for d := from; !d.After(to); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day, price, err := src.CloseOnOrAfter(ctx, ticker, d)
		if errors.Is(err, ErrPriceNotFound) {
			// No trading day within the look-ahead window, keep searching.
			d = d.Add(1)
			continue
		}
		if err != nil {
			return nil, priceError(ticker, d, err)
		}
		if day.After(to) {
			break
		}
		series = append(series, Close{Date: day, Price: price})
		d = day.Add(1)
	}
	return series, nil
}

// FetchSeries returns the closes of ticker in [from, to] preceded by up to
// 'before' trading days closes prior to from.
//
// Sources implementing RangeSource are queried a period at a time, others a
// day at a time.
func FetchSeries(ctx context.Context, src PriceSource, ticker string, from, to date.Date, before int) (PriceSeries, error) {
	prior, err := closesBefore(ctx, src, ticker, from.Add(-1), before)
	if err != nil {
		return nil, err
	}
	inRange, err := closesBetween(ctx, src, ticker, from, to)
	if err != nil {
		return nil, err
	}
	return append(prior, inRange...), nil
}
