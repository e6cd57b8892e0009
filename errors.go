package folio

import (
	"errors"
	"fmt"

	"github.com/etnz/folio/date"
)

// ErrPriceNotFound is returned by a PriceSource when no closing price exists
// within its trading-day fallback window.
var ErrPriceNotFound = errors.New("price not found")

// DuplicatePortfolioError is returned when creating a portfolio whose name is already taken.
type DuplicatePortfolioError struct{ Name string }

func (e *DuplicatePortfolioError) Error() string {
	return fmt.Sprintf("portfolio %q already exists", e.Name)
}

// PortfolioNotFoundError is returned when a portfolio name is not registered.
type PortfolioNotFoundError struct{ Name string }

func (e *PortfolioNotFoundError) Error() string {
	return fmt.Sprintf("portfolio %q not found", e.Name)
}

// InvalidPortfolioNameError is returned for blank portfolio names.
type InvalidPortfolioNameError struct{ Name string }

func (e *InvalidPortfolioNameError) Error() string {
	return fmt.Sprintf("invalid portfolio name %q", e.Name)
}

// UnknownTickerError is returned when a ticker is unknown to the price source,
// or blank in a transaction.
type UnknownTickerError struct{ Ticker string }

func (e *UnknownTickerError) Error() string {
	return fmt.Sprintf("unknown ticker %q", e.Ticker)
}

// InsufficientHoldingsError is returned when a sell would make a position negative.
type InsufficientHoldingsError struct {
	Ticker    string
	On        date.Date // first date on which the position would go negative
	Held      Quantity
	Requested Quantity
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("on %s, cannot sell %s %s: only %s held", e.On, e.Requested, e.Ticker, e.Held)
}

// InvalidAmountError is returned for non-positive quantities, prices or amounts.
type InvalidAmountError struct {
	Field string
	Value string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s %s: must be positive", e.Field, e.Value)
}

// InvalidWeightError is returned when strategy weights are out of range or do not sum to 100.
type InvalidWeightError struct {
	Ticker string  // empty when the error is about the sum
	Weight float64 // the faulty weight, or the sum
}

func (e *InvalidWeightError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("weights sum to %g, want 100", e.Weight)
	}
	return fmt.Sprintf("weight %g for %q is out of range (0, 100]", e.Weight, e.Ticker)
}

// InvalidStrategyError wraps the validation failure of a DCA strategy.
type InvalidStrategyError struct{ Err error }

func (e *InvalidStrategyError) Error() string { return "invalid strategy: " + e.Err.Error() }
func (e *InvalidStrategyError) Unwrap() error { return e.Err }

// InvalidWindowError is returned for bad moving average windows.
type InvalidWindowError struct{ Short, Long int }

func (e *InvalidWindowError) Error() string {
	if e.Long == 0 {
		return fmt.Sprintf("invalid moving average window %d", e.Short)
	}
	return fmt.Sprintf("short window %d must be smaller than long window %d", e.Short, e.Long)
}

// InvalidRangeError is returned when a period ends before it starts.
type InvalidRangeError struct{ Range date.Range }

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %s: end before start", e.Range)
}

// InsufficientHistoryError is returned when fewer trading days exist than a window requires.
type InsufficientHistoryError struct {
	Ticker    string
	On        date.Date
	Window    int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: %d trading days required on or before %s, %d available", e.Ticker, e.Window, e.On, e.Available)
}

// PriceUnavailableError is returned when a price cannot be resolved within the fallback bounds.
type PriceUnavailableError struct {
	Ticker string
	On     date.Date
	Err    error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("no price for %s on or around %s", e.Ticker, e.On)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }

// priceError converts a PriceSource failure into a typed error.
// UnknownTickerError passes through, anything else becomes PriceUnavailableError.
func priceError(ticker string, on date.Date, err error) error {
	var unknown *UnknownTickerError
	if errors.As(err, &unknown) {
		return err
	}
	return &PriceUnavailableError{Ticker: ticker, On: on, Err: err}
}
