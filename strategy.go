package folio

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
)

// WeightTolerance is the accepted distance between the sum of strategy weights and 100.
const WeightTolerance = 1e-6

// Strategy is a dollar-cost-averaging plan: every Frequency days from Start,
// invest Amount split across tickers according to Weights (in percent).
//
// A zero End makes the strategy open-ended: it runs up to today. A Start after
// End (or today) is valid and yields no investment.
type Strategy struct {
	Portfolio string             `json:"portfolio"`
	Start     date.Date          `json:"start"`
	End       date.Date          `json:"end,omitzero"`
	Frequency int                `json:"frequency"` // in days
	Amount    Money              `json:"amount"`    // invested per event, all tickers together
	Weights   map[string]float64 `json:"weights"`   // ticker -> percent
}

// Validate checks the strategy definition. Failures are *InvalidStrategyError
// wrapping the precise cause.
func (s Strategy) Validate() error {
	if err := s.validate(); err != nil {
		return &InvalidStrategyError{Err: err}
	}
	return nil
}

func (s Strategy) validate() error {
	if s.Start.IsZero() {
		return errors.New("start date is missing")
	}
	if s.Frequency < 1 {
		return &InvalidAmountError{Field: "frequency", Value: fmt.Sprint(s.Frequency)}
	}
	if !s.Amount.IsPositive() {
		return &InvalidAmountError{Field: "amount", Value: s.Amount.String()}
	}
	if len(s.Weights) == 0 {
		return &InvalidWeightError{Weight: 0}
	}
	var sum float64
	for _, ticker := range s.tickers() {
		w := s.Weights[ticker]
		if strings.TrimSpace(ticker) == "" {
			return &UnknownTickerError{Ticker: ticker}
		}
		if math.IsNaN(w) || w <= 0 || w > 100 {
			return &InvalidWeightError{Ticker: ticker, Weight: w}
		}
		sum += w
	}
	if math.Abs(sum-100) > WeightTolerance {
		return &InvalidWeightError{Weight: sum}
	}
	return nil
}

func (s Strategy) tickers() []string { return slices.Sorted(maps.Keys(s.Weights)) }

// Events returns the investment dates of the strategy up to today (inclusive).
func (s Strategy) Events(today date.Date) []date.Date {
	last := today
	if !s.End.IsZero() {
		last = date.Min(s.End, today)
	}
	return slices.Collect(date.Every(s.Start, last, s.Frequency))
}

// MissingPricePolicy decides what happens when a price cannot be resolved for
// a ticker on an investment date.
type MissingPricePolicy int

const (
	// SkipMissingPrice skips that ticker for that event, other investments are committed.
	SkipMissingPrice MissingPricePolicy = iota
	// FailOnMissingPrice fails the whole strategy, nothing is committed.
	FailOnMissingPrice
)

func (p MissingPricePolicy) String() string {
	switch p {
	case SkipMissingPrice:
		return "skip"
	case FailOnMissingPrice:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseMissingPricePolicy parses "skip" or "fail".
func ParseMissingPricePolicy(s string) (MissingPricePolicy, error) {
	switch s {
	case "skip":
		return SkipMissingPrice, nil
	case "fail":
		return FailOnMissingPrice, nil
	default:
		return 0, fmt.Errorf("unknown missing price policy: %q", s)
	}
}

// State is the lifecycle of a strategy execution.
type State int

const (
	Pending State = iota
	Expanding
	Committed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Expanding:
		return "expanding"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Skipped records an investment that was not made because no price was available.
type Skipped struct {
	Date   date.Date `json:"date"`
	Ticker string    `json:"ticker"`
	Reason string    `json:"reason"`
}

// Execution is the outcome of running a strategy.
type Execution struct {
	Strategy     Strategy      `json:"strategy"`
	State        State         `json:"state"`
	Events       []date.Date   `json:"events"`
	Transactions []Transaction `json:"transactions"`
	Skipped      []Skipped     `json:"skipped,omitempty"`
	Invested     Money         `json:"invested"`
}

// Scheduler expands DCA strategies into buy transactions.
type Scheduler struct {
	prices PriceSource
	policy MissingPricePolicy
	log    zerolog.Logger

	// Today returns the current date, open-ended strategies run up to it.
	Today func() date.Date
}

// NewScheduler returns a scheduler resolving prices with src.
func NewScheduler(src PriceSource, policy MissingPricePolicy, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		prices: src,
		policy: policy,
		log:    log,
		Today:  date.Today,
	}
}

// Policy returns the missing price policy of the scheduler.
func (s *Scheduler) Policy() MissingPricePolicy { return s.policy }

// Run expands the strategy up to today and commits the resulting buys to the ledger.
//
// The execution is atomic: on failure nothing is committed and the returned
// execution is in the Failed state. Under SkipMissingPrice, investments without
// a price are recorded in Execution.Skipped and the rest is committed.
func (s *Scheduler) Run(ctx context.Context, l *Ledger, strategy Strategy) (*Execution, error) {
	exec := &Execution{Strategy: strategy, State: Pending}
	if err := strategy.Validate(); err != nil {
		exec.State = Failed
		return exec, err
	}

	exec.State = Expanding
	exec.Events = strategy.Events(s.Today())
	log := s.log.With().Str("portfolio", l.Name()).Int("events", len(exec.Events)).Logger()
	log.Debug().Msg("expanding strategy")

	for _, on := range exec.Events {
		txs, skipped, err := s.expand(ctx, strategy, on)
		if err != nil {
			exec.State = Failed
			log.Warn().Err(err).Stringer("date", on).Msg("strategy failed")
			return exec, err
		}
		exec.Transactions = append(exec.Transactions, txs...)
		exec.Skipped = append(exec.Skipped, skipped...)
	}

	if err := l.AppendAll(exec.Transactions...); err != nil {
		exec.State = Failed
		return exec, fmt.Errorf("cannot commit strategy to %q: %w", l.Name(), err)
	}
	for _, tx := range exec.Transactions {
		exec.Invested = exec.Invested.Add(tx.Amount())
	}
	exec.State = Committed
	log.Info().Int("transactions", len(exec.Transactions)).Int("skipped", len(exec.Skipped)).Msg("strategy committed")
	return exec, nil
}

// expand computes the buys of a single investment event.
func (s *Scheduler) expand(ctx context.Context, strategy Strategy, on date.Date) ([]Transaction, []Skipped, error) {
	var txs []Transaction
	var skipped []Skipped
	for _, ticker := range strategy.tickers() {
		_, price, err := s.prices.CloseOnOrBefore(ctx, ticker, on)
		if err != nil {
			err = priceError(ticker, on, err)
			var unavailable *PriceUnavailableError
			if s.policy == SkipMissingPrice && errors.As(err, &unavailable) {
				s.log.Debug().Str("ticker", ticker).Stringer("date", on).Msg("no price, investment skipped")
				skipped = append(skipped, Skipped{Date: on, Ticker: ticker, Reason: err.Error()})
				continue
			}
			return nil, nil, err
		}
		amount := strategy.Amount.Percent(newDecimal(strategy.Weights[ticker]))
		txs = append(txs, NewBuy(on, ticker, amount.DivPrice(price), price))
	}
	return txs, skipped, nil
}
