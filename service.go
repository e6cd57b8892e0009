package folio

import (
	"context"
	"fmt"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
)

// Options configures a Service.
type Options struct {
	MissingPrice   MissingPricePolicy // what a DCA strategy does without a price
	BaselineWindow int                // moving average window for price crossovers
}

// Service exposes the operations of folio to controllers (CLI, HTTP API).
//
// Every operation returns a value or a typed error, and validation failures
// leave the portfolios unchanged.
type Service struct {
	registry  *Registry
	prices    PriceSource
	valuation *Valuation
	scheduler *Scheduler
	analytics *Analytics
	log       zerolog.Logger
}

// NewService returns a service over the portfolios of reg, priced with src.
func NewService(reg *Registry, src PriceSource, opts Options, log zerolog.Logger) *Service {
	return &Service{
		registry:  reg,
		prices:    src,
		valuation: NewValuation(src),
		scheduler: NewScheduler(src, opts.MissingPrice, log),
		analytics: NewAnalytics(src, opts.BaselineWindow),
		log:       log,
	}
}

// Registry returns the portfolio registry of the service.
func (s *Service) Registry() *Registry { return s.registry }

// Scheduler returns the strategy scheduler of the service.
func (s *Service) Scheduler() *Scheduler { return s.scheduler }

// CreatePortfolio registers a new empty portfolio.
func (s *Service) CreatePortfolio(name string) error {
	if _, err := s.registry.Create(name); err != nil {
		return err
	}
	s.log.Info().Str("portfolio", name).Msg("portfolio created")
	return nil
}

// Portfolios returns the names of all portfolios.
func (s *Service) Portfolios() []string { return s.registry.Names() }

// Transactions returns the ledger of a portfolio.
func (s *Service) Transactions(name string) ([]Transaction, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return l.Transactions(), nil
}

// RecordBuy buys quantity shares of ticker at the close of the day (or the last trading day before).
func (s *Service) RecordBuy(ctx context.Context, name, ticker string, quantity Quantity, on date.Date) (Transaction, error) {
	return s.record(ctx, name, Buy, ticker, quantity, on)
}

// RecordSell sells quantity shares of ticker at the close of the day (or the last trading day before).
func (s *Service) RecordSell(ctx context.Context, name, ticker string, quantity Quantity, on date.Date) (Transaction, error) {
	return s.record(ctx, name, Sell, ticker, quantity, on)
}

func (s *Service) record(ctx context.Context, name string, kind Kind, ticker string, quantity Quantity, on date.Date) (Transaction, error) {
	if _, err := s.registry.Get(name); err != nil {
		return Transaction{}, err
	}
	if !quantity.IsPositive() {
		return Transaction{}, &InvalidAmountError{Field: "quantity", Value: quantity.String()}
	}
	_, price, err := s.prices.CloseOnOrBefore(ctx, ticker, on)
	if err != nil {
		return Transaction{}, priceError(ticker, on, err)
	}
	tx := Transaction{Ticker: ticker, Kind: kind, Quantity: quantity, Price: price, Date: on}
	if err := s.Record(name, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Record appends a fully specified transaction to a portfolio.
func (s *Service) Record(name string, tx Transaction) error {
	l, err := s.registry.Get(name)
	if err != nil {
		return err
	}
	if err := l.Append(tx); err != nil {
		return err
	}
	s.log.Info().Str("portfolio", name).Stringer("tx", tx).Msg("transaction recorded")
	return nil
}

// Composition returns the securities held by a portfolio on a given day.
func (s *Service) Composition(name string, on date.Date) (Composition, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return s.valuation.Composition(l, on), nil
}

// CostBasis returns the capital deployed in a portfolio up to a given day.
func (s *Service) CostBasis(name string, on date.Date) (Money, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return Money{}, err
	}
	return s.valuation.CostBasis(l, on), nil
}

// TotalValue returns the market value of a portfolio on a given day.
func (s *Service) TotalValue(ctx context.Context, name string, on date.Date) (Money, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return Money{}, err
	}
	return s.valuation.TotalValue(ctx, l, on)
}

// Holding returns the detailed valuation of a portfolio on a given day.
func (s *Service) Holding(ctx context.Context, name string, on date.Date) (*Holding, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return s.valuation.Holding(ctx, l, on)
}

// RunDCAStrategy expands a DCA strategy up to today and commits its buys.
func (s *Service) RunDCAStrategy(ctx context.Context, strategy Strategy) (*Execution, error) {
	l, err := s.registry.Get(strategy.Portfolio)
	if err != nil {
		return nil, err
	}
	exec, err := s.scheduler.Run(ctx, l, strategy)
	if err != nil {
		return exec, fmt.Errorf("dca on %q: %w", strategy.Portfolio, err)
	}
	return exec, nil
}

// GainOrLose compares the close of ticker on a day with the previous trading day.
func (s *Service) GainOrLose(ctx context.Context, ticker string, on date.Date) (*Change, error) {
	return s.analytics.GainOrLose(ctx, ticker, on)
}

// GainOrLoseOverPeriod compares the closes of ticker at both ends of a period.
func (s *Service) GainOrLoseOverPeriod(ctx context.Context, ticker string, start, end date.Date) (*Change, error) {
	return s.analytics.GainOrLoseOverPeriod(ctx, ticker, start, end)
}

// MovingAverage returns the moving average of ticker on a given day.
func (s *Service) MovingAverage(ctx context.Context, ticker string, window int, on date.Date) (*Average, error) {
	return s.analytics.MovingAverage(ctx, ticker, window, on)
}

// CrossoverOverPeriod returns the days the close of ticker crossed its baseline moving average.
func (s *Service) CrossoverOverPeriod(ctx context.Context, ticker string, start, end date.Date) ([]Crossover, error) {
	return s.analytics.CrossoverOverPeriod(ctx, ticker, start, end)
}

// Trend returns the closes of ticker over a period with their moving average and crossovers.
// A window below 1 selects the baseline window.
func (s *Service) Trend(ctx context.Context, ticker string, start, end date.Date, window int) (*Trend, error) {
	if window < 1 {
		window = s.analytics.Baseline()
	}
	return s.analytics.Trend(ctx, ticker, start, end, window)
}

// MovingCrossoversOverPeriod returns the days the short moving average of ticker crossed the long one.
func (s *Service) MovingCrossoversOverPeriod(ctx context.Context, ticker string, start, end date.Date, short, long int) ([]Crossover, error) {
	return s.analytics.MovingCrossoversOverPeriod(ctx, ticker, start, end, short, long)
}
