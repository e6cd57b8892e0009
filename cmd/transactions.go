package cmd

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

// parseDate parses a date flag, empty means today.
func parseDate(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// tradeCmd holds the flags common to 'buy' and 'sell'.
type tradeCmd struct {
	kind       folio.Kind
	portfolio  string
	ticker     string
	quantity   string
	date       string
	price      string
	commission string
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.StringVar(&c.quantity, "q", "", "Quantity of shares (fractions allowed)")
	f.StringVar(&c.date, "d", "", "Transaction date. Defaults to today")
	f.StringVar(&c.price, "price", "", "Price per share. Defaults to the closing price of the day")
	f.StringVar(&c.commission, "c", "", "Commission paid, with an explicit price only")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || c.ticker == "" || c.quantity == "" {
		return usage("%s requires -p <portfolio> -s <ticker> -q <quantity>", c.kind)
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usage("invalid date: %v", err)
	}
	quantity, err := folio.ParseQuantity(c.quantity)
	if err != nil {
		return usage("invalid quantity %q: %v", c.quantity, err)
	}
	if c.commission != "" && c.price == "" {
		return usage("-c requires -price")
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var tx folio.Transaction
	if c.price != "" {
		tx = folio.Transaction{Ticker: c.ticker, Kind: c.kind, Quantity: quantity, Date: on}
		if tx.Price, err = folio.ParseMoney(c.price); err != nil {
			return usage("invalid price %q: %v", c.price, err)
		}
		if c.commission != "" {
			if tx.Commission, err = folio.ParseMoney(c.commission); err != nil {
				return usage("invalid commission %q: %v", c.commission, err)
			}
		}
		err = a.svc.Record(c.portfolio, tx)
	} else if c.kind == folio.Buy {
		tx, err = a.svc.RecordBuy(ctx, c.portfolio, c.ticker, quantity, on)
	} else {
		tx, err = a.svc.RecordSell(ctx, c.portfolio, c.ticker, quantity, on)
	}
	if err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "%s on %s\n", renderer.Transaction(tx, a.cfg.Currency), tx.Date)
	return subcommands.ExitSuccess
}

type buyCmd struct{ tradeCmd }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase of a security" }
func (*buyCmd) Usage() string {
	return `pf buy -p <portfolio> -s <ticker> -q <quantity> [-d <date>] [-price <price> [-c <commission>]]

  Records a purchase. Without -price the closing price of the day is used, or
  the last trading day before it.
`
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	c.kind = folio.Buy
	return c.tradeCmd.Execute(ctx, f, args...)
}

type sellCmd struct{ tradeCmd }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale of a security" }
func (*sellCmd) Usage() string {
	return `pf sell -p <portfolio> -s <ticker> -q <quantity> [-d <date>] [-price <price> [-c <commission>]]

  Records a sale. A sale can never exceed the quantity held on its date, nor
  on any later date.
`
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	c.kind = folio.Sell
	return c.tradeCmd.Execute(ctx, f, args...)
}

type txCmd struct {
	portfolio string
	head      int
	tail      int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions of a portfolio" }
func (*txCmd) Usage() string {
	return `pf tx -p <portfolio> [-head <n>] [-tail <n>]

  Lists the transactions of a portfolio in chronological order.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("tx requires -p <portfolio>")
	}
	if c.head > 0 && c.tail > 0 {
		return usage("Error: -head and -tail flags cannot be used together.")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	txs, err := a.svc.Transactions(c.portfolio)
	if err != nil {
		return fail(err)
	}
	if c.head > 0 && c.head < len(txs) {
		txs = txs[:c.head]
	}
	if c.tail > 0 && c.tail < len(txs) {
		txs = txs[len(txs)-c.tail:]
	}
	printMarkdown(renderer.TransactionsMarkdown(c.portfolio, txs, a.cfg.Currency))
	return subcommands.ExitSuccess
}

type dcaCmd struct {
	portfolio string
	start     string
	end       string
	every     int
	amount    string
	weights   string
}

func (*dcaCmd) Name() string     { return "dca" }
func (*dcaCmd) Synopsis() string { return "run a dollar-cost-averaging strategy" }
func (*dcaCmd) Usage() string {
	return `pf dca -p <portfolio> -start <date> [-end <date>] [-every <days>] -amount <amount> -w <ticker=percent,...>

  Invests 'amount' every 'days' from start to end (or today), split across the
  weighted tickers, and records the resulting purchases at once.

  Example: pf dca -p main -start 2025-01-06 -every 7 -amount 500 -w AAPL=60,GOOG=40
`
}

func (c *dcaCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.StringVar(&c.start, "start", "", "First investment date")
	f.StringVar(&c.end, "end", "", "Last possible investment date. Defaults to today")
	f.IntVar(&c.every, "every", 7, "Days between two investments")
	f.StringVar(&c.amount, "amount", "", "Amount invested at each date, all tickers together")
	f.StringVar(&c.weights, "w", "", "Comma separated ticker=percent weights, summing to 100")
}

func (c *dcaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || c.start == "" || c.amount == "" || c.weights == "" {
		return usage("dca requires -p, -start, -amount and -w")
	}
	strategy := folio.Strategy{Portfolio: c.portfolio, Frequency: c.every}
	var err error
	if strategy.Start, err = date.Parse(c.start); err != nil {
		return usage("invalid start date: %v", err)
	}
	if c.end != "" {
		if strategy.End, err = date.Parse(c.end); err != nil {
			return usage("invalid end date: %v", err)
		}
	}
	if strategy.Amount, err = folio.ParseMoney(c.amount); err != nil {
		return usage("invalid amount %q: %v", c.amount, err)
	}
	if strategy.Weights, err = parseWeights(c.weights); err != nil {
		return usage("invalid weights: %v", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	exec, err := a.svc.RunDCAStrategy(ctx, strategy)
	if err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ExecutionMarkdown(exec, a.cfg.Currency))
	return subcommands.ExitSuccess
}

// parseWeights parses "AAPL=60,GOOG=40".
func parseWeights(s string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, item := range strings.Split(s, ",") {
		ticker, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			return nil, fmt.Errorf("%q is not ticker=percent", item)
		}
		w, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", ticker, err)
		}
		weights[ticker] += w
	}
	return weights, nil
}
