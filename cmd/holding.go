package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	portfolio string
	date      string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display detailed holdings for a specific date" }
func (*holdingCmd) Usage() string {
	return `pf holding -p <portfolio> [-d <date>]

  Displays the positions of a portfolio on a given date, priced at the close of
  the day (or the last trading day before), with its cost basis and gain.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.StringVar(&c.date, "d", "", "Date for the holdings report. Defaults to today")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("holding requires -p <portfolio>")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usage("Error parsing date: %v", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	holding, err := a.svc.Holding(ctx, c.portfolio, on)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.HoldingMarkdown(holding, a.cfg.Currency))
	return subcommands.ExitSuccess
}

type valueCmd struct {
	portfolio string
	date      string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "print the market value of a portfolio" }
func (*valueCmd) Usage() string {
	return `pf value -p <portfolio> [-d <date>]

  Prints the total market value of a portfolio on a given date.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.StringVar(&c.date, "d", "", "Valuation date. Defaults to today")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("value requires -p <portfolio>")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usage("Error parsing date: %v", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	value, err := a.svc.TotalValue(ctx, c.portfolio, on)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "%s\n", value.Format(a.cfg.Currency))
	return subcommands.ExitSuccess
}

type basisCmd struct {
	portfolio string
	date      string
}

func (*basisCmd) Name() string     { return "basis" }
func (*basisCmd) Synopsis() string { return "print the cost basis of a portfolio" }
func (*basisCmd) Usage() string {
	return `pf basis -p <portfolio> [-d <date>]

  Prints the capital deployed in a portfolio up to a given date: the cost of
  every purchase, commissions included.
`
}

func (c *basisCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio")
	f.StringVar(&c.date, "d", "", "Date. Defaults to today")
}

func (c *basisCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("basis requires -p <portfolio>")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usage("Error parsing date: %v", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	basis, err := a.svc.CostBasis(c.portfolio, on)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "%s\n", basis.Format(a.cfg.Currency))
	return subcommands.ExitSuccess
}
