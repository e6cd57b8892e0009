package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

type createCmd struct{}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create a new empty portfolio" }
func (*createCmd) Usage() string {
	return `pf create <name>

  Creates a new empty portfolio. Names are unique.
`
}
func (*createCmd) SetFlags(f *flag.FlagSet) {}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("create requires exactly one portfolio name")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	name := f.Arg(0)
	if err := a.svc.CreatePortfolio(name); err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Portfolio %q created\n", name)
	return subcommands.ExitSuccess
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list all portfolios" }
func (*listCmd) Usage() string {
	return `pf list

  Lists the portfolios in the database.
`
}
func (*listCmd) SetFlags(f *flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()
	printMarkdown(renderer.PortfoliosMarkdown(a.svc.Portfolios()))
	return subcommands.ExitSuccess
}

type importCmd struct {
	portfolio string
	create    bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a CSV file" }
func (*importCmd) Usage() string {
	return `pf import -p <portfolio> [-create] <file.csv>

  Appends the transactions of a CSV ledger (ticker,quantity,price,date,kind[,commission])
  to a portfolio. Either every transaction is imported or none is.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to import into")
	f.BoolVar(&c.create, "create", false, "Create the portfolio if it does not exist")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || f.NArg() != 1 {
		return usage("import requires -p <portfolio> and a CSV file")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	reg := a.svc.Registry()
	l, err := reg.Get(c.portfolio)
	if err != nil && c.create {
		l, err = reg.Create(c.portfolio)
	}
	if err != nil {
		return fail(err)
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	before := l.Len()
	if err := folio.ImportLedger(file, l); err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Imported %d transactions into %q\n", l.Len()-before, c.portfolio)
	return subcommands.ExitSuccess
}

type exportCmd struct {
	portfolio string
	output    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions as CSV" }
func (*exportCmd) Usage() string {
	return `pf export -p <portfolio> [-o <file.csv>]

  Writes the transactions of a portfolio in the CSV ledger format.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio to export")
	f.StringVar(&c.output, "o", "", "Output file. Defaults to standard output")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("export requires -p <portfolio>")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	l, err := a.svc.Registry().Get(c.portfolio)
	if err != nil {
		return fail(err)
	}
	w := stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			return fail(err)
		}
		defer file.Close()
		w = file
	}
	if err := folio.ExportLedger(w, l); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
