package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

// periodFlags holds the flags of commands working on a range of dates.
type periodFlags struct {
	start string
	end   string
}

func (p *periodFlags) set(f *flag.FlagSet) {
	f.StringVar(&p.start, "start", "", "First day of the period")
	f.StringVar(&p.end, "end", "", "Last day of the period. Defaults to today")
}

func (p *periodFlags) parse() (date.Range, error) {
	start, err := date.Parse(p.start)
	if err != nil {
		return date.Range{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDate(p.end)
	if err != nil {
		return date.Range{}, fmt.Errorf("invalid end date: %w", err)
	}
	return date.NewRange(start, end), nil
}

type gainCmd struct {
	ticker string
	date   string
	periodFlags
}

func (*gainCmd) Name() string     { return "gain" }
func (*gainCmd) Synopsis() string { return "tell whether a security gained or lost" }
func (*gainCmd) Usage() string {
	return `pf gain -s <ticker> [-d <date> | -start <date> [-end <date>]]

  Compares the close of a day with the previous trading day, or the closes at
  both ends of a period.
`
}

func (c *gainCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.StringVar(&c.date, "d", "", "Day to compare with the previous trading day. Defaults to today")
	c.periodFlags.set(f)
}

func (c *gainCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		return usage("gain requires -s <ticker>")
	}
	if c.start != "" && c.date != "" {
		return usage("-d and -start cannot be used together")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var change *folio.Change
	if c.start != "" {
		period, err := c.periodFlags.parse()
		if err != nil {
			return usage("%v", err)
		}
		change, err = a.svc.GainOrLoseOverPeriod(ctx, c.ticker, period.From, period.To)
		if err != nil {
			return fail(err)
		}
	} else {
		on, err := parseDate(c.date)
		if err != nil {
			return usage("Error parsing date: %v", err)
		}
		change, err = a.svc.GainOrLose(ctx, c.ticker, on)
		if err != nil {
			return fail(err)
		}
	}
	printMarkdown(renderer.ChangeMarkdown(change, a.cfg.Currency))
	return subcommands.ExitSuccess
}

type maCmd struct {
	ticker string
	window int
	date   string
}

func (*maCmd) Name() string     { return "ma" }
func (*maCmd) Synopsis() string { return "compute the moving average of a security" }
func (*maCmd) Usage() string {
	return `pf ma -s <ticker> -w <window> [-d <date>]

  Averages the 'window' most recent closes on or before a date.
`
}

func (c *maCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.IntVar(&c.window, "w", folio.DefaultBaselineWindow, "Number of trading days")
	f.StringVar(&c.date, "d", "", "Date. Defaults to today")
}

func (c *maCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		return usage("ma requires -s <ticker>")
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

	avg, err := a.svc.MovingAverage(ctx, c.ticker, c.window, on)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.AverageMarkdown(avg, a.cfg.Currency))
	return subcommands.ExitSuccess
}

type crossoverCmd struct {
	ticker string
	periodFlags
}

func (*crossoverCmd) Name() string { return "crossover" }
func (*crossoverCmd) Synopsis() string {
	return "find the days a security crossed its baseline moving average"
}
func (*crossoverCmd) Usage() string {
	return `pf crossover -s <ticker> -start <date> [-end <date>]

  Lists the trading days on which the close crossed its baseline moving average
  ($FOLIO_BASELINE_WINDOW days): crossing above is a buy opportunity, crossing
  below a sell opportunity.
`
}

func (c *crossoverCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	c.periodFlags.set(f)
}

func (c *crossoverCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.start == "" {
		return usage("crossover requires -s <ticker> -start <date>")
	}
	period, err := c.periodFlags.parse()
	if err != nil {
		return usage("%v", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	xs, err := a.svc.CrossoverOverPeriod(ctx, c.ticker, period.From, period.To)
	if err != nil {
		return fail(err)
	}
	title := fmt.Sprintf("%s crosses its %d days average", c.ticker, a.cfg.BaselineWindow)
	printMarkdown(renderer.CrossoversMarkdown(title, period, xs))
	return subcommands.ExitSuccess
}

type xcrossoverCmd struct {
	ticker string
	short  int
	long   int
	periodFlags
}

func (*xcrossoverCmd) Name() string { return "xcrossover" }
func (*xcrossoverCmd) Synopsis() string {
	return "find the days a short moving average crossed a long one"
}
func (*xcrossoverCmd) Usage() string {
	return `pf xcrossover -s <ticker> -start <date> [-end <date>] [-short <days>] [-long <days>]

  Lists the trading days on which the short moving average crossed the long
  one: crossing above is a buy signal, crossing below a sell signal.
`
}

func (c *xcrossoverCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.IntVar(&c.short, "short", 50, "Short window, in trading days")
	f.IntVar(&c.long, "long", 200, "Long window, in trading days")
	c.periodFlags.set(f)
}

func (c *xcrossoverCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.start == "" {
		return usage("xcrossover requires -s <ticker> -start <date>")
	}
	period, err := c.periodFlags.parse()
	if err != nil {
		return usage("%v", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	xs, err := a.svc.MovingCrossoversOverPeriod(ctx, c.ticker, period.From, period.To, c.short, c.long)
	if err != nil {
		return fail(err)
	}
	title := fmt.Sprintf("%s %d/%d days averages crossovers", c.ticker, c.short, c.long)
	printMarkdown(renderer.CrossoversMarkdown(title, period, xs))
	return subcommands.ExitSuccess
}

type chartCmd struct {
	ticker string
	window int
	output string
	periodFlags
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw the closes of a security and their moving average" }
func (*chartCmd) Usage() string {
	return `pf chart -s <ticker> -start <date> [-end <date>] [-w <window>] [-o <file.png>]

  Writes a PNG chart of the closes over the period, their moving average and
  the days the close crossed it. The window defaults to $FOLIO_BASELINE_WINDOW
  and the file to <ticker>.png.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.IntVar(&c.window, "w", 0, "Moving average window, in trading days")
	f.StringVar(&c.output, "o", "", "Output PNG file")
	c.periodFlags.set(f)
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.start == "" {
		return usage("chart requires -s <ticker> -start <date>")
	}
	period, err := c.periodFlags.parse()
	if err != nil {
		return usage("%v", err)
	}
	output := c.output
	if output == "" {
		output = c.ticker + ".png"
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	trend, err := a.svc.Trend(ctx, c.ticker, period.From, period.To, c.window)
	if err != nil {
		return fail(err)
	}
	file, err := os.Create(output)
	if err != nil {
		return fail(err)
	}
	if err := renderer.TrendChart(file, trend); err != nil {
		file.Close()
		os.Remove(output)
		return fail(err)
	}
	if err := file.Close(); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Chart of %s written to %s (%d crossovers)\n", c.ticker, output, len(trend.Crossovers))
	return subcommands.ExitSuccess
}
