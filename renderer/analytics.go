package renderer

import (
	"errors"
	"fmt"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
)

// ChangeMarkdown renders a gain or loss.
func ChangeMarkdown(c *folio.Change, currency string) string {
	r := newRenderer(currency)
	r.Printf("# %s from %s to %s\n\n", c.Ticker, c.From, c.To)
	r.Printf("| Date | Close |\n")
	r.Printf("|:---|---:|\n")
	r.Printf("| %s | %s |\n", c.From, r.money(c.Start))
	r.Printf("| %s | %s |\n\n", c.To, r.money(c.End))

	pct := ""
	if !c.Start.IsZero() {
		pct = fmt.Sprintf(" (%+.2f%%)", c.Delta.Decimal().Div(c.Start.Decimal()).InexactFloat64()*100)
	}
	r.Printf("**%s**: %s%s\n", c.Direction, r.signed(c.Delta), pct)
	return r.String()
}

// AverageMarkdown renders a moving average.
func AverageMarkdown(a *folio.Average, currency string) string {
	r := newRenderer(currency)
	r.Printf("# %s %d-day moving average on %s\n\n", a.Ticker, a.Window, a.Date)
	r.Printf("%s, over the trading days from %s to %s.\n", r.money(folio.M(a.Value)), a.From, a.To)
	return r.String()
}

// CrossoversMarkdown renders the crossovers found in a period.
func CrossoversMarkdown(title string, period date.Range, crossovers []folio.Crossover) string {
	r := newRenderer("")
	r.Printf("# %s %s\n\n", title, period)
	if len(crossovers) == 0 {
		r.Printf("No crossover.\n")
		return r.String()
	}
	r.Printf("| Date | Signal |\n")
	r.Printf("|:---|:---|\n")
	for _, x := range crossovers {
		r.Printf("| %s | %s |\n", x.Date, x.Signal)
	}
	return r.String()
}

// Message returns a user facing message for errors returned by folio.
func Message(err error) string {
	var (
		duplicate    *folio.DuplicatePortfolioError
		notFound     *folio.PortfolioNotFoundError
		invalidName  *folio.InvalidPortfolioNameError
		unknown      *folio.UnknownTickerError
		insufficient *folio.InsufficientHoldingsError
		history      *folio.InsufficientHistoryError
		unavailable  *folio.PriceUnavailableError
		strategy     *folio.InvalidStrategyError
	)
	switch {
	case errors.As(err, &strategy):
		return fmt.Sprintf("The DCA strategy is invalid: %v.", strategy.Err)
	case errors.As(err, &duplicate):
		return fmt.Sprintf("A portfolio named %q already exists.", duplicate.Name)
	case errors.As(err, &notFound):
		return fmt.Sprintf("There is no portfolio named %q.", notFound.Name)
	case errors.As(err, &invalidName):
		return "A portfolio needs a non blank name."
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Cannot sell %s %s on %s: only %s held.", insufficient.Requested, insufficient.Ticker, insufficient.On, insufficient.Held)
	case errors.As(err, &history):
		return fmt.Sprintf("Not enough price history for %s: %d trading days needed, %d available.", history.Ticker, history.Window, history.Available)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("No price for %s around %s.", unavailable.Ticker, unavailable.On)
	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown ticker %q.", unknown.Ticker)
	default:
		return err.Error()
	}
}
