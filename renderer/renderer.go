// Package renderer formats folio results as markdown reports.
//
// Amounts are formatted in a reporting currency, folio itself never converts.
package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/folio"
)

// DefaultCurrency is used when no reporting currency is configured.
const DefaultCurrency = "USD"

// mdRenderer accumulates a markdown document.
type mdRenderer struct {
	*strings.Builder
	currency string
}

func newRenderer(currency string) *mdRenderer {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &mdRenderer{Builder: &strings.Builder{}, currency: currency}
}

// Printf formats according to a format specifier and writes to the renderer's buffer.
func (r *mdRenderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

func (r *mdRenderer) money(m folio.Money) string  { return m.Format(r.currency) }
func (r *mdRenderer) signed(m folio.Money) string { return m.SignedFormat(r.currency) }

// Transaction renders a transaction to a string.
func Transaction(tx folio.Transaction, currency string) string {
	r := newRenderer(currency)
	switch tx.Kind {
	case folio.Buy:
		r.Printf("Bought %s of %s at %s", tx.Quantity, tx.Ticker, r.money(tx.Price))
	case folio.Sell:
		r.Printf("Sold %s of %s at %s", tx.Quantity, tx.Ticker, r.money(tx.Price))
	}
	if !tx.Commission.IsZero() {
		r.Printf(" (commission %s)", r.money(tx.Commission))
	}
	return r.String()
}

// PortfoliosMarkdown renders the list of portfolio names.
func PortfoliosMarkdown(names []string) string {
	r := newRenderer("")
	r.Printf("# Portfolios\n\n")
	if len(names) == 0 {
		r.Printf("No portfolio yet.\n")
		return r.String()
	}
	for _, name := range names {
		r.Printf("- %s\n", name)
	}
	return r.String()
}

// TransactionsMarkdown renders the ledger of a portfolio as a table.
func TransactionsMarkdown(name string, txs []folio.Transaction, currency string) string {
	r := newRenderer(currency)
	r.Printf("# Transactions of %s\n\n", name)
	if len(txs) == 0 {
		r.Printf("No transaction.\n")
		return r.String()
	}
	r.Printf("| Date | Kind | Ticker | Quantity | Price | Amount |\n")
	r.Printf("|:---|:---|:---|---:|---:|---:|\n")
	for _, tx := range txs {
		r.Printf("| %s | %s | %s | %s | %s | %s |\n", tx.Date, tx.Kind, tx.Ticker, tx.Quantity, r.money(tx.Price), r.money(tx.Amount()))
	}
	return r.String()
}

// HoldingMarkdown renders the valuation of a portfolio on a day.
func HoldingMarkdown(h *folio.Holding, currency string) string {
	r := newRenderer(currency)
	r.Printf("# Holding of %s on %s\n\n", h.Portfolio, h.Date)
	r.Printf("Total Market Value: %s\n\n", r.money(h.MarketValue))
	r.Printf("Cost Basis: %s\n\n", r.money(h.CostBasis))
	r.Printf("Gain: %s\n\n", r.signed(h.Gain()))

	if len(h.Positions) == 0 {
		r.Printf("No position.\n")
		return r.String()
	}
	r.Printf("| Ticker | Quantity | Price | Price Date | Market Value |\n")
	r.Printf("|:---|---:|---:|:---|---:|\n")
	for _, p := range h.Positions {
		r.Printf("| %s | %s | %s | %s | %s |\n", p.Ticker, p.Quantity, r.money(p.Price), p.PriceDate, r.money(p.MarketValue))
	}
	return r.String()
}

// ExecutionMarkdown renders the outcome of a DCA strategy.
func ExecutionMarkdown(exec *folio.Execution, currency string) string {
	r := newRenderer(currency)
	s := exec.Strategy
	r.Printf("# DCA on %s\n\n", s.Portfolio)
	end := "today"
	if !s.End.IsZero() {
		end = s.End.String()
	}
	r.Printf("%s every %d days from %s to %s: %s.\n\n", r.money(s.Amount), s.Frequency, s.Start, end, exec.State)
	r.Printf("Events: %d, Invested: %s\n\n", len(exec.Events), r.money(exec.Invested))

	if len(exec.Transactions) > 0 {
		r.Printf("## Transactions\n\n")
		for _, tx := range exec.Transactions {
			r.Printf("- %s: %s\n", tx.Date, Transaction(tx, r.currency))
		}
		r.Printf("\n")
	}
	if len(exec.Skipped) > 0 {
		r.Printf("## Skipped\n\n")
		r.Printf("| Date | Ticker | Reason |\n")
		r.Printf("|:---|:---|:---|\n")
		for _, sk := range exec.Skipped {
			r.Printf("| %s | %s | %s |\n", sk.Date, sk.Ticker, sk.Reason)
		}
	}
	return r.String()
}
