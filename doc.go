// Package folio manages named investment portfolios as append-only
// transaction ledgers and answers point-in-time questions about them.
//
// The core functionalities include:
//   - Ledger Management: every portfolio is an immutable, chronological
//     record of buys and sells (Ledger), owned by a Registry. Holdings and
//     cost basis on any day are replayed from it.
//   - Valuation: the market value of a portfolio on any day, priced by a
//     PriceSource with a trading-day fallback (Valuation).
//   - Dollar-Cost Averaging: a Strategy is expanded by a Scheduler into dated
//     buy transactions, committed atomically.
//   - Stock Analytics: gain/loss, moving averages and crossover signals on the
//     price history of a single security (Analytics).
//   - Data Persistence: CSV import/export of ledgers and JSONL market data.
//
// Controllers (the `pf` command line tool, the HTTP api) use the Service,
// whose operations return either a value or a typed error.
package folio
