package folio

import (
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/etnz/folio/date"
	"github.com/patrickmn/go-cache"
)

// Composition maps tickers to the net quantity held.
type Composition map[string]Quantity

// Tickers returns the tickers of the composition in alphabetical order.
func (c Composition) Tickers() []string {
	return slices.Sorted(maps.Keys(c))
}

// Ledger is the append-only record of the transactions of one portfolio.
//
// In a Ledger transactions are always in chronological order, transactions on
// the same day keep their append order. A Ledger is safe for concurrent use:
// appends are serialized, reads run in parallel.
type Ledger struct {
	name string

	mu           sync.RWMutex
	transactions []Transaction
	holdings     *cache.Cache // date.String() -> Composition, flushed on every append
}

// NewLedger creates an empty ledger.
func NewLedger(name string) *Ledger {
	return &Ledger{
		name:         name,
		transactions: make([]Transaction, 0),
		holdings:     cache.New(cache.NoExpiration, 0),
	}
}

// Name returns the name of the portfolio this ledger belongs to.
func (l *Ledger) Name() string { return l.name }

// Len returns the number of transactions in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.transactions)
}

// Transactions returns a copy of the transactions in ledger order.
func (l *Ledger) Transactions() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.transactions)
}

// Inception returns the date of the first transaction, and false if the ledger is empty.
func (l *Ledger) Inception() (date.Date, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.transactions) == 0 {
		return date.Date{}, false
	}
	return l.transactions[0].Date, true
}

// Append validates tx and inserts it in chronological order.
//
// A sell is rejected with an InsufficientHoldingsError if the position in its
// security would become negative on its date or at any later date.
func (l *Ledger) Append(tx Transaction) error {
	return l.AppendAll(tx)
}

// AppendAll appends all the transactions or none of them.
func (l *Ledger) AppendAll(txs ...Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(l.transactions)
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
		next = insert(next, tx)
		if tx.Kind == Sell {
			if err := checkPosition(next, tx.Ticker, tx.Date); err != nil {
				return err
			}
		}
	}
	l.transactions = next
	l.holdings.Flush()
	return nil
}

// insert adds tx after every transaction dated on or before tx.Date.
func insert(txs []Transaction, tx Transaction) []Transaction {
	i := sort.Search(len(txs), func(i int) bool { return txs[i].Date.After(tx.Date) })
	return slices.Insert(txs, i, tx)
}

// checkPosition replays the position of ticker and fails on the first
// transaction dated on or after 'from' that leaves it negative.
func checkPosition(txs []Transaction, ticker string, from date.Date) error {
	var position Quantity
	for _, tx := range txs {
		if tx.Ticker != ticker {
			continue
		}
		held := position
		position = position.Add(tx.signed())
		if position.IsNegative() && !tx.Date.Before(from) {
			return &InsufficientHoldingsError{Ticker: ticker, On: tx.Date, Held: held, Requested: tx.Quantity}
		}
	}
	return nil
}

// HoldingsAsOf returns the net quantity of every security held on a given day.
// Securities with a zero position are omitted.
func (l *Ledger) HoldingsAsOf(on date.Date) Composition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := on.String()
	if cached, ok := l.holdings.Get(key); ok {
		return maps.Clone(cached.(Composition))
	}

	holdings := make(Composition)
	for _, tx := range l.transactions {
		if tx.Date.After(on) {
			// The ledger is sorted by date, so it's safe to break.
			break
		}
		holdings[tx.Ticker] = holdings[tx.Ticker].Add(tx.signed())
	}
	maps.DeleteFunc(holdings, func(_ string, q Quantity) bool { return q.IsZero() })

	l.holdings.Set(key, holdings, cache.NoExpiration)
	return maps.Clone(holdings)
}

// Position returns the quantity of ticker held on a given day.
func (l *Ledger) Position(ticker string, on date.Date) Quantity {
	return l.HoldingsAsOf(on)[ticker]
}

// CostBasisAsOf returns the capital deployed up to a given day: the cost of
// every buy (commission included) dated on or before it.
//
// Sells do not reduce the cost basis.
func (l *Ledger) CostBasisAsOf(on date.Date) Money {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var basis Money
	for _, tx := range l.transactions {
		if tx.Date.After(on) {
			break
		}
		if tx.Kind == Buy {
			basis = basis.Add(tx.Amount()).Add(tx.Commission)
		}
	}
	return basis
}
