package folio

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/etnz/folio/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Position(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.AppendAll(
		NewBuy(d("2025-01-10"), "AAPL", Q(100), M(150.0)),
		NewBuy(d("2025-01-15"), "GOOG", Q(50), M(2800.0)),
		NewSell(d("2025-02-01"), "AAPL", Q(25), M(160.0)),
		NewBuy(d("2025-02-10"), "AAPL", Q(10), M(155.0)),
		NewSell(d("2025-03-01"), "GOOG", Q(50), M(2900.0)), // Sell all GOOG
	))

	testCases := []struct {
		name         string
		ticker       string
		date         string
		wantPosition float64
	}{
		{name: "Before any transactions", ticker: "AAPL", date: "2025-01-09", wantPosition: 0},
		{name: "On the day of the first buy", ticker: "AAPL", date: "2025-01-10", wantPosition: 100},
		{name: "After first buy, before sell", ticker: "AAPL", date: "2025-01-31", wantPosition: 100},
		{name: "On the day of the sell", ticker: "AAPL", date: "2025-02-01", wantPosition: 75},
		{name: "On the day of the second buy", ticker: "AAPL", date: "2025-02-10", wantPosition: 85},
		{name: "Final position for AAPL", ticker: "AAPL", date: "2025-04-01", wantPosition: 85},
		{name: "GOOG position after buy", ticker: "GOOG", date: "2025-01-20", wantPosition: 50},
		{name: "GOOG position after selling all", ticker: "GOOG", date: "2025-03-01", wantPosition: 0},
		{name: "Ticker never traded", ticker: "MSFT", date: "2025-04-01", wantPosition: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assertQuantity(t, tc.wantPosition, ledger.Position(tc.ticker, d(tc.date)))
		})
	}

	// Closed positions are not part of the composition.
	assert.Equal(t, []string{"AAPL"}, ledger.HoldingsAsOf(d("2025-03-01")).Tickers())
}

func TestLedger_Order(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-10"), "B", Q(1), M(10))))
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-05"), "A", Q(1), M(10))))
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-10"), "C", Q(1), M(10))))
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-07"), "D", Q(1), M(10))))

	var got []string
	for _, tx := range ledger.Transactions() {
		got = append(got, tx.Ticker)
	}
	// chronological, same-day transactions keep their append order.
	assert.Equal(t, []string{"A", "D", "B", "C"}, got)

	inception, ok := ledger.Inception()
	assert.True(t, ok)
	assert.Equal(t, d("2025-01-05"), inception)

	_, ok = NewLedger("empty").Inception()
	assert.False(t, ok)
}

func TestLedger_Oversell(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-10"), "AAPL", Q(10), M(150))))
	before := ledger.Transactions()

	err := ledger.Append(NewSell(d("2025-01-20"), "AAPL", Q(11), M(160)))

	var insufficient *InsufficientHoldingsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "AAPL", insufficient.Ticker)
	assert.Equal(t, d("2025-01-20"), insufficient.On)
	assertQuantity(t, 10, insufficient.Held)
	assertQuantity(t, 11, insufficient.Requested)

	assert.Equal(t, before, ledger.Transactions(), "ledger must be unchanged")
	assertQuantity(t, 10, ledger.Position("AAPL", d("2025-02-01")))
}

func TestLedger_SellBreaksLaterPosition(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.AppendAll(
		NewBuy(d("2025-01-01"), "AAPL", Q(10), M(100)),
		NewSell(d("2025-02-01"), "AAPL", Q(10), M(110)),
	))

	// Enough shares on Jan 15, but the Feb 1 sell would then be uncovered.
	err := ledger.Append(NewSell(d("2025-01-15"), "AAPL", Q(5), M(105)))

	var insufficient *InsufficientHoldingsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, d("2025-02-01"), insufficient.On)
	assert.Equal(t, 2, ledger.Len())
}

func TestLedger_SameDay(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-10"), "AAPL", Q(10), M(150))))
	require.NoError(t, ledger.Append(NewSell(d("2025-01-10"), "AAPL", Q(10), M(151))))
	assertQuantity(t, 0, ledger.Position("AAPL", d("2025-01-10")))

	// a sell recorded before the buy of the same day is not covered.
	other := NewLedger("other")
	err := other.Append(NewSell(d("2025-01-10"), "AAPL", Q(1), M(151)))
	var insufficient *InsufficientHoldingsError
	assert.ErrorAs(t, err, &insufficient)
}

func TestLedger_AppendAllIsAtomic(t *testing.T) {
	ledger := NewLedger("test")
	err := ledger.AppendAll(
		NewBuy(d("2025-01-10"), "AAPL", Q(10), M(150)),
		NewBuy(d("2025-01-11"), "GOOG", Q(10), M(150)),
		NewSell(d("2025-01-12"), "GOOG", Q(20), M(150)),
	)
	require.Error(t, err)
	assert.Zero(t, ledger.Len())
	assert.Empty(t, ledger.HoldingsAsOf(d("2025-12-31")))
}

func TestLedger_Validation(t *testing.T) {
	testCases := []struct {
		name  string
		tx    Transaction
		field string // of the InvalidAmountError, empty for other errors
	}{
		{name: "zero quantity", tx: NewBuy(d("2025-01-10"), "AAPL", Q(0), M(150)), field: "quantity"},
		{name: "negative quantity", tx: NewBuy(d("2025-01-10"), "AAPL", Q(-1), M(150)), field: "quantity"},
		{name: "zero price", tx: NewBuy(d("2025-01-10"), "AAPL", Q(1), M(0)), field: "price"},
		{name: "negative price", tx: NewSell(d("2025-01-10"), "AAPL", Q(1), M(-2)), field: "price"},
		{name: "blank ticker", tx: NewBuy(d("2025-01-10"), " ", Q(1), M(150))},
		{name: "no date", tx: NewBuy(date.Date{}, "AAPL", Q(1), M(150))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := NewLedger("test")
			err := ledger.Append(tc.tx)
			require.Error(t, err)
			if tc.field != "" {
				var invalid *InvalidAmountError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tc.field, invalid.Field)
			}
			assert.Zero(t, ledger.Len())
		})
	}

	t.Run("negative commission", func(t *testing.T) {
		tx := NewBuy(d("2025-01-10"), "AAPL", Q(1), M(150))
		tx.Commission = M(-1)
		var invalid *InvalidAmountError
		assert.ErrorAs(t, NewLedger("test").Append(tx), &invalid)
	})
}

func TestLedger_CostBasis(t *testing.T) {
	ledger := NewLedger("test")
	buy := NewBuy(d("2025-01-10"), "AAPL", Q(10), M(100))
	buy.Commission = M(5)
	require.NoError(t, ledger.AppendAll(
		buy,
		NewBuy(d("2025-01-20"), "GOOG", Q(2), M(50)),
		NewSell(d("2025-02-01"), "AAPL", Q(10), M(200)),
	))

	assertMoney(t, 0, ledger.CostBasisAsOf(d("2025-01-09")))
	assertMoney(t, 1005, ledger.CostBasisAsOf(d("2025-01-10")))
	assertMoney(t, 1105, ledger.CostBasisAsOf(d("2025-01-31")))
	// Sells do not reduce the capital deployed.
	assertMoney(t, 1105, ledger.CostBasisAsOf(d("2025-02-01")))
}

func TestLedger_HoldingsCache(t *testing.T) {
	ledger := NewLedger("test")
	require.NoError(t, ledger.Append(NewBuy(d("2025-01-10"), "AAPL", Q(10), M(100))))

	on := d("2025-03-01")
	holdings := ledger.HoldingsAsOf(on)
	holdings["AAPL"] = Q(1000) // callers get a copy
	assertQuantity(t, 10, ledger.Position("AAPL", on))

	// an append invalidates cached holdings.
	require.NoError(t, ledger.Append(NewBuy(d("2025-02-01"), "AAPL", Q(5), M(100))))
	assertQuantity(t, 15, ledger.Position("AAPL", on))
}

// TestLedger_NeverNegative appends random buys and sells, and checks that
// positions are never negative, whatever was accepted or rejected.
func TestLedger_NeverNegative(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	tickers := []string{"A", "B", "C"}
	start := d("2025-01-01")

	ledger := NewLedger("random")
	rejected := 0
	for range 500 {
		day := start.Add(r.IntN(365))
		ticker := tickers[r.IntN(len(tickers))]
		q := Q(1 + r.IntN(20))
		tx := NewBuy(day, ticker, q, M(10))
		if r.IntN(2) == 0 {
			tx.Kind = Sell
		}
		err := ledger.Append(tx)
		var insufficient *InsufficientHoldingsError
		if err != nil {
			require.ErrorAs(t, err, &insufficient)
			rejected++
		}
	}
	assert.Positive(t, rejected)

	for day := range date.Every(start, start.Add(365), 1) {
		for ticker, q := range ledger.HoldingsAsOf(day) {
			assert.False(t, q.IsNegative(), "%s on %s: %s", ticker, day, q)
		}
	}
}

func TestLedger_Concurrent(t *testing.T) {
	ledger := NewLedger("test")
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ledger.Append(NewBuy(d("2025-01-01").Add(i), "AAPL", Q(1), M(10)))
			_ = ledger.HoldingsAsOf(d("2025-06-01"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 50, ledger.Len())
	assertQuantity(t, 50, ledger.Position("AAPL", d("2025-06-01")))
}
