package folio

import (
	"context"
	"testing"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(m *Market, policy MissingPricePolicy, today string) *Scheduler {
	s := NewScheduler(m, policy, zerolog.Nop())
	s.Today = func() date.Date { return d(today) }
	return s
}

func TestScheduler_SingleEvent(t *testing.T) {
	m := NewMarket()
	m.Add("A", d("2025-03-03"), M(150))
	m.Add("B", d("2025-03-03"), M(80))
	l := NewLedger("dca")

	strategy := Strategy{
		Portfolio: "dca",
		Start:     d("2025-03-03"),
		End:       d("2025-03-03"),
		Frequency: 1,
		Amount:    M(1000),
		Weights:   map[string]float64{"A": 60, "B": 40},
	}
	exec, err := newTestScheduler(m, SkipMissingPrice, "2025-06-01").Run(context.Background(), l, strategy)
	require.NoError(t, err)
	assert.Equal(t, Committed, exec.State)
	assert.Equal(t, []date.Date{d("2025-03-03")}, exec.Events)
	assert.Empty(t, exec.Skipped)

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "A", txs[0].Ticker)
	assert.Equal(t, Buy, txs[0].Kind)
	assertQuantity(t, 4, txs[0].Quantity)
	assertMoney(t, 150, txs[0].Price)
	assert.Equal(t, "B", txs[1].Ticker)
	assertQuantity(t, 5, txs[1].Quantity)
	assert.Equal(t, d("2025-03-03"), txs[1].Date)
	assertMoney(t, 1000, exec.Invested)
}

func TestScheduler_FractionalShares(t *testing.T) {
	m := NewMarket()
	m.Add("A", d("2025-03-03"), M(300))
	l := NewLedger("dca")

	strategy := Strategy{Start: d("2025-03-03"), End: d("2025-03-03"), Frequency: 1, Amount: M(100), Weights: map[string]float64{"A": 100}}
	_, err := newTestScheduler(m, SkipMissingPrice, "2025-06-01").Run(context.Background(), l, strategy)
	require.NoError(t, err)
	q := l.Position("A", d("2025-03-03"))
	assert.True(t, q.IsPositive())
	assert.True(t, q.LessThan(Q(1)))
}

func TestScheduler_Events(t *testing.T) {
	m := NewMarket()
	addWeekdays(m, "A", d("2025-01-01"), flat(10, 60)...)
	l := NewLedger("dca")

	strategy := Strategy{
		Start:     d("2025-01-01"),
		End:       d("2025-01-31"),
		Frequency: 7,
		Amount:    M(100),
		Weights:   map[string]float64{"A": 100},
	}
	exec, err := newTestScheduler(m, FailOnMissingPrice, "2025-12-31").Run(context.Background(), l, strategy)
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d("2025-01-01"), d("2025-01-08"), d("2025-01-15"), d("2025-01-22"), d("2025-01-29")}, exec.Events)
	assert.Len(t, exec.Transactions, 5)
	assertQuantity(t, 50, l.Position("A", d("2025-02-01")))

	// An open-ended strategy runs up to today.
	strategy.End = date.Date{}
	exec, err = newTestScheduler(m, FailOnMissingPrice, "2025-01-10").Run(context.Background(), NewLedger("open"), strategy)
	require.NoError(t, err)
	assert.Len(t, exec.Events, 2)

	// A strategy starting in the future has nothing to do yet.
	exec, err = newTestScheduler(m, FailOnMissingPrice, "2024-12-01").Run(context.Background(), NewLedger("future"), strategy)
	require.NoError(t, err)
	assert.Equal(t, Committed, exec.State)
	assert.Empty(t, exec.Events)
	assert.Empty(t, exec.Transactions)
}

func TestScheduler_WeekendEventUsesPreviousClose(t *testing.T) {
	m := NewMarket()
	m.Add("A", d("2025-01-03"), M(10)) // Friday
	l := NewLedger("dca")

	strategy := Strategy{Start: d("2025-01-04"), End: d("2025-01-04"), Frequency: 1, Amount: M(100), Weights: map[string]float64{"A": 100}}
	_, err := newTestScheduler(m, FailOnMissingPrice, "2025-06-01").Run(context.Background(), l, strategy)
	require.NoError(t, err)
	txs := l.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, d("2025-01-04"), txs[0].Date)
	assertMoney(t, 10, txs[0].Price)
}

func TestScheduler_NoEvents(t *testing.T) {
	m := NewMarket()
	addWeekdays(m, "A", d("2025-03-03"), flat(10, 10)...)

	testCases := []struct {
		name     string
		strategy Strategy
	}{
		{
			name:     "end before start",
			strategy: Strategy{Start: d("2025-03-10"), End: d("2025-03-03"), Frequency: 7, Amount: M(100), Weights: map[string]float64{"A": 100}},
		},
		{
			name:     "start after today",
			strategy: Strategy{Start: d("2025-07-01"), Frequency: 7, Amount: M(100), Weights: map[string]float64{"A": 100}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger("dca")
			exec, err := newTestScheduler(m, FailOnMissingPrice, "2025-06-01").Run(context.Background(), l, tc.strategy)
			require.NoError(t, err)
			assert.Equal(t, Committed, exec.State)
			assert.Empty(t, exec.Events)
			assert.Empty(t, exec.Transactions)
			assert.True(t, exec.Invested.IsZero())
			assert.Zero(t, l.Len())
		})
	}
}

func TestScheduler_InvalidStrategy(t *testing.T) {
	valid := Strategy{
		Portfolio: "dca",
		Start:     d("2025-01-01"),
		End:       d("2025-01-31"),
		Frequency: 7,
		Amount:    M(100),
		Weights:   map[string]float64{"A": 60, "B": 40},
	}

	testCases := []struct {
		name   string
		modify func(s *Strategy)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "weights sum to 90",
			modify: func(s *Strategy) { s.Weights = map[string]float64{"A": 50, "B": 40} },
			check: func(t *testing.T, err error) {
				var weight *InvalidWeightError
				require.ErrorAs(t, err, &weight)
				assert.Empty(t, weight.Ticker)
				assert.InDelta(t, 90, weight.Weight, 1e-9)
			},
		},
		{
			name:   "weight out of range",
			modify: func(s *Strategy) { s.Weights = map[string]float64{"A": 120, "B": -20} },
			check: func(t *testing.T, err error) {
				var weight *InvalidWeightError
				require.ErrorAs(t, err, &weight)
				assert.NotEmpty(t, weight.Ticker)
			},
		},
		{
			name:   "no weights",
			modify: func(s *Strategy) { s.Weights = nil },
			check: func(t *testing.T, err error) {
				var weight *InvalidWeightError
				assert.ErrorAs(t, err, &weight)
			},
		},
		{
			name:   "zero frequency",
			modify: func(s *Strategy) { s.Frequency = 0 },
			check: func(t *testing.T, err error) {
				var amount *InvalidAmountError
				require.ErrorAs(t, err, &amount)
				assert.Equal(t, "frequency", amount.Field)
			},
		},
		{
			name:   "zero amount",
			modify: func(s *Strategy) { s.Amount = M(0) },
			check: func(t *testing.T, err error) {
				var amount *InvalidAmountError
				require.ErrorAs(t, err, &amount)
				assert.Equal(t, "amount", amount.Field)
			},
		},
		{
			name:   "no start",
			modify: func(s *Strategy) { s.Start = date.Date{} },
			check:  func(t *testing.T, err error) { assert.Error(t, err) },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.modify(&s)
			l := NewLedger("dca")
			exec, err := newTestScheduler(NewMarket(), SkipMissingPrice, "2025-06-01").Run(context.Background(), l, s)

			var invalid *InvalidStrategyError
			require.ErrorAs(t, err, &invalid)
			tc.check(t, err)
			assert.Equal(t, Failed, exec.State)
			assert.Zero(t, l.Len())
		})
	}

	assert.NoError(t, valid.Validate())
}

func TestScheduler_MissingPrice(t *testing.T) {
	newMarket := func() *Market {
		m := NewMarket()
		addWeekdays(m, "A", d("2025-01-01"), flat(10, 60)...)
		// B is listed from February on.
		addWeekdays(m, "B", d("2025-02-03"), flat(20, 30)...)
		return m
	}
	strategy := Strategy{
		Start:     d("2025-01-01"),
		End:       d("2025-02-26"),
		Frequency: 14,
		Amount:    M(100),
		Weights:   map[string]float64{"A": 50, "B": 50},
	}
	// events: 01-01, 01-15, 01-29, 02-12, 02-26

	t.Run("skip", func(t *testing.T) {
		l := NewLedger("dca")
		exec, err := newTestScheduler(newMarket(), SkipMissingPrice, "2025-06-01").Run(context.Background(), l, strategy)
		require.NoError(t, err)
		assert.Equal(t, Committed, exec.State)
		require.Len(t, exec.Skipped, 3)
		for _, s := range exec.Skipped {
			assert.Equal(t, "B", s.Ticker)
			assert.NotEmpty(t, s.Reason)
		}
		assert.Equal(t, 7, l.Len())
		assertQuantity(t, 25, l.Position("A", d("2025-03-01")))
		assertQuantity(t, 5, l.Position("B", d("2025-03-01")))
		assertMoney(t, 350, exec.Invested)
	})

	t.Run("fail", func(t *testing.T) {
		l := NewLedger("dca")
		exec, err := newTestScheduler(newMarket(), FailOnMissingPrice, "2025-06-01").Run(context.Background(), l, strategy)
		var unavailable *PriceUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, "B", unavailable.Ticker)
		assert.Equal(t, Failed, exec.State)
		assert.Zero(t, l.Len(), "nothing is committed")
	})

	t.Run("unknown ticker", func(t *testing.T) {
		s := strategy
		s.Weights = map[string]float64{"A": 50, "C": 50}
		l := NewLedger("dca")
		_, err := newTestScheduler(newMarket(), SkipMissingPrice, "2025-06-01").Run(context.Background(), l, s)
		var unknown *UnknownTickerError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "C", unknown.Ticker)
		assert.Zero(t, l.Len())
	})
}

func TestParseMissingPricePolicy(t *testing.T) {
	p, err := ParseMissingPricePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, FailOnMissingPrice, p)
	p, err = ParseMissingPricePolicy(SkipMissingPrice.String())
	require.NoError(t, err)
	assert.Equal(t, SkipMissingPrice, p)
	_, err = ParseMissingPricePolicy("retry")
	assert.Error(t, err)
}
