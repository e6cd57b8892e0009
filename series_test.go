package folio

import (
	"context"
	"testing"

	"github.com/etnz/folio/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// daily hides the RangeSource implementation of a source, so that series are
// fetched a day at a time.
type daily struct {
	PriceSource
	calls int
}

func (s *daily) CloseOnOrBefore(ctx context.Context, ticker string, on date.Date) (date.Date, Money, error) {
	s.calls++
	return s.PriceSource.CloseOnOrBefore(ctx, ticker, on)
}

func (s *daily) CloseOnOrAfter(ctx context.Context, ticker string, on date.Date) (date.Date, Money, error) {
	s.calls++
	return s.PriceSource.CloseOnOrAfter(ctx, ticker, on)
}

// ranged counts the range queries made to a Market.
type ranged struct {
	*Market
	ranges int
}

func (s *ranged) Closes(ctx context.Context, ticker string, from, to date.Date) (PriceSeries, error) {
	s.ranges++
	return s.Market.Closes(ctx, ticker, from, to)
}

// haltedMarket has a twelve days trading halt in the middle of its closes.
func haltedMarket() *Market {
	m := NewMarket()
	for i, day := range []string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-20", "2025-01-21"} {
		m.Add("A", d(day), M(10+i))
	}
	return m
}

func TestMovingAverage_AcrossHalt(t *testing.T) {
	for _, src := range []PriceSource{haltedMarket(), &daily{PriceSource: haltedMarket()}} {
		avg, err := NewAnalytics(src, 0).MovingAverage(context.Background(), "A", 5, d("2025-01-21"))
		require.NoError(t, err)
		assert.InDelta(t, 12.0, avg.Value, 1e-9)
		assert.Equal(t, d("2025-01-06"), avg.From)
		assert.Equal(t, d("2025-01-21"), avg.To)
	}
}

func TestGainOrLose_AcrossHalt(t *testing.T) {
	change, err := NewAnalytics(haltedMarket(), 0).GainOrLose(context.Background(), "A", d("2025-01-20"))
	require.NoError(t, err)
	assert.Equal(t, d("2025-01-08"), change.From)
	assertMoney(t, 1, change.Delta)

	// the day itself still needs a close within the look-back window.
	_, err = NewAnalytics(haltedMarket(), 0).GainOrLose(context.Background(), "A", d("2025-01-17"))
	var unavailable *PriceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestClosesBefore_HistoryStart(t *testing.T) {
	m := NewMarket()
	m.Add("A", d("2023-01-02"), M(1))
	m.Add("A", d("2024-06-03"), M(2)) // more than MaxHistoryGap days later
	m.Add("A", d("2024-06-04"), M(3))

	for _, src := range []PriceSource{m, &daily{PriceSource: m}} {
		got, err := closesBefore(context.Background(), src, "A", d("2024-06-04"), 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, d("2024-06-03"), got[0].Date)
	}
}

func TestFetchSeries(t *testing.T) {
	m := NewMarket()
	days := addWeekdays(m, "A", d("2025-01-01"), ramp(1, 1, 60)...)
	ctx := context.Background()

	src := &ranged{Market: m}
	got, err := FetchSeries(ctx, src, "A", days[40], days[59], 30)
	require.NoError(t, err)
	require.Len(t, got, 50)
	assert.Equal(t, days[10], got[0].Date)
	assert.Equal(t, days[59], got[49].Date)
	assert.Equal(t, 2, src.ranges, "one period before, one in range")

	slow := &daily{PriceSource: m}
	want, err := FetchSeries(ctx, slow, "A", days[40], days[59], 30)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Greater(t, slow.calls, 40)
}
