package folio

import (
	"testing"

	"github.com/etnz/folio/date"
	"github.com/stretchr/testify/assert"
)

// d is a shortcut for date.MustParse in tests.
func d(s string) date.Date { return date.MustParse(s) }

// addWeekdays records closes on consecutive weekdays starting at from (moved
// to the next weekday if needed) and returns the trading days used.
func addWeekdays(m *Market, ticker string, from date.Date, closes ...float64) []date.Date {
	days := make([]date.Date, 0, len(closes))
	day := from
	for _, c := range closes {
		for day.IsWeekend() {
			day = day.Add(1)
		}
		m.Add(ticker, day, M(c))
		days = append(days, day)
		day = day.Add(1)
	}
	return days
}

// ramp returns n values starting at from, incremented by step.
func ramp(from, step float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = from + float64(i)*step
	}
	return values
}

// flat returns n times the same value.
func flat(v float64, n int) []float64 { return ramp(v, 0, n) }

func assertQuantity(t *testing.T, want float64, got Quantity, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(Q(want)), append([]any{"quantity %s want %v", got, want}, msgAndArgs...)...)
}

func assertMoney(t *testing.T, want float64, got Money, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(M(want)), append([]any{"money %s want %v", got, want}, msgAndArgs...)...)
}
