package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *folio.Registry {
	t.Helper()
	reg := folio.NewRegistry()
	main, err := reg.Create("main")
	require.NoError(t, err)
	buy := folio.NewBuy(date.MustParse("2025-01-10"), "AAPL", folio.Q(10.5), folio.M(150.25))
	buy.Commission = folio.M(1)
	require.NoError(t, main.AppendAll(
		buy,
		folio.NewBuy(date.MustParse("2025-01-10"), "GOOG", folio.Q(2), folio.M(2800)),
		folio.NewSell(date.MustParse("2025-02-01"), "AAPL", folio.Q(4), folio.M(160)),
	))
	_, err = reg.Create("empty")
	require.NoError(t, err)
	return reg
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "data", "folio.db"))
	require.NoError(t, err)

	reg := newRegistry(t)
	require.NoError(t, s.Save(ctx, reg))
	require.NoError(t, s.Close())

	s, err = Open(s.Path())
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "main"}, loaded.Names())

	want, err := reg.Get("main")
	require.NoError(t, err)
	got, err := loaded.Get("main")
	require.NoError(t, err)

	wantTxs, gotTxs := want.Transactions(), got.Transactions()
	require.Len(t, gotTxs, len(wantTxs))
	for i := range wantTxs {
		assert.Equal(t, wantTxs[i].String(), gotTxs[i].String())
		assert.True(t, wantTxs[i].Commission.Equal(gotTxs[i].Commission))
	}
	on := date.MustParse("2025-03-01")
	assert.True(t, want.CostBasisAsOf(on).Equal(got.CostBasisAsOf(on)))
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, newRegistry(t)))

	reg := folio.NewRegistry()
	_, err = reg.Create("other")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, reg))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, loaded.Names())
}

func TestStore_LoadValidates(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.conn.Exec(`INSERT INTO portfolios (name) VALUES ('bad')`)
	require.NoError(t, err)
	_, err = s.conn.Exec(`INSERT INTO transactions (portfolio, seq, ticker, kind, quantity, price, date) VALUES ('bad', 0, 'AAPL', 'sell', '1', '10', '2025-01-01')`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	var insufficient *folio.InsufficientHoldingsError
	assert.ErrorAs(t, err, &insufficient)
}
