package cmd

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the global flags to a fresh database and a market file with
// 60 trading days from 2025-01-01: AAPL closes at 100, 101, ... and GOOG at 50.
// It returns the buffer receiving the command outputs.
func setupCLI(t *testing.T) *bytes.Buffer {
	t.Helper()
	for _, key := range []string{"EODHD_API_KEY", "FOLIO_MISSING_PRICE", "FOLIO_LOOKBACK_DAYS", "FOLIO_BASELINE_WINDOW", "FOLIO_CURRENCY"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	m := folio.NewMarket()
	day := date.MustParse("2025-01-01")
	for i := range 60 {
		for day.IsWeekend() {
			day = day.Add(1)
		}
		m.Add("AAPL", day, folio.M(100+i))
		m.Add("GOOG", day, folio.M(50))
		day = day.Add(1)
	}
	market := filepath.Join(dir, "market.jsonl")
	f, err := os.Create(market)
	require.NoError(t, err)
	require.NoError(t, folio.ExportMarket(f, m))
	require.NoError(t, f.Close())

	out := new(bytes.Buffer)
	*dbPath, *marketFile, *currency, *rawOutput, *Verbose = filepath.Join(dir, "folio.db"), market, "", true, false
	stdout = out
	t.Cleanup(func() {
		*dbPath, *marketFile, *currency, *rawOutput = "", "", "", false
		stdout = os.Stdout
	})
	return out
}

// run parses args for cmd and executes it.
func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestPortfolioWorkflow(t *testing.T) {
	out := setupCLI(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &createCmd{}, "main"))
	assert.Equal(t, "Portfolio \"main\" created\n", out.String())
	assert.Equal(t, subcommands.ExitFailure, run(t, &createCmd{}, "main"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &createCmd{}))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &listCmd{}))
	assert.Contains(t, out.String(), "- main")

	// Saturday: priced at Friday's close.
	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &buyCmd{}, "-p", "main", "-s", "AAPL", "-q", "10", "-d", "2025-01-04"))
	assert.Equal(t, "Bought 10 of AAPL at $102.00 on 2025-01-04\n", out.String())

	assert.Equal(t, subcommands.ExitFailure, run(t, &sellCmd{}, "-p", "main", "-s", "AAPL", "-q", "11", "-d", "2025-01-06"))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &sellCmd{}, "-p", "main", "-s", "AAPL", "-q", "4", "-d", "2025-01-08", "-price", "110", "-c", "1.5"))
	assert.Equal(t, "Sold 4 of AAPL at $110.00 (commission $1.50) on 2025-01-08\n", out.String())

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &valueCmd{}, "-p", "main", "-d", "2025-01-10"))
	assert.Equal(t, "$642.00\n", out.String())

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &basisCmd{}, "-p", "main", "-d", "2025-01-10"))
	assert.Equal(t, "$1,020.00\n", out.String())

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &txCmd{}, "-p", "main", "-tail", "1"))
	assert.Contains(t, out.String(), "| 2025-01-08 | sell | AAPL |")
	assert.NotContains(t, out.String(), "| buy |")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &holdingCmd{}, "-p", "main", "-d", "2025-01-10"))
	assert.Contains(t, out.String(), "| AAPL | 6 | $107.00 | 2025-01-10 | $642.00 |")

	assert.Equal(t, subcommands.ExitFailure, run(t, &valueCmd{}, "-p", "main", "-d", "2025-06-01"))
	assert.Equal(t, subcommands.ExitFailure, run(t, &valueCmd{}, "-p", "other"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &valueCmd{}, "-p", "main", "-d", "tomorrow"))
}

func TestTradeUsage(t *testing.T) {
	setupCLI(t)
	testCases := []struct {
		name string
		args []string
	}{
		{"missing ticker", []string{"-p", "main", "-q", "1"}},
		{"bad quantity", []string{"-p", "main", "-s", "AAPL", "-q", "ten"}},
		{"bad date", []string{"-p", "main", "-s", "AAPL", "-q", "1", "-d", "2025-13-01"}},
		{"commission without price", []string{"-p", "main", "-s", "AAPL", "-q", "1", "-c", "1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, subcommands.ExitUsageError, run(t, &buyCmd{}, tc.args...))
		})
	}
}

func TestImportExport(t *testing.T) {
	out := setupCLI(t)
	csv := "ticker,quantity,price,date,kind,commission\n" +
		"AAPL,10,100,2025-01-02,buy,2\n" +
		"GOOG,3.5,50,2025-01-03,buy,\n" +
		"AAPL,4,103,2025-01-06,sell,\n"
	file := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(file, []byte(csv), 0644))

	assert.Equal(t, subcommands.ExitFailure, run(t, &importCmd{}, "-p", "main", file))
	require.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{}, "-p", "main", "-create", file))
	assert.Equal(t, "Imported 3 transactions into \"main\"\n", out.String())

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-p", "main"))
	assert.Equal(t, csv, out.String())

	// an oversell later in the file rejects the whole file.
	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("GOOG,1,50,2025-01-07,buy\nAAPL,100,103,2025-01-07,sell\n"), 0644))
	assert.Equal(t, subcommands.ExitFailure, run(t, &importCmd{}, "-p", "main", bad))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{}, "-p", "main"))
	assert.Equal(t, csv, out.String())
}

func TestDCA(t *testing.T) {
	out := setupCLI(t)
	require.Equal(t, subcommands.ExitSuccess, run(t, &createCmd{}, "dca"))

	out.Reset()
	args := []string{"-p", "dca", "-start", "2025-01-06", "-end", "2025-01-20", "-amount", "500", "-w", "GOOG=60,AAPL=40"}
	require.Equal(t, subcommands.ExitSuccess, run(t, &dcaCmd{}, args...))
	assert.Contains(t, out.String(), "Events: 3, Invested: $1,500.00")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &basisCmd{}, "-p", "dca", "-d", "2025-01-31"))
	assert.Equal(t, "$1,500.00\n", out.String())

	assert.Equal(t, subcommands.ExitFailure, run(t, &dcaCmd{}, "-p", "dca", "-start", "2025-01-06", "-amount", "500", "-w", "GOOG=90"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &dcaCmd{}, "-p", "dca", "-start", "2025-01-06", "-amount", "500", "-w", "GOOG"))
}

func TestParseWeights(t *testing.T) {
	testCases := []struct {
		input   string
		want    map[string]float64
		wantErr bool
	}{
		{input: "AAPL=60,GOOG=40", want: map[string]float64{"AAPL": 60, "GOOG": 40}},
		{input: "AAPL=100%", want: map[string]float64{"AAPL": 100}},
		{input: " AAPL=50 , AAPL=50", want: map[string]float64{"AAPL": 100}},
		{input: "AAPL", wantErr: true},
		{input: "AAPL=half", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := parseWeights(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}

func TestAnalyticsCommands(t *testing.T) {
	out := setupCLI(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &gainCmd{}, "-s", "AAPL", "-d", "2025-01-03"))
	assert.Contains(t, out.String(), "**gain**: +$1.00")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &gainCmd{}, "-s", "GOOG", "-start", "2025-01-01", "-end", "2025-01-31"))
	assert.Contains(t, out.String(), "**flat**")
	assert.Equal(t, subcommands.ExitUsageError, run(t, &gainCmd{}, "-s", "GOOG", "-start", "2025-01-01", "-d", "2025-01-31"))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &maCmd{}, "-s", "AAPL", "-w", "5", "-d", "2025-01-07"))
	assert.Contains(t, out.String(), "$102.00, over the trading days from 2025-01-01 to 2025-01-07.")
	assert.Equal(t, subcommands.ExitFailure, run(t, &maCmd{}, "-s", "AAPL", "-w", "100", "-d", "2025-01-07"))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &crossoverCmd{}, "-s", "GOOG", "-start", "2025-02-17", "-end", "2025-03-14"))
	assert.Contains(t, out.String(), "GOOG crosses its 30 days average")

	assert.Equal(t, subcommands.ExitFailure, run(t, &xcrossoverCmd{}, "-s", "AAPL", "-start", "2025-02-17", "-end", "2025-03-14", "-short", "10", "-long", "5"))
	assert.Equal(t, subcommands.ExitFailure, run(t, &crossoverCmd{}, "-s", "MSFT", "-start", "2025-02-17", "-end", "2025-03-14"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &crossoverCmd{}, "-s", "GOOG"))
}

func TestChart(t *testing.T) {
	out := setupCLI(t)
	output := filepath.Join(t.TempDir(), "aapl.png")

	require.Equal(t, subcommands.ExitSuccess, run(t, &chartCmd{}, "-s", "AAPL", "-start", "2025-02-17", "-end", "2025-03-14", "-w", "10", "-o", output))
	assert.Contains(t, out.String(), "Chart of AAPL written to "+output)
	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("\x89PNG")))

	assert.Equal(t, subcommands.ExitUsageError, run(t, &chartCmd{}, "-s", "AAPL"))
	assert.Equal(t, subcommands.ExitFailure, run(t, &chartCmd{}, "-s", "AAPL", "-start", "2025-01-02", "-end", "2025-03-14", "-o", output))
}

func TestSettings(t *testing.T) {
	setupCLI(t)
	t.Setenv("FOLIO_CURRENCY", "EUR")

	cfg, err := settings()
	require.NoError(t, err)
	assert.Equal(t, *dbPath, cfg.DatabasePath)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "error", cfg.LogLevel)

	*currency = "gbp"
	*Verbose = true
	t.Cleanup(func() { *Verbose = false })
	cfg, err = settings()
	require.NoError(t, err)
	assert.Equal(t, "GBP", cfg.Currency)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestTopic(t *testing.T) {
	out := setupCLI(t)
	require.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}))
	assert.Contains(t, out.String(), "* dca:")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}, "dca"))
	assert.Contains(t, out.String(), "# Dollar-cost averaging")

	assert.Equal(t, subcommands.ExitFailure, run(t, &topicCmd{}, "nope"))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}, "-l"))
	assert.Contains(t, out.String(), "analytics\n")
	assert.NotContains(t, out.String(), "readme")
}
