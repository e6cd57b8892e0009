// Package cmd implements the pf command line application to manage portfolios.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/folio"
	"github.com/etnz/folio/config"
	"github.com/etnz/folio/eodhd"
	"github.com/etnz/folio/renderer"
	"github.com/etnz/folio/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range Groups {
		for _, cmd := range g.Commands {
			c.Register(cmd, g.Name)
		}
	}
}

// Group is a named set of subcommands.
type Group struct {
	Name     string
	Commands []subcommands.Command
}

// Groups lists all the pf subcommands.
var Groups = []Group{
	{"portfolios", []subcommands.Command{&createCmd{}, &listCmd{}, &importCmd{}, &exportCmd{}}},
	{"transactions", []subcommands.Command{&buyCmd{}, &sellCmd{}, &txCmd{}, &dcaCmd{}}},
	{"valuation", []subcommands.Command{&holdingCmd{}, &valueCmd{}, &basisCmd{}}},
	{"analytics", []subcommands.Command{&gainCmd{}, &maCmd{}, &crossoverCmd{}, &xcrossoverCmd{}, &chartCmd{}}},
	{"server", []subcommands.Command{&serveCmd{}}},
	{"help", []subcommands.Command{&topicCmd{}}},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	dbPath     = flag.String("db", "", "Path to the SQLite portfolio database. Defaults to $FOLIO_DB or folio.db")
	marketFile = flag.String("market", "", "Path to the market data file (JSONL format). Defaults to $FOLIO_MARKET or market.jsonl")
	currency   = flag.String("currency", "", "Reporting currency. Defaults to $FOLIO_CURRENCY or USD")
	rawOutput  = flag.Bool("raw", false, "Print reports as raw markdown instead of rendering them")
	Verbose    = flag.Bool("v", false, "Enable debug logging")
)

// stdout is where reports are printed.
var stdout io.Writer = os.Stdout

// settings loads the configuration and applies the global flags on top of it.
func settings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *marketFile != "" {
		cfg.MarketPath = *marketFile
	}
	if *currency != "" {
		cfg.Currency = strings.ToUpper(*currency)
	}
	if *Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger returns a console logger on stderr.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// app is the state shared by the subcommands of a single invocation.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
	svc   *folio.Service
}

// openApp loads the portfolios and the price source.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := settings()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return openAppWith(ctx, cfg, newLogger(cfg.LogLevel))
}

func openAppWith(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	src, err := priceSource(cfg, log)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	reg, err := db.Load(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot load portfolios from %q: %w", cfg.DatabasePath, err)
	}
	svc := folio.NewService(reg, src, folio.Options{MissingPrice: cfg.MissingPrice, BaselineWindow: cfg.BaselineWindow}, log)
	return &app{cfg: cfg, log: log, store: db, svc: svc}, nil
}

// save persists the portfolios.
func (a *app) save(ctx context.Context) error {
	if err := a.store.Save(ctx, a.svc.Registry()); err != nil {
		return fmt.Errorf("cannot save portfolios to %q: %w", a.store.Path(), err)
	}
	return nil
}

func (a *app) Close() error { return a.store.Close() }

// priceSource returns the eodhd client when an API key is configured,
// the market data file otherwise.
func priceSource(cfg *config.Config, log zerolog.Logger) (folio.PriceSource, error) {
	if cfg.EODHDAPIKey != "" {
		client := eodhd.New(cfg.EODHDAPIKey, cfg.EODHDRate, log)
		client.Lookback = cfg.Lookback
		if dir, err := os.UserCacheDir(); err == nil {
			client.HTTPClient = eodhd.NewCachingClient(filepath.Join(dir, "folio", "eodhd"), log)
		}
		return client, nil
	}
	m, err := decodeMarket(cfg.MarketPath, log)
	if err != nil {
		return nil, err
	}
	m.SetLookback(cfg.Lookback)
	return m, nil
}

// decodeMarket reads the market data file.
func decodeMarket(path string, log zerolog.Logger) (*folio.Market, error) {
	m := folio.NewMarket()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("market data file does not exist, using an empty market")
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := folio.ImportMarket(f, m); err != nil {
		return nil, fmt.Errorf("cannot read market data %q: %w", path, err)
	}
	return m, nil
}

// printMarkdown renders markdown for the terminal.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

// fail reports err to the user.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %s\n", renderer.Message(err))
	return subcommands.ExitFailure
}

// usage reports a command line error.
func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}
