// Package store persists folio portfolios in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS transactions (
	portfolio  TEXT    NOT NULL REFERENCES portfolios(name) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	ticker     TEXT    NOT NULL,
	kind       TEXT    NOT NULL,
	quantity   TEXT    NOT NULL,
	price      TEXT    NOT NULL,
	date       TEXT    NOT NULL,
	commission TEXT    NOT NULL DEFAULT '0',
	PRIMARY KEY (portfolio, seq)
);
`

// Store wraps the database connection
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the database at path. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers, and keeps an in-memory database alive.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the location of the database.
func (s *Store) Path() string { return s.path }

// Save replaces the content of the database with every portfolio of reg.
func (s *Store) Save(ctx context.Context, reg *folio.Registry) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM portfolios`); err != nil {
		return fmt.Errorf("failed to clear portfolios: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO transactions (portfolio, seq, ticker, kind, quantity, price, date, commission) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, name := range reg.Names() {
		l, err := reg.Get(name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO portfolios (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to save portfolio %q: %w", name, err)
		}
		for seq, t := range l.Transactions() {
			_, err := insert.ExecContext(ctx, name, seq, t.Ticker, t.Kind.String(), t.Quantity.String(), t.Price.String(), t.Date.String(), t.Commission.String())
			if err != nil {
				return fmt.Errorf("failed to save transaction %d of %q: %w", seq, name, err)
			}
		}
	}
	return tx.Commit()
}

// Load rebuilds the registry saved in the database.
//
// Transactions are replayed through folio.Ledger validation, so a corrupted
// database fails to load rather than producing negative holdings.
func (s *Store) Load(ctx context.Context) (*folio.Registry, error) {
	reg := folio.NewRegistry()

	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM portfolios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, name := range names {
		l, err := reg.Create(name)
		if err != nil {
			return nil, err
		}
		txs, err := s.transactions(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := l.AppendAll(txs...); err != nil {
			return nil, fmt.Errorf("invalid ledger %q in database: %w", name, err)
		}
	}
	return reg, nil
}

func (s *Store) transactions(ctx context.Context, portfolio string) ([]folio.Transaction, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT ticker, kind, quantity, price, date, commission FROM transactions WHERE portfolio = ? ORDER BY seq`, portfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions of %q: %w", portfolio, err)
	}
	defer rows.Close()

	var txs []folio.Transaction
	for rows.Next() {
		var ticker, kind, quantity, price, day, commission string
		if err := rows.Scan(&ticker, &kind, &quantity, &price, &day, &commission); err != nil {
			return nil, err
		}
		t, err := decode(ticker, kind, quantity, price, day, commission)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction in %q: %w", portfolio, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func decode(ticker, kind, quantity, price, day, commission string) (t folio.Transaction, err error) {
	t.Ticker = ticker
	if t.Kind, err = folio.ParseKind(kind); err != nil {
		return t, err
	}
	if t.Quantity, err = folio.ParseQuantity(quantity); err != nil {
		return t, err
	}
	if t.Price, err = folio.ParseMoney(price); err != nil {
		return t, err
	}
	if t.Date, err = date.Parse(day); err != nil {
		return t, err
	}
	if t.Commission, err = folio.ParseMoney(commission); err != nil {
		return t, err
	}
	return t, nil
}
