package folio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// this file contains functions to handle the import/export formats.
// They should remain human readable, single file and be easy to merge into a database.

// ledgerHeader is the header row of the CSV ledger format. The commission column is optional on import.
var ledgerHeader = []string{"ticker", "quantity", "price", "date", "kind", "commission"}

// ImportLedger reads transactions in the CSV ledger format and appends them to l.
//
// Rows are replayed in file order, so a sell must come after the buys it
// disposes of. Either every row is appended or none is.
func ImportLedger(r io.Reader, l *Ledger) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var txs []Transaction
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("cannot read ledger: %w", err)
		}
		if line == 1 && strings.EqualFold(record[0], ledgerHeader[0]) {
			continue
		}
		tx, err := decodeRecord(record)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	if err := l.AppendAll(txs...); err != nil {
		return fmt.Errorf("cannot import into %q: %w", l.Name(), err)
	}
	return nil
}

func decodeRecord(record []string) (tx Transaction, err error) {
	if len(record) < 5 || len(record) > 6 {
		return tx, fmt.Errorf("want 5 or 6 fields got %d", len(record))
	}
	tx.Ticker = record[0]
	if tx.Quantity, err = ParseQuantity(record[1]); err != nil {
		return tx, fmt.Errorf("invalid quantity %q: %w", record[1], err)
	}
	if tx.Price, err = ParseMoney(record[2]); err != nil {
		return tx, fmt.Errorf("invalid price %q: %w", record[2], err)
	}
	if tx.Date, err = date.Parse(record[3]); err != nil {
		return tx, err
	}
	if tx.Kind, err = ParseKind(record[4]); err != nil {
		return tx, err
	}
	if len(record) == 6 && record[5] != "" {
		if tx.Commission, err = ParseMoney(record[5]); err != nil {
			return tx, fmt.Errorf("invalid commission %q: %w", record[5], err)
		}
	}
	return tx, nil
}

// ExportLedger writes the transactions of l in the CSV ledger format, in ledger order.
func ExportLedger(w io.Writer, l *Ledger) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ledgerHeader); err != nil {
		return fmt.Errorf("cannot write ledger: %w", err)
	}
	for _, tx := range l.Transactions() {
		commission := ""
		if !tx.Commission.IsZero() {
			commission = tx.Commission.String()
		}
		record := []string{tx.Ticker, tx.Quantity.String(), tx.Price.String(), tx.Date.String(), tx.Kind.String(), commission}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write ledger: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// jsecurity is a line of the market import/export format.
type jsecurity struct {
	Ticker  string                     `json:"ticker"`
	History map[string]decimal.Decimal `json:"history"`
}

// ImportMarket reads closing prices in the market format and adds them to m.
//
// The format is a JSONL file, where each line is a JSON object whose property
// 'ticker' contains the security ticker and 'history' maps ISO dates to closing prices.
func ImportMarket(r io.Reader, m *Market) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var js jsecurity
		if err := json.Unmarshal(line, &js); err != nil {
			return fmt.Errorf("cannot parse line for market format: %q: %w", string(line), err)
		}
		for day, value := range js.History {
			d, err := date.Parse(day)
			if err != nil {
				return fmt.Errorf("invalid day for %s: %w", js.Ticker, err)
			}
			m.Add(js.Ticker, d, M(value))
		}
	}
	return scanner.Err()
}

// ExportMarket writes the closing prices of m in the market format, one line per ticker.
func ExportMarket(w io.Writer, m *Market) error {
	for _, ticker := range m.Tickers() {
		js := jsecurity{Ticker: ticker, History: make(map[string]decimal.Decimal)}
		for day, value := range m.Prices(ticker) {
			js.History[day.String()] = value.Decimal()
		}
		data, err := json.Marshal(js)
		if err != nil {
			return fmt.Errorf("cannot marshal security %q: %w", ticker, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("cannot write market format: %w", err)
		}
	}
	return nil
}
