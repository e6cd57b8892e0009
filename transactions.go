package folio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/etnz/folio/date"
)

// Kind is the direction of a transaction.
type Kind int

const (
	Buy Kind = iota
	Sell
)

func (k Kind) String() string {
	switch k {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseKind parses "buy" or "sell" (case insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown transaction kind: %q", s)
	}
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Transaction is a single buy or sell of a security.
//
// Quantity is always positive, the direction is carried by Kind.
type Transaction struct {
	Ticker     string    `json:"ticker"`
	Kind       Kind      `json:"kind"`
	Quantity   Quantity  `json:"quantity"`
	Price      Money     `json:"price"`
	Date       date.Date `json:"date"`
	Commission Money     `json:"commission,omitzero"`
}

// NewBuy creates a new buy transaction.
func NewBuy(day date.Date, ticker string, quantity Quantity, price Money) Transaction {
	return Transaction{Ticker: ticker, Kind: Buy, Quantity: quantity, Price: price, Date: day}
}

// NewSell creates a new sell transaction.
func NewSell(day date.Date, ticker string, quantity Quantity, price Money) Transaction {
	return Transaction{Ticker: ticker, Kind: Sell, Quantity: quantity, Price: price, Date: day}
}

// Amount returns quantity * price, commission excluded.
func (t Transaction) Amount() Money { return t.Price.Mul(t.Quantity) }

// signed returns the quantity with the sign of the transaction direction.
func (t Transaction) signed() Quantity {
	if t.Kind == Sell {
		return Quantity{value: t.Quantity.value.Neg()}
	}
	return t.Quantity
}

// Validate checks the fields of the transaction that do not depend on the ledger.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Ticker) == "" {
		return &UnknownTickerError{Ticker: t.Ticker}
	}
	if t.Kind != Buy && t.Kind != Sell {
		return fmt.Errorf("unknown transaction kind %d", int(t.Kind))
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%s transaction on %q has no date", t.Kind, t.Ticker)
	}
	if !t.Quantity.IsPositive() {
		return &InvalidAmountError{Field: "quantity", Value: t.Quantity.String()}
	}
	if !t.Price.IsPositive() {
		return &InvalidAmountError{Field: "price", Value: t.Price.String()}
	}
	if t.Commission.IsNegative() {
		return &InvalidAmountError{Field: "commission", Value: t.Commission.String()}
	}
	return nil
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s @ %s", t.Date, t.Kind, t.Quantity, t.Ticker, t.Price)
}
