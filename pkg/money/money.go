// Package money provides the immutable monetary value types used by both
// services. Amounts are fixed-point with scale 4, rounded half-up, and are
// always tied to an ISO 4217 currency code. Arithmetic across currencies is
// rejected, as are negative amounts.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the fixed decimal scale for all monetary amounts.
const Scale = 4

// Currency is a 3-letter ISO 4217 currency code.
type Currency string

// ParseCurrency validates and normalises a currency code.
func ParseCurrency(code string) (Currency, error) {
	if len(code) != 3 {
		return "", fmt.Errorf("currency code must be 3-letter ISO 4217, got %q", code)
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", fmt.Errorf("currency code must be alphabetic, got %q", code)
		}
	}
	norm := make([]byte, 3)
	for i := 0; i < 3; i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		norm[i] = c
	}
	return Currency(norm), nil
}

func (c Currency) String() string { return string(c) }

// Money is an immutable amount of a single currency.
// The zero value is not valid; construct via New or Parse.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New builds a Money from a decimal amount, rescaled to Scale with half-up
// rounding. Negative amounts are rejected.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, fmt.Errorf("currency is required")
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("money amount cannot be negative: %s", amount)
	}
	return Money{amount: amount.Round(Scale), currency: currency}, nil
}

// Parse builds a Money from string representations of amount and currency.
func Parse(amount, currencyCode string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	cur, err := ParseCurrency(currencyCode)
	if err != nil {
		return Money{}, err
	}
	return New(d, cur)
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(amount, currencyCode string) Money {
	m, err := Parse(amount, currencyCode)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount of the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero.Round(Scale), currency: currency}
}

// Amount returns the decimal amount at scale 4.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + other. Fails on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other. Fails on currency mismatch or a negative result.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	res := m.amount.Sub(other.amount)
	if res.IsNegative() {
		return Money{}, fmt.Errorf("money subtraction result would be negative")
	}
	return Money{amount: res, currency: m.currency}, nil
}

// GreaterThan reports m > other; the comparison requires matching currencies.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// Equal reports value equality (amount and currency).
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) requireSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return nil
}

// String renders the amount at fixed scale followed by the currency code.
func (m Money) String() string {
	return m.amount.StringFixed(Scale) + " " + string(m.currency)
}

// StringAmount renders just the amount at fixed scale, e.g. "300.0000".
func (m Money) StringAmount() string { return m.amount.StringFixed(Scale) }

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a fixed-scale string to avoid float drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(Scale), Currency: string(m.currency)})
}

// UnmarshalJSON decodes and re-validates through Parse.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
