// Package money holds the minor-unit amount type used by the ledger and the
// gateway. Amounts are never carried as floating point.
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNonPositive   = errors.New("amount must be greater than zero")
	hundred          = decimal.NewFromInt(100)
	maxMinor         = decimal.NewFromInt(math.MaxInt64)
)

// Amount is an integer number of minor currency units (cents).
type Amount int64

// Parse converts decimal user input into minor units. Digits past the second
// decimal place are truncated, not rounded: "12.995" becomes 1299.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor := d.Mul(hundred).Truncate(0)
	if !minor.IsPositive() {
		return 0, ErrNonPositive
	}
	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Amount(minor.IntPart()), nil
}

// MustParse is Parse for constants and seed data.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func FromMinor(units int64) Amount { return Amount(units) }

func (a Amount) Minor() int64 { return int64(a) }

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Input is a request field that accepts either a JSON number or a JSON string
// and keeps the literal text, so conversion happens in decimal rather than
// through float64.
type Input string

func (in *Input) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*in = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*in = Input(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*in = Input(n.String())
	return nil
}

func (in Input) Amount() (Amount, error) {
	return Parse(string(in))
}
