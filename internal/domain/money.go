package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). It is encoded in JSON as a
// number with exactly two decimals.
type Money int64

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return MoneyFromDecimal(d), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Times multiplies a unit price by a quantity. Callers that persist the
// result use Mul.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Mul is Times with an overflow check.
func (m Money) Mul(qty int) (Money, error) {
	if m == 0 || qty == 0 {
		return 0, nil
	}
	if m < 0 || qty < 0 || int64(m) > math.MaxInt64/int64(qty) {
		return 0, ErrValueOutOfRange
	}
	return m * Money(qty), nil
}

// Add sums two non-negative amounts with an overflow check.
func (m Money) Add(other Money) (Money, error) {
	if m < 0 || other < 0 || m > Money(math.MaxInt64)-other {
		return 0, ErrValueOutOfRange
	}
	return m + other, nil
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		data = []byte(raw)
	}
	parsed, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func MaxMoney(a Money, b Money) Money {
	if a > b {
		return a
	}
	return b
}
