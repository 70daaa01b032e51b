package pricing

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the stored precision for every monetary amount.
const MinorUnits int32 = 2

var hundred = decimal.NewFromInt(100)

// Money is a decimal amount in the marketplace currency.
type Money struct {
	amount decimal.Decimal
}

func Zero() Money {
	return Money{amount: decimal.Zero}
}

func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d}
}

func MoneyFromInt(v int64) Money {
	return Money{amount: decimal.NewFromInt(v)}
}

// ParseMoney parses a decimal string such as "150000.50".
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", value, err)
	}
	return Money{amount: d}, nil
}

func MustParseMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.amount }

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }

func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

func (m Money) MulInt(n int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(n))}
}

// Percent returns pct percent of m, rounded to the stored precision.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred)}.Round()
}

func (m Money) Round() Money {
	return Money{amount: m.amount.Round(MinorUnits)}
}

// IntAmount rounds half away from zero to a whole currency unit.
func (m Money) IntAmount() int64 {
	return m.amount.Round(0).IntPart()
}

func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }

func (m Money) LessThan(o Money) bool { return m.amount.LessThan(o.amount) }

func (m Money) GreaterThan(o Money) bool { return m.amount.GreaterThan(o.amount) }

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if o.LessThan(m) {
		return o
	}
	return m
}

// ClampZero floors negative amounts at zero.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return Zero()
	}
	return m
}

func (m Money) String() string {
	return m.amount.StringFixed(MinorUnits)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.amount.UnmarshalJSON(data)
}

// Value stores the amount as a numeric string.
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(MinorUnits), nil
}

func (m *Money) Scan(value any) error {
	return m.amount.Scan(value)
}

// GormDataType keeps AutoMigrate and sqlite fixtures on a numeric column.
func (m Money) GormDataType() string {
	return "numeric"
}
