// Package money provides a fixed-precision monetary amount.
//
// Amounts are held as integer minor units (cents) and all arithmetic is
// exact integer arithmetic. Decimal strings are only produced or consumed at
// the boundary (Parse, String, JSON), using shopspring/decimal.
//
// Rounding: every conversion from a finer-grained value to cents rounds half
// up, i.e. half away from zero, which matches typical invoice rounding
// (12.345 -> 12.35, -12.345 -> -12.35).
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents).
type Money int64

// Epsilon is the tolerance below which a monetary difference is treated as zero.
const Epsilon Money = 1

// Zero is the zero amount.
const Zero Money = 0

// ErrInvalidFormat is returned when a string cannot be parsed as an amount.
var ErrInvalidFormat = errors.New("invalid money format")

var hundred = decimal.NewFromInt(100)

// FromCents returns the amount for the given number of cents.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromDecimal converts a decimal value to cents, rounding half up.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

// FromFloat converts a float to cents, rounding half up. Only meant for
// legacy data that was stored as binary floating point.
func FromFloat(f float64) Money {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse parses a decimal string such as "12.34", "-3" or "0.005".
// A comma is accepted as decimal separator. Extra precision is rounded half up.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return FromDecimal(d), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount as a decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Float64 returns the amount in major units for display only.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Mul multiplies the amount by an integer factor.
func (m Money) Mul(n int64) Money {
	return Money(int64(m) * n)
}

// DivRound divides the amount into n parts, rounding the quotient half up.
// It panics if n is not positive.
func (m Money) DivRound(n int64) Money {
	if n <= 0 {
		panic("money: division by non-positive count")
	}
	q, r := int64(m)/n, int64(m)%n
	if r < 0 {
		r = -r
	}
	if 2*r >= n {
		if m < 0 {
			q--
		} else {
			q++
		}
	}
	return Money(q)
}

// IsZero reports whether the amount is within Epsilon of zero.
func (m Money) IsZero() bool {
	return m.Abs() <= Epsilon
}

// Equal reports whether two amounts differ by at most Epsilon.
func Equal(a, b Money) bool {
	return (a - b).Abs() <= Epsilon
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// PercentOf returns pct percent of base, rounded half up to cents.
func PercentOf(base Money, pct decimal.Decimal) Money {
	return FromDecimal(base.Decimal().Mul(pct).Div(hundred))
}

// MarshalText implements encoding.TextMarshaler, so JSON carries "12.34".
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Money) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
