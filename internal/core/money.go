// Package core holds the finance domain: entities, money handling and the
// pure aggregations (budget analysis, spending trends, dashboard summary).
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a signed amount in cents. Negative values are outflows.
type Money struct {
	Cents int64
}

// MaxAmountUnits bounds the magnitude of a single parsed amount.
const MaxAmountUnits = 1_000_000_000_000

// MaxCents is MaxAmountUnits expressed in cents.
const MaxCents = MaxAmountUnits * 100

// ParseMoney converts a signed decimal string to Money.
//
// Dot (12.34) and comma (12,34) separators are accepted and the third decimal
// is rounded half-up, away from zero:
//
//	ParseMoney("-4.85")  -> -485
//	ParseMoney("12,345") -> 1235
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if iv > MaxAmountUnits {
		return Money{}, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	cents := iv*100 + frac
	if cents > MaxCents {
		return Money{}, ErrInvalidAmount
	}
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// ParsePositiveMoney is ParseMoney restricted to amounts above zero.
func ParsePositiveMoney(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// MoneyFromFloat rounds a float amount (as returned by model output) to cents,
// clamped to ±MaxCents. NaN maps to zero.
func MoneyFromFloat(f float64) Money {
	if math.IsNaN(f) {
		return Money{}
	}
	c := math.Round(f * 100)
	switch {
	case c > MaxCents:
		return Money{Cents: MaxCents}
	case c < -MaxCents:
		return Money{Cents: -MaxCents}
	}
	return Money{Cents: int64(c)}
}

// InRange reports whether the magnitude is at most MaxCents.
func (m Money) InRange() bool {
	return m.Cents >= -MaxCents && m.Cents <= MaxCents
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) Abs() Money {
	if m.Cents == math.MinInt64 {
		return Money{Cents: math.MaxInt64}
	}
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Add saturates at the int64 limits instead of wrapping.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

// Float returns the amount in currency units for JSON aggregates.
// Keep arithmetic in cents.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "-4.85".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + pad2(c%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// MarshalJSON encodes Money as a decimal string so amounts never pass through floats.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.34" and 12.34.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
