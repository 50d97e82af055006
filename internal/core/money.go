// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents, decimals, and the pt-BR display format.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	maxAmount  = decimal.New(1, 13) // 10 trillion
	thousand   = decimal.NewFromInt(1_000)
	oneMillion = decimal.NewFromInt(1_000_000)
)

// ParseDecimalToCents converts a typed amount to cents with half-up rounding.
//
// Both the pt-BR form (1.234,56) and the dot form (1234.56) are accepted, with
// an optional "R$" prefix. Returns ErrInvalidAmount for malformed, negative,
// zero, or absurdly large values.
//
// Examples:
//
//	ParseDecimalToCents("12.34")    -> 1234, nil
//	ParseDecimalToCents("1.234,56") -> 123456, nil
//	ParseDecimalToCents("R$ 0,5")   -> 50, nil
//	ParseDecimalToCents("1.500")    -> 150000, nil
//	ParseDecimalToCents("1,005")    -> 101, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, ErrInvalidAmount
		}
	}

	switch {
	case strings.Contains(s, ","):
		// pt-BR: dots group thousands, the comma is the decimal separator
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1 || groupsThousands(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d)
}

// NumberToCents converts a machine number such as a JSON number, where the
// dot is always the decimal separator.
func NumberToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d)
}

// groupsThousands reports whether a lone dot with no comma separates
// thousands, as in "1.500" or "12.345".
func groupsThousands(s string) bool {
	i := strings.IndexByte(s, '.')
	if i <= 0 || i > 3 || strings.Count(s, ".") != 1 {
		return false
	}
	return s[0] != '0' && len(s)-i-1 == 3
}

// ParseMaskedCents reads a masked input where every digit typed shifts the
// value left, so "123456" means 1234,56. Non-digits are ignored.
func ParseMaskedCents(s string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d.Div(hundred))
}

func centsFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() || d.GreaterThanOrEqual(maxAmount) {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// MoneyFromDecimal rounds d to cents, half away from zero.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Reais returns the value as a float64 for display and JSON purposes.
// Use cents for calculations.
func (m Money) Reais() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Divide splits m into n equal parts, each rounded to cents on its own.
// The parts are not adjusted to add back up to m.
func (m Money) Divide(n int) Money {
	if n <= 0 {
		return Money{}
	}
	return MoneyFromDecimal(m.Decimal().Div(decimal.NewFromInt(int64(n))))
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// FormatBRL formats m the way the pt-BR locale shows BRL: R$ 1.234,56.
func FormatBRL(m Money) string {
	neg := m.Cents < 0
	cents := m.Cents
	if neg {
		cents = -cents
	}
	fixed := decimal.New(cents, -2).StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatCompact renders chart axis values: 1.5M, 12k, 950.
func FormatCompact(m Money) string {
	d := m.Decimal()
	switch {
	case d.GreaterThanOrEqual(oneMillion):
		return d.Div(oneMillion).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(thousand):
		return d.Div(thousand).StringFixed(0) + "k"
	default:
		return d.String()
	}
}
