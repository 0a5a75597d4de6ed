package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// decimalScale is the number of fractional digits a Decimal carries.
const decimalScale = 4

var (
	decimalMax = decimal.New(math.MaxInt64, -decimalScale)
	decimalMin = decimal.New(math.MinInt64, -decimalScale)
)

// A Decimal is an extension value holding a fixed-point signed number with
// exactly four digits of fractional precision. Its magnitude is bounded so
// that the scaled integer representation fits in an int64.
type Decimal struct {
	d decimal.Decimal
}

// NewDecimal returns a Decimal with the value i * 10^exponent, or an error if
// it cannot be represented within the fixed-point range and precision.
func NewDecimal(i int64, exponent int32) (Decimal, error) {
	d := decimal.New(i, exponent)
	if d.Exponent() < -decimalScale && !d.Equal(d.Truncate(decimalScale)) {
		return Decimal{}, fmt.Errorf("error creating decimal value: %v exceeds %d fractional digits", d, decimalScale)
	}
	if d.GreaterThan(decimalMax) || d.LessThan(decimalMin) {
		return Decimal{}, fmt.Errorf("error creating decimal value: %v out of range", d)
	}
	return Decimal{d: d.Truncate(decimalScale)}, nil
}

// ParseDecimal parses a string in the form accepted by the `decimal`
// extension function: an optional minus sign, one or more integral digits, a
// decimal point, and one to four fractional digits.
func ParseDecimal(s string) (Decimal, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return Decimal{}, fmt.Errorf("error parsing decimal value `%s`: missing decimal point", s)
	}
	integral := s[:dot]
	if len(integral) > 0 && integral[0] == '-' {
		integral = integral[1:]
	}
	if !allDigits(integral) {
		return Decimal{}, fmt.Errorf("error parsing decimal value `%s`: integral part must have at least one digit", s)
	}
	frac := s[dot+1:]
	if len(frac) > decimalScale || !allDigits(frac) {
		return Decimal{}, fmt.Errorf("error parsing decimal value `%s`: fractional part must have 1 to %d digits", s, decimalScale)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("error parsing decimal value `%s`: %w", s, err)
	}
	if d.GreaterThan(decimalMax) || d.LessThan(decimalMin) {
		return Decimal{}, fmt.Errorf("error parsing decimal value `%s`: out of range", s)
	}
	return Decimal{d: d}, nil
}

func allDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cmp compares two Decimals, returning -1, 0, or 1.
func (v Decimal) Cmp(o Decimal) int { return v.d.Cmp(o.d) }

// Equal returns true for numerically equal decimals.
func (v Decimal) Equal(b Value) bool {
	o, ok := b.(Decimal)
	return ok && v.d.Equal(o.d)
}

// String produces a string representation with at least one fractional
// digit, e.g. `12.34` or `1.0`.
func (v Decimal) String() string {
	s := v.d.String()
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// MarshalCedar produces a valid MarshalCedar language representation of the
// Decimal, e.g. `decimal("12.34")`.
func (v Decimal) MarshalCedar() []byte {
	return []byte(`decimal("` + v.String() + `")`)
}

func (v Decimal) Hash() uint64 {
	// Shift() cannot overflow the scaled int64 range by construction.
	return hashTagged("decimal", uint64(v.d.Shift(decimalScale).IntPart()))
}
