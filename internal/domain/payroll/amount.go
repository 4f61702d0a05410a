package payroll

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative monetary input. Decoding never fails: malformed,
// missing, null, negative or out-of-range values become zero.
type Amount decimal.Decimal

func NewAmount(value int64) Amount {
	return Amount(nonNegative(decimal.NewFromInt(value)))
}

func AmountOf(value decimal.Decimal) Amount {
	return Amount(nonNegative(value))
}

func (a Amount) Decimal() decimal.Decimal {
	return nonNegative(decimal.Decimal(a))
}

func (a Amount) IsZero() bool {
	return a.Decimal().IsZero()
}

func (a Amount) String() string {
	return a.Decimal().String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Decimal().MarshalJSON()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount(coerceJSON(data))
	return nil
}

func coerceJSON(data []byte) decimal.Decimal {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero
		}
		return ParseAmount(s)
	}
	value, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(value)
}

// ParseAmount reads a user-entered amount such as "300 000", "26,000 FCFA" or
// "1 234,50". Currency labels around the number and grouping characters are
// ignored. A lone comma followed by anything other than three digits is read
// as the decimal mark. Anything unparseable, and any negative value, yields 0.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r)
	})
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.Zero
	}
	s = strings.TrimPrefix(s, "+")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '_':
		default:
			return decimal.Zero
		}
	}

	clean := normalizeSeparators(b.String())
	if clean == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(value)
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	decimalAt := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalAt = max(lastDot, lastComma)
	case lastComma >= 0 && strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		decimalAt = lastComma
	case lastDot >= 0 && strings.Count(s, ".") == 1:
		decimalAt = lastDot
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' || c == ',' {
			if i == decimalAt {
				b.WriteByte('.')
			}
			continue
		}
		b.WriteByte(c)
	}
	out := strings.TrimSuffix(b.String(), ".")
	if strings.HasPrefix(out, ".") {
		out = "0" + out
	}
	return out
}

const (
	maxAmountExponent = 18
	maxAmountDigits   = 30
)

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() || !inAmountRange(value) {
		return decimal.Zero
	}
	return value
}

// inAmountRange bounds the scale and precision of inputs so every later
// Add or Mul stays cheap.
func inAmountRange(value decimal.Decimal) bool {
	exp := value.Exponent()
	return exp >= -maxAmountExponent && exp <= maxAmountExponent && value.NumDigits() <= maxAmountDigits
}
