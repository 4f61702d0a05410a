package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Formatter renders amounts for documents and exports. It is the only place
// where figures other than income tax are rounded.
type Formatter struct {
	Thousands string
	Decimal   string
	Places    int32
}

func DefaultFormatter() Formatter {
	return Formatter{Thousands: " ", Decimal: ",", Places: 0}
}

// Round applies the presentation rounding without formatting, for outputs
// such as spreadsheets that keep numeric cells.
func (f Formatter) Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(f.places())
}

// Format rounds half away from zero to f.Places and groups the integer part.
func (f Formatter) Format(value decimal.Decimal) string {
	fixed := value.StringFixed(f.places())

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	if sign != "" && strings.Trim(intPart+fracPart, "0") == "" {
		sign = ""
	}

	out := sign + groupThousands(intPart, f.Thousands)
	if fracPart != "" {
		mark := f.Decimal
		if mark == "" {
			mark = "."
		}
		out += mark + fracPart
	}
	return out
}

// Percent renders a rate such as 0.056 as "5.6 %" using the decimal mark.
func (f Formatter) Percent(rate decimal.Decimal) string {
	s := rate.Shift(2).String()
	if mark := f.Decimal; mark != "" && mark != "." {
		s = strings.Replace(s, ".", mark, 1)
	}
	return s + " %"
}

func (f Formatter) places() int32 {
	if f.Places < 0 {
		return 0
	}
	return f.Places
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
