package payroll

import "github.com/shopspring/decimal"

// incomeTaxBrackets is ordered from the highest lower bound down. The first
// row whose bound is exceeded applies to the whole per-share income.
var incomeTaxBrackets = []Bracket{
	bracket(500_000, "0.40", 118_750),
	bracket(400_000, "0.35", 88_750),
	bracket(300_000, "0.35", 78_750),
	bracket(200_000, "0.30", 48_750),
	bracket(150_000, "0.25", 28_750),
	bracket(110_000, "0.20", 18_750),
	bracket(80_000, "0.15", 11_000),
	bracket(60_000, "0.10", 6_000),
	bracket(50_000, "0.05", 2_500),
}

var exemptBracket = Bracket{LowerBound: decimal.Zero, Rate: decimal.Zero, Allowance: decimal.Zero}

type flatRateStep struct {
	upTo      decimal.Decimal
	inclusive bool
	amount    decimal.Decimal
}

var (
	flatRateSteps = []flatRateStep{
		{upTo: decimal.NewFromInt(85_000), inclusive: true, amount: decimal.NewFromInt(300)},
		{upTo: decimal.NewFromInt(133_000), inclusive: true, amount: decimal.NewFromInt(400)},
		{upTo: decimal.NewFromInt(1_000_000), inclusive: false, amount: decimal.NewFromInt(500)},
	}
	flatRateTop = decimal.NewFromInt(1_500)
)

func bracket(lowerBound int64, rate string, allowance int64) Bracket {
	return Bracket{
		LowerBound: decimal.NewFromInt(lowerBound),
		Rate:       decimal.RequireFromString(rate),
		Allowance:  decimal.NewFromInt(allowance),
	}
}

// Brackets returns a copy of the income tax table, highest bound first.
func Brackets() []Bracket {
	out := make([]Bracket, len(incomeTaxBrackets))
	copy(out, incomeTaxBrackets)
	return out
}

// BracketFor selects the single bracket applied to perShareIncome.
func BracketFor(perShareIncome decimal.Decimal) Bracket {
	for _, b := range incomeTaxBrackets {
		if perShareIncome.GreaterThan(b.LowerBound) {
			return b
		}
	}
	return exemptBracket
}

func flatRateFor(fiscalGross decimal.Decimal) decimal.Decimal {
	for _, step := range flatRateSteps {
		if fiscalGross.LessThan(step.upTo) || (step.inclusive && fiscalGross.Equal(step.upTo)) {
			return step.amount
		}
	}
	return flatRateTop
}
