package payroll

import "github.com/shopspring/decimal"

// SocialGross is the base for social contributions. Benefits in kind are
// excluded.
func SocialGross(r Remuneration) decimal.Decimal {
	return r.BaseSalary.Decimal().
		Add(r.OvertimePay.Decimal()).
		Add(r.TravelAllowance.Decimal()).
		Add(r.OtherAllowances.Decimal())
}

func FiscalGross(socialGross, benefitsInKind decimal.Decimal) decimal.Decimal {
	return socialGross.Add(benefitsInKind)
}

// EffectiveTaxShares substitutes the default of one share for a non-positive
// count. The boolean reports whether the substitution happened.
func EffectiveTaxShares(shares decimal.Decimal) (decimal.Decimal, bool) {
	if !shares.IsPositive() {
		return defaultTaxShares, true
	}
	return shares, false
}

// IncomeTax picks the bracket from fiscalGross split by taxShares, then
// applies its rate and the allowance of every share to the whole income. Only
// the final amount is rounded, half away from zero, to the nearest unit.
func IncomeTax(fiscalGross, taxShares decimal.Decimal) decimal.Decimal {
	shares, _ := EffectiveTaxShares(taxShares)
	return incomeTax(fiscalGross, fiscalGross.Div(shares), shares)
}

// incomeTax uses perShareIncome only for the bracket lookup. The amount is
// taken from fiscalGross so the truncated quotient never reaches the rounding.
func incomeTax(fiscalGross, perShareIncome, shares decimal.Decimal) decimal.Decimal {
	b := BracketFor(perShareIncome)
	tax := fiscalGross.Mul(b.Rate).Sub(b.Allowance.Mul(shares))
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax.Round(0)
}

func FlatRateTax(fiscalGross decimal.Decimal) decimal.Decimal {
	return flatRateFor(fiscalGross)
}

func ComputeContributions(socialGross, fiscalGross decimal.Decimal) Contributions {
	return Contributions{
		EmployeePension:           socialGross.Mul(employeePensionRate),
		EmployeePensionComplement: socialGross.Mul(pensionComplementRate),
		EmployerPension:           socialGross.Mul(employerPensionRate),
		EmployerPensionComplement: socialGross.Mul(pensionComplementRate),
		FamilyAllowance:           cappedContributionBase.Mul(familyAllowanceRate),
		WorkplaceAccident:         cappedContributionBase.Mul(accidentRate),
		EmployerLevy:              fiscalGross.Mul(employerLevyRate),
	}
}

func (c Contributions) Employee() decimal.Decimal {
	return c.EmployeePension.Add(c.EmployeePensionComplement)
}

func (c Contributions) Employer() decimal.Decimal {
	return c.EmployerPension.
		Add(c.EmployerPensionComplement).
		Add(c.FamilyAllowance).
		Add(c.WorkplaceAccident)
}

func (d Deductions) Total() decimal.Decimal {
	return d.SalaryWithholding.Decimal().
		Add(d.HealthInsuranceShare.Decimal()).
		Add(d.Advances.Decimal())
}

func (b Bonuses) Total() decimal.Decimal {
	return b.Transport.Decimal().
		Add(b.MealVoucher.Decimal()).
		Add(b.Seniority.Decimal()).
		Add(b.Responsibility.Decimal()).
		Add(b.OtherBonuses.Decimal())
}

// Compute derives every payslip figure from in. It keeps no state and never
// fails.
func Compute(in Input) Result {
	var res Result

	res.SocialGross = SocialGross(in.Remuneration)
	res.FiscalGross = FiscalGross(res.SocialGross, in.Remuneration.BenefitsInKind.Decimal())

	shares, defaulted := EffectiveTaxShares(in.TaxShares.Decimal())
	if defaulted {
		res.Warnings = append(res.Warnings, WarningTaxSharesDefaulted)
	}
	res.TaxShares = shares
	res.PerShareIncome = res.FiscalGross.Div(shares)

	res.Contributions = ComputeContributions(res.SocialGross, res.FiscalGross)
	res.EmployeeSocialContribution = res.Contributions.Employee()
	res.EmployerSocialContributions = res.Contributions.Employer()
	res.EmployerLevy = res.Contributions.EmployerLevy
	res.FlatRateTax = FlatRateTax(res.FiscalGross)
	res.IncomeTax = incomeTax(res.FiscalGross, res.PerShareIncome, shares)

	res.DirectDeductions = in.Deductions.Total()
	res.TotalWithheld = res.DirectDeductions.
		Add(res.EmployeeSocialContribution).
		Add(res.FlatRateTax).
		Add(res.IncomeTax)
	res.NetBeforeBonuses = res.SocialGross.Sub(res.TotalWithheld)
	res.TotalBonuses = in.Bonuses.Total()
	res.NetPay = res.NetBeforeBonuses.Add(res.TotalBonuses)
	if res.NetPay.IsNegative() {
		res.Warnings = append(res.Warnings, WarningNegativeNet)
	}

	res.EmployerCost = res.SocialGross.
		Add(res.TotalBonuses).
		Add(res.EmployerSocialContributions).
		Add(res.EmployerLevy)

	return res
}
