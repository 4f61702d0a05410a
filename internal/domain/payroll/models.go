package payroll

import "github.com/shopspring/decimal"

type Remuneration struct {
	BaseSalary      Amount `json:"baseSalary"`
	OvertimePay     Amount `json:"overtimePay"`
	TravelAllowance Amount `json:"travelAllowance"`
	OtherAllowances Amount `json:"otherAllowances"`
	BenefitsInKind  Amount `json:"benefitsInKind"`
}

type Bonuses struct {
	Transport      Amount `json:"transport"`
	MealVoucher    Amount `json:"mealVoucher"`
	Seniority      Amount `json:"seniority"`
	Responsibility Amount `json:"responsibility"`
	OtherBonuses   Amount `json:"otherBonuses"`
}

// Deductions are withheld as entered; the engine never derives them.
type Deductions struct {
	SalaryWithholding    Amount `json:"salaryWithholding"`
	HealthInsuranceShare Amount `json:"healthInsuranceShare"`
	Advances             Amount `json:"advances"`
}

type Input struct {
	Remuneration Remuneration `json:"remuneration"`
	Bonuses      Bonuses      `json:"bonuses"`
	Deductions   Deductions   `json:"deductions"`
	TaxShares    Amount       `json:"taxShares"`
}

type Contributions struct {
	EmployeePension           decimal.Decimal `json:"employeePension"`
	EmployeePensionComplement decimal.Decimal `json:"employeePensionComplement"`
	EmployerPension           decimal.Decimal `json:"employerPension"`
	EmployerPensionComplement decimal.Decimal `json:"employerPensionComplement"`
	FamilyAllowance           decimal.Decimal `json:"familyAllowance"`
	WorkplaceAccident         decimal.Decimal `json:"workplaceAccident"`
	EmployerLevy              decimal.Decimal `json:"employerLevy"`
}

type Result struct {
	SocialGross                 decimal.Decimal `json:"socialGross"`
	FiscalGross                 decimal.Decimal `json:"fiscalGross"`
	Contributions               Contributions   `json:"contributions"`
	EmployeeSocialContribution  decimal.Decimal `json:"employeeSocialContribution"`
	EmployerSocialContributions decimal.Decimal `json:"employerSocialContributions"`
	EmployerLevy                decimal.Decimal `json:"employerLevy"`
	FlatRateTax                 decimal.Decimal `json:"flatRateTax"`
	TaxShares                   decimal.Decimal `json:"taxShares"`
	PerShareIncome              decimal.Decimal `json:"perShareIncome"`
	IncomeTax                   decimal.Decimal `json:"incomeTax"`
	DirectDeductions            decimal.Decimal `json:"directDeductions"`
	TotalWithheld               decimal.Decimal `json:"totalWithheld"`
	NetBeforeBonuses            decimal.Decimal `json:"netBeforeBonuses"`
	TotalBonuses                decimal.Decimal `json:"totalBonuses"`
	NetPay                      decimal.Decimal `json:"netPay"`
	EmployerCost                decimal.Decimal `json:"employerCost"`
	Warnings                    []string        `json:"warnings,omitempty"`
}

// Bracket is one row of the income tax table. It applies to a per-share
// income strictly greater than LowerBound.
type Bracket struct {
	LowerBound decimal.Decimal
	Rate       decimal.Decimal
	Allowance  decimal.Decimal
}
