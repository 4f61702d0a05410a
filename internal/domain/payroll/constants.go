package payroll

import "github.com/shopspring/decimal"

const (
	StatusDraft         = "draft"
	StatusValidated     = "validated"
	StatusPaid          = "paid"
	StatusPartiallyPaid = "partially_paid"

	ActionValidate   = "validate"
	ActionPay        = "pay"
	ActionPayPartial = "pay_partial"
	ActionCancel     = "cancel"

	WarningTaxSharesDefaulted = "tax_shares_defaulted"
	WarningNegativeNet        = "negative_net"
)

var (
	employeePensionRate = decimal.RequireFromString("0.056")
	employerPensionRate = decimal.RequireFromString("0.084")
	employerLevyRate    = decimal.RequireFromString("0.03")
	familyAllowanceRate = decimal.RequireFromString("0.07")
	accidentRate        = decimal.RequireFromString("0.01")

	// Second pension tier. Not activated; kept so stored payslips keep the field.
	pensionComplementRate = decimal.Zero

	// Family allowance and workplace accident are assessed on a capped base.
	cappedContributionBase = decimal.NewFromInt(63_000)

	defaultTaxShares = decimal.NewFromInt(1)
)

// RateSheet lists the contribution rates for display on documents.
type RateSheet struct {
	EmployeePension   decimal.Decimal
	EmployerPension   decimal.Decimal
	PensionComplement decimal.Decimal
	FamilyAllowance   decimal.Decimal
	WorkplaceAccident decimal.Decimal
	EmployerLevy      decimal.Decimal
	CappedBase        decimal.Decimal
}

func Rates() RateSheet {
	return RateSheet{
		EmployeePension:   employeePensionRate,
		EmployerPension:   employerPensionRate,
		PensionComplement: pensionComplementRate,
		FamilyAllowance:   familyAllowanceRate,
		WorkplaceAccident: accidentRate,
		EmployerLevy:      employerLevyRate,
		CappedBase:        cappedContributionBase,
	}
}
