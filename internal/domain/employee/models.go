package employee

import (
	"time"

	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
)

type Employee struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"companyId"`
	FirstName      string          `json:"firstName" validate:"required,max=100"`
	LastName       string          `json:"lastName" validate:"required,max=100"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Position       string          `json:"position" validate:"max=120"`
	HireDate       *time.Time      `json:"hireDate,omitempty"`
	BaseSalary     payroll.Amount  `json:"baseSalary"`
	TaxShares      payroll.Amount  `json:"taxShares"`
	DefaultBonuses payroll.Bonuses `json:"defaultBonuses"`
	BankAccount    string          `json:"bankAccount,omitempty" validate:"max=64"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// DefaultInput prefills a payslip computation from the employee record. Only
// standing values are copied; overtime, allowances and deductions start at 0.
func (e Employee) DefaultInput() payroll.Input {
	shares := e.TaxShares
	if !shares.Decimal().IsPositive() {
		shares = payroll.AmountOf(decimal.NewFromInt(1))
	}
	return payroll.Input{
		Remuneration: payroll.Remuneration{BaseSalary: e.BaseSalary},
		Bonuses:      e.DefaultBonuses,
		TaxShares:    shares,
	}
}

type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

type ListResult struct {
	Items []Employee
	Total int
}
