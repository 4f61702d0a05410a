package employee

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) Create(ctx context.Context, companyID string, e Employee) (Employee, error) {
	e.CompanyID = companyID
	if err := normalize(&e); err != nil {
		return Employee{}, err
	}
	return s.Store.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Employee, error) {
	return s.Store.Get(ctx, companyID, id)
}

func (s *Service) Update(ctx context.Context, companyID, id string, e Employee) (Employee, error) {
	e.CompanyID = companyID
	e.ID = id
	if err := normalize(&e); err != nil {
		return Employee{}, err
	}
	return s.Store.Update(ctx, e)
}

func (s *Service) List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error) {
	return s.Store.List(ctx, companyID, filter)
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	return s.Store.Delete(ctx, companyID, id)
}

// PayslipDefaults returns the computation input a new payslip for the
// employee starts from.
func (s *Service) PayslipDefaults(ctx context.Context, companyID, id string) (payroll.Input, error) {
	e, err := s.Store.Get(ctx, companyID, id)
	if err != nil {
		return payroll.Input{}, err
	}
	return e.DefaultInput(), nil
}

func normalize(e *Employee) error {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	e.Position = strings.TrimSpace(e.Position)
	e.BankAccount = strings.TrimSpace(e.BankAccount)
	if e.FirstName == "" || e.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if !e.TaxShares.Decimal().IsPositive() {
		e.TaxShares = payroll.AmountOf(decimal.NewFromInt(1))
	}
	return nil
}
