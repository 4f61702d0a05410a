package employee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
	cryptoutil "hrpay/internal/platform/crypto"
	"hrpay/internal/platform/querier"
)

const foreignKeyViolation = "23503"

const employeeColumns = `
    id, company_id, first_name, last_name, email, position, hire_date,
    base_salary::text, tax_shares::text, default_bonuses, bank_account_enc,
    created_at, updated_at`

type Store struct {
	DB     querier.Querier
	Crypto *cryptoutil.Service
}

func NewStore(db querier.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) Create(ctx context.Context, e Employee) (Employee, error) {
	bonuses, bankEnc, err := s.encode(e)
	if err != nil {
		return Employee{}, err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO employees (company_id, first_name, last_name, email, position, hire_date,
                           base_salary, tax_shares, default_bonuses, bank_account_enc)
    VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9,$10)
    RETURNING id, created_at, updated_at
  `, e.CompanyID, e.FirstName, e.LastName, e.Email, e.Position, e.HireDate,
		e.BaseSalary.String(), e.TaxShares.String(), bonuses, bankEnc).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, companyID, id string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE company_id = $1 AND id = $2
  `, companyID, id)
	e, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

func (s *Store) Update(ctx context.Context, e Employee) (Employee, error) {
	bonuses, bankEnc, err := s.encode(e)
	if err != nil {
		return Employee{}, err
	}
	err = s.DB.QueryRow(ctx, `
    UPDATE employees
    SET first_name = $3, last_name = $4, email = $5, position = $6, hire_date = $7,
        base_salary = $8::numeric, tax_shares = $9::numeric, default_bonuses = $10,
        bank_account_enc = $11, updated_at = now()
    WHERE company_id = $1 AND id = $2
    RETURNING created_at, updated_at
  `, e.CompanyID, e.ID, e.FirstName, e.LastName, e.Email, e.Position, e.HireDate,
		e.BaseSalary.String(), e.TaxShares.String(), bonuses, bankEnc).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error) {
	where := "company_id = $1"
	args := []any{companyID}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args))
	}

	var out ListResult
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE "+where, args...).Scan(&out.Total); err != nil {
		return ListResult{}, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT %s
    FROM employees
    WHERE %s
    ORDER BY last_name, first_name, id
    LIMIT $%d OFFSET $%d
  `, employeeColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return ListResult{}, err
		}
		out.Items = append(out.Items, e)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, companyID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE company_id = $1 AND id = $2", companyID, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrHasPayslips
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) encode(e Employee) ([]byte, []byte, error) {
	bonuses, err := json.Marshal(e.DefaultBonuses)
	if err != nil {
		return nil, nil, err
	}
	bankEnc, err := s.Crypto.EncryptString(e.BankAccount)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt bank account: %w", err)
	}
	return bonuses, bankEnc, nil
}

func (s *Store) scan(row pgx.Row) (Employee, error) {
	var (
		e                Employee
		hireDate         *time.Time
		salary, shares   string
		bonuses, bankEnc []byte
	)
	if err := row.Scan(&e.ID, &e.CompanyID, &e.FirstName, &e.LastName, &e.Email, &e.Position, &hireDate,
		&salary, &shares, &bonuses, &bankEnc, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, err
	}
	e.HireDate = hireDate
	e.BaseSalary = payroll.AmountOf(parseNumeric(salary))
	e.TaxShares = payroll.AmountOf(parseNumeric(shares))
	if len(bonuses) > 0 {
		if err := json.Unmarshal(bonuses, &e.DefaultBonuses); err != nil {
			return Employee{}, fmt.Errorf("decode default bonuses: %w", err)
		}
	}
	bank, err := s.Crypto.DecryptString(bankEnc)
	if err != nil {
		return Employee{}, fmt.Errorf("decrypt bank account: %w", err)
	}
	e.BankAccount = bank
	return e, nil
}

func parseNumeric(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}
