package payslip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/querier"
)

const payslipColumns = `
    p.id, p.company_id, p.employee_id, e.first_name || ' ' || e.last_name,
    p.period_start, p.period_end, p.status, p.input_json, p.result_json,
    p.file_url, COALESCE(p.created_by::text, ''), p.created_at, p.updated_at`

const payslipFrom = `
    FROM payslips p
    JOIN employees e ON e.id = p.employee_id`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, p Payslip) (Payslip, error) {
	inputJSON, resultJSON, err := encodeComputation(p.Input, p.Result)
	if err != nil {
		return Payslip{}, err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO payslips (company_id, employee_id, period_start, period_end, status,
                          input_json, result_json, net_pay, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,NULLIF($9, '')::uuid)
    RETURNING id, created_at, updated_at
  `, p.CompanyID, p.EmployeeID, p.Period.StartDate, p.Period.EndDate, p.Status,
		inputJSON, resultJSON, p.Result.NetPay.String(), p.CreatedBy).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Payslip{}, err
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, companyID, id string) (Payslip, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+payslipColumns+payslipFrom+`
    WHERE p.company_id = $1 AND p.id = $2
  `, companyID, id)
	p, err := scanPayslip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrNotFound
	}
	return p, err
}

// UpdateDraft rewrites period, input and result while the payslip is still a
// draft. A payslip that left draft in the meantime yields ErrConflict.
func (s *Store) UpdateDraft(ctx context.Context, p Payslip) (Payslip, error) {
	inputJSON, resultJSON, err := encodeComputation(p.Input, p.Result)
	if err != nil {
		return Payslip{}, err
	}
	err = s.DB.QueryRow(ctx, `
    UPDATE payslips
    SET period_start = $3, period_end = $4, input_json = $5, result_json = $6,
        net_pay = $7::numeric, updated_at = now()
    WHERE company_id = $1 AND id = $2 AND status = $8
    RETURNING updated_at
  `, p.CompanyID, p.ID, p.Period.StartDate, p.Period.EndDate, inputJSON, resultJSON,
		p.Result.NetPay.String(), payroll.StatusDraft).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrConflict
	}
	if err != nil {
		return Payslip{}, err
	}
	return p, nil
}

func (s *Store) UpdateDraftResult(ctx context.Context, companyID, id string, result payroll.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips
    SET result_json = $3, net_pay = $4::numeric, updated_at = now()
    WHERE company_id = $1 AND id = $2 AND status = $5
  `, companyID, id, resultJSON, result.NetPay.String(), payroll.StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error) {
	where := "p.company_id = $1"
	args := []any{companyID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND p.employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND p.status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND p.period_end >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND p.period_start <= $%d", len(args))
	}

	var out ListResult
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips p WHERE "+where, args...).Scan(&out.Total); err != nil {
		return ListResult{}, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT %s %s
    WHERE %s
    ORDER BY p.period_start DESC, p.created_at DESC, p.id
    LIMIT $%d OFFSET $%d
  `, payslipColumns, payslipFrom, where, len(args)-1, len(args)), args...)
	if err != nil {
		return ListResult{}, err
	}
	out.Items, err = collectPayslips(rows)
	if err != nil {
		return ListResult{}, err
	}
	return out, nil
}

func (s *Store) ListForPeriod(ctx context.Context, companyID string, period Period) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+payslipColumns+payslipFrom+`
    WHERE p.company_id = $1 AND p.period_start >= $2 AND p.period_end <= $3
    ORDER BY e.last_name, e.first_name, p.period_start, p.id
  `, companyID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	return collectPayslips(rows)
}

func (s *Store) ListDraftIDs(ctx context.Context, companyID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id
    FROM payslips
    WHERE company_id = $1 AND status = $2
    ORDER BY id
  `, companyID, payroll.StatusDraft)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DeleteDraft(ctx context.Context, companyID, id string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM payslips
    WHERE company_id = $1 AND id = $2 AND status = $3
  `, companyID, id, payroll.StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Transition moves the payslip from entry.FromStatus to entry.ToStatus and
// appends the history row in the same transaction. The update only matches
// while the stored status still equals entry.FromStatus.
func (s *Store) Transition(ctx context.Context, companyID, id string, entry HistoryEntry) error {
	return querier.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
      UPDATE payslips
      SET status = $3, updated_at = now()
      WHERE company_id = $1 AND id = $2 AND status = $4
    `, companyID, id, entry.ToStatus, entry.FromStatus)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}
		_, err = tx.Exec(ctx, `
      INSERT INTO payslip_status_history (payslip_id, action, from_status, to_status, actor_id)
      VALUES ($1,$2,$3,$4,NULLIF($5, '')::uuid)
    `, id, entry.Action, entry.FromStatus, entry.ToStatus, entry.ActorID)
		return err
	})
}

func (s *Store) History(ctx context.Context, companyID, id string) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT h.id, h.payslip_id, h.action, h.from_status, h.to_status,
           COALESCE(h.actor_id::text, ''), h.created_at
    FROM payslip_status_history h
    JOIN payslips p ON p.id = h.payslip_id
    WHERE p.company_id = $1 AND h.payslip_id = $2
    ORDER BY h.created_at, h.id
  `, companyID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.PayslipID, &h.Action, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) SetFileURL(ctx context.Context, companyID, id, url string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips SET file_url = $3, updated_at = now()
    WHERE company_id = $1 AND id = $2
  `, companyID, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeComputation(in payroll.Input, res payroll.Result) ([]byte, []byte, error) {
	inputJSON, err := json.Marshal(in)
	if err != nil {
		return nil, nil, err
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, nil, err
	}
	return inputJSON, resultJSON, nil
}

func collectPayslips(rows pgx.Rows) ([]Payslip, error) {
	defer rows.Close()
	out := []Payslip{}
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayslip(row pgx.Row) (Payslip, error) {
	var (
		p                     Payslip
		start, end            time.Time
		inputJSON, resultJSON []byte
	)
	if err := row.Scan(&p.ID, &p.CompanyID, &p.EmployeeID, &p.EmployeeName, &start, &end, &p.Status,
		&inputJSON, &resultJSON, &p.FileURL, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payslip{}, err
	}
	p.Period = Period{StartDate: start, EndDate: end}
	if err := json.Unmarshal(inputJSON, &p.Input); err != nil {
		return Payslip{}, fmt.Errorf("decode payslip input: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &p.Result); err != nil {
		return Payslip{}, fmt.Errorf("decode payslip result: %w", err)
	}
	return p, nil
}
