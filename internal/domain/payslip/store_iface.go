package payslip

import (
	"context"

	"hrpay/internal/domain/payroll"
)

type StoreAPI interface {
	Create(ctx context.Context, p Payslip) (Payslip, error)
	Get(ctx context.Context, companyID, id string) (Payslip, error)
	UpdateDraft(ctx context.Context, p Payslip) (Payslip, error)
	UpdateDraftResult(ctx context.Context, companyID, id string, result payroll.Result) error
	List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error)
	ListForPeriod(ctx context.Context, companyID string, period Period) ([]Payslip, error)
	ListDraftIDs(ctx context.Context, companyID string) ([]string, error)
	DeleteDraft(ctx context.Context, companyID, id string) error
	Transition(ctx context.Context, companyID, id string, entry HistoryEntry) error
	History(ctx context.Context, companyID, id string) ([]HistoryEntry, error)
	SetFileURL(ctx context.Context, companyID, id, url string) error
}
