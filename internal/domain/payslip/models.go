package payslip

import (
	"encoding/json"
	"time"

	"hrpay/internal/domain/payroll"
)

const dateLayout = "2006-01-02"

// Period is carried on the payslip for reference. No formula reads it.
type Period struct {
	StartDate time.Time
	EndDate   time.Time
}

func (p Period) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() || p.EndDate.Before(p.StartDate) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return p.StartDate.Format(dateLayout) + " - " + p.EndDate.Format(dateLayout)
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"startDate": p.StartDate.Format(dateLayout),
		"endDate":   p.EndDate.Format(dateLayout),
	})
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var raw struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, raw.StartDate)
	if err != nil {
		return ErrInvalidPeriod
	}
	end, err := time.Parse(dateLayout, raw.EndDate)
	if err != nil {
		return ErrInvalidPeriod
	}
	p.StartDate, p.EndDate = start, end
	return nil
}

type Payslip struct {
	ID           string         `json:"id"`
	CompanyID    string         `json:"companyId"`
	EmployeeID   string         `json:"employeeId"`
	EmployeeName string         `json:"employeeName"`
	Period       Period         `json:"period"`
	Status       string         `json:"status"`
	Input        payroll.Input  `json:"input"`
	Result       payroll.Result `json:"result"`
	FileURL      string         `json:"fileUrl,omitempty"`
	CreatedBy    string         `json:"createdBy,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type HistoryEntry struct {
	ID         string    `json:"id"`
	PayslipID  string    `json:"payslipId"`
	Action     string    `json:"action"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateRequest struct {
	EmployeeID string
	Period     Period
	// Input nil means start from the employee's defaults.
	Input   *payroll.Input
	ActorID string
}

// UpdateRequest fields left nil keep the stored values.
type UpdateRequest struct {
	Period *Period
	Input  *payroll.Input
}

type TransitionRequest struct {
	Action        string
	ActorID       string
	CorrelationID string
}

type ListFilter struct {
	EmployeeID string
	Status     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type ListResult struct {
	Items []Payslip
	Total int
}

type VerifyResult struct {
	PayslipID  string         `json:"payslipId"`
	Consistent bool           `json:"consistent"`
	Stored     payroll.Result `json:"stored"`
	Recomputed payroll.Result `json:"recomputed"`
}

type RecomputeSummary struct {
	Total      int      `json:"total"`
	Recomputed int      `json:"recomputed"`
	Changed    int      `json:"changed"`
	Skipped    int      `json:"skipped"`
	Failed     []string `json:"failed,omitempty"`
}

type Document struct {
	PayslipID   string
	FileName    string
	ContentType string
	Data        []byte
}
