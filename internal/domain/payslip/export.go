package payslip

import (
	"bytes"
	"context"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hrpay/internal/domain/payroll"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	registerSheet   = "Register"
	totalLabel      = "TOTAL"
)

type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RegisterRow is one line of the payroll register as written to CSV.
type RegisterRow struct {
	Employee              string `csv:"employee"`
	PeriodStart           string `csv:"period_start"`
	PeriodEnd             string `csv:"period_end"`
	Status                string `csv:"status"`
	SocialGross           string `csv:"social_gross"`
	FiscalGross           string `csv:"fiscal_gross"`
	EmployeeContribution  string `csv:"employee_contribution"`
	FlatRateTax           string `csv:"flat_rate_tax"`
	IncomeTax             string `csv:"income_tax"`
	DirectDeductions      string `csv:"direct_deductions"`
	TotalWithheld         string `csv:"total_withheld"`
	TotalBonuses          string `csv:"total_bonuses"`
	NetPay                string `csv:"net_pay"`
	EmployerContributions string `csv:"employer_contributions"`
	EmployerLevy          string `csv:"employer_levy"`
	EmployerCost          string `csv:"employer_cost"`
}

var registerHeaders = []string{
	"Employee", "Period start", "Period end", "Status",
	"Social gross", "Fiscal gross", "Employee contribution", "Flat-rate tax", "Income tax",
	"Direct deductions", "Total withheld", "Total bonuses", "Net pay",
	"Employer contributions", "Employer levy", "Employer cost",
}

type registerLine struct {
	employee, start, end, status string
	amounts                      []decimal.Decimal
}

func registerAmounts(r payroll.Result) []decimal.Decimal {
	return []decimal.Decimal{
		r.SocialGross, r.FiscalGross, r.EmployeeSocialContribution, r.FlatRateTax, r.IncomeTax,
		r.DirectDeductions, r.TotalWithheld, r.TotalBonuses, r.NetPay,
		r.EmployerSocialContributions, r.EmployerLevy, r.EmployerCost,
	}
}

// registerLines returns one line per payslip followed by a total line. Totals
// are summed from exact figures before any rounding.
func registerLines(items []Payslip) []registerLine {
	totals := make([]decimal.Decimal, len(registerAmounts(payroll.Result{})))
	lines := make([]registerLine, 0, len(items)+1)
	for _, p := range items {
		amounts := registerAmounts(p.Result)
		for i, v := range amounts {
			totals[i] = totals[i].Add(v)
		}
		lines = append(lines, registerLine{
			employee: p.EmployeeName,
			start:    p.Period.StartDate.Format(dateLayout),
			end:      p.Period.EndDate.Format(dateLayout),
			status:   p.Status,
			amounts:  amounts,
		})
	}
	return append(lines, registerLine{employee: totalLabel, amounts: totals})
}

// RegisterRows formats the register for CSV output.
func RegisterRows(items []Payslip, f payroll.Formatter) []RegisterRow {
	lines := registerLines(items)
	rows := make([]RegisterRow, 0, len(lines))
	for _, l := range lines {
		a := make([]string, len(l.amounts))
		for i, v := range l.amounts {
			a[i] = f.Format(v)
		}
		rows = append(rows, RegisterRow{
			Employee: l.employee, PeriodStart: l.start, PeriodEnd: l.end, Status: l.status,
			SocialGross: a[0], FiscalGross: a[1], EmployeeContribution: a[2], FlatRateTax: a[3],
			IncomeTax: a[4], DirectDeductions: a[5], TotalWithheld: a[6], TotalBonuses: a[7],
			NetPay: a[8], EmployerContributions: a[9], EmployerLevy: a[10], EmployerCost: a[11],
		})
	}
	return rows
}

func WriteRegisterCSV(items []Payslip, f payroll.Formatter) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(RegisterRows(items, f), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRegisterXLSX keeps amounts as numeric cells, rounded like the
// formatted outputs.
func WriteRegisterXLSX(items []Payslip, f payroll.Formatter) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", registerSheet); err != nil {
		return nil, err
	}
	numFmt := "#,##0"
	if f.Places > 0 {
		numFmt += "." + strings.Repeat("0", int(f.Places))
	}
	amountStyle, err := x.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, err
	}
	boldStyle, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	firstAmount, _ := excelize.ColumnNumberToName(5)
	lastAmount, _ := excelize.ColumnNumberToName(len(registerHeaders))
	if err := x.SetColStyle(registerSheet, firstAmount+":"+lastAmount, amountStyle); err != nil {
		return nil, err
	}

	for i, h := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := x.SetCellValue(registerSheet, cell, h); err != nil {
			return nil, err
		}
	}
	if err := x.SetRowStyle(registerSheet, 1, 1, boldStyle); err != nil {
		return nil, err
	}

	lines := registerLines(items)
	for r, l := range lines {
		row := r + 2
		values := []any{l.employee, l.start, l.end, l.status}
		for _, v := range l.amounts {
			values = append(values, f.Round(v).InexactFloat64())
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := x.SetCellValue(registerSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, len(lines)+1)
	if err := x.SetCellStyle(registerSheet, totalCell, totalCell, boldStyle); err != nil {
		return nil, err
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportRegister writes the payroll register of every payslip inside period.
func (s *Service) ExportRegister(ctx context.Context, companyID string, period Period, format string) (out Export, err error) {
	ctx, span := s.startSpan(ctx, "payslip.ExportRegister", companyID, "")
	defer func() { endSpan(span, err) }()

	if err := period.Validate(); err != nil {
		return Export{}, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return Export{}, ErrUnsupportedFormat
	}

	items, err := s.Store.ListForPeriod(ctx, companyID, period)
	if err != nil {
		return Export{}, err
	}
	name := "payroll-register-" + period.StartDate.Format(dateLayout) + "_" + period.EndDate.Format(dateLayout) + "." + format

	if format == FormatXLSX {
		data, err := WriteRegisterXLSX(items, s.Formatter)
		if err != nil {
			return Export{}, err
		}
		return Export{FileName: name, ContentType: xlsxContentType, Data: data}, nil
	}
	data, err := WriteRegisterCSV(items, s.Formatter)
	if err != nil {
		return Export{}, err
	}
	return Export{FileName: name, ContentType: csvContentType, Data: data}, nil
}
