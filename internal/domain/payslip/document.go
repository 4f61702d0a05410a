package payslip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hrpay/internal/domain/company"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/storage"
)

const (
	pdfContentType    = "application/pdf"
	sealedContentType = "application/octet-stream"
	sealedSuffix      = ".enc"
)

// Column layout on an A4 page, in millimetres.
const (
	pageMargin = 15.0
	rowHeight  = 6.0
	colLabelX  = 15.0
	colLabelW  = 70.0
	colBaseX   = 85.0
	colBaseW   = 30.0
	colRateX   = 115.0
	colRateW   = 20.0
	colEmpX    = 135.0
	colEmpW    = 30.0
	colErX     = 165.0
	colErW     = 30.0
	tableTop   = 64.0
)

type pdfRow struct {
	label    string
	base     string
	rate     string
	employee string
	employer string
	bold     bool
	rule     bool
}

// RenderPDF lays out p on a single A4 page. Every amount goes through f.
func RenderPDF(c company.Company, p Payslip, f payroll.Formatter, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	currency := c.Currency
	if currency == "" {
		currency = company.DefaultCurrency
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(pageMargin, 15)
	pdf.CellFormat(100, 7, tr(c.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(pageMargin, 22)
	pdf.MultiCell(100, 4.5, tr(c.Address), "", "L", false)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(120, 15)
	pdf.CellFormat(75, 7, "PAYSLIP", "", 0, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(120, 22)
	pdf.CellFormat(75, 5, "Period: "+p.Period.String(), "", 0, "R", false, 0, "")
	pdf.SetXY(120, 27)
	pdf.CellFormat(75, 5, "Status: "+strings.ReplaceAll(p.Status, "_", " "), "", 0, "R", false, 0, "")

	pdf.Rect(pageMargin, 38, 180, 18, "D")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(18, 40)
	pdf.CellFormat(120, 6, tr(p.EmployeeName), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(18, 47)
	pdf.CellFormat(120, 5, "Payslip "+p.ID, "", 0, "L", false, 0, "")
	pdf.SetXY(130, 47)
	pdf.CellFormat(62, 5, "Tax shares: "+p.Result.TaxShares.String(), "", 0, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	header := pdfRow{label: "Item", base: "Base", rate: "Rate", employee: "Employee", employer: "Employer"}
	drawRow(pdf, tableTop, header, true)

	y := tableTop + rowHeight
	for _, row := range payslipRows(p.Result, p.Input, f) {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		if row.rule {
			pdf.Line(colLabelX, y, colErX+colErW, y)
		}
		drawRow(pdf, y, row, false)
		y += rowHeight
	}

	y += 2
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Rect(colEmpX-40, y, 100, 9, "D")
	pdf.SetXY(colEmpX-38, y+1.5)
	pdf.CellFormat(50, 6, "NET PAY", "", 0, "L", false, 0, "")
	pdf.CellFormat(46, 6, f.Format(p.Result.NetPay)+" "+currency, "", 0, "R", false, 0, "")

	y += 12
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(colEmpX-40, y)
	pdf.CellFormat(50, 5, "Employer cost", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 5, f.Format(p.Result.EmployerCost)+" "+currency, "", 0, "R", false, 0, "")

	if len(p.Result.Warnings) > 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetXY(pageMargin, y+8)
		pdf.CellFormat(180, 5, "Warnings: "+strings.Join(p.Result.Warnings, ", "), "", 0, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetXY(pageMargin, 282)
	pdf.CellFormat(180, 4, fmt.Sprintf("Amounts in %s. Generated %s.", currency, generatedAt.UTC().Format(time.RFC3339)), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawRow(pdf *gofpdf.Fpdf, y float64, row pdfRow, fill bool) {
	border := ""
	if fill {
		border = "1"
	}
	pdf.SetXY(colLabelX, y)
	pdf.CellFormat(colLabelW, rowHeight, row.label, border, 0, "L", fill, 0, "")
	pdf.CellFormat(colBaseW, rowHeight, row.base, border, 0, "R", fill, 0, "")
	pdf.CellFormat(colRateW, rowHeight, row.rate, border, 0, "R", fill, 0, "")
	pdf.CellFormat(colEmpW, rowHeight, row.employee, border, 0, "R", fill, 0, "")
	pdf.CellFormat(colErW, rowHeight, row.employer, border, 0, "R", fill, 0, "")
}

func payslipRows(res payroll.Result, in payroll.Input, f payroll.Formatter) []pdfRow {
	rates := payroll.Rates()
	amt := f.Format
	c := res.Contributions

	return []pdfRow{
		{label: "Base salary", base: amt(in.Remuneration.BaseSalary.Decimal())},
		{label: "Overtime", base: amt(in.Remuneration.OvertimePay.Decimal())},
		{label: "Travel allowance", base: amt(in.Remuneration.TravelAllowance.Decimal())},
		{label: "Other allowances", base: amt(in.Remuneration.OtherAllowances.Decimal())},
		{label: "Social gross", base: amt(res.SocialGross), bold: true, rule: true},
		{label: "Benefits in kind", base: amt(in.Remuneration.BenefitsInKind.Decimal())},
		{label: "Fiscal gross", base: amt(res.FiscalGross), bold: true, rule: true},
		{label: "Pension", base: amt(res.SocialGross), rate: f.Percent(rates.EmployeePension),
			employee: amt(c.EmployeePension), employer: amt(c.EmployerPension)},
		{label: "Pension complement", base: amt(res.SocialGross), rate: f.Percent(rates.PensionComplement),
			employee: amt(c.EmployeePensionComplement), employer: amt(c.EmployerPensionComplement)},
		{label: "Family allowance", base: amt(rates.CappedBase), rate: f.Percent(rates.FamilyAllowance),
			employer: amt(c.FamilyAllowance)},
		{label: "Workplace accident", base: amt(rates.CappedBase), rate: f.Percent(rates.WorkplaceAccident),
			employer: amt(c.WorkplaceAccident)},
		{label: "Employer levy", base: amt(res.FiscalGross), rate: f.Percent(rates.EmployerLevy),
			employer: amt(res.EmployerLevy)},
		{label: "Flat-rate tax", base: amt(res.FiscalGross), employee: amt(res.FlatRateTax)},
		{label: "Income tax", base: amt(res.PerShareIncome), employee: amt(res.IncomeTax)},
		{label: "Salary withholding", employee: amt(in.Deductions.SalaryWithholding.Decimal())},
		{label: "Health insurance share", employee: amt(in.Deductions.HealthInsuranceShare.Decimal())},
		{label: "Advances", employee: amt(in.Deductions.Advances.Decimal())},
		{label: "Total withheld", employee: amt(res.TotalWithheld),
			employer: amt(res.EmployerSocialContributions.Add(res.EmployerLevy)), bold: true, rule: true},
		{label: "Net before bonuses", base: amt(res.NetBeforeBonuses), bold: true},
		{label: "Transport bonus", base: amt(in.Bonuses.Transport.Decimal())},
		{label: "Meal voucher", base: amt(in.Bonuses.MealVoucher.Decimal())},
		{label: "Seniority bonus", base: amt(in.Bonuses.Seniority.Decimal())},
		{label: "Responsibility bonus", base: amt(in.Bonuses.Responsibility.Decimal())},
		{label: "Other bonuses", base: amt(in.Bonuses.OtherBonuses.Decimal())},
		{label: "Total bonuses", base: amt(res.TotalBonuses), bold: true, rule: true},
	}
}

func documentKey(companyID, id string, sealed bool) string {
	key := "payslips/" + companyID + "/" + id + ".pdf"
	if sealed {
		key += sealedSuffix
	}
	return key
}

// RenderDocument generates the PDF, stores it and records its location on
// the payslip.
func (s *Service) RenderDocument(ctx context.Context, companyID, id string) (p Payslip, err error) {
	ctx, span := s.startSpan(ctx, "payslip.RenderDocument", companyID, id)
	defer func() { endSpan(span, err) }()

	if s.Storage == nil {
		return Payslip{}, errors.New("document storage not configured")
	}
	p, err = s.Store.Get(ctx, companyID, id)
	if err != nil {
		return Payslip{}, err
	}
	c, err := s.Companies.Get(ctx, companyID)
	if err != nil {
		return Payslip{}, err
	}
	data, err := RenderPDF(c, p, s.Formatter, s.Now())
	if err != nil {
		return Payslip{}, fmt.Errorf("render payslip pdf: %w", err)
	}

	sealed := s.Crypto.Configured()
	contentType := pdfContentType
	if sealed {
		if data, err = s.Crypto.Encrypt(data); err != nil {
			return Payslip{}, fmt.Errorf("encrypt payslip pdf: %w", err)
		}
		contentType = sealedContentType
	}
	location, err := s.Storage.Put(ctx, documentKey(companyID, id, sealed), data, contentType)
	if err != nil {
		return Payslip{}, err
	}
	if err := s.Store.SetFileURL(ctx, companyID, id, location); err != nil {
		return Payslip{}, err
	}
	s.Metrics.RecordDocument()
	p.FileURL = location
	return p, nil
}

// Document loads the stored PDF, decrypting it when it was sealed.
func (s *Service) Document(ctx context.Context, companyID, id string) (Document, error) {
	p, err := s.Store.Get(ctx, companyID, id)
	if err != nil {
		return Document{}, err
	}
	if p.FileURL == "" || s.Storage == nil {
		return Document{}, ErrNoDocument
	}
	key, err := storage.KeyFromLocation(p.FileURL)
	if err != nil {
		return Document{}, err
	}
	data, err := s.Storage.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return Document{}, ErrNoDocument
	}
	if err != nil {
		return Document{}, err
	}
	if strings.HasSuffix(key, sealedSuffix) {
		if !s.Crypto.Configured() {
			return Document{}, errors.New("payslip document is encrypted and no key is configured")
		}
		if data, err = s.Crypto.Decrypt(data); err != nil {
			return Document{}, fmt.Errorf("decrypt payslip pdf: %w", err)
		}
	}
	return Document{
		PayslipID:   id,
		FileName:    "payslip-" + id + ".pdf",
		ContentType: pdfContentType,
		Data:        data,
	}, nil
}
