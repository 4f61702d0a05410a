package payroll

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func requireDecimal(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: expected %d, got %s", field, want, got.String())
	}
}

func TestComputeStandardSlip(t *testing.T) {
	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(300_000)},
		Bonuses:      Bonuses{Transport: NewAmount(26_000)},
		TaxShares:    NewAmount(1),
	})

	requireDecimal(t, 300_000, res.SocialGross, "socialGross")
	requireDecimal(t, 300_000, res.FiscalGross, "fiscalGross")
	requireDecimal(t, 16_800, res.EmployeeSocialContribution, "employeeSocialContribution")
	requireDecimal(t, 500, res.FlatRateTax, "flatRateTax")
	requireDecimal(t, 41_250, res.IncomeTax, "incomeTax")
	requireDecimal(t, 58_550, res.TotalWithheld, "totalWithheld")
	requireDecimal(t, 241_450, res.NetBeforeBonuses, "netBeforeBonuses")
	requireDecimal(t, 26_000, res.TotalBonuses, "totalBonuses")
	requireDecimal(t, 267_450, res.NetPay, "netPay")
	requireDecimal(t, 25_200, res.Contributions.EmployerPension, "employerPension")
	requireDecimal(t, 4_410, res.Contributions.FamilyAllowance, "familyAllowance")
	requireDecimal(t, 630, res.Contributions.WorkplaceAccident, "workplaceAccident")
	requireDecimal(t, 30_240, res.EmployerSocialContributions, "employerSocialContributions")
	requireDecimal(t, 9_000, res.EmployerLevy, "employerLevy")
	requireDecimal(t, 365_240, res.EmployerCost, "employerCost")
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestComputeLowIncomeIsExempt(t *testing.T) {
	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(40_000)},
		TaxShares:    NewAmount(1),
	})
	requireDecimal(t, 0, res.IncomeTax, "incomeTax")
	requireDecimal(t, 300, res.FlatRateTax, "flatRateTax")
}

func TestComputeBenefitsInKindOnlyAffectFiscalBase(t *testing.T) {
	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(120_000), BenefitsInKind: NewAmount(13_000)},
		TaxShares:    NewAmount(1),
	})
	requireDecimal(t, 120_000, res.SocialGross, "socialGross")
	requireDecimal(t, 133_000, res.FiscalGross, "fiscalGross")
	requireDecimal(t, 400, res.FlatRateTax, "flatRateTax")
	requireDecimal(t, 6_720, res.EmployeeSocialContribution, "employeeSocialContribution")
	requireDecimal(t, 3_990, res.EmployerLevy, "employerLevy")
}

func TestComputeDirectDeductionsAreWithheld(t *testing.T) {
	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(40_000)},
		Deductions: Deductions{
			SalaryWithholding:    NewAmount(1_000),
			HealthInsuranceShare: NewAmount(2_000),
			Advances:             NewAmount(5_000),
		},
		TaxShares: NewAmount(1),
	})
	requireDecimal(t, 8_000, res.DirectDeductions, "directDeductions")
	// 8000 + 2240 + 300 + 0
	requireDecimal(t, 10_540, res.TotalWithheld, "totalWithheld")
	requireDecimal(t, 29_460, res.NetPay, "netPay")
}

func TestComputeDefaultsNonPositiveTaxShares(t *testing.T) {
	withZero := Compute(Input{Remuneration: Remuneration{BaseSalary: NewAmount(300_000)}})
	withOne := Compute(Input{Remuneration: Remuneration{BaseSalary: NewAmount(300_000)}, TaxShares: NewAmount(1)})

	require.True(t, withZero.TaxShares.Equal(d(1)))
	require.True(t, withZero.IncomeTax.Equal(withOne.IncomeTax))
	require.Equal(t, []string{WarningTaxSharesDefaulted}, withZero.Warnings)
	require.Empty(t, withOne.Warnings)
}

func TestComputeNegativeNetIsFlaggedNotClamped(t *testing.T) {
	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(10_000)},
		Deductions:   Deductions{Advances: NewAmount(50_000)},
		TaxShares:    NewAmount(1),
	})
	require.True(t, res.NetPay.IsNegative(), "net pay %s", res.NetPay)
	require.Contains(t, res.Warnings, WarningNegativeNet)
}

func TestComputeReservedComplementLinesStayZero(t *testing.T) {
	res := Compute(Input{Remuneration: Remuneration{BaseSalary: NewAmount(750_000)}, TaxShares: NewAmount(1)})
	require.True(t, res.Contributions.EmployeePensionComplement.IsZero())
	require.True(t, res.Contributions.EmployerPensionComplement.IsZero())
}

func TestComputeIsDeterministic(t *testing.T) {
	in := Input{
		Remuneration: Remuneration{
			BaseSalary:      AmountOf(decimal.RequireFromString("412345.67")),
			OvertimePay:     NewAmount(12_500),
			TravelAllowance: NewAmount(7_000),
			BenefitsInKind:  NewAmount(30_000),
		},
		Bonuses:    Bonuses{MealVoucher: NewAmount(15_000), Seniority: NewAmount(9_999)},
		Deductions: Deductions{Advances: NewAmount(20_000)},
		TaxShares:  AmountOf(decimal.RequireFromString("2.5")),
	}

	first, err := json.Marshal(Compute(in))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Compute(in))
		require.NoError(t, err)
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestIncomeTaxSplitsAcrossShares(t *testing.T) {
	// 150000 per share lands in the 20% bracket: 30000 - 18750 = 11250 per share.
	requireDecimal(t, 22_500, IncomeTax(d(300_000), d(2)), "incomeTax")
	requireDecimal(t, 41_250, IncomeTax(d(300_000), d(1)), "incomeTax")
	requireDecimal(t, 41_250, IncomeTax(d(300_000), d(-3)), "incomeTax")
}

func TestIncomeTaxBracketBoundaries(t *testing.T) {
	cases := []struct {
		fiscal int64
		want   int64
	}{
		{fiscal: 50_000, want: 0},
		{fiscal: 50_001, want: 0},
		{fiscal: 60_000, want: 500},
		{fiscal: 60_001, want: 0},
		{fiscal: 80_000, want: 2_000},
		{fiscal: 110_000, want: 5_500},
		{fiscal: 200_000, want: 21_250},
		{fiscal: 300_000, want: 41_250},
		{fiscal: 400_000, want: 61_250},
		{fiscal: 500_000, want: 86_250},
		{fiscal: 1_000_000, want: 281_250},
	}
	for _, tc := range cases {
		t.Run(d(tc.fiscal).String(), func(t *testing.T) {
			requireDecimal(t, tc.want, IncomeTax(d(tc.fiscal), d(1)), "incomeTax")
		})
	}
}

func TestIncomeTaxRoundsHalfAwayFromZero(t *testing.T) {
	// 50010.1 * 0.05 - 2500 = 0.505
	got := IncomeTax(decimal.RequireFromString("50010.1"), d(1))
	requireDecimal(t, 1, got, "incomeTax")
}

func TestIncomeTaxRoundsExactHalfAcrossUnevenShares(t *testing.T) {
	// 150010 / 3 lands in the 5% bracket: 7500.5 - 3 * 2500 = 0.5 exactly.
	requireDecimal(t, 1, IncomeTax(d(150_010), d(3)), "incomeTax")

	res := Compute(Input{
		Remuneration: Remuneration{BaseSalary: NewAmount(150_010)},
		TaxShares:    NewAmount(3),
	})
	requireDecimal(t, 1, res.IncomeTax, "incomeTax")
}

func TestFlatRateTaxBoundaries(t *testing.T) {
	cases := []struct {
		fiscal int64
		want   int64
	}{
		{fiscal: 0, want: 300},
		{fiscal: 85_000, want: 300},
		{fiscal: 85_001, want: 400},
		{fiscal: 133_000, want: 400},
		{fiscal: 133_001, want: 500},
		{fiscal: 999_999, want: 500},
		{fiscal: 1_000_000, want: 1_500},
		{fiscal: 5_000_000, want: 1_500},
	}
	for _, tc := range cases {
		t.Run(d(tc.fiscal).String(), func(t *testing.T) {
			requireDecimal(t, tc.want, FlatRateTax(d(tc.fiscal)), "flatRateTax")
		})
	}
}

func TestFiscalGrossIsMonotonicInBaseSalary(t *testing.T) {
	prev := decimal.Zero
	for base := int64(0); base <= 2_000_000; base += 37_500 {
		res := Compute(Input{
			Remuneration: Remuneration{BaseSalary: NewAmount(base), BenefitsInKind: NewAmount(10_000)},
			TaxShares:    NewAmount(1),
		})
		if res.FiscalGross.LessThan(prev) {
			t.Fatalf("fiscal gross decreased at base %d: %s < %s", base, res.FiscalGross, prev)
		}
		prev = res.FiscalGross
	}
}

func TestDoublingSharesNeverIncreasesIncomeTax(t *testing.T) {
	for fiscal := int64(0); fiscal <= 3_000_000; fiscal += 12_345 {
		for _, shares := range []int64{1, 2, 3, 5} {
			single := IncomeTax(d(fiscal), d(shares))
			doubled := IncomeTax(d(fiscal), d(shares*2))
			if doubled.GreaterThan(single) {
				t.Fatalf("fiscal %d shares %d: doubled %s > single %s", fiscal, shares, doubled, single)
			}
		}
	}
}

func TestResultsStayNonNegative(t *testing.T) {
	for base := int64(0); base <= 1_500_000; base += 50_000 {
		res := Compute(Input{Remuneration: Remuneration{BaseSalary: NewAmount(base)}, TaxShares: NewAmount(1)})
		if res.IncomeTax.IsNegative() || res.EmployeeSocialContribution.IsNegative() {
			t.Fatalf("negative figure at base %d: %+v", base, res)
		}
		switch res.FlatRateTax.IntPart() {
		case 300, 400, 500, 1500:
		default:
			t.Fatalf("unexpected flat rate %s", res.FlatRateTax)
		}
	}
}

func TestBracketsReturnsCopy(t *testing.T) {
	table := Brackets()
	require.Len(t, table, 9)
	table[0].Rate = decimal.Zero
	require.True(t, BracketFor(d(600_000)).Rate.Equal(decimal.RequireFromString("0.40")))
	require.True(t, BracketFor(d(50_000)).Rate.IsZero())
}
