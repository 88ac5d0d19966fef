package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePayrollIsIdempotent(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	employees := []Employee{salaried("e1", "3000"), salaried("e2", "2200")}

	first := GeneratePayroll("2024-05", employees, nil, nil, nil, cfg)
	require.Len(t, first.Payslips, 2)
	assert.Empty(t, first.Skipped)

	second := GeneratePayroll("2024-05", employees, nil, nil, first.Payslips, cfg)
	assert.Empty(t, second.Payslips)
	assert.Len(t, second.Skipped, 2)
	for _, skipped := range second.Skipped {
		assert.Equal(t, SkipReasonPayslipExists, skipped.Reason)
	}
}

func TestGeneratePayrollScopesRecordsToEmployeeAndMonth(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	employees := []Employee{salaried("e1", "2200"), salaried("e2", "2200")}
	absences := []AbsenceRecord{
		{EmployeeID: "e1", MonthReference: "2024-05", Category: AbsenceCategoryAbsence, DaysOff: 1, DiscountSalary: true},
		{EmployeeID: "e1", MonthReference: "2024-04", Category: AbsenceCategoryAbsence, DaysOff: 3, DiscountSalary: true},
	}
	overtimes := []OvertimeRecord{
		{EmployeeID: "e2", MonthReference: "2024-05", Hours: dec("10"), Tier: OvertimeTier50, Status: OvertimeStatusApproved},
		{EmployeeID: "e2", MonthReference: "2024-05", Hours: dec("8"), Tier: OvertimeTier50, Status: OvertimeStatusPending},
		{EmployeeID: "e1", MonthReference: "2024-06", Hours: dec("8"), Tier: OvertimeTier100, Status: OvertimeStatusApproved},
	}

	result := GeneratePayroll("2024-05", employees, absences, overtimes, nil, cfg)
	require.Len(t, result.Payslips, 2)

	byEmployee := map[string]Payslip{}
	for _, slip := range result.Payslips {
		byEmployee[slip.EmployeeID] = slip
	}
	assertDecimal(t, "100", byEmployee["e1"].AbsencesDiscount)
	assertDecimal(t, "0", byEmployee["e1"].TotalOvertime)
	assertDecimal(t, "0", byEmployee["e2"].AbsencesDiscount)
	assertDecimal(t, "187.5", byEmployee["e2"].Overtime50Value)
}

func TestGeneratePayrollReportsInvalidEmployeesAndContinues(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	employees := []Employee{
		{ID: "missing", Name: "No Salary", Status: EmployeeStatusActive},
		{ID: "negative", Name: "Negative", BaseSalary: decimal.NewNullDecimal(dec("-10")), Status: EmployeeStatusActive},
		salaried("ok", "3000"),
	}

	result := GeneratePayroll("2024-05", employees, nil, nil, nil, cfg)

	require.Len(t, result.Payslips, 1)
	assert.Equal(t, "ok", result.Payslips[0].EmployeeID)
	require.Len(t, result.Warnings, 2)
	codes := map[string]string{}
	for _, warning := range result.Warnings {
		codes[warning.EmployeeID] = warning.Code
		assert.NotEmpty(t, warning.Message)
	}
	assert.Equal(t, WarningMissingSalary, codes["missing"])
	assert.Equal(t, WarningInvalidSalary, codes["negative"])
}

func TestGeneratePayrollSkipsExistingPayslipBeforeCheckingSalary(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	existing := []Payslip{
		{EmployeeID: "cleared", MonthReference: "2024-05"},
		{EmployeeID: "zeroed", MonthReference: "2024-05"},
	}
	employees := []Employee{
		{ID: "cleared", Name: "Salary Removed", Status: EmployeeStatusActive},
		{ID: "zeroed", Name: "Salary Zeroed", BaseSalary: decimal.NewNullDecimal(decimal.Zero), Status: EmployeeStatusActive},
	}

	result := GeneratePayroll("2024-05", employees, nil, nil, existing, cfg)

	assert.Empty(t, result.Payslips)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Skipped, 2)
	for _, skipped := range result.Skipped {
		assert.Equal(t, SkipReasonPayslipExists, skipped.Reason)
	}
}

func TestGeneratePayrollSkipsInactiveEmployeesSilently(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	inactive := salaried("gone", "3000")
	inactive.Status = EmployeeStatusTerminated
	broken := Employee{ID: "broken", Status: EmployeeStatusInactive}

	result := GeneratePayroll("2024-05", []Employee{inactive, broken}, nil, nil, nil, cfg)

	assert.Empty(t, result.Payslips)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Warnings)
}

func TestGeneratePayrollOnePayslipPerEmployee(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	employee := salaried("e1", "3000")

	result := GeneratePayroll("2024-05", []Employee{employee, employee}, nil, nil, nil, cfg)

	assert.Len(t, result.Payslips, 1)
	assert.Len(t, result.Skipped, 1)
}

func TestGeneratePayrollIgnoresPayslipsOfOtherMonths(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	existing := []Payslip{{EmployeeID: "e1", MonthReference: "2024-04"}}

	result := GeneratePayroll("2024-05", []Employee{salaried("e1", "3000")}, nil, nil, existing, cfg)

	assert.Len(t, result.Payslips, 1)
}

func TestGeneratePayrollOrderDoesNotChangeResult(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	employees := []Employee{salaried("a", "1800"), salaried("b", "5200"), salaried("c", "9100")}
	reversed := []Employee{employees[2], employees[1], employees[0]}

	forward := GeneratePayroll("2024-05", employees, nil, nil, nil, cfg)
	backward := GeneratePayroll("2024-05", reversed, nil, nil, nil, cfg)

	index := map[string]Payslip{}
	for _, slip := range forward.Payslips {
		index[slip.EmployeeID] = slip
	}
	require.Len(t, backward.Payslips, len(forward.Payslips))
	for _, slip := range backward.Payslips {
		assert.True(t, index[slip.EmployeeID].NetSalary.Equal(slip.NetSalary))
	}
}

func TestGenerationSummary(t *testing.T) {
	result := GenerationResult{
		MonthReference: "2024-05",
		Payslips:       []Payslip{{}, {}},
		Skipped:        []SkippedEmployee{{}},
	}
	assert.Equal(t, GenerationSummary{MonthReference: "2024-05", Created: 2, Skipped: 1}, result.Summary())
}
