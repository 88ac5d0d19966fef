package payroll

import "errors"

// GeneratePayroll computes the draft payslips of month for every eligible
// employee that has none yet. It is pure: existing holds the payslips already
// stored, and the caller persists the result. At most one payslip per employee
// and month is produced, even when employees repeats an ID.
func GeneratePayroll(month string, employees []Employee, absences []AbsenceRecord, overtimes []OvertimeRecord, existing []Payslip, cfg RuleConfiguration) GenerationResult {
	result := GenerationResult{
		MonthReference: month,
		ConfigVersion:  cfg.Version,
		Payslips:       []Payslip{},
		Skipped:        []SkippedEmployee{},
		Warnings:       []EmployeeWarning{},
	}

	generated := make(map[string]bool, len(existing))
	for _, slip := range existing {
		if slip.MonthReference == month {
			generated[slip.EmployeeID] = true
		}
	}

	absencesByEmployee := make(map[string][]AbsenceRecord)
	for _, record := range absences {
		if record.MonthReference == month {
			absencesByEmployee[record.EmployeeID] = append(absencesByEmployee[record.EmployeeID], record)
		}
	}
	overtimesByEmployee := make(map[string][]OvertimeRecord)
	for _, record := range overtimes {
		if record.MonthReference == month && record.Status == OvertimeStatusApproved {
			overtimesByEmployee[record.EmployeeID] = append(overtimesByEmployee[record.EmployeeID], record)
		}
	}

	for _, employee := range employees {
		if employee.Status != EmployeeStatusActive {
			continue
		}
		if generated[employee.ID] {
			result.Skipped = append(result.Skipped, SkippedEmployee{EmployeeID: employee.ID, Reason: SkipReasonPayslipExists})
			continue
		}
		if _, err := eligibleSalary(employee); err != nil {
			result.Warnings = append(result.Warnings, warningFor(employee.ID, err))
			continue
		}

		slip, err := ComputePayslip(employee, month, absencesByEmployee[employee.ID], overtimesByEmployee[employee.ID], cfg)
		if err != nil {
			result.Warnings = append(result.Warnings, warningFor(employee.ID, err))
			continue
		}
		generated[employee.ID] = true
		result.Payslips = append(result.Payslips, slip)
	}
	return result
}

func warningFor(employeeID string, err error) EmployeeWarning {
	var employeeErr *EmployeeError
	if errors.As(err, &employeeErr) {
		return employeeErr.Warning()
	}
	return EmployeeWarning{EmployeeID: employeeID, Code: "computation_failed", Message: err.Error()}
}
