package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EmployeeError reports why a single employee could not be computed.
type EmployeeError struct {
	EmployeeID string
	Code       string
	Err        error
	Detail     string
}

func (e *EmployeeError) Error() string {
	return fmt.Sprintf("employee %s: %v: %s", e.EmployeeID, e.Err, e.Detail)
}

func (e *EmployeeError) Unwrap() error {
	return e.Err
}

func (e *EmployeeError) Warning() EmployeeWarning {
	return EmployeeWarning{EmployeeID: e.EmployeeID, Code: e.Code, Message: e.Err.Error() + ": " + e.Detail}
}

// eligibleSalary returns the base salary of an employee that can be paid.
func eligibleSalary(employee Employee) (decimal.Decimal, error) {
	if !employee.BaseSalary.Valid {
		return decimal.Zero, &EmployeeError{EmployeeID: employee.ID, Code: WarningMissingSalary, Err: ErrInvalidEmployeeRecord, Detail: "salary is missing"}
	}
	salary := employee.BaseSalary.Decimal
	if !salary.IsPositive() {
		return decimal.Zero, &EmployeeError{EmployeeID: employee.ID, Code: WarningInvalidSalary, Err: ErrInvalidEmployeeRecord, Detail: "salary " + salary.String() + " is not positive"}
	}
	return salary, nil
}

// ComputePayslip builds the draft payslip of one employee for one month.
// absences and overtimes must already be scoped to that employee and month.
func ComputePayslip(employee Employee, month string, absences []AbsenceRecord, overtimes []OvertimeRecord, cfg RuleConfiguration) (Payslip, error) {
	salary, err := eligibleSalary(employee)
	if err != nil {
		return Payslip{}, err
	}

	absence := AggregateAbsences(absences, DailyRate(salary, cfg), cfg)
	overtime := AggregateOvertime(overtimes, HourlyRate(salary, cfg), cfg)

	// absence.Discount leaves the payslip here and only here.
	gross := salary.Add(overtime.Total).Sub(absence.Discount)
	if gross.IsNegative() {
		return Payslip{}, &EmployeeError{EmployeeID: employee.ID, Code: WarningNegativeGross, Err: ErrNegativeGross, Detail: "gross " + gross.StringFixed(2)}
	}

	inss := decimal.Zero
	if cfg.INSSEnabled {
		inss = SocialSecurityWithholding(gross)
	}
	irrf := decimal.Zero
	if cfg.IRRFEnabled {
		irrf = decimal.Max(decimal.Zero, IncomeTaxWithholding(gross, inss))
	}
	vt := decimal.Zero
	if cfg.VTEnabled {
		vt = salary.Mul(cfg.VTDiscountPercent).Div(hundred)
	}

	workDays := cfg.WorkDaysPerMonth - absence.AbsenceDays - absence.CertificateDays
	if workDays < 0 {
		workDays = 0
	}

	return Payslip{
		EmployeeID:             employee.ID,
		EmployeeName:           employee.Name,
		MonthReference:         month,
		BaseSalary:             salary,
		WorkDays:               workDays,
		AbsencesDays:           absence.AbsenceDays,
		AbsencesDiscount:       absence.Discount,
		MedicalCertificateDays: absence.CertificateDays,
		Overtime50Hours:        overtime.Hours50,
		Overtime50Value:        overtime.Value50,
		Overtime100Hours:       overtime.Hours100,
		Overtime100Value:       overtime.Value100,
		TotalOvertime:          overtime.Total,
		INSSValue:              inss,
		IRRFValue:              irrf,
		VTDiscount:             vt,
		GrossSalary:            gross,
		TotalDiscounts:         absence.Discount.Add(inss).Add(irrf).Add(vt),
		NetSalary:              gross.Sub(inss).Sub(irrf).Sub(vt),
		Status:                 PayslipStatusDraft,
		ConfigVersion:          cfg.Version,
	}, nil
}
