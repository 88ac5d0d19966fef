package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	BaseSalary decimal.NullDecimal `json:"baseSalary"`
	Status     string              `json:"status"`
}

type AbsenceRecord struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId"`
	Date           time.Time `json:"date"`
	MonthReference string    `json:"monthReference"`
	Category       string    `json:"category"`
	DaysOff        int       `json:"daysOff"`
	DiscountSalary bool      `json:"discountSalary"`
}

// Days returns DaysOff, reading an unset value as a single day.
func (a AbsenceRecord) Days() int {
	if a.DaysOff <= 0 {
		return 1
	}
	return a.DaysOff
}

type OvertimeRecord struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employeeId"`
	Date           time.Time       `json:"date"`
	MonthReference string          `json:"monthReference"`
	Hours          decimal.Decimal `json:"hours"`
	Tier           string          `json:"tier"`
	Status         string          `json:"status"`
}

type Payslip struct {
	ID                     string          `json:"id"`
	EmployeeID             string          `json:"employeeId"`
	EmployeeName           string          `json:"employeeName"`
	MonthReference         string          `json:"monthReference"`
	BaseSalary             decimal.Decimal `json:"baseSalary"`
	WorkDays               int             `json:"workDays"`
	AbsencesDays           int             `json:"absencesDays"`
	AbsencesDiscount       decimal.Decimal `json:"absencesDiscount"`
	MedicalCertificateDays int             `json:"medicalCertificateDays"`
	Overtime50Hours        decimal.Decimal `json:"overtime50Hours"`
	Overtime50Value        decimal.Decimal `json:"overtime50Value"`
	Overtime100Hours       decimal.Decimal `json:"overtime100Hours"`
	Overtime100Value       decimal.Decimal `json:"overtime100Value"`
	TotalOvertime          decimal.Decimal `json:"totalOvertime"`
	INSSValue              decimal.Decimal `json:"inssValue"`
	IRRFValue              decimal.Decimal `json:"irrfValue"`
	VTDiscount             decimal.Decimal `json:"vtDiscount"`
	GrossSalary            decimal.Decimal `json:"grossSalary"`
	TotalDiscounts         decimal.Decimal `json:"totalDiscounts"`
	NetSalary              decimal.Decimal `json:"netSalary"`
	Status                 string          `json:"status"`
	ConfigVersion          int             `json:"configVersion"`
	CreatedAt              time.Time       `json:"createdAt"`
}

// Rounded returns the payslip in currency presentation: every amount is rounded
// to cents and the derived totals are recomputed from the rounded parts, so
// gross = base + overtime - absences and net + inss + irrf + vt = gross hold
// exactly on the stored values.
func (p Payslip) Rounded() Payslip {
	r := p
	r.BaseSalary = money(p.BaseSalary)
	r.AbsencesDiscount = money(p.AbsencesDiscount)
	r.Overtime50Hours = p.Overtime50Hours.Round(2)
	r.Overtime100Hours = p.Overtime100Hours.Round(2)
	r.Overtime50Value = money(p.Overtime50Value)
	r.Overtime100Value = money(p.Overtime100Value)
	r.TotalOvertime = r.Overtime50Value.Add(r.Overtime100Value)
	r.GrossSalary = r.BaseSalary.Add(r.TotalOvertime).Sub(r.AbsencesDiscount)
	r.INSSValue = money(p.INSSValue)
	r.IRRFValue = money(p.IRRFValue)
	r.VTDiscount = money(p.VTDiscount)
	r.TotalDiscounts = r.AbsencesDiscount.Add(r.INSSValue).Add(r.IRRFValue).Add(r.VTDiscount)
	r.NetSalary = r.GrossSalary.Sub(r.INSSValue).Sub(r.IRRFValue).Sub(r.VTDiscount)
	return r
}

func money(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// SkippedEmployee is an eligible employee left untouched by a generation run.
type SkippedEmployee struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

// EmployeeWarning is a per-employee failure; it never aborts the batch.
type EmployeeWarning struct {
	EmployeeID string `json:"employeeId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

type GenerationResult struct {
	MonthReference string            `json:"monthReference"`
	ConfigVersion  int               `json:"configVersion"`
	Payslips       []Payslip         `json:"payslips"`
	Skipped        []SkippedEmployee `json:"skipped"`
	Warnings       []EmployeeWarning `json:"warnings"`
}

type GenerationSummary struct {
	MonthReference string `json:"monthReference"`
	Created        int    `json:"created"`
	Skipped        int    `json:"skipped"`
	Warnings       int    `json:"warnings"`
}

func (r GenerationResult) Summary() GenerationSummary {
	return GenerationSummary{
		MonthReference: r.MonthReference,
		Created:        len(r.Payslips),
		Skipped:        len(r.Skipped),
		Warnings:       len(r.Warnings),
	}
}
