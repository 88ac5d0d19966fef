package payroll

import (
	"context"
	"time"
)

// StoredConfiguration is a rule configuration as persisted. Values may be
// partial; Resolve fills the gaps with the documented defaults.
type StoredConfiguration struct {
	Version   int           `json:"version"`
	Values    RuleOverrides `json:"values"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (s StoredConfiguration) Resolve() RuleConfiguration {
	cfg := ApplyDefaults(s.Values)
	cfg.Version = s.Version
	cfg.UpdatedAt = s.UpdatedAt
	return cfg
}

// StoreAPI is the persistence surface of the payroll service.
//
// CreatePayslip must reject a second payslip for the same (employee, month)
// with ErrPayslipExists. ActiveRuleConfigurations returns every row flagged
// active; the service decides what zero or several rows mean.
type StoreAPI interface {
	Ping(ctx context.Context) error
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListAbsences(ctx context.Context, monthReference string) ([]AbsenceRecord, error)
	ListOvertimes(ctx context.Context, monthReference string) ([]OvertimeRecord, error)
	ListPayslips(ctx context.Context, monthReference string) ([]Payslip, error)
	GetPayslip(ctx context.Context, id string) (Payslip, error)
	CreatePayslip(ctx context.Context, payslip Payslip) (Payslip, error)
	UpdatePayslipStatus(ctx context.Context, id, from, to string) error
	ActiveRuleConfigurations(ctx context.Context) ([]StoredConfiguration, error)
	SaveRuleConfiguration(ctx context.Context, cfg RuleConfiguration) (StoredConfiguration, error)
	CreateJobRun(ctx context.Context, jobType string) (string, error)
	UpdateJobRun(ctx context.Context, runID, status string, detailsJSON []byte) error
}

// StoredFrom is the persisted form of a fully resolved configuration.
func StoredFrom(cfg RuleConfiguration, version int, updatedAt time.Time) StoredConfiguration {
	name := cfg.Name
	workDays := cfg.WorkDaysPerMonth
	workHours := cfg.WorkHoursPerDay
	overtime50 := cfg.Overtime50Percent
	overtime100 := cfg.Overtime100Percent
	absenceDiscount := cfg.AbsenceDiscountEnabled
	certificateDiscount := cfg.MedicalCertificateDiscount
	inss := cfg.INSSEnabled
	irrf := cfg.IRRFEnabled
	vtPercent := cfg.VTDiscountPercent
	vt := cfg.VTEnabled
	return StoredConfiguration{
		Version:   version,
		UpdatedAt: updatedAt,
		Values: RuleOverrides{
			Name:                       &name,
			WorkDaysPerMonth:           &workDays,
			WorkHoursPerDay:            &workHours,
			Overtime50Percent:          &overtime50,
			Overtime100Percent:         &overtime100,
			AbsenceDiscountEnabled:     &absenceDiscount,
			MedicalCertificateDiscount: &certificateDiscount,
			INSSEnabled:                &inss,
			IRRFEnabled:                &irrf,
			VTDiscountPercent:          &vtPercent,
			VTEnabled:                  &vt,
		},
	}
}
