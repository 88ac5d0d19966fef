package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RuleConfiguration controls which additions and deductions apply to a
// generation run and at which rates. It is always passed explicitly.
type RuleConfiguration struct {
	Name                       string          `json:"name"`
	Version                    int             `json:"version"`
	WorkDaysPerMonth           int             `json:"workDaysPerMonth"`
	WorkHoursPerDay            int             `json:"workHoursPerDay"`
	Overtime50Percent          decimal.Decimal `json:"overtime50Percent"`
	Overtime100Percent         decimal.Decimal `json:"overtime100Percent"`
	AbsenceDiscountEnabled     bool            `json:"absenceDiscountEnabled"`
	MedicalCertificateDiscount bool            `json:"medicalCertificateDiscount"`
	INSSEnabled                bool            `json:"inssEnabled"`
	IRRFEnabled                bool            `json:"irrfEnabled"`
	VTDiscountPercent          decimal.Decimal `json:"vtDiscountPercent"`
	VTEnabled                  bool            `json:"vtEnabled"`
	UpdatedAt                  time.Time       `json:"updatedAt"`
}

// RuleOverrides is a partial configuration. Nil fields keep the value they are
// merged over.
type RuleOverrides struct {
	Name                       *string          `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	WorkDaysPerMonth           *int             `json:"workDaysPerMonth,omitempty" validate:"omitempty,gt=0,lte=31"`
	WorkHoursPerDay            *int             `json:"workHoursPerDay,omitempty" validate:"omitempty,gt=0,lte=24"`
	Overtime50Percent          *decimal.Decimal `json:"overtime50Percent,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Overtime100Percent         *decimal.Decimal `json:"overtime100Percent,omitempty" validate:"omitempty,gte=0,lte=1000"`
	AbsenceDiscountEnabled     *bool            `json:"absenceDiscountEnabled,omitempty"`
	MedicalCertificateDiscount *bool            `json:"medicalCertificateDiscount,omitempty"`
	INSSEnabled                *bool            `json:"inssEnabled,omitempty"`
	IRRFEnabled                *bool            `json:"irrfEnabled,omitempty"`
	VTDiscountPercent          *decimal.Decimal `json:"vtDiscountPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	VTEnabled                  *bool            `json:"vtEnabled,omitempty"`
}

func DefaultRuleConfiguration() RuleConfiguration {
	return RuleConfiguration{
		Name:                       DefaultConfigurationName,
		WorkDaysPerMonth:           22,
		WorkHoursPerDay:            8,
		Overtime50Percent:          decimal.NewFromInt(50),
		Overtime100Percent:         decimal.NewFromInt(100),
		AbsenceDiscountEnabled:     true,
		MedicalCertificateDiscount: false,
		INSSEnabled:                true,
		IRRFEnabled:                true,
		VTDiscountPercent:          decimal.NewFromInt(6),
		VTEnabled:                  true,
	}
}

// ApplyDefaults fills every field missing from o with the documented default.
func ApplyDefaults(o RuleOverrides) RuleConfiguration {
	return DefaultRuleConfiguration().Merge(o)
}

// Merge returns c with every non-nil field of o applied. c is not modified.
func (c RuleConfiguration) Merge(o RuleOverrides) RuleConfiguration {
	out := c
	if o.Name != nil {
		out.Name = strings.TrimSpace(*o.Name)
	}
	if o.WorkDaysPerMonth != nil {
		out.WorkDaysPerMonth = *o.WorkDaysPerMonth
	}
	if o.WorkHoursPerDay != nil {
		out.WorkHoursPerDay = *o.WorkHoursPerDay
	}
	if o.Overtime50Percent != nil {
		out.Overtime50Percent = *o.Overtime50Percent
	}
	if o.Overtime100Percent != nil {
		out.Overtime100Percent = *o.Overtime100Percent
	}
	if o.AbsenceDiscountEnabled != nil {
		out.AbsenceDiscountEnabled = *o.AbsenceDiscountEnabled
	}
	if o.MedicalCertificateDiscount != nil {
		out.MedicalCertificateDiscount = *o.MedicalCertificateDiscount
	}
	if o.INSSEnabled != nil {
		out.INSSEnabled = *o.INSSEnabled
	}
	if o.IRRFEnabled != nil {
		out.IRRFEnabled = *o.IRRFEnabled
	}
	if o.VTDiscountPercent != nil {
		out.VTDiscountPercent = *o.VTDiscountPercent
	}
	if o.VTEnabled != nil {
		out.VTEnabled = *o.VTEnabled
	}
	return out
}

// Validate checks the preconditions the proration and aggregation steps rely on.
func (c RuleConfiguration) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfiguration)
	case c.WorkDaysPerMonth <= 0:
		return fmt.Errorf("%w: work days per month must be positive", ErrInvalidConfiguration)
	case c.WorkHoursPerDay <= 0:
		return fmt.Errorf("%w: work hours per day must be positive", ErrInvalidConfiguration)
	case c.Overtime50Percent.IsNegative(), c.Overtime100Percent.IsNegative():
		return fmt.Errorf("%w: overtime percentages must not be negative", ErrInvalidConfiguration)
	case c.VTDiscountPercent.IsNegative(), c.VTDiscountPercent.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: transport discount percent must be between 0 and 100", ErrInvalidConfiguration)
	}
	return nil
}
