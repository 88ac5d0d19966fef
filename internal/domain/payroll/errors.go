package payroll

import "errors"

var (
	ErrConfigurationMissing    = errors.New("payroll rule configuration not found")
	ErrAmbiguousConfiguration  = errors.New("more than one active payroll rule configuration")
	ErrInvalidConfiguration    = errors.New("invalid payroll rule configuration")
	ErrInvalidEmployeeRecord   = errors.New("invalid employee record")
	ErrNegativeGross           = errors.New("gross salary is negative")
	ErrInvalidMonthReference   = errors.New("month reference must be YYYY-MM")
	ErrPayslipExists           = errors.New("payslip already exists for employee and month")
	ErrPayslipNotFound         = errors.New("payslip not found")
	ErrInvalidStatusTransition = errors.New("invalid payslip status transition")
)
