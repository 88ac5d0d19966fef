package payroll

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusInactive   = "inactive"
	EmployeeStatusOnLeave    = "on_leave"
	EmployeeStatusTerminated = "terminated"

	AbsenceCategoryAbsence            = "absence"
	AbsenceCategoryMedicalCertificate = "medical_certificate"
	AbsenceCategoryJustified          = "justified"

	OvertimeTier50  = "50"
	OvertimeTier100 = "100"

	OvertimeStatusPending  = "pending"
	OvertimeStatusApproved = "approved"
	OvertimeStatusRejected = "rejected"

	PayslipStatusDraft    = "draft"
	PayslipStatusApproved = "approved"
	PayslipStatusPaid     = "paid"

	WarningMissingSalary = "missing_salary"
	WarningInvalidSalary = "invalid_salary"
	WarningNegativeGross = "negative_gross"

	SkipReasonPayslipExists = "payslip_exists"

	DefaultConfigurationName = "default"

	JobPayrollGeneration = "payroll_generation"
)
