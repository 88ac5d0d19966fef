package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func salaried(id, salary string) Employee {
	return Employee{ID: id, Name: "Employee " + id, BaseSalary: decimal.NewNullDecimal(dec(salary)), Status: EmployeeStatusActive}
}
