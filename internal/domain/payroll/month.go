package payroll

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// ParseMonthReference validates a YYYY-MM key and returns it normalized.
func ParseMonthReference(value string) (string, error) {
	parsed, err := time.Parse(monthLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthReference, value)
	}
	return parsed.Format(monthLayout), nil
}

// MonthReferenceOf returns the month reference containing t.
func MonthReferenceOf(t time.Time) string {
	return t.Format(monthLayout)
}
