package payroll

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DailyRate prorates a monthly salary per configured work day.
func DailyRate(salary decimal.Decimal, cfg RuleConfiguration) decimal.Decimal {
	return salary.Div(decimal.NewFromInt(int64(cfg.WorkDaysPerMonth)))
}

// HourlyRate prorates a monthly salary per configured work hour.
func HourlyRate(salary decimal.Decimal, cfg RuleConfiguration) decimal.Decimal {
	hours := decimal.NewFromInt(int64(cfg.WorkDaysPerMonth) * int64(cfg.WorkHoursPerDay))
	return salary.Div(hours)
}

// premiumMultiplier turns a percentage premium into a rate multiplier (50 -> 1.5).
func premiumMultiplier(percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(percent.Div(hundred))
}
