package payroll

import "github.com/shopspring/decimal"

type OvertimeSummary struct {
	Hours50  decimal.Decimal
	Value50  decimal.Decimal
	Hours100 decimal.Decimal
	Value100 decimal.Decimal
	Total    decimal.Decimal
}

// AggregateOvertime sums approved overtime per tier and prices it with the
// configured premiums. The tier label only selects the premium field; it is
// never read as the percentage.
func AggregateOvertime(records []OvertimeRecord, hourlyRate decimal.Decimal, cfg RuleConfiguration) OvertimeSummary {
	summary := OvertimeSummary{
		Hours50:  decimal.Zero,
		Hours100: decimal.Zero,
	}
	for _, record := range records {
		if record.Status != OvertimeStatusApproved {
			continue
		}
		switch record.Tier {
		case OvertimeTier50:
			summary.Hours50 = summary.Hours50.Add(record.Hours)
		case OvertimeTier100:
			summary.Hours100 = summary.Hours100.Add(record.Hours)
		}
	}

	summary.Value50 = summary.Hours50.Mul(hourlyRate).Mul(premiumMultiplier(cfg.Overtime50Percent))
	summary.Value100 = summary.Hours100.Mul(hourlyRate).Mul(premiumMultiplier(cfg.Overtime100Percent))
	summary.Total = summary.Value50.Add(summary.Value100)
	return summary
}
