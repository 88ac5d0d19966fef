package payroll

import "github.com/shopspring/decimal"

type AbsenceSummary struct {
	AbsenceDays     int
	CertificateDays int
	Discount        decimal.Decimal
}

// AggregateAbsences classifies one employee's absences for one month. Only
// unjustified absences flagged discount_salary and medical certificates count;
// each contributes to the discount only while its toggle is enabled.
func AggregateAbsences(records []AbsenceRecord, dailyRate decimal.Decimal, cfg RuleConfiguration) AbsenceSummary {
	var summary AbsenceSummary
	for _, record := range records {
		switch record.Category {
		case AbsenceCategoryAbsence:
			if record.DiscountSalary {
				summary.AbsenceDays += record.Days()
			}
		case AbsenceCategoryMedicalCertificate:
			summary.CertificateDays += record.Days()
		}
	}

	summary.Discount = decimal.Zero
	if cfg.AbsenceDiscountEnabled {
		summary.Discount = summary.Discount.Add(dailyRate.Mul(decimal.NewFromInt(int64(summary.AbsenceDays))))
	}
	if cfg.MedicalCertificateDiscount {
		summary.Discount = summary.Discount.Add(dailyRate.Mul(decimal.NewFromInt(int64(summary.CertificateDays))))
	}
	return summary
}
