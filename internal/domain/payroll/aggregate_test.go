package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProrationRates(t *testing.T) {
	cfg := DefaultRuleConfiguration()

	assertDecimal(t, "100", DailyRate(dec("2200"), cfg))
	assertDecimal(t, "12.5", HourlyRate(dec("2200"), cfg))
}

func TestAggregateOvertimeTier50(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	records := []OvertimeRecord{
		{EmployeeID: "e1", Hours: dec("6"), Tier: OvertimeTier50, Status: OvertimeStatusApproved},
		{EmployeeID: "e1", Hours: dec("4"), Tier: OvertimeTier50, Status: OvertimeStatusApproved},
	}

	summary := AggregateOvertime(records, HourlyRate(dec("2200"), cfg), cfg)

	assertDecimal(t, "10", summary.Hours50)
	assertDecimal(t, "187.5", summary.Value50)
	assertDecimal(t, "0", summary.Hours100)
	assertDecimal(t, "0", summary.Value100)
	assertDecimal(t, "187.5", summary.Total)
}

func TestAggregateOvertimeSkipsUnapprovedAndUnknownTiers(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	records := []OvertimeRecord{
		{Hours: dec("4"), Tier: OvertimeTier100, Status: OvertimeStatusApproved},
		{Hours: dec("3"), Tier: OvertimeTier100, Status: OvertimeStatusPending},
		{Hours: dec("2"), Tier: OvertimeTier50, Status: OvertimeStatusRejected},
		{Hours: dec("5"), Tier: "75", Status: OvertimeStatusApproved},
	}

	summary := AggregateOvertime(records, dec("12.5"), cfg)

	assertDecimal(t, "0", summary.Hours50)
	assertDecimal(t, "4", summary.Hours100)
	assertDecimal(t, "100", summary.Value100)
	assertDecimal(t, "100", summary.Total)
}

func TestAggregateOvertimeUsesConfiguredPremium(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	cfg.Overtime50Percent = dec("70")
	records := []OvertimeRecord{{Hours: dec("10"), Tier: OvertimeTier50, Status: OvertimeStatusApproved}}

	summary := AggregateOvertime(records, dec("10"), cfg)

	assertDecimal(t, "170", summary.Value50)
}

func TestAggregateAbsencesBothTogglesEnabled(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	cfg.MedicalCertificateDiscount = true
	records := []AbsenceRecord{
		{Category: AbsenceCategoryAbsence, DaysOff: 1, DiscountSalary: true},
		{Category: AbsenceCategoryMedicalCertificate, DaysOff: 3},
	}

	summary := AggregateAbsences(records, dec("100"), cfg)

	assert.Equal(t, 1, summary.AbsenceDays)
	assert.Equal(t, 3, summary.CertificateDays)
	assertDecimal(t, "400", summary.Discount)
}

func TestAggregateAbsencesDiscountToggleOff(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	cfg.AbsenceDiscountEnabled = false
	records := []AbsenceRecord{
		{Category: AbsenceCategoryAbsence, DaysOff: 2, DiscountSalary: true},
	}

	summary := AggregateAbsences(records, dec("100"), cfg)

	assert.Equal(t, 2, summary.AbsenceDays)
	assertDecimal(t, "0", summary.Discount)
}

func TestAggregateAbsencesIgnoresJustifiedAndUnflagged(t *testing.T) {
	cfg := DefaultRuleConfiguration()
	records := []AbsenceRecord{
		{Category: AbsenceCategoryAbsence, DaysOff: 2, DiscountSalary: false},
		{Category: AbsenceCategoryJustified, DaysOff: 5, DiscountSalary: true},
		{Category: AbsenceCategoryMedicalCertificate, DaysOff: 1},
	}

	summary := AggregateAbsences(records, dec("100"), cfg)

	assert.Equal(t, 0, summary.AbsenceDays)
	assert.Equal(t, 1, summary.CertificateDays)
	assertDecimal(t, "0", summary.Discount)
}

func TestAbsenceDaysDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, AbsenceRecord{DaysOff: 0}.Days())
	assert.Equal(t, 1, AbsenceRecord{DaysOff: -3}.Days())
	assert.Equal(t, 4, AbsenceRecord{DaysOff: 4}.Days())
}
