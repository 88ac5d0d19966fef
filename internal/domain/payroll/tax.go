package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Social security (INSS) and income tax (IRRF) withholding tables. The values
// are fixed by law for the current year and are not part of RuleConfiguration.

type contributionBracket struct {
	upTo decimal.Decimal
	rate decimal.Decimal
}

type incomeTaxBand struct {
	upTo      decimal.Decimal // zero means open ended
	rate      decimal.Decimal
	deduction decimal.Decimal
}

var (
	inssBrackets = []contributionBracket{
		{upTo: decimal.RequireFromString("1412.00"), rate: decimal.RequireFromString("0.075")},
		{upTo: decimal.RequireFromString("2666.68"), rate: decimal.RequireFromString("0.09")},
		{upTo: decimal.RequireFromString("4000.03"), rate: decimal.RequireFromString("0.12")},
		{upTo: decimal.RequireFromString("7786.02"), rate: decimal.RequireFromString("0.14")},
	}

	// INSSCeiling is the contribution for any base at or above the top bracket.
	INSSCeiling = decimal.RequireFromString("908.85")

	// IRRFExemptionLimit is the largest taxable base with no income tax.
	IRRFExemptionLimit = decimal.RequireFromString("2259.20")

	irrfBands = []incomeTaxBand{
		{upTo: decimal.RequireFromString("2826.65"), rate: decimal.RequireFromString("0.075"), deduction: decimal.RequireFromString("169.44")},
		{upTo: decimal.RequireFromString("3751.05"), rate: decimal.RequireFromString("0.15"), deduction: decimal.RequireFromString("381.44")},
		{upTo: decimal.RequireFromString("4664.68"), rate: decimal.RequireFromString("0.225"), deduction: decimal.RequireFromString("662.77")},
		{rate: decimal.RequireFromString("0.275"), deduction: decimal.RequireFromString("896.00")},
	}
)

// SocialSecurityWithholding computes the progressive INSS contribution over
// grossBase. grossBase must not be negative.
func SocialSecurityWithholding(grossBase decimal.Decimal) decimal.Decimal {
	requireNonNegative("gross base", grossBase)

	top := inssBrackets[len(inssBrackets)-1].upTo
	if grossBase.GreaterThanOrEqual(top) {
		return INSSCeiling
	}

	total := decimal.Zero
	floor := decimal.Zero
	for _, bracket := range inssBrackets {
		if grossBase.LessThanOrEqual(floor) {
			break
		}
		slice := decimal.Min(grossBase, bracket.upTo).Sub(floor)
		total = total.Add(slice.Mul(bracket.rate))
		floor = bracket.upTo
	}
	return decimal.Min(total, INSSCeiling)
}

// IncomeTaxWithholding computes IRRF over grossBase minus the social security
// withholding. The result can be slightly negative right above the exemption
// limit; callers clamp it at zero.
func IncomeTaxWithholding(grossBase, socialSecurity decimal.Decimal) decimal.Decimal {
	requireNonNegative("gross base", grossBase)
	requireNonNegative("social security withholding", socialSecurity)

	base := grossBase.Sub(socialSecurity)
	if base.LessThanOrEqual(IRRFExemptionLimit) {
		return decimal.Zero
	}
	for _, band := range irrfBands {
		if band.upTo.IsZero() || base.LessThanOrEqual(band.upTo) {
			return base.Mul(band.rate).Sub(band.deduction)
		}
	}
	return decimal.Zero
}

func requireNonNegative(name string, value decimal.Decimal) {
	if value.IsNegative() {
		panic(fmt.Sprintf("payroll: negative %s %s", name, value.String()))
	}
}
