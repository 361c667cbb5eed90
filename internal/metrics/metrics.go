package metrics

import (
	"math"
)

// Factors are the inputs shared by the derived metrics.
type Factors struct {
	TariffKWh             float64
	Currency              string
	EmissionFactorTPerMWh float64
	TreeAbsorptionKgYear  float64
	PeakSunHours          float64
}

// DefaultFactors returns the built-in factors.
func DefaultFactors() Factors {
	return Factors{
		TariffKWh:             DefaultTariffKWh,
		Currency:              DefaultCurrency,
		EmissionFactorTPerMWh: DefaultEmissionFactor,
		TreeAbsorptionKgYear:  DefaultTreeAbsorptionKg,
		PeakSunHours:          DefaultPeakSunHours,
	}
}

// Savings is the money saved by self-generated energy.
type Savings struct {
	KWh       float64 `json:"kwh"`
	TariffKWh float64 `json:"tariff_kwh"`
	Monthly   float64 `json:"monthly"`
	Annual    float64 `json:"annual"`
}

// CO2 is the emission avoided by self-generated energy.
type CO2 struct {
	KWh    float64 `json:"kwh"`
	Kg     float64 `json:"kg"`
	Tonnes float64 `json:"tonnes"`
}

// Comparison relates a month's generation to the month before it.
type Comparison struct {
	Current       float64 `json:"current_kwh"`
	Previous      float64 `json:"previous_kwh"`
	DeltaKWh      float64 `json:"delta_kwh"`
	DeltaPercent  float64 `json:"delta_percent"`
	PreviousLabel string  `json:"previous_label,omitempty"`
}

// Payback is the simple payback time of a system.
type Payback struct {
	Cost           float64 `json:"cost"`
	MonthlySavings float64 `json:"monthly_savings"`
	Months         float64 `json:"months"`
	Years          float64 `json:"years"`
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	const base = 10
	m := math.Pow(base, float64(places))
	return math.Round(v*m) / m
}

// CalculateSavings returns monthly and annual savings for kwh generated in a
// month at the given tariff. Annual savings assume twelve such months.
func CalculateSavings(kwh, tariffKWh float64) (Savings, error) {
	if kwh < 0 || tariffKWh < 0 {
		return Savings{}, ErrNegativeValue
	}

	monthly := kwh * tariffKWh
	return Savings{
		KWh:       Round(kwh, 2),
		TariffKWh: tariffKWh,
		Monthly:   Round(monthly, 2),
		Annual:    Round(monthly*monthsPerYear, 2),
	}, nil
}

// CalculateCO2Avoided converts kwh to avoided CO2 using a grid emission
// factor in tCO2/MWh.
func CalculateCO2Avoided(kwh, factorTPerMWh float64) (CO2, error) {
	if kwh < 0 || factorTPerMWh < 0 {
		return CO2{}, ErrNegativeValue
	}

	tonnes := kwh / kWhPerMWh * factorTPerMWh
	return CO2{
		KWh:    Round(kwh, 2),
		Kg:     Round(tonnes*kgPerTonne, 2),
		Tonnes: Round(tonnes, 4),
	}, nil
}

// TreesEquivalent returns how many trees absorb co2Kg in one year.
func TreesEquivalent(co2Kg, absorptionKgYear float64) (float64, error) {
	if co2Kg < 0 {
		return 0, ErrNegativeValue
	}
	if absorptionKgYear <= 0 {
		return 0, ErrInvalidFactor
	}
	return Round(co2Kg/absorptionKgYear, 1), nil
}

// TheoreticalEnergy is the yield of capacityKWp at peakSunHours per day over
// days days.
func TheoreticalEnergy(capacityKWp, peakSunHours float64, days int) float64 {
	if capacityKWp <= 0 || peakSunHours <= 0 || days <= 0 {
		return 0
	}
	return capacityKWp * peakSunHours * float64(days)
}

// PerformanceRatio returns actual/theoretical as a percentage, or 0 when
// theoretical is not positive.
func PerformanceRatio(actualKWh, theoreticalKWh float64) float64 {
	if theoreticalKWh <= 0 {
		return 0
	}
	return Round(actualKWh/theoreticalKWh*percent, 2)
}

// PeakSunHours returns the specific yield kWh/kWp, or 0 when capacityKWp is
// not positive.
func PeakSunHours(kwh, capacityKWp float64) float64 {
	if capacityKWp <= 0 {
		return 0
	}
	return Round(kwh/capacityKWp, 2)
}

// Availability returns the share of operating units over total units as a
// percentage, or 0 when total is not positive. Units may be hours or days.
func Availability(operating, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(operating/total*percent, 2)
}

// CompareMonths computes the change from previous to current. When previous
// is not positive the whole current value counts as growth: 100% if current
// is positive, otherwise 0%.
func CompareMonths(current, previous float64) Comparison {
	c := Comparison{
		Current:  Round(current, 2),
		Previous: Round(previous, 2),
	}
	if previous <= 0 {
		c.DeltaKWh = Round(current, 2)
		if current > 0 {
			c.DeltaPercent = percent
		}
		return c
	}

	delta := current - previous
	c.DeltaKWh = Round(delta, 2)
	c.DeltaPercent = Round(delta/previous*percent, 2)
	return c
}

// CalculatePayback returns the simple payback of cost given monthlySavings.
// Zero savings yield a zero payback rather than an infinite one.
func CalculatePayback(cost, monthlySavings float64) (Payback, error) {
	if cost < 0 || monthlySavings < 0 {
		return Payback{}, ErrNegativeValue
	}

	p := Payback{
		Cost:           Round(cost, 2),
		MonthlySavings: Round(monthlySavings, 2),
	}
	if monthlySavings == 0 {
		return p, nil
	}

	months := cost / monthlySavings
	p.Months = Round(months, 1)
	p.Years = Round(months/monthsPerYear, 2)
	return p, nil
}
