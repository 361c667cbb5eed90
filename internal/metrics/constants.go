package metrics

// Default conversion factors.
const (
	// DefaultTariffKWh is the residential tariff in BRL per kWh.
	DefaultTariffKWh = 0.887

	// DefaultEmissionFactor is the Brazilian grid average in tCO2 per MWh.
	DefaultEmissionFactor = 0.0817

	// DefaultTreeAbsorptionKg is the CO2 one tree absorbs per year, in kg.
	DefaultTreeAbsorptionKg = 163.0

	// DefaultPeakSunHours is the daily peak sun hours used for the
	// theoretical yield of a plant.
	DefaultPeakSunHours = 4.5

	// DefaultCurrency is the ISO 4217 code for reported savings.
	DefaultCurrency = "BRL"
)

// Unit conversions.
const (
	kWhPerMWh     = 1000.0
	kgPerTonne    = 1000.0
	monthsPerYear = 12
	percent       = 100.0
)
