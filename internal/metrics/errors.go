package metrics

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, comparable with errors.Is.
var (
	// ErrNegativeValue indicates a negative energy, money or mass input.
	ErrNegativeValue = constError("negative value")

	// ErrInvalidFactor indicates a zero or negative conversion factor.
	ErrInvalidFactor = constError("invalid conversion factor")

	// ErrUnknownCurrency indicates a currency code that is not ISO 4217.
	ErrUnknownCurrency = constError("unknown currency code")
)
