package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want string
	}{
		{"small number no separators", 123, "123"},
		{"four digits with separator", 1234, "1,234"},
		{"millions", 1234567, "1,234,567"},
		{"zero", 0, "0"},
		{"negative number", -1234, "-1,234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.n))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name      string
		f         float64
		precision int
		want      string
	}{
		{"two decimals", 1234.567, 2, "1,234.57"},
		{"zero precision", 1234.567, 0, "1,235"},
		{"small value", 0.5, 2, "0.50"},
		{"negative", -1234.5, 1, "-1,234.5"},
		{"negative below one", -0.25, 2, "-0.25"},
		{"large", 1234567.891, 1, "1,234,567.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.f, tt.precision))
		})
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1,080.00 kWh", FormatKWh(1080))
	assert.Equal(t, "87.3%", FormatPercent(87.25))
	assert.Equal(t, "+4.2%", FormatSignedPercent(4.2))
	assert.Equal(t, "-4.2%", FormatSignedPercent(-4.2))
	assert.Equal(t, "0.0%", FormatSignedPercent(0))
}

func TestFormatMoney(t *testing.T) {
	got, err := FormatMoney(1234.5, "BRL")
	require.NoError(t, err)
	assert.Equal(t, "R$ 1,234.50", got)

	got, err = FormatMoney(10, "usd")
	require.NoError(t, err)
	assert.Equal(t, "$ 10.00", got)

	got, err = FormatMoney(10, "CHF")
	require.NoError(t, err)
	assert.Equal(t, "CHF 10.00", got)

	_, err = FormatMoney(10, "R$")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}
