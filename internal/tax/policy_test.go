package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesta/internal/common"
)

func TestComputeTax_NonPerformanceTiers(t *testing.T) {
	cases := []struct {
		name     string
		quantity int64
		price    int64
		expected int64
	}{
		{"small tier capped", 100, 100, 20},
		{"small tier uncapped", 10, 10, 1},
		{"small tier rounded down", 54, 21, 11},
		{"mid tier capped", 101, 100, 20},
		{"mid tier rounded up", 1001, 1, 13},
		{"mid tier hits cap exactly", 540, 3, 20},
		{"large tier tie rounds to even", 50_001, 100, 75_002},
		{"large tier big notional", 100_000, 100_000, 150_000_000},
		{"large tier exact", 54_000, 3, 2_430},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeTax(common.NonPerformance, tc.quantity, tc.price)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestComputeTax_PerformanceTiers(t *testing.T) {
	cases := []struct {
		name     string
		quantity int64
		price    int64
		expected int64
	}{
		{"small tier capped", 100, 100, 50},
		{"small tier uncapped", 10, 10, 2},
		{"small tier rounded up", 54, 21, 23},
		{"mid tier no cap", 101, 100, 227},
		{"mid tier rounded up", 1001, 1, 23},
		{"mid tier rounded down", 540, 3, 36},
		{"large tier tie rounds to even", 50_001, 100, 125_002},
		{"large tier big notional", 100_000, 100_000, 250_000_000},
		{"large tier exact", 54_000, 3, 4_050},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeTax(common.Performance, tc.quantity, tc.price)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestComputeTax_Validation(t *testing.T) {
	_, err := ComputeTax(common.NonPerformance, -10, 20)
	assert.ErrorIs(t, err, ErrNegativeArgument, "negative quantity")

	_, err = ComputeTax(common.NonPerformance, 10, -20)
	assert.ErrorIs(t, err, ErrNegativeArgument, "negative price")

	_, err = ComputeTax(common.Class(42), 10, 20)
	assert.ErrorIs(t, err, ErrInvalidClass, "unrecognized class")

	_, err = ComputeTax(common.Performance, 1_000_000_000_000, 190_000_000_000_000)
	assert.ErrorIs(t, err, ErrTotalValueOverflow, "quantity * price overflows")
}

func TestComputeTax_ZeroPrice(t *testing.T) {
	// Zero proceeds, zero levy; the division-based overflow guard must not
	// trip over a zero divisor.
	got, err := ComputeTax(common.NonPerformance, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestComputeTax_ZeroQuantity(t *testing.T) {
	got, err := ComputeTax(common.Performance, 0, 100)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestBrokerage(t *testing.T) {
	assert.EqualValues(t, 2, Brokerage(common.NonPerformance, 100))
	assert.EqualValues(t, 4, Brokerage(common.NonPerformance, 200))
	assert.EqualValues(t, 1, Brokerage(common.NonPerformance, 50))
	// Ties round to even.
	assert.EqualValues(t, 0, Brokerage(common.NonPerformance, 25))
	assert.EqualValues(t, 2, Brokerage(common.NonPerformance, 75))
	// Performance units carry no brokerage.
	assert.EqualValues(t, 0, Brokerage(common.Performance, 100))
	assert.EqualValues(t, 0, Brokerage(common.NonPerformance, 0))
}
