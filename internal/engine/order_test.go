package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesta/internal/common"
	"vesta/internal/tax"
)

func TestNewOrder_Defaults(t *testing.T) {
	order, err := NewOrder("sankar", common.Buy, common.NonPerformance, 10, 5)
	require.NoError(t, err)

	assert.NotEmpty(t, order.UUID)
	assert.EqualValues(t, 10, order.Remaining())
	assert.Equal(t, common.Open, order.Status())
	assert.EqualValues(t, 50, order.Notional())
	assert.EqualValues(t, 50, order.Reserved())
	assert.False(t, order.Timestamp.IsZero())
}

func TestNewOrder_SellHasNoCashReservation(t *testing.T) {
	order, err := NewOrder("kajal", common.Sell, common.Performance, 10, 5)
	require.NoError(t, err)
	assert.Zero(t, order.Reserved())
}

func TestNewOrder_Validation(t *testing.T) {
	_, err := NewOrder("sankar", common.Buy, common.NonPerformance, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOrder("sankar", common.Buy, common.NonPerformance, -3, 5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOrder("sankar", common.Buy, common.NonPerformance, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewOrder("sankar", common.Buy, common.Class(9), 10, 5)
	assert.ErrorIs(t, err, tax.ErrInvalidClass)

	_, err = NewOrder("sankar", common.Buy, common.NonPerformance, 1<<40, 1<<40)
	assert.ErrorIs(t, err, tax.ErrTotalValueOverflow)
}

func TestOrder_StatusAdvancesMonotonically(t *testing.T) {
	order, err := NewOrder("sankar", common.Buy, common.NonPerformance, 10, 5)
	require.NoError(t, err)

	order.fill(4, 5)
	assert.Equal(t, common.Partial, order.Status())
	assert.EqualValues(t, 6, order.Remaining())
	assert.EqualValues(t, 30, order.Reserved())

	order.fill(6, 5)
	assert.Equal(t, common.Completed, order.Status())
	assert.Zero(t, order.Remaining())
	assert.Zero(t, order.Reserved())
}

func TestOrder_FullFillSkipsPartial(t *testing.T) {
	order, err := NewOrder("sankar", common.Sell, common.NonPerformance, 10, 5)
	require.NoError(t, err)

	order.fill(10, 5)
	assert.Equal(t, common.Completed, order.Status())
}

func TestOrder_PriceImprovementLeavesReservation(t *testing.T) {
	order, err := NewOrder("sankar", common.Buy, common.NonPerformance, 10, 20)
	require.NoError(t, err)

	// Filled below the limit: the spread between reserved and spent stays
	// tracked on the order for the intake layer to release.
	order.fill(10, 15)
	assert.Equal(t, common.Completed, order.Status())
	assert.EqualValues(t, 50, order.Reserved())
}
