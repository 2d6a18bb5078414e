package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesta/internal/common"
)

func TestBalance_LockUnlockSpend(t *testing.T) {
	var b Balance
	require.NoError(t, b.AddFree(100))
	assert.EqualValues(t, 100, b.Free())
	assert.Zero(t, b.Locked())

	require.NoError(t, b.Lock(60))
	assert.EqualValues(t, 40, b.Free())
	assert.EqualValues(t, 60, b.Locked())

	require.NoError(t, b.Unlock(10))
	assert.EqualValues(t, 50, b.Free())
	assert.EqualValues(t, 50, b.Locked())

	require.NoError(t, b.SpendLocked(50))
	assert.EqualValues(t, 50, b.Free())
	assert.Zero(t, b.Locked())
}

func TestBalance_RejectsOverdraw(t *testing.T) {
	var b Balance
	require.NoError(t, b.AddFree(10))

	assert.ErrorIs(t, b.Lock(11), ErrInsufficientFree)
	assert.ErrorIs(t, b.Unlock(1), ErrInsufficientLocked)
	assert.ErrorIs(t, b.SpendLocked(1), ErrInsufficientLocked)

	// Failed operations leave the balance untouched.
	assert.EqualValues(t, 10, b.Free())
	assert.Zero(t, b.Locked())
}

func TestBalance_RejectsNegativeAmounts(t *testing.T) {
	var b Balance
	assert.ErrorIs(t, b.AddFree(-1), ErrNegativeAmount)
	assert.ErrorIs(t, b.Lock(-1), ErrNegativeAmount)
	assert.ErrorIs(t, b.Unlock(-1), ErrNegativeAmount)
	assert.ErrorIs(t, b.SpendLocked(-1), ErrNegativeAmount)
}

func TestAccount_InventoriesAreIndependent(t *testing.T) {
	account := NewAccount("kajal")
	require.NoError(t, account.Inventory(common.Performance).AddFree(50))

	assert.EqualValues(t, 50, account.Inventory(common.Performance).Free())
	assert.Zero(t, account.Inventory(common.NonPerformance).Free())
}

func TestRecords_RegisterAndGet(t *testing.T) {
	records := NewRecords()

	account, err := records.Register("sankar")
	require.NoError(t, err)
	assert.Equal(t, "sankar", account.Username)

	found, err := records.Get("sankar")
	require.NoError(t, err)
	assert.Same(t, account, found)

	_, err = records.Register("sankar")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = records.Get("nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}
