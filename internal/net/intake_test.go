package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesta/internal/common"
	"vesta/internal/engine"
	"vesta/internal/escrow"
	"vesta/internal/tax"
)

// Intake handling is tested straight through handleMessage: reports to
// sessionless addresses are dropped, which is exactly what we want here.

type testIntake struct {
	server  *Server
	records *escrow.Records
	taxes   *tax.Ledger
}

func newTestIntake() *testIntake {
	records := escrow.NewRecords()
	taxes := tax.NewLedger()
	fees := tax.NewLedger()
	eng := engine.New(records, taxes, fees)
	srv := New("127.0.0.1", 0, eng, records, taxes)
	eng.SetReporter(srv)
	return &testIntake{server: srv, records: records, taxes: taxes}
}

func (ti *testIntake) account(t *testing.T, username string) *escrow.Account {
	t.Helper()
	account, err := ti.records.Get(username)
	require.NoError(t, err)
	return account
}

func TestIntake_ProvisioningMessages(t *testing.T) {
	ti := newTestIntake()

	ti.server.handleMessage("c1", RegisterMessage{Username: "kajal"})
	ti.server.handleMessage("c1", DepositMessage{Amount: 150, Username: "kajal"})
	ti.server.handleMessage("c1", GrantMessage{Class: common.Performance, Units: 50, Username: "kajal"})

	account := ti.account(t, "kajal")
	assert.EqualValues(t, 150, account.Wallet.Free())
	assert.EqualValues(t, 50, account.Inventory(common.Performance).Free())
	assert.Zero(t, account.Inventory(common.NonPerformance).Free())
}

func TestIntake_OrderReservationLifecycle(t *testing.T) {
	ti := newTestIntake()
	ti.server.handleMessage("c1", RegisterMessage{Username: "kajal"})
	ti.server.handleMessage("c2", RegisterMessage{Username: "sankar"})
	ti.server.handleMessage("c1", GrantMessage{Class: common.NonPerformance, Units: 50, Username: "kajal"})
	ti.server.handleMessage("c2", DepositMessage{Amount: 200, Username: "sankar"})

	ti.server.handleMessage("c1", NewOrderMessage{
		Side: common.Sell, Class: common.NonPerformance,
		Quantity: 10, Price: 10, Username: "kajal",
	})
	kajal := ti.account(t, "kajal")
	assert.EqualValues(t, 10, kajal.Inventory(common.NonPerformance).Locked(),
		"sell reservation locked ahead of submit")

	// Buy above the resting price: trades at 10, the spread comes back free.
	ti.server.handleMessage("c2", NewOrderMessage{
		Side: common.Buy, Class: common.NonPerformance,
		Quantity: 10, Price: 20, Username: "sankar",
	})

	sankar := ti.account(t, "sankar")
	assert.Zero(t, sankar.Wallet.Locked(), "residual reservation released on completion")
	assert.EqualValues(t, 100, sankar.Wallet.Free())
	assert.EqualValues(t, 10, sankar.Inventory(common.NonPerformance).Free())

	assert.Zero(t, kajal.Inventory(common.NonPerformance).Locked())
	assert.EqualValues(t, 97, kajal.Wallet.Free())
	assert.EqualValues(t, 1, ti.taxes.Current().Int64())
}

func TestIntake_RejectsUnfundedOrder(t *testing.T) {
	ti := newTestIntake()
	ti.server.handleMessage("c1", RegisterMessage{Username: "arun"})
	ti.server.handleMessage("c1", DepositMessage{Amount: 50, Username: "arun"})

	// Notional 100 exceeds the free 50; the reservation must fail and leave
	// balances untouched.
	ti.server.handleMessage("c1", NewOrderMessage{
		Side: common.Buy, Class: common.NonPerformance,
		Quantity: 10, Price: 10, Username: "arun",
	})

	account := ti.account(t, "arun")
	assert.EqualValues(t, 50, account.Wallet.Free())
	assert.Zero(t, account.Wallet.Locked())
	assert.Empty(t, ti.server.engine.Levels(common.Buy))
}

func TestIntake_RejectsInvalidOrder(t *testing.T) {
	ti := newTestIntake()
	ti.server.handleMessage("c1", RegisterMessage{Username: "arun"})
	ti.server.handleMessage("c1", DepositMessage{Amount: 100, Username: "arun"})

	ti.server.handleMessage("c1", NewOrderMessage{
		Side: common.Buy, Class: common.Class(9),
		Quantity: 10, Price: 10, Username: "arun",
	})

	account := ti.account(t, "arun")
	assert.EqualValues(t, 100, account.Wallet.Free())
	assert.Empty(t, ti.server.engine.Levels(common.Buy))
}

func TestIntake_DuplicateRegistration(t *testing.T) {
	ti := newTestIntake()
	ti.server.handleMessage("c1", RegisterMessage{Username: "kajal"})
	ti.server.handleMessage("c2", RegisterMessage{Username: "kajal"})

	_, err := ti.records.Get("kajal")
	assert.NoError(t, err)
}
