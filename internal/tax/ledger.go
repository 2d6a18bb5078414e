package tax

import (
	"math/big"
	"sync"
)

// Ledger is a process-wide levy accumulator. It only grows through Add and
// only returns to zero through an explicit administrative Reset. The total is
// arbitrary precision so it cannot overflow across any number of trades.
//
// A Ledger is safe for concurrent use. Engines take a *Ledger at construction
// rather than reaching for shared package state, so tests can isolate
// instances.
type Ledger struct {
	mu    sync.Mutex
	total big.Int
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Add accrues amount into the ledger. Amounts are computed levies and are
// never negative; non-positive amounts are dropped to keep the total
// monotonic.
func (l *Ledger) Add(amount int64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total.Add(&l.total, big.NewInt(amount))
}

// Current returns a copy of the accumulated total.
func (l *Ledger) Current() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(&l.total)
}

// Reset returns the ledger to zero.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total.SetInt64(0)
}
