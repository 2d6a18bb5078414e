package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"vesta/internal/common"
	"vesta/internal/escrow"
	"vesta/internal/tax"
)

var ErrInsufficientLock = errors.New("declared reservation does not cover the order")

// Reporter receives settlement notifications for delivery to the
// counterparties.
type Reporter interface {
	ReportTrade(trade common.Trade)
}

// MatchingEngine crosses incoming orders against the book and settles each
// resulting trade against escrow. One lock spans book, escrow mutation and
// ledger accrual: a submit reads best-price state, mutates up to two resting
// orders and two users' balances, and none of that interleaves safely with
// another submit.
type MatchingEngine struct {
	mu       sync.Mutex
	book     *OrderBook
	records  *escrow.Records
	taxes    *tax.Ledger
	fees     *tax.Ledger
	reporter Reporter
}

func New(records *escrow.Records, taxes, fees *tax.Ledger) *MatchingEngine {
	return &MatchingEngine{
		book:    NewOrderBook(),
		records: records,
		taxes:   taxes,
		fees:    fees,
	}
}

// SetReporter wires the trade report sink. Call before the first Submit.
func (e *MatchingEngine) SetReporter(reporter Reporter) {
	e.reporter = reporter
}

// Submit matches the order as far as the opposite side crosses it, settling
// each trade, then rests any residual quantity in the book. The order's
// remaining quantity and status mutate in place.
//
// Matching is greedy and runs to completion before returning. There is no
// rollback: settlement only ever moves already-reserved balances forward, so
// partial progress is always a valid state.
//
// The caller must have locked the order's full notional (buy) or quantity
// (sell) in the owner's escrow before submitting; Submit rejects the order
// outright when the owner is unknown or the reservation falls short, with no
// partial effect.
func (e *MatchingEngine) Submit(order *Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	owner, err := e.records.Get(order.Owner)
	if err != nil {
		return err
	}
	if err := checkReservation(owner, order); err != nil {
		return err
	}

	for order.Remaining() > 0 {
		contra, ok := e.book.best(order.Side.Opposite())
		if !ok || !crosses(order, contra) {
			break
		}

		quantity := min(order.Remaining(), contra.Remaining())
		// The resting order sets the trade price: the incoming side never
		// does worse than its own limit and takes the better price when
		// one is on offer.
		price := contra.Price

		if err := e.settle(order, contra, quantity, price); err != nil {
			return fmt.Errorf("settle %s against %s: %w", order.UUID, contra.UUID, err)
		}

		order.fill(quantity, price)
		contra.fill(quantity, price)
		if contra.Remaining() == 0 {
			e.book.removeBest(contra.Side)
		}
	}

	if order.Remaining() > 0 {
		e.book.insert(order)
	}
	return nil
}

// Levels exposes a read-only snapshot of one book side.
func (e *MatchingEngine) Levels(side common.Side) []FlatLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Levels(side)
}

// checkReservation rejects an order whose declared escrow reservation does
// not cover it. The intake layer locks balances before submitting; the engine
// verifies rather than trusts.
func checkReservation(account *escrow.Account, order *Order) error {
	switch order.Side {
	case common.Buy:
		if account.Wallet.Locked() < order.Notional() {
			return ErrInsufficientLock
		}
	case common.Sell:
		if account.Inventory(order.Class).Locked() < order.Quantity {
			return ErrInsufficientLock
		}
	}
	return nil
}

func crosses(incoming, resting *Order) bool {
	if incoming.Side == common.Buy {
		return incoming.Price >= resting.Price
	}
	return resting.Price >= incoming.Price
}

// settle executes the escrow transfer for one trade: units move from the
// seller's locked inventory to the buyer's free inventory, cash moves from
// the buyer's locked wallet to the seller's free wallet net of tax and
// brokerage, and both levies accrue to their ledgers. The selling order's
// class governs inventory, tax and fee.
func (e *MatchingEngine) settle(incoming, contra *Order, quantity, price int64) error {
	buy, sell := incoming, contra
	if incoming.Side == common.Sell {
		buy, sell = contra, incoming
	}

	buyer, err := e.records.Get(buy.Owner)
	if err != nil {
		return err
	}
	seller, err := e.records.Get(sell.Owner)
	if err != nil {
		return err
	}

	class := sell.Class
	proceeds := quantity * price

	levy, err := tax.ComputeTax(class, quantity, price)
	if err != nil {
		return err
	}
	fee := tax.Brokerage(class, proceeds)

	if err := buyer.Wallet.SpendLocked(proceeds); err != nil {
		return err
	}
	if err := seller.Inventory(class).SpendLocked(quantity); err != nil {
		return err
	}
	if err := buyer.Inventory(class).AddFree(quantity); err != nil {
		return err
	}
	if err := seller.Wallet.AddFree(proceeds - levy - fee); err != nil {
		return err
	}

	e.taxes.Add(levy)
	e.fees.Add(fee)

	if e.reporter != nil {
		e.reporter.ReportTrade(common.Trade{
			BuyOrder:  buy.UUID,
			SellOrder: sell.UUID,
			Buyer:     buy.Owner,
			Seller:    sell.Owner,
			Class:     class,
			Quantity:  quantity,
			Price:     price,
			Tax:       levy,
			Fee:       fee,
			Timestamp: time.Now(),
		})
	}
	return nil
}
