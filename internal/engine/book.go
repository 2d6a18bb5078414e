package engine

import (
	"github.com/tidwall/btree"

	"vesta/internal/common"
)

// priceLevel groups resting orders sharing one limit price, earliest creation
// first.
type priceLevel struct {
	price  int64
	orders []*Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// OrderBook holds the resting orders of both sides. Each side is a btree of
// price levels whose comparator puts the best price first (highest bid,
// lowest ask); within a level orders are kept in creation-timestamp order.
// The composite ordering makes price-time priority a property of the
// structure itself rather than of each traversal.
//
// The matching engine exclusively owns the book's contents.
type OrderBook struct {
	bids *priceLevels
	asks *priceLevels
}

func NewOrderBook() *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &OrderBook{
		bids: bids,
		asks: asks,
	}
}

func (book *OrderBook) sideOf(side common.Side) *priceLevels {
	if side == common.Buy {
		return book.bids
	}
	return book.asks
}

// insert rests the order at its price level. Within the level, earlier
// creation timestamps take priority regardless of submission order.
func (book *OrderBook) insert(order *Order) {
	levels := book.sideOf(order.Side)

	// Comparator only looks at price, so a bare level works as a search key.
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if !ok {
		levels.Set(&priceLevel{
			price:  order.Price,
			orders: []*Order{order},
		})
		return
	}

	idx := len(level.orders)
	for idx > 0 && order.Timestamp.Before(level.orders[idx-1].Timestamp) {
		idx--
	}
	level.orders = append(level.orders, nil)
	copy(level.orders[idx+1:], level.orders[idx:])
	level.orders[idx] = order
}

// best returns the highest-priority resting order on the given side.
func (book *OrderBook) best(side common.Side) (*Order, bool) {
	level, ok := book.sideOf(side).MinMut()
	if !ok {
		return nil, false
	}
	return level.orders[0], true
}

// removeBest drops the current best order, deleting its level once emptied.
func (book *OrderBook) removeBest(side common.Side) {
	levels := book.sideOf(side)
	level, ok := levels.MinMut()
	if !ok {
		return
	}
	level.orders = level.orders[1:]
	if len(level.orders) == 0 {
		levels.Delete(level)
	}
}

// FlatLevel is a read-only snapshot of one price level.
type FlatLevel struct {
	Price  int64
	Orders []*Order
}

// Levels snapshots a side in priority order, for depth queries and tests.
func (book *OrderBook) Levels(side common.Side) []FlatLevel {
	var flat []FlatLevel
	book.sideOf(side).Scan(func(level *priceLevel) bool {
		flat = append(flat, FlatLevel{
			Price:  level.price,
			Orders: append([]*Order(nil), level.orders...),
		})
		return true
	})
	return flat
}
