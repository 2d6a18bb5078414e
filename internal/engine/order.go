package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"vesta/internal/common"
	"vesta/internal/tax"
)

var (
	ErrInvalidQuantity = errors.New("order quantity must be positive")
	ErrInvalidPrice    = errors.New("order price cannot be negative")
)

// Order is a single limit order against the book. Quantity and Price are
// fixed at construction; remaining quantity and status mutate only under the
// engine's control while the order matches or rests.
type Order struct {
	UUID      string       // Order tracked uuid
	Owner     string       // Username owning the escrowed funds or units
	Side      common.Side  // Order side
	Class     common.Class // Unit class, fixed for the order's lifetime
	Quantity  int64        // Total volume requested
	Price     int64        // Limit price
	Timestamp time.Time    // Time of creation, tie-break for equal prices

	remaining int64
	reserved  int64 // Unconsumed cash reservation (buy side only)
	status    common.Status
}

// NewOrder validates and constructs an order. Validation mirrors the tax
// boundary: non-positive quantity, negative price and unrecognized classes
// are rejected outright, as is a notional that cannot be represented.
func NewOrder(owner string, side common.Side, class common.Class, quantity, price int64) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if !class.Valid() {
		return nil, tax.ErrInvalidClass
	}
	if price > 0 && quantity > math.MaxInt64/price {
		return nil, tax.ErrTotalValueOverflow
	}

	order := &Order{
		UUID:      uuid.NewString(),
		Owner:     owner,
		Side:      side,
		Class:     class,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Now(),
		remaining: quantity,
		status:    common.Open,
	}
	if side == common.Buy {
		order.reserved = quantity * price
	}
	return order, nil
}

// Remaining is the unfilled quantity. It only ever decreases.
func (o *Order) Remaining() int64 {
	return o.remaining
}

func (o *Order) Status() common.Status {
	return o.status
}

// Notional is the cash the order commits at its own limit price.
func (o *Order) Notional() int64 {
	return o.Quantity * o.Price
}

// Reserved is the buyer's locked cash not yet consumed by trades. The engine
// decrements it per trade but never releases it; once the order completes the
// intake layer unlocks whatever price improvement left behind.
func (o *Order) Reserved() int64 {
	return o.reserved
}

// fill consumes quantity from the order at the settled price, advancing the
// status machine. Only the engine calls this, with 0 < quantity <= remaining.
func (o *Order) fill(quantity, price int64) {
	o.remaining -= quantity
	if o.Side == common.Buy {
		o.reserved -= quantity * price
	}
	if o.remaining == 0 {
		o.status = common.Completed
	} else {
		o.status = common.Partial
	}
}

func (o *Order) String() string {
	return fmt.Sprintf(
		`UUID:      %s
Owner:     %s
Side:      %v
Class:     %v
Quantity:  %d (remaining: %d)
Price:     %d
Status:    %v
Timestamp: %v`,
		o.UUID,
		o.Owner,
		o.Side,
		o.Class,
		o.Quantity,
		o.remaining,
		o.Price,
		o.status,
		o.Timestamp.Format(time.RFC3339Nano),
	)
}
