package common

import (
	"fmt"
	"time"
)

// Trade records one settled match between two counterparties.
type Trade struct {
	BuyOrder  string // UUID of the buying order
	SellOrder string // UUID of the selling order
	Buyer     string // Username of the buying owner
	Seller    string // Username of the selling owner
	Class     Class  // Class of the units that changed hands
	Quantity  int64  // Units transferred
	Price     int64  // Settled unit price (the resting order's limit)
	Tax       int64  // Transaction tax debited from the seller
	Fee       int64  // Brokerage debited from the seller
	Timestamp time.Time
}

// Proceeds is the gross cash moved from buyer to seller before levies.
func (t Trade) Proceeds() int64 {
	return t.Quantity * t.Price
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`BuyOrder:  %s
SellOrder: %s
Buyer:     %s
Seller:    %s
Class:     %v
Quantity:  %d
Price:     %d
Tax:       %d
Fee:       %d
Timestamp: %v`,
		t.BuyOrder,
		t.SellOrder,
		t.Buyer,
		t.Seller,
		t.Class,
		t.Quantity,
		t.Price,
		t.Tax,
		t.Fee,
		t.Timestamp.Format(time.RFC3339),
	)
}
