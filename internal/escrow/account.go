package escrow

import (
	"errors"

	"vesta/internal/common"
)

var (
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInsufficientFree   = errors.New("insufficient free balance")
	ErrInsufficientLocked = errors.New("insufficient locked balance")
)

// Balance is a two-state holding. The free portion is available to reserve
// against a new order; the locked portion is already committed to resting
// orders and only drains through a trade or an explicit unlock. Both
// magnitudes stay non-negative at every observable point.
type Balance struct {
	free   int64
	locked int64
}

func (b *Balance) Free() int64   { return b.free }
func (b *Balance) Locked() int64 { return b.locked }

// AddFree credits amount to the free portion.
func (b *Balance) AddFree(amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	b.free += amount
	return nil
}

// Lock reserves amount by moving it from free to locked.
func (b *Balance) Lock(amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount > b.free {
		return ErrInsufficientFree
	}
	b.free -= amount
	b.locked += amount
	return nil
}

// Unlock releases a reservation back to the free portion.
func (b *Balance) Unlock(amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount > b.locked {
		return ErrInsufficientLocked
	}
	b.locked -= amount
	b.free += amount
	return nil
}

// SpendLocked consumes amount out of the locked portion. Settlement is the
// only caller: a trade burns the reservation instead of releasing it.
func (b *Balance) SpendLocked(amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount > b.locked {
		return ErrInsufficientLocked
	}
	b.locked -= amount
	return nil
}

// Account holds one user's escrowed cash and per-class unit inventory.
type Account struct {
	Username string
	Wallet   Balance

	inventories [2]Balance
}

func NewAccount(username string) *Account {
	return &Account{Username: username}
}

// Inventory returns the unit balance for the given class. Callers validate
// the class at the boundary; the two recognized classes index directly.
func (a *Account) Inventory(class common.Class) *Balance {
	return &a.inventories[class]
}
