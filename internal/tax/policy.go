package tax

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"vesta/internal/common"
)

var (
	ErrNegativeArgument   = errors.New("quantity or price cannot be negative")
	ErrInvalidClass       = errors.New("esop class is not valid: valid classes are PERFORMANCE, NON_PERFORMANCE")
	ErrTotalValueOverflow = errors.New("overflow in total value of price * quantity")
)

// Securities transaction tax rates per class and quantity tier.
var (
	nonPerfSmallRate = decimal.RequireFromString("0.01")   // quantity <= 100
	nonPerfMidRate   = decimal.RequireFromString("0.0125") // 101..50,000
	nonPerfLargeRate = decimal.RequireFromString("0.015")  // > 50,000
	perfSmallRate    = decimal.RequireFromString("0.02")
	perfMidRate      = decimal.RequireFromString("0.0225")
	perfLargeRate    = decimal.RequireFromString("0.025")

	brokerageRate = decimal.RequireFromString("0.02")
)

const (
	smallTierLimit = 100
	midTierLimit   = 50_000

	nonPerfCap = 20
	perfCap    = 50
)

// ComputeTax returns the transaction tax levied on one trade of the given
// class, quantity and unit price. The result is deterministic, non-negative,
// and rounded half-to-even.
//
// A zero price yields a zero tax: there are no proceeds to levy against, so
// the overflow guard (which is meaningless at price zero) is skipped.
func ComputeTax(class common.Class, quantity, price int64) (int64, error) {
	if err := validate(class, quantity, price); err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, nil
	}

	total := decimal.NewFromInt(quantity).Mul(decimal.NewFromInt(price))

	if class == common.NonPerformance {
		switch {
		case quantity <= smallTierLimit:
			return capAt(roundBank(total.Mul(nonPerfSmallRate)), nonPerfCap), nil
		case quantity <= midTierLimit:
			return capAt(roundBank(total.Mul(nonPerfMidRate)), nonPerfCap), nil
		default:
			return roundBank(total.Mul(nonPerfLargeRate)), nil
		}
	}

	switch {
	case quantity <= smallTierLimit:
		return capAt(roundBank(total.Mul(perfSmallRate)), perfCap), nil
	case quantity <= midTierLimit:
		return roundBank(total.Mul(perfMidRate)), nil
	default:
		return roundBank(total.Mul(perfLargeRate)), nil
	}
}

// Brokerage is the platform fee debited from the seller's proceeds alongside
// the tax. Non-performance units carry a 2% brokerage; performance units
// carry none.
func Brokerage(class common.Class, proceeds int64) int64 {
	if class != common.NonPerformance || proceeds <= 0 {
		return 0
	}
	return roundBank(decimal.NewFromInt(proceeds).Mul(brokerageRate))
}

func validate(class common.Class, quantity, price int64) error {
	if quantity < 0 || price < 0 {
		return ErrNegativeArgument
	}
	if !class.Valid() {
		return ErrInvalidClass
	}
	if price > 0 && quantity > math.MaxInt64/price {
		return ErrTotalValueOverflow
	}
	return nil
}

// roundBank rounds to the nearest integer, ties to even.
func roundBank(d decimal.Decimal) int64 {
	return d.RoundBank(0).IntPart()
}

func capAt(amount, cap int64) int64 {
	return min(amount, cap)
}
