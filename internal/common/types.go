package common

// Side of an order relative to the book.
type Side int

const (
	Buy Side = iota
	Sell
)

// Opposite returns the side an order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// Class is the regulatory class of an ESOP unit. Units of different classes
// settle and accrue tax differently but trade on the same book.
type Class int

const (
	// NonPerformance is the default class for new orders.
	NonPerformance Class = iota
	Performance
)

// Valid reports whether the class is one of the two recognized values.
func (c Class) Valid() bool {
	return c == NonPerformance || c == Performance
}

func (c Class) String() string {
	switch c {
	case NonPerformance:
		return "NON_PERFORMANCE"
	case Performance:
		return "PERFORMANCE"
	}
	return "UNKNOWN"
}

// Status of an order. Transitions are monotonic: Open -> Partial -> Completed,
// or Open -> Completed. A status never regresses.
type Status int

const (
	Open Status = iota
	Partial
	Completed
)

func (st Status) String() string {
	switch st {
	case Open:
		return "OPEN"
	case Partial:
		return "PARTIAL"
	case Completed:
		return "COMPLETED"
	}
	return "UNKNOWN"
}
