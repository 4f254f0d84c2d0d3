package fills

import "time"

// Kind distinguishes trade executions from funding settlements.
type Kind string

const (
	Trade   Kind = "Trade"
	Funding Kind = "Funding"
)

// Side is the execution side of a trade fill. Funding fills carry no side.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
	None Side = ""
)

// Fill is a single execution or funding settlement on a margined account.
// Fills are immutable once normalized.
type Fill struct {
	ID       string
	Time     time.Time
	Kind     Kind
	Side     Side
	Price    float64
	Quantity float64
	Value    float64 // notional (quantity at execution price, venue units)
	Fee      float64
}

// SignedQuantity returns the position delta this fill applies:
// +Quantity for a Buy, -Quantity for a Sell, 0 for Funding.
func (f Fill) SignedQuantity() float64 {
	if f.Kind != Trade {
		return 0
	}
	if f.Side == Sell {
		return -f.Quantity
	}
	return f.Quantity
}
