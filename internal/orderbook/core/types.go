package core

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Side represents the order side: buy or sell.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderKind represents the order type: limit or market.
type OrderKind uint8

const (
	OrderKindLimit OrderKind = iota
	OrderKindMarket
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindLimit:
		return "LIMIT"
	case OrderKindMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// Status is the state of an order as reported by Query.
type Status uint8

const (
	StatusNone Status = iota
	StatusPending
	StatusPartlyFilled
	StatusFullyFilled
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusPending:
		return "PENDING"
	case StatusPartlyFilled:
		return "PARTLY_FILLED"
	case StatusFullyFilled:
		return "FULLY_FILLED"
	default:
		return "UNKNOWN"
	}
}

// Price is a limit or trade price. The zero value means "no price".
type Price = decimal.Decimal

// Quantity represents order size.
type Quantity uint64

// MaxQuantity bounds a single order and the resting volume of one side.
const MaxQuantity = Quantity(math.MaxInt64)

func (q Quantity) String() string { return strconv.FormatUint(uint64(q), 10) }

// OrderID uniquely identifies an order within a session.
type OrderID uint64

func (id OrderID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Result is the outcome of a Query.
type Result struct {
	Status         Status
	FilledQuantity Quantity
	FilledPrice    Price // weighted average; zero when nothing filled
}

// Fill represents a single fill from a match.
type Fill struct {
	MakerOrderID OrderID
	Price        Price
	Quantity     Quantity
}

// SubmitReport is returned after submitting an order.
type SubmitReport struct {
	OrderID   OrderID
	Side      Side
	Kind      OrderKind
	Filled    Quantity
	Remaining Quantity
	Fills     []Fill
	Rested    bool
}

// CancelReport is returned after canceling a resting order.
type CancelReport struct {
	OrderID      OrderID
	Side         Side
	CanceledSize Quantity
}

// RestingOrder is a snapshot of an order sitting in a book.
type RestingOrder struct {
	ID             OrderID
	Side           Side
	Price          Price
	Quantity       Quantity
	Remaining      Quantity
	FilledQuantity Quantity
	FilledPrice    Price
}

// order is the arena record. Book sides only hold its key.
type order struct {
	id       OrderID
	side     Side
	kind     OrderKind
	price    Price
	quantity Quantity
	filled   Quantity
	notional decimal.Decimal // sum of fill quantity * trade price
	resting  bool
}

func (o *order) remaining() Quantity { return o.quantity - o.filled }

func (o *order) isFilled() bool { return o.filled >= o.quantity }

// filledPrice is the weighted average fill price. Keeping the notional
// instead of a running average yields (q1*p1+q2*p2)/(q1+q2) exactly.
func (o *order) filledPrice() Price {
	if o.filled == 0 {
		return decimal.Zero
	}
	return o.notional.Div(decimal.NewFromInt(int64(o.filled)))
}

func (o *order) fill(qty Quantity, price Price) {
	if qty == 0 || o.filled+qty > o.quantity {
		panic("core: fill exceeds order quantity")
	}
	o.notional = o.notional.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	o.filled += qty
}

func (o *order) snapshot() RestingOrder {
	return RestingOrder{
		ID:             o.id,
		Side:           o.side,
		Price:          o.price,
		Quantity:       o.quantity,
		Remaining:      o.remaining(),
		FilledQuantity: o.filled,
		FilledPrice:    o.filledPrice(),
	}
}
