package core

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("invalid order quantity")
	ErrInvalidPrice    = errors.New("invalid order price")
	ErrInvalidSide     = errors.New("invalid order side")
	ErrInvalidKind     = errors.New("invalid order kind")
	ErrVolumeOverflow  = errors.New("resting volume would exceed maximum")
)

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger used for debug tracing of matches.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.log = l
		}
	}
}

// Core is the deterministic single-instrument matching engine.
// It has no goroutines, mutexes, channels, or time calls; callers that
// share one Core across goroutines must serialize every call.
type Core struct {
	orders map[OrderID]*order
	bids   *bookSide
	asks   *bookSide

	nextID       OrderID
	currentPrice Price

	log *zap.Logger
}

// New creates a Core whose reference price starts at startPrice.
func New(startPrice Price, opts ...Option) *Core {
	c := &Core{
		orders:       map[OrderID]*order{},
		bids:         newBookSide(true),
		asks:         newBookSide(false),
		nextID:       1,
		currentPrice: startPrice,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func validate(qty Quantity, side Side, kind OrderKind, price Price) error {
	if qty == 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	if side != SideBuy && side != SideSell {
		return ErrInvalidSide
	}
	switch kind {
	case OrderKindLimit:
		if !price.IsPositive() {
			return ErrInvalidPrice
		}
	case OrderKindMarket:
		if price.IsNegative() {
			return ErrInvalidPrice
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

func (c *Core) sideFor(s Side) *bookSide {
	if s == SideBuy {
		return c.bids
	}
	return c.asks
}

// Submit assigns the next id to a new order and matches it against the
// opposite side. Leftover limit quantity rests; leftover market quantity
// is dropped from the book and only observable through Query. A limit
// order whose resting remainder would overflow its side's volume is
// rejected with ErrVolumeOverflow.
func (c *Core) Submit(qty Quantity, side Side, kind OrderKind, price Price) (SubmitReport, error) {
	if err := validate(qty, side, kind, price); err != nil {
		return SubmitReport{}, err
	}
	switch kind {
	case OrderKindMarket:
		price = decimal.Zero
	case OrderKindLimit:
		rest := qty - c.crossable(side, price, qty)
		if rest > MaxQuantity-c.sideFor(side).volume {
			return SubmitReport{}, ErrVolumeOverflow
		}
	}

	o := &order{
		id:       c.nextID,
		side:     side,
		kind:     kind,
		price:    price,
		quantity: qty,
		notional: decimal.Zero,
	}
	c.nextID++
	c.orders[o.id] = o

	fills := c.match(o)

	rested := false
	if kind == OrderKindLimit && !o.isFilled() {
		c.sideFor(side).insert(o)
		rested = true
		c.log.Debug("order rested",
			zap.Uint64("order_id", uint64(o.id)),
			zap.Stringer("side", side),
			zap.String("price", price.String()),
			zap.Uint64("remaining", uint64(o.remaining())))
	}

	return SubmitReport{
		OrderID:   o.id,
		Side:      side,
		Kind:      kind,
		Filled:    o.filled,
		Remaining: o.remaining(),
		Fills:     fills,
		Rested:    rested,
	}, nil
}

// match consumes the opposite book while the taker crosses and has size left.
func (c *Core) match(taker *order) []Fill {
	var fills []Fill
	opp := c.sideFor(taker.side.Opposite())

	for !taker.isFilled() {
		key, ok := opp.best()
		if !ok {
			break
		}
		if taker.kind == OrderKindLimit && !crosses(taker, key.price) {
			break
		}

		maker, ok := c.orders[key.id]
		if !ok || !maker.resting {
			panic("core: book references an unknown order")
		}

		traded := min(taker.remaining(), maker.remaining())
		tradePrice := maker.price

		taker.fill(traded, tradePrice)
		maker.fill(traded, tradePrice)
		c.currentPrice = tradePrice
		opp.reduce(traded)

		fills = append(fills, Fill{
			MakerOrderID: maker.id,
			Price:        tradePrice,
			Quantity:     traded,
		})
		c.log.Debug("trade",
			zap.Uint64("taker_id", uint64(taker.id)),
			zap.Uint64("maker_id", uint64(maker.id)),
			zap.Stringer("taker_side", taker.side),
			zap.String("price", tradePrice.String()),
			zap.Uint64("quantity", uint64(traded)))

		if maker.isFilled() {
			// Leaves the book; the record stays until queried.
			opp.remove(maker)
		}
	}

	return fills
}

// crossable returns how much of qty a limit order at price would trade
// on arrival, without touching the book.
func (c *Core) crossable(side Side, price Price, qty Quantity) Quantity {
	taker := &order{side: side, kind: OrderKindLimit, price: price}
	var n Quantity
	c.sideFor(side.Opposite()).scan(func(k restingKey) bool {
		if !crosses(taker, k.price) {
			return false
		}
		n += c.orders[k.id].remaining()
		return n < qty
	})
	return min(n, qty)
}

func crosses(taker *order, restingPrice Price) bool {
	if taker.side == SideBuy {
		return restingPrice.LessThanOrEqual(taker.price)
	}
	return restingPrice.GreaterThanOrEqual(taker.price)
}

// Cancel removes a resting order and discards its unfilled remainder.
// It reports false, and changes nothing, when id is unknown or the order
// is not resting (a market order, or one already fully filled).
func (c *Core) Cancel(id OrderID) (CancelReport, bool) {
	o, ok := c.orders[id]
	if !ok || !o.resting {
		return CancelReport{}, false
	}
	remaining := o.remaining()
	c.sideFor(o.side).remove(o)
	delete(c.orders, id)

	c.log.Debug("order canceled",
		zap.Uint64("order_id", uint64(id)),
		zap.Uint64("canceled", uint64(remaining)))

	return CancelReport{OrderID: id, Side: o.side, CanceledSize: remaining}, true
}

// Query reports an order's fill state. It is a destructive read: a fully
// filled order, or a market order that did not fully fill, is deleted by
// the call that observes it, so a second Query returns StatusNone.
// A market order with no fill at all also reports PartlyFilled and is
// deleted, never Pending: nothing of it is left to fill.
func (c *Core) Query(id OrderID) Result {
	o, ok := c.orders[id]
	if !ok {
		return Result{Status: StatusNone, FilledPrice: decimal.Zero}
	}

	res := Result{FilledQuantity: o.filled, FilledPrice: o.filledPrice()}
	switch {
	case o.isFilled():
		res.Status = StatusFullyFilled
		delete(c.orders, id)
	case o.kind == OrderKindMarket:
		res.Status = StatusPartlyFilled
		delete(c.orders, id)
	case o.filled == 0:
		res.Status = StatusPending
	default:
		res.Status = StatusPartlyFilled
	}
	return res
}

// CurrentPrice returns the last traded price, or the start price before
// the first trade.
func (c *Core) CurrentPrice() Price { return c.currentPrice }

// BestBid returns the highest resting buy price, or zero if there is none.
func (c *Core) BestBid() Price { return bestPrice(c.bids) }

// BestAsk returns the lowest resting sell price, or zero if there is none.
func (c *Core) BestAsk() Price { return bestPrice(c.asks) }

func bestPrice(bs *bookSide) Price {
	if k, ok := bs.best(); ok {
		return k.price
	}
	return decimal.Zero
}

// BidVolume returns the total remaining quantity resting on the buy side.
func (c *Core) BidVolume() Quantity { return c.bids.volume }

// AskVolume returns the total remaining quantity resting on the sell side.
func (c *Core) AskVolume() Quantity { return c.asks.volume }

// Depth returns the number of orders resting on a side.
func (c *Core) Depth(side Side) int { return c.sideFor(side).len() }

// OpenOrders returns the number of order records not yet reclaimed.
func (c *Core) OpenOrders() int { return len(c.orders) }

// Orders returns the resting orders on a side in priority order.
func (c *Core) Orders(side Side) []RestingOrder {
	bs := c.sideFor(side)
	out := make([]RestingOrder, 0, bs.len())
	bs.scan(func(k restingKey) bool {
		out = append(out, c.orders[k.id].snapshot())
		return true
	})
	return out
}

// Reset clears both books, every order record and both volume counters,
// and restarts id assignment at 1. The reference price is kept.
func (c *Core) Reset() {
	c.bids.clear()
	c.asks.clear()
	c.orders = map[OrderID]*order{}
	c.nextID = 1
	c.log.Debug("book reset", zap.String("current_price", c.currentPrice.String()))
}
