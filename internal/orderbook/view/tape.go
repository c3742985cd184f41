package view

import "github.com/zappabad/matchbook/internal/orderbook/core"

// Trade is one fill as seen from the aggressor.
type Trade struct {
	Seq          uint64
	TakerOrderID core.OrderID
	MakerOrderID core.OrderID
	TakerSide    core.Side
	Price        core.Price
	Quantity     core.Quantity
}

// TradesFromReport expands a submit report into tape entries, numbering
// them from seq.
func TradesFromReport(r core.SubmitReport, seq uint64) []Trade {
	if len(r.Fills) == 0 {
		return nil
	}
	out := make([]Trade, len(r.Fills))
	for i, f := range r.Fills {
		out[i] = Trade{
			Seq:          seq + uint64(i),
			TakerOrderID: r.OrderID,
			MakerOrderID: f.MakerOrderID,
			TakerSide:    r.Side,
			Price:        f.Price,
			Quantity:     f.Quantity,
		}
	}
	return out
}

// TradeTape is a ring buffer of recent trades (bounded memory).
type TradeTape struct {
	buf   []Trade
	size  int
	start int
	count int
}

// NewTradeTape creates a new TradeTape with the given capacity.
func NewTradeTape(capacity int) *TradeTape {
	if capacity <= 0 {
		capacity = 1
	}
	return &TradeTape{
		buf:  make([]Trade, capacity),
		size: capacity,
	}
}

// Append adds a trade to the tape, overwriting the oldest when full.
func (t *TradeTape) Append(tr ...Trade) {
	for _, x := range tr {
		if t.count < t.size {
			t.buf[(t.start+t.count)%t.size] = x
			t.count++
			continue
		}
		t.buf[t.start] = x
		t.start = (t.start + 1) % t.size
	}
}

// Last returns a copy of the last n trades in chronological order.
func (t *TradeTape) Last(n int) []Trade {
	if n <= 0 || t.count == 0 {
		return nil
	}
	n = min(n, t.count)
	out := make([]Trade, n)
	first := (t.start + (t.count - n)) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(first+i)%t.size]
	}
	return out
}

// Count returns the number of trades held.
func (t *TradeTape) Count() int {
	return t.count
}

// Reset empties the tape.
func (t *TradeTape) Reset() {
	clear(t.buf)
	t.start, t.count = 0, 0
}
