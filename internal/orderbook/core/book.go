package core

import (
	"github.com/tidwall/btree"
)

// restingKey orders a book side. It never points at the order itself;
// the id resolves back through the arena.
type restingKey struct {
	price Price
	id    OrderID
}

type bookSide struct {
	isBid  bool
	index  *btree.BTreeG[restingKey]
	volume Quantity
}

func newBookSide(isBid bool) *bookSide {
	less := func(a, b restingKey) bool {
		if c := a.price.Cmp(b.price); c != 0 {
			if isBid {
				return c > 0 // best bid is highest
			}
			return c < 0 // best ask is lowest
		}
		return a.id < b.id
	}
	return &bookSide{
		isBid: isBid,
		index: btree.NewBTreeGOptions(less, btree.Options{NoLocks: true}),
	}
}

func (bs *bookSide) len() int { return bs.index.Len() }

func (bs *bookSide) best() (restingKey, bool) { return bs.index.Min() }

func (bs *bookSide) insert(o *order) {
	if _, replaced := bs.index.Set(restingKey{price: o.price, id: o.id}); replaced {
		panic("core: order already resting")
	}
	bs.volume += o.remaining()
	o.resting = true
}

// remove drops o from the index and takes its remaining size off the counter.
func (bs *bookSide) remove(o *order) {
	if _, ok := bs.index.Delete(restingKey{price: o.price, id: o.id}); !ok {
		panic("core: resting order missing from book")
	}
	bs.reduce(o.remaining())
	o.resting = false
}

func (bs *bookSide) reduce(qty Quantity) {
	if qty > bs.volume {
		panic("core: book volume underflow")
	}
	bs.volume -= qty
}

func (bs *bookSide) scan(fn func(k restingKey) bool) { bs.index.Scan(fn) }

func (bs *bookSide) clear() {
	bs.index.Clear()
	bs.volume = 0
}
