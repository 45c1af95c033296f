package orderbook

import (
	"github.com/google/btree"

	"github.com/rickgao/dashfeed/internal/model"
)

// Side selects one side of the book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

const btreeDegree = 16

// Book holds the price levels of one symbol. Not safe for concurrent use.
type Book struct {
	bids *btree.BTreeG[model.PriceLevel]
	asks *btree.BTreeG[model.PriceLevel]
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		bids: btree.NewG(btreeDegree, func(a, b model.PriceLevel) bool {
			return a.Price > b.Price
		}),
		asks: btree.NewG(btreeDegree, func(a, b model.PriceLevel) bool {
			return a.Price < b.Price
		}),
	}
}

func (b *Book) side(s Side) *btree.BTreeG[model.PriceLevel] {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// Set applies one level update. Zero quantity removes the level.
func (b *Book) Set(s Side, price, quantity model.Amount) {
	tree := b.side(s)
	if quantity.IsZero() {
		tree.Delete(model.PriceLevel{Price: price})
		return
	}
	tree.ReplaceOrInsert(model.PriceLevel{Price: price, Quantity: quantity})
}

// Quantity returns the quantity resting at price.
func (b *Book) Quantity(s Side, price model.Amount) (model.Amount, bool) {
	level, ok := b.side(s).Get(model.PriceLevel{Price: price})
	return level.Quantity, ok
}

// ApplyUpdate applies every level of a depth update, bids first.
func (b *Book) ApplyUpdate(u DepthUpdate) {
	for _, l := range u.Bids {
		b.Set(Bid, l[0], l[1])
	}
	for _, l := range u.Asks {
		b.Set(Ask, l[0], l[1])
	}
}

// Levels returns up to n levels of one side, best first. n <= 0 returns all.
func (b *Book) Levels(s Side, n int) []model.PriceLevel {
	tree := b.side(s)
	size := tree.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]model.PriceLevel, 0, n)
	tree.Ascend(func(l model.PriceLevel) bool {
		if len(out) == n {
			return false
		}
		out = append(out, l)
		return true
	})
	return out
}

// Depth returns the number of levels on one side.
func (b *Book) Depth(s Side) int {
	return b.side(s).Len()
}

// Reset removes every level.
func (b *Book) Reset() {
	b.bids.Clear(true)
	b.asks.Clear(true)
}
