package orderbook

import "mbobook/domain/mbo"

// LevelPair holds the bid and ask level at the same depth.
type LevelPair struct {
	Bid PriceLevel
	Ask PriceLevel
}

// Reader is the query surface of a Book.
type Reader interface {
	BBO() (bid, ask PriceLevel)
	LevelAt(side mbo.Side, rank int) PriceLevel
	LevelAtPrice(side mbo.Side, price int64) PriceLevel
	OrderLookup(orderID uint64) (OrderInfo, bool)
	QueuePosition(orderID uint64) (uint64, bool)
	DepthSnapshot(n int) []LevelPair
	OrderCount() int
	Export(includeOrders bool) BookState
}

var _ Reader = (*Book)(nil)

// readOnly hides the mutating methods of a Book behind Reader.
type readOnly struct{ b *Book }

// ReadOnly returns a Reader that cannot be asserted back to *Book.
func (b *Book) ReadOnly() Reader { return readOnly{b} }

func (r readOnly) BBO() (bid, ask PriceLevel) { return r.b.BBO() }
func (r readOnly) LevelAt(side mbo.Side, rank int) PriceLevel { return r.b.LevelAt(side, rank) }
func (r readOnly) LevelAtPrice(side mbo.Side, p int64) PriceLevel { return r.b.LevelAtPrice(side, p) }
func (r readOnly) OrderLookup(id uint64) (OrderInfo, bool) { return r.b.OrderLookup(id) }
func (r readOnly) QueuePosition(id uint64) (uint64, bool) { return r.b.QueuePosition(id) }
func (r readOnly) DepthSnapshot(n int) []LevelPair { return r.b.DepthSnapshot(n) }
func (r readOnly) OrderCount() int { return r.b.OrderCount() }
func (r readOnly) Export(includeOrders bool) BookState { return r.b.Export(includeOrders) }

// walk visits the levels of a side from best to worst.
func (b *Book) walk(side mbo.Side, fn func(*level) bool) {
	switch side {
	case mbo.Bid:
		b.bids.forEachDescending(fn)
	case mbo.Ask:
		b.asks.forEachAscending(fn)
	}
}

// BBO returns the best bid and best ask, EmptyLevel where a side is empty.
func (b *Book) BBO() (bid, ask PriceLevel) {
	return b.LevelAt(mbo.Bid, 0), b.LevelAt(mbo.Ask, 0)
}

// LevelAt returns the level at 0-based depth rank.
func (b *Book) LevelAt(side mbo.Side, rank int) PriceLevel {
	out := EmptyLevel
	if rank < 0 {
		return out
	}
	i := 0
	b.walk(side, func(l *level) bool {
		if i == rank {
			out = l.view()
			return false
		}
		i++
		return true
	})
	return out
}

func (b *Book) LevelAtPrice(side mbo.Side, price int64) PriceLevel {
	tree := b.levels(side)
	if tree == nil {
		return EmptyLevel
	}
	if l := tree.find(price); l != nil {
		return l.view()
	}
	return EmptyLevel
}

func (b *Book) OrderLookup(orderID uint64) (OrderInfo, bool) {
	o, ok := b.orders[orderID]
	if !ok {
		return OrderInfo{}, false
	}
	return o.info(), true
}

// QueuePosition returns the total size queued strictly ahead of the order.
func (b *Book) QueuePosition(orderID uint64) (uint64, bool) {
	o, ok := b.orders[orderID]
	if !ok {
		return 0, false
	}
	var ahead uint64
	for p := o.lvl.head; p != o; p = p.next {
		ahead += uint64(p.size)
	}
	return ahead, true
}

// DepthSnapshot returns n bid/ask pairs for ranks 0..n-1.
func (b *Book) DepthSnapshot(n int) []LevelPair {
	if n <= 0 {
		return nil
	}
	out := make([]LevelPair, n)
	for i := range out {
		out[i] = LevelPair{Bid: EmptyLevel, Ask: EmptyLevel}
	}

	i := 0
	b.walk(mbo.Bid, func(l *level) bool {
		out[i].Bid = l.view()
		i++
		return i < n
	})
	i = 0
	b.walk(mbo.Ask, func(l *level) bool {
		out[i].Ask = l.view()
		i++
		return i < n
	})
	return out
}

// OrderCount returns the number of tracked resting orders.
func (b *Book) OrderCount() int {
	return len(b.orders)
}

// LevelCount returns the number of price levels on a side.
func (b *Book) LevelCount(side mbo.Side) int {
	tree := b.levels(side)
	if tree == nil {
		return 0
	}
	return tree.len()
}
