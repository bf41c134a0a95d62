package orderbook

import "mbobook/domain/mbo"

// order is a resting order. It belongs to exactly one level at a time.
type order struct {
	id    uint64
	side  mbo.Side
	price int64
	size  uint32

	// synthetic entries come from top-of-book records and are never indexed.
	synthetic bool

	lvl  *level
	next *order
	prev *order
}

// OrderInfo is the public view of a resting order.
type OrderInfo struct {
	Side  mbo.Side
	Price int64
	Size  uint32
}

func (o *order) info() OrderInfo {
	return OrderInfo{Side: o.side, Price: o.price, Size: o.size}
}
