package orderbook

import (
	"fmt"

	"mbobook/domain/mbo"
)

// PriceLevel is the aggregate of the orders resting at one price.
type PriceLevel struct {
	Price int64  `json:"price"`
	Size  uint64 `json:"size"`
	Count uint32 `json:"count"`
}

// EmptyLevel is returned by queries when no level exists.
var EmptyLevel = PriceLevel{Price: mbo.UndefPrice}

func (p PriceLevel) Empty() bool { return p.Price == mbo.UndefPrice }

func (p PriceLevel) String() string {
	return fmt.Sprintf("%4d @ %6s | %2d order(s)", p.Size, mbo.FormatPrice(p.Price), p.Count)
}

// level is the FIFO queue of orders at a single price.
type level struct {
	price int64

	head *order
	tail *order

	// size includes synthetic top-of-book entries, count does not.
	size  uint64
	count uint32
}

func (l *level) pushBack(o *order) {
	o.lvl = l
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.size += uint64(o.size)
	if !o.synthetic {
		l.count++
	}
}

func (l *level) unlink(o *order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.lvl = nil

	l.size -= uint64(o.size)
	if !o.synthetic {
		l.count--
	}
}

// resize changes an order's size without moving it in the queue.
func (l *level) resize(o *order, size uint32) {
	l.size = l.size - uint64(o.size) + uint64(size)
	o.size = size
}

func (l *level) empty() bool {
	return l.head == nil
}

func (l *level) view() PriceLevel {
	return PriceLevel{Price: l.price, Size: l.size, Count: l.count}
}
