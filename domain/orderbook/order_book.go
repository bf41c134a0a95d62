package orderbook

import (
	"mbobook/domain/mbo"
	"mbobook/infra/memory"
)

var orderPool = memory.NewPool(func() *order { return &order{} })

// Book is the order book of one instrument on one venue.
// It is single-writer: Apply and the queries must not run concurrently.
type Book struct {
	orders map[uint64]*order
	bids   *rbTree
	asks   *rbTree

	onModifyFallback func(mbo.Event)
}

type Option func(*Book)

// WithModifyFallback registers fn to be called whenever a Modify for an
// unknown order is applied as an Add.
func WithModifyFallback(fn func(mbo.Event)) Option {
	return func(b *Book) {
		b.onModifyFallback = fn
	}
}

func NewBook(opts ...Option) *Book {
	b := &Book{
		orders: make(map[uint64]*order),
		bids:   newRBTree(),
		asks:   newRBTree(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply mutates the book with a single record. A rejected record returns an
// *ApplyError and leaves the book unchanged.
func (b *Book) Apply(ev mbo.Event) error {
	switch ev.Action {
	case mbo.Add:
		return b.add(ev)
	case mbo.Cancel:
		return b.cancel(ev)
	case mbo.Modify:
		return b.modify(ev)
	case mbo.Clear:
		b.clear()
		return nil
	case mbo.Trade, mbo.Fill, mbo.ActionNone:
		return nil
	default:
		return reject(ErrInvalidInput, ev, "unknown action %d", uint8(ev.Action))
	}
}

func (b *Book) levels(side mbo.Side) *rbTree {
	switch side {
	case mbo.Bid:
		return b.bids
	case mbo.Ask:
		return b.asks
	default:
		return nil
	}
}

// ──────────────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────────────

func (b *Book) add(ev mbo.Event) error {
	tree := b.levels(ev.Side)
	if tree == nil {
		return reject(ErrInvalidInput, ev, "add requires a bid or ask side, got %s", ev.Side)
	}

	if ev.IsTOB() {
		b.replaceTop(tree, ev)
		return nil
	}

	if ev.Price == mbo.UndefPrice {
		return reject(ErrInvalidInput, ev, "add without a price")
	}
	if _, ok := b.orders[ev.OrderID]; ok {
		return reject(ErrProtocolViolation, ev, "duplicate add for live order")
	}

	o := orderPool.Get()
	o.id, o.side, o.price, o.size = ev.OrderID, ev.Side, ev.Price, ev.Size
	b.orders[o.id] = o
	tree.upsert(o.price).pushBack(o)
	return nil
}

// replaceTop swaps a whole side for the single level carried by a
// top-of-book record. UndefPrice leaves the side empty.
func (b *Book) replaceTop(tree *rbTree, ev mbo.Event) {
	b.release(tree)

	if ev.Price == mbo.UndefPrice {
		return
	}
	o := orderPool.Get()
	o.id, o.side, o.price, o.size = ev.OrderID, ev.Side, ev.Price, ev.Size
	o.synthetic = true
	tree.upsert(ev.Price).pushBack(o)
}

// release empties tree, unindexing its orders and recycling their nodes.
func (b *Book) release(tree *rbTree) {
	tree.forEachAscending(func(l *level) bool {
		for o := l.head; o != nil; {
			next := o.next
			if !o.synthetic {
				delete(b.orders, o.id)
			}
			orderPool.Put(o)
			o = next
		}
		return true
	})
	tree.clear()
}

func (b *Book) cancel(ev mbo.Event) error {
	if b.levels(ev.Side) == nil {
		return reject(ErrInvalidInput, ev, "cancel requires a bid or ask side, got %s", ev.Side)
	}
	o, ok := b.orders[ev.OrderID]
	if !ok {
		return reject(ErrLookupMiss, ev, "cancel for unknown order")
	}
	if ev.Size > o.size {
		return reject(ErrProtocolViolation, ev, "cancel size %d exceeds resting size %d", ev.Size, o.size)
	}

	o.lvl.resize(o, o.size-ev.Size)
	if o.size == 0 {
		delete(b.orders, o.id)
		b.dequeue(o)
		orderPool.Put(o)
	}
	return nil
}

func (b *Book) modify(ev mbo.Event) error {
	tree := b.levels(ev.Side)
	if tree == nil {
		return reject(ErrInvalidInput, ev, "modify requires a bid or ask side, got %s", ev.Side)
	}

	o, ok := b.orders[ev.OrderID]
	if !ok {
		if err := b.add(ev); err != nil {
			return err
		}
		if b.onModifyFallback != nil {
			b.onModifyFallback(ev)
		}
		return nil
	}
	if ev.Price == mbo.UndefPrice {
		return reject(ErrInvalidInput, ev, "modify without a price")
	}

	// Same side, same price and no size increase keeps queue priority.
	if o.side == ev.Side && o.price == ev.Price && ev.Size <= o.size {
		o.lvl.resize(o, ev.Size)
		return nil
	}

	b.dequeue(o)
	o.side = ev.Side
	o.price = ev.Price
	o.size = ev.Size
	tree.upsert(o.price).pushBack(o)
	return nil
}

// dequeue unlinks o from its level and drops the level once it is empty.
func (b *Book) dequeue(o *order) {
	l := o.lvl
	tree := b.levels(o.side)
	l.unlink(o)
	if l.empty() {
		tree.remove(l.price)
	}
}

func (b *Book) clear() {
	b.release(b.bids)
	b.release(b.asks)
	clear(b.orders)
}
