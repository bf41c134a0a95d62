package orderbook

import "mbobook/domain/mbo"

type OrderState struct {
	OrderID     uint64 `json:"order_id"`
	Side        string `json:"side"`
	Price       int64  `json:"price"`
	PrettyPrice string `json:"pretty_price"`
	Size        uint32 `json:"size"`
	Synthetic   bool   `json:"synthetic,omitempty"`
}

type LevelState struct {
	Price       int64        `json:"price"`
	PrettyPrice string       `json:"pretty_price"`
	Size        uint64       `json:"size"`
	Count       uint32       `json:"count"`
	Orders      []OrderState `json:"orders,omitempty"`
}

// BookState is a detached copy of a book, best levels first.
type BookState struct {
	Bids []LevelState `json:"bids"`
	Asks []LevelState `json:"asks"`
}

func (b *Book) Export(includeOrders bool) BookState {
	return BookState{
		Bids: b.exportSide(mbo.Bid, includeOrders),
		Asks: b.exportSide(mbo.Ask, includeOrders),
	}
}

func (b *Book) exportSide(side mbo.Side, includeOrders bool) []LevelState {
	out := make([]LevelState, 0, b.LevelCount(side))
	b.walk(side, func(l *level) bool {
		ls := LevelState{
			Price:       l.price,
			PrettyPrice: mbo.FormatPrice(l.price),
			Size:        l.size,
			Count:       l.count,
		}
		if includeOrders {
			for o := l.head; o != nil; o = o.next {
				ls.Orders = append(ls.Orders, OrderState{
					OrderID:     o.id,
					Side:        o.side.String(),
					Price:       o.price,
					PrettyPrice: mbo.FormatPrice(o.price),
					Size:        o.size,
					Synthetic:   o.synthetic,
				})
			}
		}
		out = append(out, ls)
		return true
	})
	return out
}
