package market

import (
	"slices"
	"strconv"

	"mbobook/domain/mbo"
	"mbobook/domain/orderbook"
)

type venueBook struct {
	venue uint16
	book  *orderbook.Book
}

// Market owns every Book, keyed by instrument and then venue.
// Like Book it is single-writer.
type Market struct {
	books    map[uint32][]venueBook
	bookOpts []orderbook.Option
}

// New creates an empty market. opts are applied to every Book it creates.
func New(opts ...orderbook.Option) *Market {
	return &Market{
		books:    make(map[uint32][]venueBook),
		bookOpts: opts,
	}
}

// Apply routes ev to the Book for its (instrument, venue), creating it on
// first use.
func (m *Market) Apply(ev mbo.Event) error {
	return m.bookFor(ev.InstrumentID, ev.VenueID).Apply(ev)
}

func (m *Market) bookFor(instrument uint32, venue uint16) *orderbook.Book {
	if b := m.find(instrument, venue); b != nil {
		return b
	}
	b := orderbook.NewBook(m.bookOpts...)
	m.books[instrument] = append(m.books[instrument], venueBook{venue: venue, book: b})
	return b
}

func (m *Market) find(instrument uint32, venue uint16) *orderbook.Book {
	for _, vb := range m.books[instrument] {
		if vb.venue == venue {
			return vb.book
		}
	}
	return nil
}

// Book returns query access to one venue's book.
func (m *Market) Book(instrument uint32, venue uint16) (orderbook.Reader, bool) {
	b := m.find(instrument, venue)
	if b == nil {
		return nil, false
	}
	return b.ReadOnly(), true
}

// BBO returns one venue's best bid and ask.
func (m *Market) BBO(instrument uint32, venue uint16) (bid, ask orderbook.PriceLevel) {
	b := m.find(instrument, venue)
	if b == nil {
		return orderbook.EmptyLevel, orderbook.EmptyLevel
	}
	return b.BBO()
}

// AggregatedBBO consolidates the best bid and ask across every venue of an
// instrument. Venues quoting the same best price are summed.
func (m *Market) AggregatedBBO(instrument uint32) (bid, ask orderbook.PriceLevel) {
	bid, ask = orderbook.EmptyLevel, orderbook.EmptyLevel
	for _, vb := range m.books[instrument] {
		b, a := vb.book.BBO()
		bid = merge(bid, b, func(x, y int64) bool { return x > y })
		ask = merge(ask, a, func(x, y int64) bool { return x < y })
	}
	return bid, ask
}

func merge(agg, l orderbook.PriceLevel, better func(x, y int64) bool) orderbook.PriceLevel {
	switch {
	case l.Empty():
		return agg
	case agg.Empty() || better(l.Price, agg.Price):
		return l
	case l.Price == agg.Price:
		agg.Size += l.Size
		agg.Count += l.Count
	}
	return agg
}

// Instruments returns the instrument ids with at least one book, ascending.
func (m *Market) Instruments() []uint32 {
	out := make([]uint32, 0, len(m.books))
	for id := range m.books {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// BookCount returns the number of (instrument, venue) books.
func (m *Market) BookCount() int {
	n := 0
	for _, vbs := range m.books {
		n += len(vbs)
	}
	return n
}

// Venues returns the venues of an instrument in first-seen order.
func (m *Market) Venues(instrument uint32) []uint16 {
	vbs := m.books[instrument]
	out := make([]uint16, 0, len(vbs))
	for _, vb := range vbs {
		out = append(out, vb.venue)
	}
	return out
}

// State maps instrument id to venue id to book state, all as decimal strings.
type State map[string]map[string]orderbook.BookState

func (m *Market) Export(includeOrders bool) State {
	out := make(State, len(m.books))
	for inst, vbs := range m.books {
		venues := make(map[string]orderbook.BookState, len(vbs))
		for _, vb := range vbs {
			venues[strconv.FormatUint(uint64(vb.venue), 10)] = vb.book.Export(includeOrders)
		}
		out[strconv.FormatUint(uint64(inst), 10)] = venues
	}
	return out
}
