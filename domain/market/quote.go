package market

import (
	"strconv"
	"time"

	"mbobook/domain/orderbook"
)

// Quote is the consolidated top of book of one instrument at a point in
// the feed.
type Quote struct {
	InstrumentID uint32               `json:"instrument_id"`
	Symbol       string               `json:"symbol,omitempty"`
	TsRecv       uint64               `json:"ts_recv"`
	Bid          orderbook.PriceLevel `json:"bid"`
	Ask          orderbook.PriceLevel `json:"ask"`
}

// Quote snapshots the aggregated BBO of instrument, stamped with tsRecv.
func (m *Market) Quote(instrument uint32, tsRecv uint64) Quote {
	bid, ask := m.AggregatedBBO(instrument)
	return Quote{InstrumentID: instrument, TsRecv: tsRecv, Bid: bid, Ask: ask}
}

// Lines renders the quote the way the demo tool prints it: header, best
// offer, then best bid. Missing sides print as None.
func (q Quote) Lines() []string {
	name := q.Symbol
	if name == "" {
		name = strconv.FormatUint(uint64(q.InstrumentID), 10)
	}
	return []string{
		name + " Aggregated BBO | " + time.Unix(0, int64(q.TsRecv)).UTC().Format(time.RFC3339Nano),
		"    " + sideLine(q.Ask),
		"    " + sideLine(q.Bid),
	}
}

func sideLine(l orderbook.PriceLevel) string {
	if l.Empty() {
		return "None"
	}
	return l.String()
}
