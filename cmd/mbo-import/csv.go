package main

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
)

var requiredColumns = []string{
	"ts_recv", "ts_event", "publisher_id", "instrument_id", "action", "side",
	"price", "size", "order_id", "flags",
}

// csvReader decodes Databento-style MBO CSV. Columns are found by header
// name; prices may be fixed-point integers or decimals, timestamps epoch
// nanoseconds or RFC 3339.
type csvReader struct {
	r    *csv.Reader
	cols map[string]int
	line int
}

func newCSVReader(r io.Reader) (*csvReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("csv header lacks column %q", name)
		}
	}
	return &csvReader{r: cr, cols: cols, line: 1}, nil
}

func (c *csvReader) readAll() (codec.Metadata, []mbo.Event, error) {
	md := codec.Metadata{Symbols: map[uint32]string{}}
	var events []mbo.Event

	for {
		row, err := c.r.Read()
		if err == io.EOF {
			break
		}
		c.line++
		if err != nil {
			return md, nil, errors.Wrapf(err, "csv line %d", c.line)
		}

		ev, err := c.event(row)
		if err != nil {
			return md, nil, errors.Wrapf(err, "csv line %d", c.line)
		}
		if md.Start == 0 || ev.TsEvent < md.Start {
			md.Start = ev.TsEvent
		}
		if sym := c.field(row, "symbol"); sym != "" {
			md.Symbols[ev.InstrumentID] = sym
		}
		events = append(events, ev)
	}
	return md, events, nil
}

func (c *csvReader) field(row []string, name string) string {
	i, ok := c.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c *csvReader) event(row []string) (mbo.Event, error) {
	var ev mbo.Event
	var err error

	if ev.TsRecv, err = parseTimestamp(c.field(row, "ts_recv")); err != nil {
		return ev, errors.Wrap(err, "ts_recv")
	}
	if ev.TsEvent, err = parseTimestamp(c.field(row, "ts_event")); err != nil {
		return ev, errors.Wrap(err, "ts_event")
	}
	if ev.VenueID, err = parseUint[uint16](c.field(row, "publisher_id"), 16); err != nil {
		return ev, errors.Wrap(err, "publisher_id")
	}
	if ev.InstrumentID, err = parseUint[uint32](c.field(row, "instrument_id"), 32); err != nil {
		return ev, errors.Wrap(err, "instrument_id")
	}
	if ev.Action, err = mbo.ParseAction(firstByte(c.field(row, "action"))); err != nil {
		return ev, err
	}
	if ev.Side, err = mbo.ParseSide(firstByte(c.field(row, "side"))); err != nil {
		return ev, err
	}
	if ev.Price, err = parsePrice(c.field(row, "price")); err != nil {
		return ev, errors.Wrap(err, "price")
	}
	if ev.Size, err = parseUint[uint32](c.field(row, "size"), 32); err != nil {
		return ev, errors.Wrap(err, "size")
	}
	if ev.OrderID, err = parseUint[uint64](c.field(row, "order_id"), 64); err != nil {
		return ev, errors.Wrap(err, "order_id")
	}
	flags, err := parseUint[uint8](c.field(row, "flags"), 8)
	if err != nil {
		return ev, errors.Wrap(err, "flags")
	}
	ev.Flags = mbo.Flags(flags)

	if s := c.field(row, "channel_id"); s != "" {
		if ev.ChannelID, err = parseUint[uint8](s, 8); err != nil {
			return ev, errors.Wrap(err, "channel_id")
		}
	}
	if s := c.field(row, "sequence"); s != "" {
		if ev.Sequence, err = parseUint[uint32](s, 32); err != nil {
			return ev, errors.Wrap(err, "sequence")
		}
	}
	return ev, nil
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func parseUint[T ~uint8 | ~uint16 | ~uint32 | ~uint64](s string, bits int) (T, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	return T(v), err
}

// parsePrice accepts fixed-point integers and decimal strings. Empty means
// no price.
func parsePrice(s string) (int64, error) {
	if s == "" {
		return mbo.UndefPrice, nil
	}
	if !strings.ContainsAny(s, ".eE") {
		return strconv.ParseInt(s, 10, 64)
	}
	return mbo.ParsePrice(s)
}

func parseTimestamp(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return uint64(t.UnixNano()), nil
}
