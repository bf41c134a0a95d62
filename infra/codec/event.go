package codec

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"mbobook/domain/mbo"
)

// ErrMalformed is returned for payloads that cannot be decoded.
var ErrMalformed = errors.New("codec: malformed payload")

// Event field numbers. Zero values are omitted on the wire.
const (
	fieldTsRecv       protowire.Number = 1
	fieldTsEvent      protowire.Number = 2
	fieldInstrumentID protowire.Number = 3
	fieldVenueID      protowire.Number = 4
	fieldOrderID      protowire.Number = 5
	fieldSide         protowire.Number = 6
	fieldAction       protowire.Number = 7
	fieldPrice        protowire.Number = 8
	fieldSize         protowire.Number = 9
	fieldFlags        protowire.Number = 10
	fieldChannelID    protowire.Number = 11
	fieldSequence     protowire.Number = 12
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendEvent appends the encoding of ev to b.
func AppendEvent(b []byte, ev mbo.Event) []byte {
	b = appendVarint(b, fieldTsRecv, ev.TsRecv)
	b = appendVarint(b, fieldTsEvent, ev.TsEvent)
	b = appendVarint(b, fieldInstrumentID, uint64(ev.InstrumentID))
	b = appendVarint(b, fieldVenueID, uint64(ev.VenueID))
	b = appendVarint(b, fieldOrderID, ev.OrderID)
	// side and action always go out so a reader never guesses a default
	b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Side.Char()))
	b = protowire.AppendTag(b, fieldAction, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Action.Char()))
	b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(ev.Price))
	b = appendVarint(b, fieldSize, uint64(ev.Size))
	b = appendVarint(b, fieldFlags, uint64(ev.Flags))
	b = appendVarint(b, fieldChannelID, uint64(ev.ChannelID))
	b = appendVarint(b, fieldSequence, uint64(ev.Sequence))
	return b
}

func MarshalEvent(ev mbo.Event) []byte {
	return AppendEvent(make([]byte, 0, 64), ev)
}

// UnmarshalEvent decodes a payload produced by AppendEvent. Unknown fields
// are skipped; unknown side or action characters are rejected.
func UnmarshalEvent(b []byte) (mbo.Event, error) {
	var ev mbo.Event
	var haveSide, haveAction bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ev, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ev, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return ev, errors.Wrapf(ErrMalformed, "field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldTsRecv:
			ev.TsRecv = v
		case fieldTsEvent:
			ev.TsEvent = v
		case fieldInstrumentID:
			ev.InstrumentID = uint32(v)
		case fieldVenueID:
			ev.VenueID = uint16(v)
		case fieldOrderID:
			ev.OrderID = v
		case fieldSide:
			s, err := mbo.ParseSide(byte(v))
			if err != nil {
				return ev, errors.Wrap(ErrMalformed, err.Error())
			}
			ev.Side, haveSide = s, true
		case fieldAction:
			a, err := mbo.ParseAction(byte(v))
			if err != nil {
				return ev, errors.Wrap(ErrMalformed, err.Error())
			}
			ev.Action, haveAction = a, true
		case fieldPrice:
			ev.Price = protowire.DecodeZigZag(v)
		case fieldSize:
			ev.Size = uint32(v)
		case fieldFlags:
			ev.Flags = mbo.Flags(v)
		case fieldChannelID:
			ev.ChannelID = uint8(v)
		case fieldSequence:
			ev.Sequence = uint32(v)
		}
	}

	if !haveSide || !haveAction {
		return ev, errors.Wrap(ErrMalformed, "missing side or action")
	}
	return ev, nil
}
