package codec

import (
	"slices"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Metadata describes a stream or capture: where the records come from and
// how instrument ids map to symbols.
type Metadata struct {
	Dataset string
	Start   uint64
	Symbols map[uint32]string
}

// Symbol returns the symbol mapped to an instrument.
func (m Metadata) Symbol(instrumentID uint32) (string, bool) {
	s, ok := m.Symbols[instrumentID]
	return s, ok
}

const (
	fieldDataset protowire.Number = 1
	fieldStart   protowire.Number = 2
	fieldSymbol  protowire.Number = 3

	fieldMappingID     protowire.Number = 1
	fieldMappingSymbol protowire.Number = 2
)

func MarshalMetadata(m Metadata) []byte {
	var b []byte
	if m.Dataset != "" {
		b = protowire.AppendTag(b, fieldDataset, protowire.BytesType)
		b = protowire.AppendString(b, m.Dataset)
	}
	b = appendVarint(b, fieldStart, m.Start)

	ids := make([]uint32, 0, len(m.Symbols))
	for id := range m.Symbols {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldMappingID, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(id))
		entry = protowire.AppendTag(entry, fieldMappingSymbol, protowire.BytesType)
		entry = protowire.AppendString(entry, m.Symbols[id])

		b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func UnmarshalMetadata(b []byte) (Metadata, error) {
	m := Metadata{Symbols: map[uint32]string{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch {
		case num == fieldDataset && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, errors.Wrap(ErrMalformed, "dataset")
			}
			m.Dataset = s
			b = b[n:]
		case num == fieldStart && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, errors.Wrap(ErrMalformed, "start")
			}
			m.Start = v
			b = b[n:]
		case num == fieldSymbol && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, errors.Wrap(ErrMalformed, "symbol mapping")
			}
			id, sym, err := unmarshalMapping(entry)
			if err != nil {
				return m, err
			}
			m.Symbols[id] = sym
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			b = b[n:]
		}
	}
	return m, nil
}

func unmarshalMapping(b []byte) (uint32, string, error) {
	var id uint32
	var sym string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, "", errors.Wrap(ErrMalformed, "symbol mapping tag")
		}
		b = b[n:]
		switch {
		case num == fieldMappingID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, "", errors.Wrap(ErrMalformed, "symbol mapping id")
			}
			id = uint32(v)
			b = b[n:]
		case num == fieldMappingSymbol && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, "", errors.Wrap(ErrMalformed, "symbol mapping symbol")
			}
			sym = s
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, "", errors.Wrap(ErrMalformed, "symbol mapping field")
			}
			b = b[n:]
		}
	}
	return id, sym, nil
}
