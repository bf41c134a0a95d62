package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"mbobook/domain/mbo"
)

func sampleEvent() mbo.Event {
	return mbo.Event{
		TsRecv:       1712131200000000001,
		TsEvent:      1712131199999999000,
		InstrumentID: 10888,
		VenueID:      39,
		OrderID:      6422542,
		Side:         mbo.Ask,
		Action:       mbo.Modify,
		Price:        -150_250_000_000,
		Size:         300,
		Flags:        mbo.FlagLast | mbo.FlagTOB,
		ChannelID:    3,
		Sequence:     987654,
	}
}

func TestEventEncoding(t *testing.T) {
	tests := []struct {
		name string
		ev   mbo.Event
	}{
		{"all fields", sampleEvent()},
		{"undefined price", mbo.Event{Side: mbo.Bid, Action: mbo.Add, Price: mbo.UndefPrice, Flags: mbo.FlagTOB}},
		{"clear without side", mbo.Event{Action: mbo.Clear, Side: mbo.SideNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalEvent(MarshalEvent(tt.ev))
			require.NoError(t, err)
			assert.Equal(t, tt.ev, got)
		})
	}
}

func TestUnmarshalEventRejectsBadInput(t *testing.T) {
	t.Run("unknown action", func(t *testing.T) {
		var b []byte
		b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
		b = protowire.AppendVarint(b, 'B')
		b = protowire.AppendTag(b, fieldAction, protowire.VarintType)
		b = protowire.AppendVarint(b, 'Z')
		_, err := UnmarshalEvent(b)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown side", func(t *testing.T) {
		var b []byte
		b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
		b = protowire.AppendVarint(b, 'Q')
		_, err := UnmarshalEvent(b)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing action", func(t *testing.T) {
		b := appendVarint(nil, fieldOrderID, 5)
		_, err := UnmarshalEvent(b)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("truncated", func(t *testing.T) {
		b := MarshalEvent(sampleEvent())
		_, err := UnmarshalEvent(b[:len(b)-1])
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown fields skipped", func(t *testing.T) {
		b := MarshalEvent(sampleEvent())
		b = protowire.AppendTag(b, 99, protowire.BytesType)
		b = protowire.AppendString(b, "future")
		got, err := UnmarshalEvent(b)
		require.NoError(t, err)
		assert.Equal(t, sampleEvent(), got)
	})
}

func TestMetadataEncoding(t *testing.T) {
	md := Metadata{
		Dataset: "DBEQ.BASIC",
		Start:   1712131200000000000,
		Symbols: map[uint32]string{10888: "GOOG", 10887: "GOOGL"},
	}
	got, err := UnmarshalMetadata(MarshalMetadata(md))
	require.NoError(t, err)
	assert.Equal(t, md, got)

	sym, ok := got.Symbol(10887)
	assert.True(t, ok)
	assert.Equal(t, "GOOGL", sym)
	_, ok = got.Symbol(1)
	assert.False(t, ok)
}

func TestStream(t *testing.T) {
	var buf bytes.Buffer
	md := Metadata{Dataset: "TEST", Symbols: map[uint32]string{1: "AAA"}}

	w, err := NewWriter(&buf, md)
	require.NoError(t, err)
	events := []mbo.Event{sampleEvent(), {Action: mbo.Clear}, {Side: mbo.Bid, Action: mbo.Add, Price: 5, Size: 1}}
	for _, ev := range events {
		require.NoError(t, w.Write(ev))
	}
	require.NoError(t, w.Flush())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, md, r.Metadata())

	var got []mbo.Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, ev)
	}
	assert.Equal(t, events, got)
}

func TestStreamCorruption(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Metadata{})
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleEvent()))
	require.NoError(t, w.Flush())
	raw := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte("XXXX"), raw[4:]...)
		_, err := NewReader(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := bytes.Clone(raw)
		bad[len(bad)-6] ^= 0xFF
		r, err := NewReader(bytes.NewReader(bad))
		require.NoError(t, err)
		_, err = r.Next()
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("cut mid frame", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(raw[:len(raw)-2]))
		require.NoError(t, err)
		_, err = r.Next()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
