package kafka

import (
	"encoding/binary"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
)

func collect(t *testing.T, msgs ...kafka.Message) (codec.Metadata, []mbo.Event) {
	t.Helper()
	var md codec.Metadata
	var evs []mbo.Event
	h := Handler{
		Metadata: func(m codec.Metadata) error { md = m; return nil },
		Event:    func(ev mbo.Event) error { evs = append(evs, ev); return nil },
	}
	for _, msg := range msgs {
		require.NoError(t, dispatch(msg, h))
	}
	return md, evs
}

func TestEventMessagesAreKeyedByInstrument(t *testing.T) {
	ev := mbo.Event{InstrumentID: 4242, VenueID: 1, OrderID: 9, Side: mbo.Ask, Action: mbo.Add, Price: 5 * mbo.PriceScale, Size: 2}
	msg := eventMessage(ev)

	assert.Equal(t, uint32(4242), binary.BigEndian.Uint32(msg.Key))
	assert.Equal(t, typeEvent, messageType(msg))

	_, evs := collect(t, msg)
	assert.Equal(t, []mbo.Event{ev}, evs)
}

func TestMetadataMessage(t *testing.T) {
	md := codec.Metadata{Dataset: "GLBX.MDP3", Symbols: map[uint32]string{1: "ESZ5"}}
	got, evs := collect(t, metadataMessage(md))

	assert.Empty(t, evs)
	assert.Equal(t, "GLBX.MDP3", got.Dataset)
	sym, ok := got.Symbol(1)
	require.True(t, ok)
	assert.Equal(t, "ESZ5", sym)
}

func TestDispatchRejectsBadMessages(t *testing.T) {
	bad := kafka.Message{Headers: []kafka.Header{{Key: headerType, Value: []byte("quote")}}}
	assert.Error(t, dispatch(bad, Handler{}))

	garbage := kafka.Message{Value: []byte{0xff, 0xff}}
	assert.Error(t, dispatch(garbage, Handler{}))
}

func TestUntypedMessagesAreEvents(t *testing.T) {
	ev := mbo.Event{InstrumentID: 1, Side: mbo.Bid, Action: mbo.Clear}
	msg := kafka.Message{Value: codec.MarshalEvent(ev)}
	_, evs := collect(t, msg)
	assert.Len(t, evs, 1)
}
