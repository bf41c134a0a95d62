package service

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"mbobook/domain/market"
	"mbobook/domain/mbo"
	"mbobook/infra/codec"
	"mbobook/infra/outbox"
)

// QuoteSink receives the consolidated quote of an instrument each time a
// record closes an event batch.
type QuoteSink interface {
	Put(ctx context.Context, q market.Quote) error
}

// Recorder journals the feed as it is applied.
type Recorder interface {
	WriteMetadata(md codec.Metadata) error
	WriteEvent(ev mbo.Event) error
}

type outboxSink struct {
	ob *outbox.Outbox
}

// NewOutboxSink queues quotes for the broadcaster, keyed by instrument.
func NewOutboxSink(ob *outbox.Outbox) QuoteSink {
	return outboxSink{ob: ob}
}

func (s outboxSink) Put(_ context.Context, q market.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = s.ob.Put(binary.BigEndian.AppendUint32(nil, q.InstrumentID), b)
	return err
}

// SinkFunc adapts a function to QuoteSink.
type SinkFunc func(ctx context.Context, q market.Quote) error

func (f SinkFunc) Put(ctx context.Context, q market.Quote) error { return f(ctx, q) }
