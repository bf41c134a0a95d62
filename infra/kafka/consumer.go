package kafka

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
)

// Handler receives decoded feed messages. Either callback may be nil.
type Handler struct {
	Metadata func(codec.Metadata) error
	Event    func(mbo.Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a feed topic as part of a consumer group.
type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10 << 20,
		}),
	}
}

// Consume blocks until ctx is done, a callback fails or the reader errors.
// A message's offset is committed as soon as its callback returns nil, and a
// failing callback leaves it uncommitted. Delivery is therefore only as strong
// as the callback: one that merely queues the event for later processing makes
// anything still queued at a crash at-most-once.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "fetch message")
		}
		if err := dispatch(msg, h); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			return errors.Wrap(err, "commit offset")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
