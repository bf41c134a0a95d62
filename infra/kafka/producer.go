package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
)

// Producer publishes a feed to a topic. Messages are keyed by instrument id
// and partitioned by hash, so every instrument keeps its order.
type Producer struct {
	writer *kafka.Writer
	batch  []kafka.Message
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) PublishMetadata(ctx context.Context, md codec.Metadata) error {
	return errors.Wrap(p.writer.WriteMessages(ctx, metadataMessage(md)), "publish metadata")
}

// Publish writes events in one batch.
func (p *Producer) Publish(ctx context.Context, evs ...mbo.Event) error {
	p.batch = p.batch[:0]
	for _, ev := range evs {
		p.batch = append(p.batch, eventMessage(ev))
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, p.batch...), "publish %d events", len(evs))
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
