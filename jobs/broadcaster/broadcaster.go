package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"mbobook/infra/outbox"
	"mbobook/pkg/logger"
)

const defaultInterval = 250 * time.Millisecond

// Broadcaster drains the quote outbox into a Kafka topic. Delivery is at
// least once: a record left SENT by a crash is published again.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      logger.Interface
}

// NewSyncProducer builds the producer Broadcaster expects: acks from every
// in-sync replica and successes returned.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	p, err := sarama.NewSyncProducer(brokers, ProducerConfig())
	return p, errors.Wrap(err, "sarama producer")
}

func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func New(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration, log logger.Interface) *Broadcaster {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Run drains on every tick until ctx is done, then drains once more.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", logger.NewField("topic", b.topic))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.drain()
			b.log.Info("broadcaster stopped")
			return
		case <-ticker.C:
			b.drain()
		}
	}
}

func (b *Broadcaster) drain() {
	sent, err := b.DrainOnce()
	if err != nil {
		b.log.Error(err, logger.NewField("published", sent))
		return
	}
	if sent > 0 {
		if _, err := b.outbox.Prune(); err != nil {
			b.log.Error(err)
		}
	}
}

// DrainOnce publishes every NEW or SENT record in sequence order and stops
// at the first broker failure, so ordering is kept across retries.
func (b *Broadcaster) DrainOnce() (int, error) {
	sent := 0
	err := b.outbox.Scan(func(rec outbox.Record) error {
		if err := b.outbox.Mark(rec.Seq, outbox.StateSent); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if len(rec.Key) > 0 {
			msg.Key = sarama.ByteEncoder(rec.Key)
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			return errors.Wrapf(err, "publish quote %d", rec.Seq)
		}

		sent++
		return b.outbox.Mark(rec.Seq, outbox.StateAcked)
	}, outbox.StateNew, outbox.StateSent)
	return sent, err
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
