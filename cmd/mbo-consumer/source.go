package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"mbobook/config"
	"mbobook/domain/mbo"
	"mbobook/infra/codec"
	"mbobook/infra/kafka"
)

var errLimit = errors.New("record limit reached")

type sourceHandler struct {
	metadata func(codec.Metadata) error
	event    func(mbo.Event) error
}

// feedSource delivers a feed to a handler until it ends, ctx is done or
// the handler fails.
type feedSource interface {
	Run(ctx context.Context, h sourceHandler) error
	Close() error
}

func newSource(cfg *config.Config) (feedSource, error) {
	switch cfg.Feed.Source {
	case "kafka":
		return kafkaSource{c: kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.GroupID)}, nil
	default:
		fmt.Printf("Connecting to mbo-streamer at %s\n", cfg.Feed.Addr)
		conn, err := net.Dial("tcp", cfg.Feed.Addr)
		if err != nil {
			return nil, err
		}
		return &tcpSource{conn: conn}, nil
	}
}

type tcpSource struct {
	conn net.Conn
}

func (s *tcpSource) Run(ctx context.Context, h sourceHandler) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	r, err := codec.NewReader(s.conn)
	if err != nil {
		return err
	}
	md := r.Metadata()
	fmt.Printf("Received metadata: dataset=%s, symbols=%d\n", md.Dataset, len(md.Symbols))
	if err := h.metadata(md); err != nil {
		return err
	}

	for {
		ev, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := h.event(ev); err != nil {
			return err
		}
	}
}

func (s *tcpSource) Close() error { return s.conn.Close() }

type kafkaSource struct {
	c *kafka.Consumer
}

func (s kafkaSource) Run(ctx context.Context, h sourceHandler) error {
	return s.c.Consume(ctx, kafka.Handler{Metadata: h.metadata, Event: h.event})
}

func (s kafkaSource) Close() error { return s.c.Close() }
