package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"mbobook/config"
	"mbobook/domain/mbo"
	"mbobook/infra/capture"
	"mbobook/infra/codec"
	"mbobook/infra/kafka"
	"mbobook/pkg/logger"
)

const publishBatch = 1000

func main() {
	configPath := flag.String("config", "", "YAML config file")
	captureDir := flag.String("capture", "", "capture directory to serve (default capture.dir)")
	bind := flag.String("bind", "", "address to listen on (default feed.addr)")
	mode := flag.String("mode", "", "buffered (load once) or streaming (re-read per client)")
	toKafka := flag.Bool("kafka", false, "publish the capture to kafka.events_topic instead of serving TCP")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *captureDir != "" {
		cfg.Capture.Dir = *captureDir
	}
	if *bind != "" {
		cfg.Feed.Addr = *bind
	}
	if *mode != "" {
		cfg.Feed.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Capture.Dir == "" {
		log.Fatal(errors.New("no capture directory: set -capture or capture.dir"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *toKafka {
		if err := publish(ctx, cfg, log); err != nil {
			log.Fatal(err)
		}
		return
	}

	var src source
	switch cfg.Feed.Mode {
	case "buffered":
		log.Info("loading capture", logger.NewField("dir", cfg.Capture.Dir))
		b, err := loadBuffered(cfg.Capture.Dir)
		if err != nil {
			log.Fatal(err)
		}
		log.Info("capture loaded", logger.NewField("records", len(b.events)))
		src = b
	default:
		src = streaming{dir: cfg.Capture.Dir}
	}

	ln, err := net.Listen("tcp", cfg.Feed.Addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("listening",
		logger.NewField("addr", ln.Addr().String()),
		logger.NewField("mode", cfg.Feed.Mode),
	)

	srv := &server{src: src, log: log}
	if err := srv.serve(ctx, ln); err != nil {
		log.Fatal(err)
	}
}

func publish(ctx context.Context, cfg *config.Config, log logger.Interface) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka publishing needs kafka.brokers")
	}
	p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer p.Close()

	batch := make([]mbo.Event, 0, publishBatch)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.Publish(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := capture.Read(cfg.Capture.Dir, capture.Handler{
		Metadata: func(md codec.Metadata) error {
			if err := flush(); err != nil {
				return err
			}
			return p.PublishMetadata(ctx, md)
		},
		Event: func(ev mbo.Event) error {
			batch = append(batch, ev)
			if len(batch) == cap(batch) {
				return flush()
			}
			return nil
		},
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return err
	}
	log.Info("capture published",
		logger.NewField("topic", cfg.Kafka.EventsTopic),
		logger.NewField("records", total),
	)
	return nil
}
