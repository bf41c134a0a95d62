package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mbobook/config"
	"mbobook/domain/mbo"
	"mbobook/infra/cache"
	"mbobook/infra/capture"
	"mbobook/infra/metrics"
	"mbobook/infra/outbox"
	entrywal "mbobook/infra/wal/entry"
	"mbobook/jobs/broadcaster"
	"mbobook/pkg/logger"
	"mbobook/service"
	"mbobook/snapshot"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	sourceName := flag.String("source", "", "tcp or kafka (default feed.source)")
	addr := flag.String("addr", "", "streamer address (default feed.addr)")
	limit := flag.Int("limit", 0, "stop after this many records (0 = no limit)")
	pretty := flag.Bool("pretty", false, "pretty-print records")
	quiet := flag.Bool("quiet", false, "do not print records")
	apply := flag.Bool("apply", false, "apply records to an order book market")
	record := flag.String("record", "", "record the feed into this capture directory")
	export := flag.String("export", "", "write the market as JSON here on exit (with -apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *sourceName != "" {
		cfg.Feed.Source = *sourceName
	}
	if *addr != "" {
		cfg.Feed.Addr = *addr
	}
	if *export != "" {
		cfg.Export.Path = *export
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{
		limit:  *limit,
		pretty: *pretty,
		quiet:  *quiet,
		apply:  *apply,
		record: *record,
		export: *export != "",
	}); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	limit  int
	pretty bool
	quiet  bool
	apply  bool
	record string
	export bool
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, opts options) error {
	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	var svcOpts []service.Option
	latency := metrics.NewLatencyStats()
	if opts.apply {
		m := metrics.New()
		svcOpts = append(svcOpts, service.WithMetrics(m), service.WithLatency(latency))
		if cfg.Metrics.Addr != "" {
			go serveMetrics(cfg.Metrics.Addr, m, log)
		}

		sinks, closeSinks, err := quoteSinks(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeSinks()
		svcOpts = append(svcOpts, service.WithSinks(sinks...))
	}
	if opts.record != "" {
		rec, err := capture.Create(entrywal.Config{
			Dir:             opts.record,
			SegmentSize:     cfg.Capture.SegmentSize,
			SegmentDuration: cfg.Capture.SegmentDuration,
		})
		if err != nil {
			return err
		}
		defer rec.Close()
		svcOpts = append(svcOpts, service.WithRecorder(rec))
	}
	svc := service.NewFeedService(log, svcOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var exportDone <-chan struct{}
	if opts.apply && cfg.Export.Interval > 0 {
		exportDone = svc.StartExportJob(ctx, &snapshot.Writer{Path: cfg.Export.Path}, cfg.Export.Interval, cfg.Export.IncludeOrders)
	}

	events := make(chan mbo.Event, cfg.Feed.Inbox)
	p := &printer{pretty: opts.pretty, quiet: opts.quiet, limit: opts.limit}
	srcErr := make(chan error, 1)
	go func() {
		defer close(events)
		srcErr <- src.Run(ctx, sourceHandler{
			metadata: svc.SetMetadata,
			event: func(ev mbo.Event) error {
				p.print(ev)
				// The offset commits once this returns, so events still in
				// the inbox when the process dies are not redelivered.
				if opts.apply || opts.record != "" {
					select {
					case events <- ev:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				if p.done() {
					return errLimit
				}
				return nil
			},
		})
	}()

	if opts.apply || opts.record != "" {
		if err := svc.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		for range events {
		}
	}

	err = <-srcErr
	cancel()
	if exportDone != nil {
		<-exportDone
	}

	fmt.Printf("Stream ended, total records: %d\n", p.count)
	if opts.apply {
		st := svc.Stats()
		fmt.Printf("Applied %d, rejected %d, modify fallbacks %d\n", st.Applied, st.Rejected, st.ModifyFallback)
		if latency.Count() > 0 {
			fmt.Printf("Apply latency: %s\n", latency.Summary())
		}
		if opts.export && exportDone == nil {
			w := &snapshot.Writer{Path: cfg.Export.Path}
			if _, err := svc.ExportNow(w, cfg.Export.IncludeOrders); err != nil {
				return err
			}
			log.Info("market exported", logger.NewField("path", w.Path))
		}
	}

	if errors.Is(err, errLimit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string, m *metrics.Metrics, log logger.Interface) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("metrics listening", logger.NewField("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
}

// quoteSinks wires the outbox (drained by the broadcaster) and the redis
// cache when they are configured.
func quoteSinks(ctx context.Context, cfg *config.Config, log logger.Interface) ([]service.QuoteSink, func(), error) {
	var sinks []service.QuoteSink
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Outbox.Dir != "" {
		ob, err := outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { ob.Close() })
		sinks = append(sinks, service.NewOutboxSink(ob))

		if len(cfg.Kafka.Brokers) > 0 {
			producer, err := broadcaster.NewSyncProducer(cfg.Kafka.Brokers)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			b := broadcaster.New(ob, producer, cfg.Kafka.QuotesTopic, cfg.Outbox.Interval, log)
			bctx, bcancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				b.Run(bctx)
				close(done)
			}()
			closers = append(closers, func() {
				bcancel()
				<-done
				b.Close()
			})
		}
	}

	if cfg.Redis.Addr != "" {
		c := cache.NewQuoteCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		closers = append(closers, func() { c.Close() })
		sinks = append(sinks, c)
	}
	return sinks, closeAll, nil
}
