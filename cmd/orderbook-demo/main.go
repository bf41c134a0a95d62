package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"mbobook/config"
	"mbobook/domain/market"
	"mbobook/pkg/logger"
	"mbobook/service"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	captureDir := flag.String("capture", "", "capture directory to apply (default capture.dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *captureDir != "" {
		cfg.Capture.Dir = *captureDir
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// print the aggregated book each time an exchange event completes
	printQuote := service.SinkFunc(func(_ context.Context, q market.Quote) error {
		for _, line := range q.Lines() {
			fmt.Println(line)
		}
		return nil
	})

	svc := service.NewFeedService(log, service.WithSinks(printQuote))
	if err := svc.ReplayCapture(ctx, cfg.Capture.Dir); err != nil {
		log.Fatal(err, logger.NewField("dir", cfg.Capture.Dir))
	}

	st := svc.Stats()
	log.Info("capture applied",
		logger.NewField("applied", st.Applied),
		logger.NewField("rejected", st.Rejected),
	)
}
