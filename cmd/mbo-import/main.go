package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"mbobook/config"
	"mbobook/infra/capture"
	entrywal "mbobook/infra/wal/entry"
	"mbobook/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	out := flag.String("out", "", "capture directory to write (default capture.dir)")
	dataset := flag.String("dataset", "", "dataset name stored in the capture metadata")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] MBO_CSV\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *out != "" {
		cfg.Capture.Dir = *out
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Capture.Dir == "" {
		log.Fatal(errors.New("no capture directory: set -out or capture.dir"))
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	rec, err := capture.Create(entrywal.Config{
		Dir:             cfg.Capture.Dir,
		SegmentSize:     cfg.Capture.SegmentSize,
		SegmentDuration: cfg.Capture.SegmentDuration,
	})
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	n, err := importCSV(f, rec, *dataset)
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal(err, logger.NewField("imported", n))
	}
	log.Info("capture written",
		logger.NewField("dir", cfg.Capture.Dir),
		logger.NewField("records", n),
		logger.NewField("elapsed", time.Since(start).String()),
	)
}

// importCSV reads every row before writing, so the symbol map can lead the
// capture.
func importCSV(r io.Reader, rec *capture.Recorder, dataset string) (int, error) {
	rows, err := newCSVReader(r)
	if err != nil {
		return 0, err
	}
	md, events, err := rows.readAll()
	if err != nil {
		return 0, err
	}
	md.Dataset = dataset

	if err := rec.WriteMetadata(md); err != nil {
		return 0, err
	}
	for i, ev := range events {
		if err := rec.WriteEvent(ev); err != nil {
			return i, err
		}
	}
	return len(events), nil
}
