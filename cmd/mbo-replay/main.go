package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"mbobook/domain/mbo"
	"mbobook/infra/capture"
	"mbobook/infra/codec"
)

var errLimit = errors.New("limit reached")

func main() {
	limit := flag.Int("limit", 0, "maximum number of records to print (0 = no limit)")
	pretty := flag.Bool("pretty", false, "pretty-print records")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] CAPTURE_DIR\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	dir := flag.Arg(0)
	fmt.Printf("Reading capture: %s\n", dir)

	n := 0
	err := capture.Read(dir, capture.Handler{
		Metadata: func(md codec.Metadata) error {
			fmt.Printf("metadata: dataset=%s start=%d symbols=%d\n", md.Dataset, md.Start, len(md.Symbols))
			return nil
		},
		Event: func(ev mbo.Event) error {
			n++
			if *pretty {
				fmt.Printf("#%-6d %s\n", n, ev)
			} else {
				fmt.Printf("%d: %#v\n", n, ev)
			}
			if *limit > 0 && n >= *limit {
				return errLimit
			}
			return nil
		},
	})
	if err != nil && !errors.Is(err, errLimit) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
