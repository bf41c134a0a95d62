package main

import (
	"fmt"
	"io"
	"os"

	"mbobook/domain/mbo"
)

type printer struct {
	out    io.Writer
	pretty bool
	quiet  bool
	limit  int
	count  int
}

func (p *printer) print(ev mbo.Event) {
	p.count++
	if p.quiet {
		return
	}
	w := p.out
	if w == nil {
		w = os.Stdout
	}
	if p.pretty {
		fmt.Fprintf(w, "#%-6d %s\n", p.count, ev)
		return
	}
	fmt.Fprintf(w, "%d: %#v\n", p.count, ev)
}

func (p *printer) done() bool {
	return p.limit > 0 && p.count >= p.limit
}
