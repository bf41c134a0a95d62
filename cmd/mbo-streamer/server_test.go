package main

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbobook/domain/mbo"
	"mbobook/infra/capture"
	"mbobook/infra/codec"
	entrywal "mbobook/infra/wal/entry"
	"mbobook/pkg/logger"
)

func writeCapture(t *testing.T, md codec.Metadata, evs []mbo.Event) string {
	t.Helper()
	dir := t.TempDir()
	rec, err := capture.Create(entrywal.Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, rec.WriteMetadata(md))
	for _, ev := range evs {
		require.NoError(t, rec.WriteEvent(ev))
	}
	require.NoError(t, rec.Close())
	return dir
}

func readAll(t *testing.T, r io.Reader) (codec.Metadata, []mbo.Event) {
	t.Helper()
	dec, err := codec.NewReader(r)
	require.NoError(t, err)
	var out []mbo.Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
	return dec.Metadata(), out
}

func TestSourcesStreamTheCapture(t *testing.T) {
	md := codec.Metadata{Dataset: "XNAS.ITCH", Symbols: map[uint32]string{1: "AAPL"}}
	evs := []mbo.Event{
		{InstrumentID: 1, OrderID: 1, Side: mbo.Bid, Action: mbo.Add, Price: 100 * mbo.PriceScale, Size: 5},
		{InstrumentID: 1, OrderID: 1, Side: mbo.Bid, Action: mbo.Cancel, Price: 100 * mbo.PriceScale, Size: 5, Flags: mbo.FlagLast},
	}
	dir := writeCapture(t, md, evs)

	b, err := loadBuffered(dir)
	require.NoError(t, err)

	for name, src := range map[string]source{"buffered": b, "streaming": streaming{dir: dir}} {
		t.Run(name, func(t *testing.T) {
			client, srv := net.Pipe()
			go func() {
				defer srv.Close()
				assert.NoError(t, src.stream(srv))
			}()

			gotMD, got := readAll(t, client)
			assert.Equal(t, "XNAS.ITCH", gotMD.Dataset)
			assert.Equal(t, evs, got)
		})
	}
}

func TestServerServesEveryClient(t *testing.T) {
	dir := writeCapture(t, codec.Metadata{Dataset: "D"}, []mbo.Event{
		{InstrumentID: 2, OrderID: 7, Side: mbo.Ask, Action: mbo.Add, Price: mbo.PriceScale, Size: 1},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := &server{src: streaming{dir: dir}, log: logger.NewNop()}
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		_, got := readAll(t, conn)
		conn.Close()
		assert.Len(t, got, 1)
	}

	cancel()
	assert.NoError(t, <-done)
}
