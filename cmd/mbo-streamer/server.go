package main

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"mbobook/domain/mbo"
	"mbobook/infra/capture"
	"mbobook/infra/codec"
	"mbobook/pkg/logger"
)

// source writes a full feed, metadata first, to one client.
type source interface {
	stream(w io.Writer) error
}

type buffered struct {
	md     codec.Metadata
	events []mbo.Event
}

func loadBuffered(dir string) (*buffered, error) {
	md, events, err := capture.Load(dir)
	if err != nil {
		return nil, err
	}
	return &buffered{md: md, events: events}, nil
}

func (b *buffered) stream(w io.Writer) error {
	enc, err := codec.NewWriter(w, b.md)
	if err != nil {
		return err
	}
	for _, ev := range b.events {
		if err := enc.Write(ev); err != nil {
			return err
		}
	}
	return enc.Flush()
}

// streaming re-reads the capture for every client.
type streaming struct {
	dir string
}

func (s streaming) stream(w io.Writer) error {
	var enc *codec.Writer
	err := capture.Read(s.dir, capture.Handler{
		Metadata: func(md codec.Metadata) error {
			if enc != nil {
				return nil
			}
			var err error
			enc, err = codec.NewWriter(w, md)
			return err
		},
		Event: func(ev mbo.Event) error {
			if enc == nil {
				var err error
				if enc, err = codec.NewWriter(w, codec.Metadata{}); err != nil {
					return err
				}
			}
			return enc.Write(ev)
		},
	})
	if err != nil {
		return err
	}
	if enc == nil {
		if enc, err = codec.NewWriter(w, codec.Metadata{}); err != nil {
			return err
		}
	}
	return enc.Flush()
}

type server struct {
	src source
	log logger.Interface
	wg  sync.WaitGroup
}

// serve accepts clients until ctx is done, then waits for open streams.
func (s *server) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	peer := logger.NewField("peer", conn.RemoteAddr().String())
	s.log.Info("client connected", peer)
	if err := s.src.stream(conn); err != nil {
		s.log.Error(err, peer)
		return
	}
	s.log.Info("finished streaming", peer)
}
