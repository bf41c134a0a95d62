package service

import (
	"context"
	"errors"
	"io"

	"mbobook/domain/mbo"
	"mbobook/infra/capture"
	"mbobook/infra/codec"
)

// ReplayCapture applies a capture directory in order. Rejected events are
// logged and skipped; the first journal or sink failure stops the replay.
func (s *FeedService) ReplayCapture(ctx context.Context, dir string) error {
	return capture.Read(dir, capture.Handler{
		Metadata: s.SetMetadata,
		Event: func(ev mbo.Event) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return s.applyOrSkip(ctx, ev)
		},
	})
}

// ReplayStream applies every event of an encoded stream.
func (s *FeedService) ReplayStream(ctx context.Context, r *codec.Reader) error {
	if err := s.SetMetadata(r.Metadata()); err != nil {
		return err
	}
	for {
		ev, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.applyOrSkip(ctx, ev); err != nil {
			return err
		}
	}
}
