package service

import (
	"context"
	"time"

	"mbobook/pkg/logger"
	"mbobook/snapshot"
)

// ExportNow writes the current market to w.
func (s *FeedService) ExportNow(w *snapshot.Writer, includeOrders bool) (snapshot.Snapshot, error) {
	snap := snapshot.New(s.applied.Load(), s.Export(includeOrders))
	return snap, w.Write(snap)
}

// StartExportJob exports the market every interval until ctx is done, and
// once more on the way out.
func (s *FeedService) StartExportJob(ctx context.Context, w *snapshot.Writer, interval time.Duration, includeOrders bool) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				s.exportLogged(w, includeOrders)
				return
			case <-t.C:
				s.exportLogged(w, includeOrders)
			}
		}
	}()

	return done
}

func (s *FeedService) exportLogged(w *snapshot.Writer, includeOrders bool) {
	snap, err := s.ExportNow(w, includeOrders)
	if err != nil {
		s.log.Error(err, logger.NewField("path", w.Path))
		return
	}
	s.log.Debug("market exported",
		logger.NewField("id", snap.ID.String()),
		logger.NewField("events", snap.Events),
	)
}
