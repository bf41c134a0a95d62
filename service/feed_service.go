package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mbobook/domain/market"
	"mbobook/domain/mbo"
	"mbobook/domain/orderbook"
	"mbobook/infra/codec"
	"mbobook/infra/metrics"
	"mbobook/pkg/logger"
)

/*
FeedService is the ONLY write entry point into the market.

Every event goes through Apply, under the write lock:
- journal (optional capture recorder)
- market mutation under the write lock
- metrics
- quote publication when the record closes a batch

Queries take the read lock, so they can run from any goroutine.
*/

type FeedService struct {
	mu     sync.RWMutex
	market *market.Market
	md     codec.Metadata

	recorder Recorder
	sinks    []QuoteSink
	metrics  *metrics.Metrics
	latency  *metrics.LatencyStats
	log      logger.Interface

	applied   atomic.Uint64
	rejected  atomic.Uint64
	fallbacks atomic.Uint64
}

type Option func(*FeedService)

func WithRecorder(r Recorder) Option {
	return func(s *FeedService) { s.recorder = r }
}

// WithSinks adds quote sinks. Quotes are only computed when at least one
// sink is installed.
func WithSinks(sinks ...QuoteSink) Option {
	return func(s *FeedService) { s.sinks = append(s.sinks, sinks...) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FeedService) { s.metrics = m }
}

func WithLatency(l *metrics.LatencyStats) Option {
	return func(s *FeedService) { s.latency = l }
}

func NewFeedService(log logger.Interface, opts ...Option) *FeedService {
	s := &FeedService{log: log}
	for _, opt := range opts {
		opt(s)
	}
	s.market = market.New(orderbook.WithModifyFallback(s.onModifyFallback))
	return s
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// SetMetadata installs the symbol map used to label quotes and records it.
func (s *FeedService) SetMetadata(md codec.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.md = md

	s.log.Info("feed metadata",
		logger.NewField("dataset", md.Dataset),
		logger.NewField("symbols", len(md.Symbols)),
	)
	if s.recorder != nil {
		return s.recorder.WriteMetadata(md)
	}
	return nil
}

// Apply applies one event to the market. A rejected event leaves the
// market unchanged and is returned as an *orderbook.ApplyError.
// A journal failure is returned before the event is applied; a sink
// failure after it.
func (s *FeedService) Apply(ctx context.Context, ev mbo.Event) error {
	s.mu.Lock()
	if s.recorder != nil {
		if err := s.recorder.WriteEvent(ev); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	start := time.Now()
	err := s.market.Apply(ev)
	elapsed := time.Since(start)
	var q market.Quote
	publish := err == nil && ev.IsLast() && len(s.sinks) > 0
	if publish {
		q = s.market.Quote(ev.InstrumentID, ev.TsRecv)
		q.Symbol, _ = s.md.Symbol(ev.InstrumentID)
	}
	books := s.market.BookCount()
	s.mu.Unlock()

	s.observe(ev, elapsed, err, books)
	if err != nil {
		s.rejected.Add(1)
		return err
	}
	s.applied.Add(1)

	if publish {
		return s.publish(ctx, q)
	}
	return nil
}

func (s *FeedService) observe(ev mbo.Event, elapsed time.Duration, err error, books int) {
	if s.latency != nil {
		s.latency.Record(elapsed)
	}
	if s.metrics != nil {
		s.metrics.ObserveApply(ev.Action.String(), elapsed, err)
		s.metrics.Books.Set(float64(books))
	}
}

func (s *FeedService) publish(ctx context.Context, q market.Quote) error {
	var firstErr error
	for _, sink := range s.sinks {
		err := sink.Put(ctx, q)
		if s.metrics != nil {
			if err != nil {
				s.metrics.QuotesFailed.Inc()
			} else {
				s.metrics.QuotesPublished.Inc()
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// onModifyFallback runs under the write lock.
func (s *FeedService) onModifyFallback(ev mbo.Event) {
	s.fallbacks.Add(1)
	if s.metrics != nil {
		s.metrics.ModifyFallbacks.Inc()
	}
	s.log.Debug("modify for unknown order applied as add",
		logger.NewField("instrument_id", ev.InstrumentID),
		logger.NewField("venue_id", ev.VenueID),
		logger.NewField("order_id", ev.OrderID),
	)
}

// Run applies events from in until it is closed or ctx is done. Rejected
// events are logged and skipped.
func (s *FeedService) Run(ctx context.Context, in <-chan mbo.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			s.applyLogged(ctx, ev)
		}
	}
}

func (s *FeedService) applyLogged(ctx context.Context, ev mbo.Event) {
	if err := s.applyOrSkip(ctx, ev); err != nil {
		s.log.Error(err, logger.NewField("event", ev.String()))
	}
}

// applyOrSkip logs and swallows rejected events and returns everything else.
func (s *FeedService) applyOrSkip(ctx context.Context, ev mbo.Event) error {
	err := s.Apply(ctx, ev)
	var rejected *orderbook.ApplyError
	if errors.As(err, &rejected) {
		s.log.Warn("event not applied",
			logger.NewField("error", err.Error()),
			logger.NewField("event", ev.String()),
		)
		return nil
	}
	return err
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Stats counts events since start.
type Stats struct {
	Applied        uint64
	Rejected       uint64
	ModifyFallback uint64
}

func (s *FeedService) Stats() Stats {
	return Stats{
		Applied:        s.applied.Load(),
		Rejected:       s.rejected.Load(),
		ModifyFallback: s.fallbacks.Load(),
	}
}

func (s *FeedService) Metadata() codec.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.md
}

func (s *FeedService) BBO(instrument uint32, venue uint16) (bid, ask orderbook.PriceLevel) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.BBO(instrument, venue)
}

func (s *FeedService) AggregatedBBO(instrument uint32) (bid, ask orderbook.PriceLevel) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.AggregatedBBO(instrument)
}

// View runs fn with read access to the market. fn must not retain the
// market or any Reader obtained from it.
func (s *FeedService) View(fn func(m *market.Market)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.market)
}

func (s *FeedService) Export(includeOrders bool) market.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.Export(includeOrders)
}
