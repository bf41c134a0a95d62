package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbobook/domain/mbo"
	"mbobook/domain/orderbook"
)

func TestObserveApply(t *testing.T) {
	m := New()
	m.ObserveApply("Add", time.Microsecond, nil)
	m.ObserveApply("Add", time.Microsecond, nil)

	miss := orderbook.NewBook().Apply(mbo.Event{Action: mbo.Cancel, Side: mbo.Bid, OrderID: 1})
	require.Error(t, miss)
	m.ObserveApply("Cancel", time.Microsecond, miss)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("Add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApplyErrors.WithLabelValues("lookup_miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ApplyLatency))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "protocol_violation", ErrorKind(fmt.Errorf("x: %w", orderbook.ErrProtocolViolation)))
	assert.Equal(t, "invalid_input", ErrorKind(orderbook.ErrInvalidInput))
	assert.Equal(t, "other", ErrorKind(errors.New("boom")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.ModifyFallbacks.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mbo_modify_fallbacks_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestLatencyPercentiles(t *testing.T) {
	s := NewLatencyStats()
	assert.Empty(t, s.Percentiles(50))

	for i := 1; i <= 100; i++ {
		s.Record(time.Duration(i) * time.Microsecond)
	}
	s.Record(1500 * time.Nanosecond) // rounds up to 2us

	assert.Equal(t, uint64(101), s.Count())
	got := s.Percentiles(50, 90, 99)
	assert.Equal(t, 50*time.Microsecond, got[50])
	assert.Equal(t, 90*time.Microsecond, got[90])
	assert.Equal(t, 99*time.Microsecond, got[99])
	assert.Equal(t, "p50=50us, p90=90us, p99=99us", s.Summary())
}
