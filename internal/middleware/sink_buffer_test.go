package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

type nopMetrics struct{}

func (nopMetrics) RecordCandle(string, float64)  {}
func (nopMetrics) RecordWindowSize(string, int)  {}
func (nopMetrics) RecordLabels(string, int)      {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type recordingSink struct {
	mu      sync.Mutex
	batches []int
	fail    int
}

func (s *recordingSink) Process(_ context.Context, _ domrepo.Timeframe, candles []models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("sink down")
	}
	s.batches = append(s.batches, len(candles))
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += b
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("condition not reached")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSinkBufferFlushesBatches(t *testing.T) {
	sink := &recordingSink{}
	b := NewSinkBuffer(sink, nopMetrics{})
	b.Start(context.Background())
	defer b.Stop()

	b.Enqueue("5m", []models.Candle{{Close: 1}, {Close: 2}})
	b.Enqueue("1h", []models.Candle{{Close: 3}})

	waitFor(t, func() bool { return sink.total() == 3 })
}

func TestSinkBufferRetriesAfterFailure(t *testing.T) {
	sink := &recordingSink{fail: 2}
	b := NewSinkBuffer(sink, nopMetrics{}, WithBufferSize(8))
	b.Start(context.Background())
	defer b.Stop()

	b.Enqueue("5m", []models.Candle{{Close: 1}})

	waitFor(t, func() bool { return sink.total() == 1 })
}

func TestSinkBufferDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	b := NewSinkBuffer(sink, nopMetrics{}, WithBufferSize(1))
	// not started: the buffer holds one batch, the second is dropped
	b.Enqueue("5m", []models.Candle{{Close: 1}})
	b.Enqueue("5m", []models.Candle{{Close: 2}})

	b.Start(context.Background())
	defer b.Stop()

	waitFor(t, func() bool { return sink.total() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := sink.total(); got != 1 {
		t.Fatalf("flushed %d candles, want 1 after drop", got)
	}
}

type downSink struct {
	mu       sync.Mutex
	attempts int
}

func (s *downSink) Process(context.Context, domrepo.Timeframe, []models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return errors.New("sink down")
}

func (s *downSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func TestSinkBufferStopInterruptsRetryBackoff(t *testing.T) {
	sink := &downSink{}
	b := NewSinkBuffer(sink, nopMetrics{}, WithBufferSize(8))
	b.Start(context.Background())

	b.Enqueue("5m", []models.Candle{{Close: 1}})
	waitFor(t, func() bool { return sink.count() >= 1 })

	b.Stop()
	got := sink.count()
	time.Sleep(300 * time.Millisecond)
	if sink.count() != got {
		t.Fatalf("sink attempted %d flushes after Stop", sink.count()-got)
	}
}

func TestSinkBufferIgnoresEmptyBatches(t *testing.T) {
	sink := &recordingSink{}
	b := NewSinkBuffer(sink, nopMetrics{})
	b.Start(context.Background())
	defer b.Stop()

	b.Enqueue("5m", nil)
	time.Sleep(50 * time.Millisecond)
	if sink.total() != 0 {
		t.Fatalf("empty batch must not reach the sink")
	}
}
