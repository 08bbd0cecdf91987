package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

// blockingStream stays open until ctx is cancelled, delivering nothing.
type blockingStream struct {
	mu        sync.Mutex
	connected bool
}

func (s *blockingStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *blockingStream) Subscribe(context.Context) error { return nil }

func (s *blockingStream) Read(context.Context) (<-chan *models.CandleUpdate, <-chan error) {
	return make(chan *models.CandleUpdate), make(chan error)
}

func (s *blockingStream) Reconnect(context.Context) error { return nil }

func (s *blockingStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *blockingStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type stubHistory struct {
	fn func(ctx context.Context, interval string, target int) ([]models.Candle, error)
}

func (h *stubHistory) RecentCandles(ctx context.Context, interval string, target int) ([]models.Candle, error) {
	return h.fn(ctx, interval, target)
}

func seedCandles(n int) []models.Candle {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{OpenTime: base.Add(time.Duration(i) * time.Minute), Close: float64(i)}
	}
	return out
}

func TestOrchestratorSkipsInvalidTimeframes(t *testing.T) {
	history := &stubHistory{fn: func(context.Context, string, int) ([]models.Candle, error) {
		return seedCandles(3), nil
	}}
	factory := func(string) domrepo.KlineStream { return &blockingStream{} }

	o := NewOrchestrator(
		[]domrepo.Timeframe{"5m", "banana", "1h"},
		100, 3, factory, history, noLabels(), nil, nopMetrics{}, testLogger(t),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	statuses := o.Status()
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2 (invalid token isolated)", len(statuses))
	}
	if _, ok := o.Window("banana"); ok {
		t.Errorf("invalid timeframe must not get a window")
	}
	for _, tf := range []domrepo.Timeframe{"5m", "1h"} {
		w, ok := o.Window(tf)
		if !ok {
			t.Fatalf("missing window for %s", tf)
		}
		if w.Len() != 3 {
			t.Errorf("window %s = %d candles, want seeded 3", tf, w.Len())
		}
	}

	cancel()
	o.Wait()
}

func TestOrchestratorFailsWhenNothingStarts(t *testing.T) {
	history := &stubHistory{fn: func(context.Context, string, int) ([]models.Candle, error) {
		return nil, nil
	}}
	factory := func(string) domrepo.KlineStream { return &blockingStream{} }

	o := NewOrchestrator(
		[]domrepo.Timeframe{"nope", "also-bad"},
		100, 0, factory, history, noLabels(), nil, nopMetrics{}, testLogger(t),
	)
	if err := o.Start(context.Background()); err == nil {
		t.Fatalf("expected error when every timeframe is invalid")
	}
}

func TestOrchestratorStartsWithEmptyWindowOnSeedFailure(t *testing.T) {
	history := &stubHistory{fn: func(context.Context, string, int) ([]models.Candle, error) {
		return nil, errors.New("rest unavailable")
	}}
	factory := func(string) domrepo.KlineStream { return &blockingStream{} }

	o := NewOrchestrator(
		[]domrepo.Timeframe{"1m"},
		100, 10, factory, history, noLabels(), nil, nopMetrics{}, testLogger(t),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if err := o.Start(ctx); err != nil {
		t.Fatalf("seed failure must not abort startup: %v", err)
	}
	w, ok := o.Window("1m")
	if !ok || w.Len() != 0 {
		t.Fatalf("want empty window, got ok=%v len=%d", ok, w.Len())
	}

	cancel()
	o.Wait()
}
