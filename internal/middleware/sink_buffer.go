package middleware

import (
	"context"
	"sync"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

// LabelSink receives labeled candles after a merge.
type LabelSink interface {
	Process(ctx context.Context, tf domrepo.Timeframe, candles []models.Candle) error
}

type batch struct {
	tf      domrepo.Timeframe
	candles []models.Candle
}

// SinkBuffer decouples the per-timeframe pipelines from the sink: batches
// are handed off without blocking, flushed in the background, and retried
// with backoff while the sink is unavailable. A full buffer drops the
// oldest-pressure batch rather than stalling candle processing.
type SinkBuffer struct {
	sink    LabelSink
	metrics domrepo.Metrics
	bufCh   chan batch
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type SinkBufferOption func(*SinkBuffer)

// WithBufferSize sets the number of pending batches held while the sink is
// down.
func WithBufferSize(n int) SinkBufferOption {
	return func(b *SinkBuffer) {
		if n > 0 {
			b.bufCh = make(chan batch, n)
		}
	}
}

// NewSinkBuffer creates a buffer in front of sink.
func NewSinkBuffer(sink LabelSink, metrics domrepo.Metrics, opts ...SinkBufferOption) *SinkBuffer {
	b := &SinkBuffer{
		sink:    sink,
		metrics: metrics,
		bufCh:   make(chan batch, 256),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the background flush loop.
func (b *SinkBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			case bt := <-b.bufCh:
				if len(bt.candles) == 0 {
					continue
				}
				if err := b.sink.Process(ctx, bt.tf, bt.candles); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					b.metrics.RecordError("sink_flush")
					select {
					case <-b.stopCh:
						return
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					// requeue if space; drop otherwise
					select {
					case b.bufCh <- bt:
					default:
						b.metrics.RecordError("sink_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (b *SinkBuffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
}

// Enqueue hands a labeled batch to the flush loop without blocking.
func (b *SinkBuffer) Enqueue(tf domrepo.Timeframe, candles []models.Candle) {
	if len(candles) == 0 {
		return
	}
	select {
	case b.bufCh <- batch{tf: tf, candles: candles}:
	default:
		b.metrics.RecordError("sink_buffer_full")
	}
}
