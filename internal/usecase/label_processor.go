package usecase

import (
	"context"
	"fmt"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

// LabelProcessor routes labeled candles to the configured sink backend.
// Sink failures never propagate back into the candle pipeline.
type LabelProcessor struct {
	pub     domrepo.Publisher
	store   domrepo.Storage
	metrics domrepo.Metrics
	backend string
}

// NewLabelProcessor creates a processor for the given backend ("kafka",
// "clickhouse" or "none").
func NewLabelProcessor(pub domrepo.Publisher, store domrepo.Storage, metrics domrepo.Metrics, backend string) *LabelProcessor {
	return &LabelProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process forwards one labeled batch to the backend.
func (p *LabelProcessor) Process(ctx context.Context, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 || p.backend == "none" {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, tf, candles)
	case "clickhouse":
		err = p.store.Store(ctx, tf, candles)
	default:
		err = fmt.Errorf("unknown sink backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("sink")
		return fmt.Errorf("sink %s: %w", p.backend, err)
	}
	p.metrics.RecordLatency("sink", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *LabelProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
