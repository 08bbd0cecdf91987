package usecase

import (
	"context"
	"errors"
	"testing"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

type countingPublisher struct {
	published int
	err       error
}

func (p *countingPublisher) Publish(_ context.Context, _ domrepo.Timeframe, candles []models.Candle) error {
	if p.err != nil {
		return p.err
	}
	p.published += len(candles)
	return nil
}
func (p *countingPublisher) Close() error { return nil }

type countingStorage struct {
	stored int
}

func (s *countingStorage) Store(_ context.Context, _ domrepo.Timeframe, candles []models.Candle) error {
	s.stored += len(candles)
	return nil
}
func (s *countingStorage) Health(context.Context) error { return nil }
func (s *countingStorage) Close() error                 { return nil }

func TestLabelProcessorRoutesToKafka(t *testing.T) {
	pub := &countingPublisher{}
	store := &countingStorage{}
	p := NewLabelProcessor(pub, store, nopMetrics{}, "kafka")

	batch := []models.Candle{{Close: 1, Label: "up"}, {Close: 2, Label: "down"}}
	if err := p.Process(context.Background(), "5m", batch); err != nil {
		t.Fatalf("process: %v", err)
	}
	if pub.published != 2 || store.stored != 0 {
		t.Errorf("published=%d stored=%d, want kafka only", pub.published, store.stored)
	}
}

func TestLabelProcessorRoutesToClickHouse(t *testing.T) {
	pub := &countingPublisher{}
	store := &countingStorage{}
	p := NewLabelProcessor(pub, store, nopMetrics{}, "clickhouse")

	if err := p.Process(context.Background(), "1h", []models.Candle{{Label: "x"}}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.stored != 1 || pub.published != 0 {
		t.Errorf("published=%d stored=%d, want clickhouse only", pub.published, store.stored)
	}
}

func TestLabelProcessorNoneDiscards(t *testing.T) {
	p := NewLabelProcessor(nil, nil, nopMetrics{}, "none")
	if err := p.Process(context.Background(), "5m", []models.Candle{{Label: "x"}}); err != nil {
		t.Fatalf("none backend must accept and discard: %v", err)
	}
}

func TestLabelProcessorPropagatesSinkError(t *testing.T) {
	pub := &countingPublisher{err: errors.New("broker down")}
	p := NewLabelProcessor(pub, nil, nopMetrics{}, "kafka")
	if err := p.Process(context.Background(), "5m", []models.Candle{{Label: "x"}}); err == nil {
		t.Fatalf("expected sink error")
	}
}
