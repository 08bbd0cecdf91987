package repository

import (
	"context"
	"time"

	"ChainPull/internal/domain/models"
)

// KlineStream is a live candle subscription for one symbol and interval.
type KlineStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// StreamFactory builds one KlineStream per interval token.
type StreamFactory func(interval string) KlineStream

// History fetches recent closed bars for seeding a window.
type History interface {
	RecentCandles(ctx context.Context, interval string, target int) ([]models.Candle, error)
}

// Publisher emits labeled candles to a message broker.
type Publisher interface {
	Publish(ctx context.Context, tf Timeframe, candles []models.Candle) error
	Close() error
}

// Storage persists labeled candles for offline analysis.
type Storage interface {
	Store(ctx context.Context, tf Timeframe, candles []models.Candle) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordCandle(tf string, closePrice float64)
	RecordWindowSize(tf string, n int)
	RecordLabels(tf string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// StreamStatus is a point-in-time view of one timeframe's pipeline, served
// by the status endpoint.
type StreamStatus struct {
	Timeframe Timeframe `json:"timeframe"`
	Connected bool      `json:"connected"`
	Window    int       `json:"window"`
	LastOpen  time.Time `json:"last_open,omitempty"`
}
