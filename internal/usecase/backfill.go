package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "ChainPull/internal/domain/repository"
	applogger "ChainPull/pkg/logger"
)

// Seeder fills a window with recent history before its stream starts.
type Seeder struct {
	history domrepo.History
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewSeeder(history domrepo.History, metrics domrepo.Metrics, log *applogger.Logger) *Seeder {
	return &Seeder{history: history, metrics: metrics, log: log}
}

// Seed fetches up to target recent closed bars for interval and loads them
// into w, oldest first.
func (s *Seeder) Seed(ctx context.Context, interval string, w *WindowStore, target int) error {
	start := time.Now()
	candles, err := s.history.RecentCandles(ctx, interval, target)
	if err != nil {
		s.metrics.RecordError("backfill")
		return fmt.Errorf("backfill %s: %w", interval, err)
	}
	w.Seed(candles)
	s.metrics.RecordLatency("backfill", time.Since(start).Seconds())
	s.metrics.RecordWindowSize(interval, w.Len())
	s.log.Info("window seeded",
		applogger.String("interval", interval),
		applogger.Int("candles", w.Len()),
	)
	return nil
}
