package usecase

import (
	"context"
	"errors"
	"fmt"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	mid "ChainPull/internal/middleware"
	applogger "ChainPull/pkg/logger"
)

// CandleCollector runs one timeframe's pipeline: it consumes the kline
// stream, appends closed candles to the window, and drives dispatch and
// merge strictly in order. A candle's append, dispatch, and merge complete
// (or are abandoned on forecast failure) before the next candle is touched,
// so the window never sees concurrent steps.
type CandleCollector struct {
	tf         domrepo.Timeframe
	spec       domrepo.Spec
	stream     domrepo.KlineStream
	window     *WindowStore
	dispatcher *ForecastDispatcher
	sink       *mid.SinkBuffer
	metrics    domrepo.Metrics
	log        *applogger.Logger
}

func NewCandleCollector(
	tf domrepo.Timeframe,
	spec domrepo.Spec,
	stream domrepo.KlineStream,
	window *WindowStore,
	dispatcher *ForecastDispatcher,
	sink *mid.SinkBuffer,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *CandleCollector {
	return &CandleCollector{
		tf:         tf,
		spec:       spec,
		stream:     stream,
		window:     window,
		dispatcher: dispatcher,
		sink:       sink,
		metrics:    metrics,
		log:        log.With(applogger.String("timeframe", string(tf))),
	}
}

// Window exposes the collector's window store for read-only snapshots.
func (c *CandleCollector) Window() *WindowStore { return c.window }

// Status reports the collector's current stream and window state.
func (c *CandleCollector) Status() domrepo.StreamStatus {
	st := domrepo.StreamStatus{
		Timeframe: c.tf,
		Connected: c.stream.IsConnected(),
		Window:    c.window.Len(),
	}
	if last, ok := c.window.Last(); ok {
		st.LastOpen = last.OpenTime
	}
	return st
}

// Run connects the stream and consumes it until ctx is cancelled. A read
// failure triggers an in-place reconnect with the same subscription; when
// reconnecting itself fails the error is returned and the supervisor
// restarts the collector with backoff.
func (c *CandleCollector) Run(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", c.tf, err)
	}
	defer c.stream.Close()

	if err := c.stream.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.tf, err)
	}
	c.log.Info("stream connected")

	updates, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err == nil {
				continue
			}
			c.metrics.RecordError("stream")
			c.log.Warn("stream read failed, reconnecting", applogger.Error(err))
			if rerr := c.stream.Reconnect(ctx); rerr != nil {
				return fmt.Errorf("reconnect %s: %w", c.tf, rerr)
			}
			c.log.Info("stream reconnected")
			updates, errs = c.stream.Read(ctx)
		case u, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					return fmt.Errorf("reconnect %s: %w", c.tf, rerr)
				}
				updates, errs = c.stream.Read(ctx)
				continue
			}
			if u == nil || !u.Closed {
				// in-progress ticks never enter the window
				continue
			}
			c.handleClosed(ctx, u.Candle)
		}
	}
}

func (c *CandleCollector) handleClosed(ctx context.Context, candle models.Candle) {
	if err := c.window.Append(candle); err != nil {
		if errors.Is(err, ErrDuplicateTimestamp) {
			// replayed after a reconnect; the closed flag plus this
			// rejection keeps the window duplicate-free
			c.metrics.RecordError("duplicate_candle")
			c.log.Debug("stale candle skipped", applogger.Time("open_time", candle.OpenTime))
			return
		}
		c.log.Error("append failed", applogger.Error(err))
		return
	}
	c.metrics.RecordCandle(string(c.tf), candle.Close)
	c.metrics.RecordWindowSize(string(c.tf), c.window.Len())
	c.log.Info("candle closed",
		applogger.Time("open_time", candle.OpenTime),
		applogger.Float64("close", candle.Close),
	)

	labeled, err := c.dispatcher.DispatchAndMerge(ctx, c.tf, c.spec, c.window)
	if err != nil {
		// dropped for this candle, never retried
		c.log.Warn("forecast dropped", applogger.Error(err))
		return
	}
	if c.sink != nil && len(labeled) > 0 {
		c.sink.Enqueue(c.tf, labeled)
	}
}
