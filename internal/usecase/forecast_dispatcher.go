package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	domsvc "ChainPull/internal/domain/service"
	applogger "ChainPull/pkg/logger"
)

// ErrForecastUnavailable reports a failed forecast call. The candle's
// labeling is simply missing; the next closed candle dispatches fresh.
var ErrForecastUnavailable = errors.New("forecast unavailable")

// ForecastDispatcher sends window snapshots to the forecast service and
// merges the returned labels back into the window by exact open time.
type ForecastDispatcher struct {
	forecaster domsvc.Forecaster
	metrics    domrepo.Metrics
	log        *applogger.Logger
}

func NewForecastDispatcher(forecaster domsvc.Forecaster, metrics domrepo.Metrics, log *applogger.Logger) *ForecastDispatcher {
	return &ForecastDispatcher{forecaster: forecaster, metrics: metrics, log: log}
}

// DispatchAndMerge builds the window-plus-synthetic payload, invokes the
// forecaster, and applies the resulting labels. It returns the candles that
// actually received a label, for downstream sinks. Labels addressed at
// evicted or unknown open times are logged and dropped; reapplying a label
// is a no-op state-wise, so replayed responses are harmless.
func (d *ForecastDispatcher) DispatchAndMerge(ctx context.Context, tf domrepo.Timeframe, spec domrepo.Spec, w *WindowStore) ([]models.Candle, error) {
	last, ok := w.Last()
	if !ok {
		return nil, nil
	}
	series := w.SnapshotWithNext(spec.Next(last.OpenTime))

	start := time.Now()
	labels, err := d.forecaster.Forecast(ctx, series, spec)
	d.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordError("forecast")
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}

	labeled := make([]models.Candle, 0, len(labels))
	for ts, label := range labels {
		if err := w.ApplyLabel(ts, label); err != nil {
			d.metrics.RecordError("label_target")
			d.log.Warn("label target missing",
				applogger.String("timeframe", string(tf)),
				applogger.Time("open_time", ts),
			)
			continue
		}
		// the applied open time is guaranteed to be in the stored part of
		// the series, never the synthetic row
		for i := range series {
			if series[i].OpenTime.Equal(ts) {
				c := series[i]
				c.Label = label
				labeled = append(labeled, c)
				break
			}
		}
	}
	d.metrics.RecordLabels(string(tf), len(labeled))
	return labeled, nil
}
