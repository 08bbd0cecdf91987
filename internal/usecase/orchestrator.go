package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domrepo "ChainPull/internal/domain/repository"
	domsvc "ChainPull/internal/domain/service"
	mid "ChainPull/internal/middleware"
	applogger "ChainPull/pkg/logger"
)

const (
	restartBackoffMin = time.Second
	restartBackoffMax = time.Minute
)

// Orchestrator owns one window and one collector per configured timeframe.
// Timeframes run independently: a bad token, a failed seed, or a crashed
// collector never touches the other pipelines.
type Orchestrator struct {
	timeframes []domrepo.Timeframe
	capacity   int
	target     int

	streams    domrepo.StreamFactory
	seeder     *Seeder
	dispatcher *ForecastDispatcher
	sink       *mid.SinkBuffer
	metrics    domrepo.Metrics
	log        *applogger.Logger

	mu         sync.RWMutex
	collectors map[domrepo.Timeframe]*CandleCollector
	wg         sync.WaitGroup
}

func NewOrchestrator(
	timeframes []domrepo.Timeframe,
	capacity int,
	target int,
	streams domrepo.StreamFactory,
	history domrepo.History,
	forecaster domsvc.Forecaster,
	sink *mid.SinkBuffer,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *Orchestrator {
	return &Orchestrator{
		timeframes: timeframes,
		capacity:   capacity,
		target:     target,
		streams:    streams,
		seeder:     NewSeeder(history, metrics, log),
		dispatcher: NewForecastDispatcher(forecaster, metrics, log),
		sink:       sink,
		metrics:    metrics,
		log:        log,
		collectors: make(map[domrepo.Timeframe]*CandleCollector),
	}
}

// Start seeds and launches every valid timeframe pipeline. A token that
// fails to parse aborts startup for that timeframe only. Start returns an
// error only when no pipeline could be brought up at all.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.sink != nil {
		o.sink.Start(ctx)
	}

	started := 0
	for _, tf := range o.timeframes {
		spec, err := domrepo.ParseTimeframe(tf)
		if err != nil {
			o.metrics.RecordError("timeframe")
			o.log.Error("timeframe rejected", applogger.String("token", string(tf)), applogger.Error(err))
			continue
		}

		window := NewWindowStore(o.capacity)
		if err := o.seeder.Seed(ctx, spec.Interval(), window, o.target); err != nil {
			// the stream alone can still fill the window over time
			o.log.Warn("seeding failed, starting with empty window",
				applogger.String("timeframe", string(tf)),
				applogger.Error(err),
			)
		}

		collector := NewCandleCollector(
			tf, spec, o.streams(spec.Interval()), window,
			o.dispatcher, o.sink, o.metrics, o.log,
		)
		o.mu.Lock()
		o.collectors[tf] = collector
		o.mu.Unlock()

		o.wg.Add(1)
		go o.supervise(ctx, tf, collector)
		started++
	}

	if started == 0 {
		return fmt.Errorf("no valid timeframes in %v", o.timeframes)
	}
	o.log.Info("pipelines started", applogger.Int("count", started))
	return nil
}

// supervise restarts a collector whose Run returned without shutdown,
// doubling the delay up to a cap and resetting it after a healthy stretch.
func (o *Orchestrator) supervise(ctx context.Context, tf domrepo.Timeframe, c *CandleCollector) {
	defer o.wg.Done()

	backoff := restartBackoffMin
	for {
		started := time.Now()
		err := c.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > restartBackoffMax {
			backoff = restartBackoffMin
		}
		o.metrics.RecordError("collector_restart")
		o.log.Error("collector stopped, restarting",
			applogger.String("timeframe", string(tf)),
			applogger.Duration("backoff", backoff),
			applogger.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < restartBackoffMax {
			backoff *= 2
		}
	}
}

// Wait blocks until every supervised pipeline has exited.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Window returns the window store for a timeframe, when it exists.
func (o *Orchestrator) Window(tf domrepo.Timeframe) (*WindowStore, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.collectors[tf]
	if !ok {
		return nil, false
	}
	return c.Window(), true
}

// Status reports every running pipeline, ordered by timeframe token.
func (o *Orchestrator) Status() []domrepo.StreamStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domrepo.StreamStatus, 0, len(o.collectors))
	for _, c := range o.collectors {
		out = append(out, c.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timeframe < out[j].Timeframe })
	return out
}
