package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "ChainPull/internal/middleware"
	"ChainPull/internal/usecase"
	"ChainPull/pkg/config"
	xhttp "ChainPull/pkg/http"
	applogger "ChainPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	orch        *usecase.Orchestrator
	sink        *mid.SinkBuffer
	proc        *usecase.LabelProcessor
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	sink *mid.SinkBuffer,
	proc *usecase.LabelProcessor,
) *App {
	return &App{
		cfg:  cfg,
		log:  log,
		orch: orch,
		sink: sink,
		proc: proc,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the engine and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.orch.Start(ctx); err != nil {
		a.log.Error("orchestrator start error", applogger.Error(err))
		return err
	}
	a.log.Info("pipelines started",
		applogger.String("symbol", a.cfg.Binance.Symbol),
		applogger.Strings("timeframes", a.cfg.Binance.Timeframes),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops the pipelines first, then the buffer, the sink backend,
// and finally the HTTP server.
func (a *App) shutdown() error {
	a.orch.Wait()

	if a.sink != nil {
		a.sink.Stop()
	}
	if a.proc != nil {
		a.proc.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
