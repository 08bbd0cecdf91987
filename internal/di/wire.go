//go:build wireinject
// +build wireinject

package di

import (
	"ChainPull/pkg/config"
	"ChainPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Sink backends
		ProvidePublisher,
		ProvideStorage,
		ProvideLabelProcessor,
		ProvideSinkBuffer,

		// Market data and forecasting
		ProvideHistory,
		ProvideStreamFactory,
		ProvideForecaster,

		// Engine
		ProvideOrchestrator,

		// HTTP surface
		ProvideCache,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
