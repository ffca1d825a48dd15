//go:build wireinject
// +build wireinject

package di

import (
	"CryptoEdge/pkg/config"
	"CryptoEdge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideErrorCollector,
		ProvideCache,
		ProvideSignalStore,
		ProvideTradeFeed,

		// Collaborators
		ProvideMarketData,
		ProvideLiquidity,
		ProvideLearningMemory,
		ProvideReasoner,
		ProvideHub,
		ProvidePublisher,

		// Use cases
		ProvideSignalGenerator,
		ProvideScheduler,
		ProvideSignalQuery,
		ProvideKafkaConsumer,

		// Transport
		ProvideSignalsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
