//go:build wireinject
// +build wireinject

package di

import (
	"SmartLoan/pkg/config"
	"SmartLoan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Models
		ProvideModels,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogShipping,
		ProvideClickHouseClient,
		ProvideCacheStore,

		// Repositories
		ProvideDecisionSink,

		// Use cases
		ProvideDecisionEngine,

		// Transport
		ProvideLoanHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
