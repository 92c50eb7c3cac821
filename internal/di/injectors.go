//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"lrd/internal"
	"lrd/internal/controllers"
	"lrd/internal/engine"
	"lrd/internal/engine/interfaces"
	"lrd/internal/providers"
	"lrd/internal/services"
	"lrd/internal/storage"
	"lrd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		services.NewCatalogStore,
		services.NewListenerRegistry,
		wire.Bind(new(interfaces.CatalogInterface), new(*services.CatalogStore)),
		wire.Bind(new(interfaces.ListenerFeedInterface), new(*services.ListenerRegistry)),

		engine.NewRateCalculatorFromConfig,
		engine.NewLoopbackSettlementClient,
		engine.NewSettlementDispatcherFromConfig,

		storage.NewZstdCompressor,
		storage.NewColdStorage,
		services.NewRewardService,
		storage.NewFileManager,
		storage.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
