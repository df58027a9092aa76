package di

import (
	"go.uber.org/zap"

	"threatmosaic/application/coordinator"
	"threatmosaic/application/ports"
	"threatmosaic/application/store"
	"threatmosaic/infrastructure/api"
	"threatmosaic/infrastructure/config"
	"threatmosaic/interfaces/bridge"
	"threatmosaic/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("threatmosaic")
}

// ProvideStore creates the graph state store
func ProvideStore(logger *zap.Logger, metrics *observability.Collector) *store.Store {
	return store.New(logger, metrics)
}

// ProvideGraphAPI creates the remote graph API client
func ProvideGraphAPI(cfg *config.Config, logger *zap.Logger) ports.GraphAPI {
	return api.NewClient(cfg.APIBaseURL, logger)
}

// ProvideSettingsWatcher loads the settings file and starts watching it
func ProvideSettingsWatcher(cfg *config.Config, logger *zap.Logger) (*config.SettingsWatcher, error) {
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		// A malformed settings file falls back to defaults rather than
		// preventing startup
		logger.Warn("failed to load settings file, using defaults", zap.Error(err))
		settings = config.DefaultSettings()
	}
	return config.NewSettingsWatcher(cfg.SettingsFile, settings, logger)
}

// ProvideHub creates the renderer connection hub
func ProvideHub(logger *zap.Logger) *bridge.Hub {
	return bridge.NewHub(logger)
}

// ProvideCoordinator creates the query coordinator
func ProvideCoordinator(
	graphAPI ports.GraphAPI,
	graphStore *store.Store,
	presenter ports.Presenter,
	settings *config.SettingsWatcher,
	logger *zap.Logger,
	metrics *observability.Collector,
) *coordinator.Coordinator {
	return coordinator.New(graphAPI, graphStore, presenter, logger, metrics,
		coordinator.WithDefaultRelationship(settings.Current().DefaultRelationship),
	)
}
