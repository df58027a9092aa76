package di

import (
	"go.uber.org/zap"

	"threatmosaic/application/coordinator"
	"threatmosaic/application/ports"
	"threatmosaic/application/store"
	"threatmosaic/infrastructure/config"
	"threatmosaic/interfaces/bridge"
	"threatmosaic/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Store       *store.Store
	GraphAPI    ports.GraphAPI
	Settings    *config.SettingsWatcher
	Hub         *bridge.Hub
	Coordinator *coordinator.Coordinator
	Bridge      *bridge.Server
}

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	metrics := ProvideMetrics()
	graphStore := ProvideStore(logger, metrics)
	graphAPI := ProvideGraphAPI(cfg, logger)

	settings, err := ProvideSettingsWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := ProvideHub(logger)
	presenter := bridge.NewPresenter(hub)
	coord := ProvideCoordinator(graphAPI, graphStore, presenter, settings, logger, metrics)

	var metricsHandler *observability.Collector
	if cfg.EnableMetrics {
		metricsHandler = metrics
	}
	bridgeServer := bridge.NewServer(coord, graphStore, hub, settings.Current, metricsHandler, cfg.EnableCORS, logger)

	// Apply the settings-derived defaults, and keep applying them on reload
	graphStore.SetVisibility(settings.Current().Visibility())
	settings.OnChange(func(next config.Settings) {
		graphStore.SetVisibility(next.Visibility())
		bridgeServer.BroadcastLegend()
	})

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Store:       graphStore,
		GraphAPI:    graphAPI,
		Settings:    settings,
		Hub:         hub,
		Coordinator: coord,
		Bridge:      bridgeServer,
	}, nil
}

// Close releases container resources
func (c *Container) Close() {
	if c.Settings != nil {
		c.Settings.Stop()
	}
	if c.Bridge != nil {
		c.Bridge.Stop()
	}
}
