// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/di"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/store"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Store() *store.Store
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	store         *store.Store
	container     di.Container
}

// New creates a new Monolith instance. RPC clients are not created here;
// the network module owns endpoint selection and exposes the primary
// client through its service.
func New(cfg *config.Config, log logger.LoggerInterface, registry *asset.Registry, st *store.Store) *app {
	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", registry)
	container.Register("store", st)

	return &app{
		config:        cfg,
		logger:        log,
		assetRegistry: registry,
		store:         st,
		container:     container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Store() *store.Store {
	return a.store
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes shared resources.
func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
