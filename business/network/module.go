// Package network implements the RPC endpoint health bounded context.
package network

import (
	"context"

	"github.com/apexarb/flasharb/business/network/app"
	networkDI "github.com/apexarb/flasharb/business/network/di"
	"github.com/apexarb/flasharb/business/network/infra/evm"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/di"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/monolith"
	"github.com/apexarb/flasharb/internal/store"
)

// Module implements the network bounded context.
type Module struct{}

// RegisterServices registers all network services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, networkDI.Prober, func(sr di.ServiceRegistry) app.Prober {
		return evm.NewProber()
	})

	di.RegisterToken(c, networkDI.HeadSource, func(sr di.ServiceRegistry) app.HeadSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return evm.NewHeadStream(cfg.Chain.WSEndpoint, log)
	})

	di.RegisterToken(c, networkDI.NetworkService, func(sr di.ServiceRegistry) *app.NetworkService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		st := sr.Get("store").(*store.Store)

		// The head stream is optional; probing alone still detects
		// stagnation through block number reads.
		var heads app.HeadSource
		if cfg.Chain.WSEndpoint != "" {
			heads = networkDI.GetHeadSource(sr)
		}

		svc, err := app.NewNetworkService(app.MonitorConfig{
			Endpoints:        cfg.Chain.Endpoints,
			ProbeInterval:    cfg.Network.ProbeInterval,
			ProbeTimeout:     cfg.Network.ProbeTimeout,
			StagnationWindow: cfg.Network.StagnationWindow,
			FailureThreshold: cfg.Network.FailureThreshold,
			RecoveryStreak:   cfg.Network.RecoveryStreak,
			FailoverCooldown: cfg.Network.FailoverCooldown,
			MetricsInterval:  cfg.Network.MetricsInterval,
		}, networkDI.GetProber(sr), heads, st, log)
		if err != nil {
			panic("failed to create network service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup runs an initial probe sweep and starts the monitor loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := networkDI.GetNetworkService(mono.Services())

	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			mono.Logger().Error(ctx, "network monitor stopped", "error", err)
		}
	}()

	mono.Logger().Info(ctx, "network module started",
		"endpoints", len(mono.Config().Chain.Endpoints),
		"primary", svc.PrimaryURL(),
	)
	return nil
}
