// Package arbitrage implements the opportunity detection bounded context:
// scanning, optimal sizing, and profitability validation.
package arbitrage

import (
	"context"

	"github.com/apexarb/flasharb/business/arbitrage/app"
	arbitrageDI "github.com/apexarb/flasharb/business/arbitrage/di"
	marketDI "github.com/apexarb/flasharb/business/market/di"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/di"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		market := marketDI.GetMarketService(sr)

		venues := make([]app.ScanVenue, 0, len(cfg.Venues))
		for _, v := range cfg.Venues {
			venues = append(venues, app.ScanVenue{Name: v.Name, Family: v.Family})
		}

		return app.NewScanner(app.ScannerConfig{
			Venues:           venues,
			Budget:           cfg.Arbitrage.ScanBudget,
			Triangular:       cfg.Arbitrage.Triangular.Enabled,
			TriangularOnly:   cfg.Arbitrage.Triangular.Exclusive,
			MaxHopsPerFamily: cfg.Arbitrage.MaxHopsPerFamily,
		}, market, registry, registry.MustBySymbol(cfg.Arbitrage.BorrowToken), log)
	})

	di.RegisterToken(c, arbitrageDI.Sizer, func(sr di.ServiceRegistry) *app.Sizer {
		cfg := sr.Get("config").(*config.Config)
		return app.NewSizer(cfg.Arbitrage.SafetyFraction)
	})

	di.RegisterToken(c, arbitrageDI.Validator, func(sr di.ServiceRegistry) *app.Validator {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		market := marketDI.GetMarketService(sr)

		return app.NewValidator(app.ValidatorConfig{
			CreditFeeBps:      cfg.Arbitrage.CreditFeeBps,
			SlippageBps:       cfg.Arbitrage.SlippageBps,
			MinProfit:         cfg.Arbitrage.MinProfitDecimal(),
			EstimatedGasUnits: cfg.Arbitrage.EstimatedGasUnits,
		}, market, market, registry.MustBySymbol(cfg.Arbitrage.BorrowToken))
	})

	di.RegisterToken(c, arbitrageDI.ArbitrageService, func(sr di.ServiceRegistry) *app.ArbitrageService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewArbitrageService(
			arbitrageDI.GetScanner(sr),
			arbitrageDI.GetSizer(sr),
			arbitrageDI.GetValidator(sr),
			cfg.Arbitrage.Triangular.TopK,
			log,
		)
		if err != nil {
			panic("failed to create arbitrage service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup initializes the arbitrage module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	arbitrageDI.GetArbitrageService(mono.Services())
	mono.Logger().Info(ctx, "arbitrage module started",
		"triangular", mono.Config().Arbitrage.Triangular.Enabled,
		"scan_budget", mono.Config().Arbitrage.ScanBudget.String(),
	)
	return nil
}
