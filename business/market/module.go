// Package market implements the market data bounded context: pool
// reserves, gas pricing, and the native price oracle.
package market

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/market/app"
	marketDI "github.com/apexarb/flasharb/business/market/di"
	"github.com/apexarb/flasharb/business/market/infra/evm"
	networkDI "github.com/apexarb/flasharb/business/network/di"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/di"
	"github.com/apexarb/flasharb/internal/httpclient"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.ReserveReader, func(sr di.ServiceRegistry) app.ReserveReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		network := networkDI.GetNetworkService(sr)

		reader, err := evm.NewReserveReader(evm.ReserveReaderConfig{
			Venues:      venuesFromConfig(cfg.Venues),
			CallTimeout: cfg.Network.ProbeTimeout,
		}, network, log)
		if err != nil {
			panic("failed to create reserve reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, marketDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		network := networkDI.GetNetworkService(sr)

		oracle, err := evm.NewGasOracle(evm.GasOracleConfig{
			TrackerURL:      cfg.Chain.GasTrackerURL,
			PriorityFeeGwei: cfg.Chain.PriorityFeeGwei,
			MaxGasPriceGwei: cfg.Chain.MaxGasPriceGwei,
		}, network, httpclient.New(10*time.Second), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, marketDI.NativePrice, func(sr di.ServiceRegistry) app.NativePriceOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		reader := marketDI.GetReserveReader(sr)

		native, ok := registry.Native()
		if !ok {
			panic("no native token registered")
		}
		borrow := registry.MustBySymbol(cfg.Arbitrage.BorrowToken)

		return evm.NewPriceOracle(evm.PriceOracleConfig{
			Venues: venueNames(cfg.Venues),
		}, reader, native, borrow, log)
	})

	di.RegisterToken(c, marketDI.BalanceReader, func(sr di.ServiceRegistry) app.BalanceReader {
		return evm.NewBalanceReader(networkDI.GetNetworkService(sr))
	})

	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewMarketService(
			marketDI.GetReserveReader(sr),
			marketDI.GetGasOracle(sr),
			marketDI.GetNativePrice(sr),
			marketDI.GetBalanceReader(sr),
			cfg.Arbitrage.QuoteTTL,
			log,
		)
	})

	return nil
}

// Startup initializes the market module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	// Force construction so misconfiguration surfaces at boot, not
	// mid-scan.
	marketDI.GetMarketService(mono.Services())
	mono.Logger().Info(ctx, "market module started",
		"venues", len(mono.Config().Venues),
		"quote_ttl", mono.Config().Arbitrage.QuoteTTL.String(),
	)
	return nil
}

func venuesFromConfig(venues []config.VenueConfig) []evm.Venue {
	out := make([]evm.Venue, 0, len(venues))
	for _, v := range venues {
		out = append(out, evm.Venue{
			Name:    v.Name,
			Family:  v.Family,
			Factory: common.HexToAddress(v.Factory),
			Router:  common.HexToAddress(v.Router),
			FeeBps:  v.FeeBps,
		})
	}
	return out
}

func venueNames(venues []config.VenueConfig) []string {
	names := make([]string, 0, len(venues))
	for _, v := range venues {
		names = append(names, v.Name)
	}
	return names
}
