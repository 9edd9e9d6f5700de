// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/apexarb/flasharb/business/market/app"
	"github.com/apexarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
)

// Private dependency tokens - internal to market module
var (
	ReserveReader = di.NewToken[app.ReserveReader]("market:reserveReader")
	GasOracle     = di.NewToken[app.GasOracle]("market:gasOracle")
	NativePrice   = di.NewToken[app.NativePriceOracle]("market:nativePrice")
	BalanceReader = di.NewToken[app.BalanceReader]("market:balanceReader")
)

// Helper functions for type-safe access
func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetReserveReader(c di.ServiceRegistry) app.ReserveReader {
	return di.GetToken(c, ReserveReader)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetNativePrice(c di.ServiceRegistry) app.NativePriceOracle {
	return di.GetToken(c, NativePrice)
}

func GetBalanceReader(c di.ServiceRegistry) app.BalanceReader {
	return di.GetToken(c, BalanceReader)
}
