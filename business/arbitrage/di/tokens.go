// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/apexarb/flasharb/business/arbitrage/app"
	"github.com/apexarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ArbitrageService = di.NewToken[*app.ArbitrageService]("arbitrage.ArbitrageService")
)

// Private dependency tokens - internal to arbitrage module
var (
	Scanner   = di.NewToken[*app.Scanner]("arbitrage:scanner")
	Sizer     = di.NewToken[*app.Sizer]("arbitrage:sizer")
	Validator = di.NewToken[*app.Validator]("arbitrage:validator")
)

// Helper functions for type-safe access
func GetArbitrageService(c di.ServiceRegistry) *app.ArbitrageService {
	return di.GetToken(c, ArbitrageService)
}

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetSizer(c di.ServiceRegistry) *app.Sizer {
	return di.GetToken(c, Sizer)
}

func GetValidator(c di.ServiceRegistry) *app.Validator {
	return di.GetToken(c, Validator)
}
