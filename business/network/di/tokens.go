// Package di contains dependency injection tokens for the network context.
package di

import (
	"github.com/apexarb/flasharb/business/network/app"
	"github.com/apexarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	NetworkService = di.NewToken[*app.NetworkService]("network.NetworkService")
)

// Private dependency tokens - internal to network module
var (
	Prober     = di.NewToken[app.Prober]("network:prober")
	HeadSource = di.NewToken[app.HeadSource]("network:headSource")
)

// Helper functions for type-safe access
func GetNetworkService(c di.ServiceRegistry) *app.NetworkService {
	return di.GetToken(c, NetworkService)
}

func GetProber(c di.ServiceRegistry) app.Prober {
	return di.GetToken(c, Prober)
}

func GetHeadSource(c di.ServiceRegistry) app.HeadSource {
	return di.GetToken(c, HeadSource)
}
