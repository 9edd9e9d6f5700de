// Package evm provides go-ethereum backed adapters for the network context.
package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/apexarb/flasharb/business/network/app"
)

// Prober health-checks endpoints with a block number read. Latency is
// the round trip of that single call.
type Prober struct{}

// NewProber creates a Prober.
func NewProber() *Prober {
	return &Prober{}
}

// Dial implements app.Prober.
func (p *Prober) Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, url)
}

// Probe implements app.Prober.
func (p *Prober) Probe(ctx context.Context, url string, client *ethclient.Client) (app.ProbeResult, error) {
	start := time.Now()
	block, err := client.BlockNumber(ctx)
	if err != nil {
		return app.ProbeResult{}, err
	}
	return app.ProbeResult{
		Block:   block,
		Latency: time.Since(start),
	}, nil
}
