// Package app contains the endpoint health monitor for the network context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/apexarb/flasharb/internal/store"
)

// ProbeResult is one successful health probe.
type ProbeResult struct {
	Block   uint64
	Latency time.Duration
}

// Prober dials and health-checks RPC endpoints.
type Prober interface {
	Dial(ctx context.Context, url string) (*ethclient.Client, error)
	Probe(ctx context.Context, url string, client *ethclient.Client) (ProbeResult, error)
}

// HeadSource streams new block heights for the chain, independent of
// probing. Heights arrive on Heads while Run is active.
type HeadSource interface {
	Run(ctx context.Context) error
	Heads() <-chan uint64
}

// MetricsSink persists endpoint health snapshots. *store.Store satisfies it.
type MetricsSink interface {
	RecordEndpointMetrics(ctx context.Context, samples []store.EndpointSample) error
}
