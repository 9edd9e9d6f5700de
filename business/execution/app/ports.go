// Package app contains the sequence manager and execution coordinator.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/business/execution/domain"
)

// SequenceSyncer reads the network's authoritative next sequence number
// for an account, including pending operations.
type SequenceSyncer interface {
	NextSequence(ctx context.Context, account common.Address) (uint64, error)
}

// Submitter carries a settlement to the execution substrate and awaits
// its verdict.
type Submitter interface {
	// Submit sends the request under the given sequence number and
	// returns a handle for confirmation tracking. An error means the
	// network never accepted the operation.
	Submit(ctx context.Context, req *domain.SettlementRequest) (common.Hash, error)
	// AwaitConfirmation blocks until the operation is mined or the
	// timeout elapses. A mined-but-aborted settlement is a normal
	// outcome, not an error.
	AwaitConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*domain.Outcome, error)
}

// BalanceSource reads the operating account's native balance.
type BalanceSource interface {
	NativeBalance(ctx context.Context, account common.Address) (decimal.Decimal, error)
}

// EndpointHealth is the coordinator's view of the network monitor.
type EndpointHealth interface {
	Healthy() bool
	// ReportPrimaryFailure demotes the current primary after a
	// submission-path failure so the next attempt uses a different
	// endpoint.
	ReportPrimaryFailure(ctx context.Context)
}
