// Package sim executes settlements against current quotes without
// touching the network. It backs dry-run mode and doubles as the
// reference model of the vault's atomic semantics.
package sim

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/execution/domain"
	marketDomain "github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

// simulatedGasUsed stands in for a typical settlement's consumption.
const simulatedGasUsed = 420_000

// PoolSource returns pool snapshots for hop execution.
type PoolSource interface {
	GetPool(ctx context.Context, id marketDomain.PoolID) (*marketDomain.Pool, error)
}

// Simulator implements the submission channel against in-memory state.
// Every accepted submission is "mined" immediately.
type Simulator struct {
	pools  PoolSource
	logger logger.LoggerInterface

	mu       sync.Mutex
	sequence uint64
	outcomes map[common.Hash]*domain.Outcome
}

// NewSimulator creates a Simulator starting at sequence zero.
func NewSimulator(pools PoolSource, log logger.LoggerInterface) *Simulator {
	return &Simulator{
		pools:    pools,
		logger:   log,
		outcomes: make(map[common.Hash]*domain.Outcome),
	}
}

// NextSequence implements app.SequenceSyncer.
func (s *Simulator) NextSequence(ctx context.Context, account common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence, nil
}

// Submit implements app.Submitter: the settlement executes immediately
// and its outcome is held for AwaitConfirmation.
func (s *Simulator) Submit(ctx context.Context, req *domain.SettlementRequest) (common.Hash, error) {
	outcome := s.Settle(ctx, req)

	hash := common.Hash(sha256.Sum256([]byte(req.ID)))
	outcome.TxHash = hash

	s.mu.Lock()
	s.sequence++
	s.outcomes[hash] = outcome
	s.mu.Unlock()

	s.logger.Info(ctx, "dry-run settlement executed",
		"request_id", req.ID,
		"status", string(outcome.Status),
		"cause", outcome.Cause,
		"residual", outcome.Residual.String(),
	)
	return hash, nil
}

// AwaitConfirmation implements app.Submitter.
func (s *Simulator) AwaitConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*domain.Outcome, error) {
	s.mu.Lock()
	outcome, ok := s.outcomes[hash]
	s.mu.Unlock()
	if !ok {
		return nil, apperror.New(apperror.CodeSettlementTimeout,
			apperror.WithContext(hash.Hex()))
	}
	return outcome, nil
}

// Settle runs the request through the vault's atomic semantics: every
// hop must clear its minimum, the final balance must cover principal
// plus premium, and any failure aborts with no state change beyond gas.
func (s *Simulator) Settle(ctx context.Context, req *domain.SettlementRequest) *domain.Outcome {
	abort := func(cause string) *domain.Outcome {
		return &domain.Outcome{
			Status:      domain.OutcomeAborted,
			GasUsed:     simulatedGasUsed,
			Residual:    new(big.Int),
			Cause:       cause,
			ConfirmedAt: time.Now(),
		}
	}

	if !req.Deadline.IsZero() && time.Now().After(req.Deadline) {
		return abort("deadline expired")
	}

	balance := new(big.Int).Set(req.Amount)
	for i, hop := range req.Hops {
		pool, err := s.pools.GetPool(ctx, marketDomain.PoolID{
			Venue:    hop.Venue,
			TokenIn:  hop.TokenIn,
			TokenOut: hop.TokenOut,
		})
		if err != nil {
			return abort(fmt.Sprintf("hop %d quote unavailable", i+1))
		}
		out := pool.AmountOut(balance)
		if hop.MinOut != nil && out.Cmp(hop.MinOut) < 0 {
			return abort(fmt.Sprintf("hop %d under-delivered", i+1))
		}
		balance = out
	}

	owed := req.Owed()
	if balance.Cmp(owed) < 0 {
		return abort("insufficient balance to repay credit line")
	}

	return &domain.Outcome{
		Status:      domain.OutcomeCommitted,
		GasUsed:     simulatedGasUsed,
		Residual:    new(big.Int).Sub(balance, owed),
		ConfirmedAt: time.Now(),
	}
}
