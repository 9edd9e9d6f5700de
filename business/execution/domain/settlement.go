// Package domain contains settlement and coordination types for the
// execution context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Hop is one swap leg of a settlement route.
type Hop struct {
	Venue    string
	Router   common.Address
	TokenIn  common.Address
	TokenOut common.Address
	MinOut   *big.Int // slippage-bounded floor, enforced on-ledger
}

// SettlementRequest fully specifies one atomic operation: borrow, swap
// through every hop, repay principal plus premium, sweep the residual
// to the beneficiary. Immutable once submitted.
type SettlementRequest struct {
	ID          string
	Borrow      common.Address
	Amount      *big.Int
	PremiumBps  int64
	Hops        []Hop
	Beneficiary common.Address
	Deadline    time.Time
	Sequence    uint64
}

// Principal plus the flash credit premium, the amount the settlement
// must hold at the end to commit.
func (r *SettlementRequest) Owed() *big.Int {
	premium := new(big.Int).Mul(r.Amount, big.NewInt(r.PremiumBps))
	premium.Div(premium, big.NewInt(10_000))
	return premium.Add(premium, r.Amount)
}

// OutcomeStatus is the binary settlement verdict.
type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "committed"
	OutcomeAborted   OutcomeStatus = "aborted"
)

// Outcome reports how a submitted settlement ended. An aborted
// settlement consumed gas but moved no assets.
type Outcome struct {
	Status      OutcomeStatus
	TxHash      common.Hash
	GasUsed     uint64
	Residual    *big.Int // profit transferred to the beneficiary
	Cause       string   // abort reason, empty on commit
	ConfirmedAt time.Time
}

// Committed reports whether the settlement fully executed.
func (o *Outcome) Committed() bool {
	return o.Status == OutcomeCommitted
}
