// Package domain contains the core domain types for the market context.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolID identifies a directional pool view: one venue, one ordered token
// pair. The reverse direction is a distinct ID.
type PoolID struct {
	Venue    string
	TokenIn  common.Address
	TokenOut common.Address
}

// String renders the ID for logging and cache grouping.
func (id PoolID) String() string {
	return fmt.Sprintf("%s:%s->%s", id.Venue, id.TokenIn.Hex(), id.TokenOut.Hex())
}

// Pool is an immutable directional snapshot of a constant-product pool.
// ReserveIn is the reserve of the token being sold into the pool.
type Pool struct {
	ID         PoolID
	Pair       common.Address // pool contract
	ReserveIn  *big.Int
	ReserveOut *big.Int
	FeeBps     int64
	FetchedAt  time.Time
}

// Reversed returns the snapshot viewed from the opposite direction.
func (p *Pool) Reversed() *Pool {
	return &Pool{
		ID: PoolID{
			Venue:    p.ID.Venue,
			TokenIn:  p.ID.TokenOut,
			TokenOut: p.ID.TokenIn,
		},
		Pair:       p.Pair,
		ReserveIn:  p.ReserveOut,
		ReserveOut: p.ReserveIn,
		FeeBps:     p.FeeBps,
		FetchedAt:  p.FetchedAt,
	}
}

// HasLiquidity reports whether both reserves are positive.
func (p *Pool) HasLiquidity() bool {
	return p.ReserveIn != nil && p.ReserveOut != nil &&
		p.ReserveIn.Sign() > 0 && p.ReserveOut.Sign() > 0
}

// AmountOut quotes the constant-product output for amountIn, net of the
// pool fee: out = in·(1−fee)·Rout / (Rin + in·(1−fee)).
func (p *Pool) AmountOut(amountIn *big.Int) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 || !p.HasLiquidity() {
		return new(big.Int)
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(10_000-p.FeeBps))
	numerator := new(big.Int).Mul(inWithFee, p.ReserveOut)
	denominator := new(big.Int).Mul(p.ReserveIn, big.NewInt(10_000))
	denominator.Add(denominator, inWithFee)

	if denominator.Sign() == 0 {
		return new(big.Int)
	}
	return numerator.Div(numerator, denominator)
}
