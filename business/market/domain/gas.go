package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice represents the network gas price at a point in time.
type GasPrice struct {
	BaseWei     *big.Int
	PriorityWei *big.Int
	Timestamp   time.Time
}

// NewGasPrice creates a GasPrice from base and priority components.
func NewGasPrice(baseWei, priorityWei *big.Int) *GasPrice {
	if priorityWei == nil {
		priorityWei = new(big.Int)
	}
	return &GasPrice{
		BaseWei:     baseWei,
		PriorityWei: priorityWei,
		Timestamp:   time.Now(),
	}
}

// EffectiveWei returns base plus priority fee per gas unit.
func (g *GasPrice) EffectiveWei() *big.Int {
	return new(big.Int).Add(g.BaseWei, g.PriorityWei)
}

// Gwei returns the effective price in gwei.
func (g *GasPrice) Gwei() float64 {
	f := new(big.Float).SetInt(g.EffectiveWei())
	f.Quo(f, big.NewFloat(1e9))
	out, _ := f.Float64()
	return out
}

// CostNative returns the total gas cost in the native asset for gasUnits.
func (g *GasPrice) CostNative(gasUnits uint64) decimal.Decimal {
	totalWei := new(big.Int).Mul(g.EffectiveWei(), new(big.Int).SetUint64(gasUnits))
	return decimal.NewFromBigInt(totalWei, 0).Shift(-18)
}
