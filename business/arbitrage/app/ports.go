// Package app contains application services for the arbitrage context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	marketDomain "github.com/apexarb/flasharb/business/market/domain"
)

// PoolSource returns pool snapshots, serving from the quote cache when
// fresh. The market service satisfies it.
type PoolSource interface {
	GetPool(ctx context.Context, id marketDomain.PoolID) (*marketDomain.Pool, error)
}

// GasSource returns the current network gas price.
type GasSource interface {
	GasPrice(ctx context.Context) (*marketDomain.GasPrice, error)
}

// PriceSource quotes the native gas asset in borrow-token units.
type PriceSource interface {
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}
