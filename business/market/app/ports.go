// Package app contains application services and port definitions for the market context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/business/market/domain"
)

// ReserveReader fetches fresh pool state from a venue.
type ReserveReader interface {
	// ReadReserves returns a directional snapshot for the pool, or an
	// error when the pair does not exist or the venue call fails.
	ReadReserves(ctx context.Context, id domain.PoolID) (*domain.Pool, error)
}

// GasOracle provides the current network gas price.
type GasOracle interface {
	GasPrice(ctx context.Context) (*domain.GasPrice, error)
}

// NativePriceOracle quotes the native gas asset in the profit currency.
type NativePriceOracle interface {
	// NativePrice returns the price of one native unit in the borrow
	// token, or an error when no pricing pool is available.
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

// BalanceReader reads the native balance of an account.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (decimal.Decimal, error)
}
