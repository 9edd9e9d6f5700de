package evm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/cache"
	"github.com/apexarb/flasharb/internal/logger"
)

// reserveSource is the slice of ReserveReader the price oracle needs.
type reserveSource interface {
	ReadReserves(ctx context.Context, id domain.PoolID) (*domain.Pool, error)
}

// PriceOracleConfig holds native price oracle settings.
type PriceOracleConfig struct {
	// Venue names the pool used to price the native asset in the
	// borrow token. The first venue that has the pair wins.
	Venues   []string
	CacheTTL time.Duration
}

// PriceOracle prices the native gas asset in the borrow token by
// reading the spot price of a native/borrow pool.
type PriceOracle struct {
	config   PriceOracleConfig
	reserves reserveSource
	native   *asset.Token
	borrow   *asset.Token
	logger   logger.LoggerInterface
	cache    *cache.Cache[string, decimal.Decimal]
}

// NewPriceOracle creates a PriceOracle pricing native in borrow.
func NewPriceOracle(cfg PriceOracleConfig, reserves reserveSource, native, borrow *asset.Token, log logger.LoggerInterface) *PriceOracle {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &PriceOracle{
		config:   cfg,
		reserves: reserves,
		native:   native,
		borrow:   borrow,
		logger:   log,
		cache:    cache.New[string, decimal.Decimal](time.Minute, func(k string) string { return k }),
	}
}

// NativePrice implements app.NativePriceOracle.
func (o *PriceOracle) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	return o.cache.GetOrLoad(ctx, "native", o.config.CacheTTL, func(ctx context.Context) (decimal.Decimal, error) {
		return o.spot(ctx)
	})
}

func (o *PriceOracle) spot(ctx context.Context) (decimal.Decimal, error) {
	var lastErr error
	for _, venue := range o.config.Venues {
		id := domain.PoolID{
			Venue:    venue,
			TokenIn:  o.native.Address(),
			TokenOut: o.borrow.Address(),
		}
		pool, err := o.reserves.ReadReserves(ctx, id)
		if err != nil {
			lastErr = err
			o.logger.Debug(ctx, "native price pool unavailable", "venue", venue, "error", err)
			continue
		}
		if !pool.HasLiquidity() {
			continue
		}

		nativeUnits := o.native.FromBase(pool.ReserveIn)
		borrowUnits := o.borrow.FromBase(pool.ReserveOut)
		if nativeUnits.IsZero() {
			continue
		}
		return borrowUnits.Div(nativeUnits), nil
	}

	if lastErr != nil {
		return decimal.Zero, apperror.Wrap(lastErr, apperror.CodeNativePriceUnknown, "native price")
	}
	return decimal.Zero, apperror.New(apperror.CodeNativePriceUnknown)
}
