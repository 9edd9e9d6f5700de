package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/cache"
	"github.com/apexarb/flasharb/internal/logger"
)

// MarketService fronts all market data reads. Pool snapshots go through a
// short-TTL quote cache so every consumer in a scan tick shares one fresh
// read per pool; gas and native price pass through to their oracles,
// which cache internally.
type MarketService struct {
	reader   ReserveReader
	gas      GasOracle
	native   NativePriceOracle
	balances BalanceReader

	quotes   *cache.Cache[domain.PoolID, *domain.Pool]
	quoteTTL time.Duration
	logger   logger.LoggerInterface
}

// NewMarketService creates a MarketService with the given quote TTL.
func NewMarketService(
	reader ReserveReader,
	gas GasOracle,
	native NativePriceOracle,
	balances BalanceReader,
	quoteTTL time.Duration,
	log logger.LoggerInterface,
) *MarketService {
	return &MarketService{
		reader:   reader,
		gas:      gas,
		native:   native,
		balances: balances,
		quotes: cache.New[domain.PoolID, *domain.Pool](time.Minute,
			func(id domain.PoolID) string { return id.String() }),
		quoteTTL: quoteTTL,
		logger:   log,
	}
}

// GetPool returns a pool snapshot no older than the quote TTL. Concurrent
// callers for the same stale pool share one refresh.
func (s *MarketService) GetPool(ctx context.Context, id domain.PoolID) (*domain.Pool, error) {
	return s.quotes.GetOrLoad(ctx, id, s.quoteTTL, func(ctx context.Context) (*domain.Pool, error) {
		pool, err := s.reader.ReadReserves(ctx, id)
		if err != nil {
			s.logger.Debug(ctx, "quote refresh failed", "pool", id.String(), "error", err)
			return nil, err
		}
		return pool, nil
	})
}

// GasPrice returns the current gas price.
func (s *MarketService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gas.GasPrice(ctx)
}

// NativePrice returns the native asset price in the profit currency.
func (s *MarketService) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	return s.native.NativePrice(ctx)
}

// NativeBalance returns the operating account's gas asset balance.
func (s *MarketService) NativeBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	return s.balances.NativeBalance(ctx, account)
}

// Close releases the quote cache.
func (s *MarketService) Close() {
	s.quotes.Close()
}
