package app

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

type fakeReader struct {
	mu    sync.Mutex
	reads int
	fail  bool
}

func (f *fakeReader) ReadReserves(ctx context.Context, id domain.PoolID) (*domain.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.fail {
		return nil, apperror.New(apperror.CodeRPCError)
	}
	return &domain.Pool{
		ID:         id,
		ReserveIn:  big.NewInt(1_000_000),
		ReserveOut: big.NewInt(2_000_000),
		FeeBps:     30,
		FetchedAt:  time.Now(),
	}, nil
}

func (f *fakeReader) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

var testPoolID = domain.PoolID{
	Venue:    "quickswap",
	TokenIn:  common.HexToAddress("0x00000000000000000000000000000000000000a1"),
	TokenOut: common.HexToAddress("0x00000000000000000000000000000000000000b2"),
}

func newService(reader ReserveReader, ttl time.Duration) *MarketService {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewMarketService(reader, nil, nil, nil, ttl, log)
}

func TestMarketService_QuotesServedFromCacheWithinTTL(t *testing.T) {
	reader := &fakeReader{}
	svc := newService(reader, time.Minute)
	defer svc.Close()

	for i := 0; i < 5; i++ {
		if _, err := svc.GetPool(context.Background(), testPoolID); err != nil {
			t.Fatal(err)
		}
	}
	if got := reader.readCount(); got != 1 {
		t.Errorf("venue reads = %d, want 1 while fresh", got)
	}
}

func TestMarketService_StaleQuoteRefreshes(t *testing.T) {
	reader := &fakeReader{}
	svc := newService(reader, 5*time.Millisecond)
	defer svc.Close()

	if _, err := svc.GetPool(context.Background(), testPoolID); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := svc.GetPool(context.Background(), testPoolID); err != nil {
		t.Fatal(err)
	}
	if got := reader.readCount(); got != 2 {
		t.Errorf("venue reads = %d, want a second read once stale", got)
	}
}

func TestMarketService_RefreshFailureIsNotCached(t *testing.T) {
	reader := &fakeReader{fail: true}
	svc := newService(reader, time.Minute)
	defer svc.Close()

	if _, err := svc.GetPool(context.Background(), testPoolID); err == nil {
		t.Fatal("expected refresh failure")
	}

	// The venue recovers: the next read must go through, not replay a
	// cached failure.
	reader.mu.Lock()
	reader.fail = false
	reader.mu.Unlock()

	pool, err := svc.GetPool(context.Background(), testPoolID)
	if err != nil {
		t.Fatal(err)
	}
	if !pool.HasLiquidity() {
		t.Error("recovered pool has no liquidity")
	}
}
