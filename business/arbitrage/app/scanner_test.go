package app

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/arbitrage/domain"
	marketDomain "github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/logger"
)

type fakePools struct {
	calls int
}

func (f *fakePools) GetPool(ctx context.Context, id marketDomain.PoolID) (*marketDomain.Pool, error) {
	f.calls++
	return &marketDomain.Pool{
		ID:         id,
		ReserveIn:  big.NewInt(1_000_000_000),
		ReserveOut: big.NewInt(1_000_000_000),
		FeeBps:     30,
		FetchedAt:  time.Now(),
	}, nil
}

func scannerFixture(t *testing.T, cfg ScannerConfig) (*Scanner, *fakePools) {
	t.Helper()
	registry := asset.NewRegistry()
	borrow := asset.NewToken("USDC", common.HexToAddress("0xaa"), 6)
	registry.Register(borrow)
	registry.Register(asset.NewToken("AAA", common.HexToAddress("0x01"), 18))
	registry.Register(asset.NewToken("BBB", common.HexToAddress("0x02"), 18))

	pools := &fakePools{}
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewScanner(cfg, pools, registry, borrow, log), pools
}

func collect(s *Scanner) []*domain.Candidate {
	var out []*domain.Candidate
	for c := range s.Candidates(context.Background()) {
		out = append(out, c)
	}
	return out
}

func TestScanner_SimpleEnumeration(t *testing.T) {
	s, _ := scannerFixture(t, ScannerConfig{
		Venues: []ScanVenue{{Name: "quick", Family: "v2"}, {Name: "sushi", Family: "v2"}},
	})

	got := collect(s)
	// 2 counter tokens × 1 unordered venue pair × 2 directions
	if len(got) != 4 {
		t.Fatalf("candidates = %d, want 4", len(got))
	}
	for _, c := range got {
		if c.Triangular() {
			t.Error("triangular candidate emitted with triangular mode off")
		}
		if len(c.Legs) != 2 {
			t.Errorf("simple candidate with %d legs", len(c.Legs))
		}
		if c.Legs[0].ID.Venue == c.Legs[1].ID.Venue {
			t.Error("two-hop candidate must span two venues")
		}
	}
}

func TestScanner_TriangularEnumeration(t *testing.T) {
	s, _ := scannerFixture(t, ScannerConfig{
		Venues:           []ScanVenue{{Name: "quick", Family: "qs"}, {Name: "sushi", Family: "ss"}},
		Triangular:       true,
		TriangularOnly:   true,
		MaxHopsPerFamily: 2,
	})

	got := collect(s)
	// 2 ordered counter-token pairs × (2³ venue assignments − 2 that
	// put three hops on one family)
	if len(got) != 12 {
		t.Fatalf("candidates = %d, want 12", len(got))
	}
	for _, c := range got {
		if !c.Triangular() {
			t.Error("expected only triangular candidates in exclusive mode")
		}
	}
}

func TestScanner_BudgetBoundsScan(t *testing.T) {
	s, pools := scannerFixture(t, ScannerConfig{
		Venues: []ScanVenue{{Name: "quick", Family: "v2"}, {Name: "sushi", Family: "v2"}},
		Budget: time.Nanosecond,
	})

	time.Sleep(time.Millisecond) // ensure the budget has elapsed
	if got := collect(s); len(got) != 0 {
		t.Errorf("expired budget still yielded %d candidates", len(got))
	}
	if pools.calls != 0 {
		t.Errorf("expired budget still performed %d pool reads", pools.calls)
	}
}

func TestScanner_RestartableAcrossTicks(t *testing.T) {
	s, _ := scannerFixture(t, ScannerConfig{
		Venues: []ScanVenue{{Name: "quick", Family: "v2"}, {Name: "sushi", Family: "v2"}},
	})

	first := collect(s)
	second := collect(s)
	if len(first) != len(second) {
		t.Errorf("second tick found %d candidates, first found %d", len(second), len(first))
	}
}
