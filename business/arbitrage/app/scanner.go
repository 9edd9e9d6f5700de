package app

import (
	"context"
	"iter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/arbitrage/domain"
	marketDomain "github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/logger"
)

// ScanVenue is one venue the scanner enumerates over.
type ScanVenue struct {
	Name   string
	Family string
}

// ScannerConfig holds enumeration settings.
type ScannerConfig struct {
	Venues           []ScanVenue
	Budget           time.Duration // per-tick time budget
	Triangular       bool
	TriangularOnly   bool // skip simple two-hop candidates
	MaxHopsPerFamily int  // venue-family hop limit per cycle
}

// Scanner lazily enumerates arbitrage candidates for one scan tick.
// Pool snapshots are pulled through the quote cache as candidates are
// requested, so an exhausted budget costs no further reads.
type Scanner struct {
	config ScannerConfig
	pools  PoolSource
	borrow *asset.Token
	tokens []*asset.Token // tradable counter-tokens, borrow excluded
	logger logger.LoggerInterface
}

// NewScanner creates a Scanner over the registry's tokens. The borrow
// token anchors every cycle and is excluded from the counter set.
func NewScanner(cfg ScannerConfig, pools PoolSource, registry *asset.Registry, borrow *asset.Token, log logger.LoggerInterface) *Scanner {
	var tokens []*asset.Token
	for _, t := range registry.All() {
		if t.Address() != borrow.Address() {
			tokens = append(tokens, t)
		}
	}
	return &Scanner{
		config: cfg,
		pools:  pools,
		borrow: borrow,
		tokens: tokens,
		logger: log,
	}
}

// Candidates returns a single-use iterator over this tick's candidates.
// Iteration stops when the time budget elapses or ctx is cancelled;
// whatever was produced until then is a valid partial scan.
func (s *Scanner) Candidates(ctx context.Context) iter.Seq[*domain.Candidate] {
	deadline := time.Now().Add(s.config.Budget)

	return func(yield func(*domain.Candidate) bool) {
		expired := func() bool {
			return ctx.Err() != nil || (s.config.Budget > 0 && time.Now().After(deadline))
		}

		if !s.config.TriangularOnly {
			if !s.simpleCandidates(ctx, expired, yield) {
				return
			}
		}
		if s.config.Triangular {
			s.triangularCandidates(ctx, expired, yield)
		}
	}
}

// simpleCandidates emits a two-hop candidate per counter token, venue
// pair, and direction. Returns false when iteration should stop.
func (s *Scanner) simpleCandidates(ctx context.Context, expired func() bool, yield func(*domain.Candidate) bool) bool {
	for _, token := range s.tokens {
		for i := 0; i < len(s.config.Venues); i++ {
			for j := i + 1; j < len(s.config.Venues); j++ {
				pairs := [2][2]string{
					{s.config.Venues[i].Name, s.config.Venues[j].Name},
					{s.config.Venues[j].Name, s.config.Venues[i].Name},
				}
				for _, p := range pairs {
					if expired() {
						return false
					}
					c := s.twoHop(ctx, p[0], p[1], token.Address())
					if c == nil {
						continue
					}
					if !yield(c) {
						return false
					}
				}
			}
		}
	}
	return true
}

func (s *Scanner) twoHop(ctx context.Context, venueA, venueB string, token common.Address) *domain.Candidate {
	legA := s.fetch(ctx, venueA, s.borrow.Address(), token)
	if legA == nil {
		return nil
	}
	legB := s.fetch(ctx, venueB, token, s.borrow.Address())
	if legB == nil {
		return nil
	}
	c, err := domain.NewCandidate(legA, legB)
	if err != nil {
		return nil
	}
	return c
}

// triangularCandidates emits borrow→B→C→borrow cycles across all venue
// assignments that respect the per-family hop limit.
func (s *Scanner) triangularCandidates(ctx context.Context, expired func() bool, yield func(*domain.Candidate) bool) {
	for _, tokenB := range s.tokens {
		for _, tokenC := range s.tokens {
			if tokenB.Address() == tokenC.Address() {
				continue
			}
			for _, v1 := range s.config.Venues {
				for _, v2 := range s.config.Venues {
					for _, v3 := range s.config.Venues {
						if expired() {
							return
						}
						if !s.familyBudgetOK(v1, v2, v3) {
							continue
						}
						c := s.threeHop(ctx, v1.Name, v2.Name, v3.Name, tokenB.Address(), tokenC.Address())
						if c == nil {
							continue
						}
						if !yield(c) {
							return
						}
					}
				}
			}
		}
	}
}

func (s *Scanner) threeHop(ctx context.Context, v1, v2, v3 string, tokenB, tokenC common.Address) *domain.Candidate {
	leg1 := s.fetch(ctx, v1, s.borrow.Address(), tokenB)
	if leg1 == nil {
		return nil
	}
	leg2 := s.fetch(ctx, v2, tokenB, tokenC)
	if leg2 == nil {
		return nil
	}
	leg3 := s.fetch(ctx, v3, tokenC, s.borrow.Address())
	if leg3 == nil {
		return nil
	}
	c, err := domain.NewCandidate(leg1, leg2, leg3)
	if err != nil {
		return nil
	}
	return c
}

func (s *Scanner) familyBudgetOK(venues ...ScanVenue) bool {
	if s.config.MaxHopsPerFamily <= 0 {
		return true
	}
	counts := make(map[string]int, len(venues))
	for _, v := range venues {
		counts[v.Family]++
		if counts[v.Family] > s.config.MaxHopsPerFamily {
			return false
		}
	}
	return true
}

// fetch reads one pool through the cache; a failed or illiquid read
// skips the candidate rather than failing the scan.
func (s *Scanner) fetch(ctx context.Context, venue string, in, out common.Address) *marketDomain.Pool {
	pool, err := s.pools.GetPool(ctx, marketDomain.PoolID{Venue: venue, TokenIn: in, TokenOut: out})
	if err != nil {
		s.logger.Debug(ctx, "pool unavailable, skipping", "venue", venue, "error", err)
		return nil
	}
	if !pool.HasLiquidity() {
		return nil
	}
	return pool
}
