package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	marketDomain "github.com/apexarb/flasharb/business/market/domain"
)

var (
	tokenX = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenY = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenZ = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func makePool(venue string, in, out common.Address, reserveIn, reserveOut *big.Int, feeBps int64) *marketDomain.Pool {
	return &marketDomain.Pool{
		ID:         marketDomain.PoolID{Venue: venue, TokenIn: in, TokenOut: out},
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		FeeBps:     feeBps,
	}
}

func units(n int64) *big.Int {
	// six decimal places keeps integer-division noise negligible
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func cycleProfit(c *Candidate, amountIn *big.Int) *big.Int {
	res := Size(c, amountIn)
	if res == nil {
		return big.NewInt(-1)
	}
	return res.GrossProfit
}

func TestOptimalTwoHopInput_ReferenceScenario(t *testing.T) {
	// Reserve ratios 100000:300 against 300:102000 at 30 bps each; in
	// base units so hop outputs are not destroyed by integer floors.
	a := makePool("venue-a", tokenX, tokenY, units(100_000), units(300), 30)
	b := makePool("venue-b", tokenY, tokenX, units(300), units(102_000), 30)

	amount := OptimalTwoHopInput(a, b)
	if amount.Sign() <= 0 {
		t.Fatalf("expected positive optimal input, got %s", amount)
	}

	c, err := NewCandidate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	res := Size(c, amount)
	if res == nil {
		t.Fatal("sizing the optimal input should succeed")
	}
	if res.GrossProfit.Sign() <= 0 {
		t.Errorf("gross profit at optimum = %s, want positive", res.GrossProfit)
	}
}

func TestOptimalTwoHopInput_NoEdgeNoTrade(t *testing.T) {
	// Identical pricing on both venues: fees guarantee a loss.
	a := makePool("venue-a", tokenX, tokenY, units(100_000), units(300), 30)
	b := makePool("venue-b", tokenY, tokenX, units(300), units(100_000), 30)

	if amount := OptimalTwoHopInput(a, b); amount.Sign() > 0 {
		t.Errorf("expected non-positive input with no price edge, got %s", amount)
	}
}

func TestOptimalTwoHopInput_BeatsBruteForce(t *testing.T) {
	tests := []struct {
		name                       string
		rinA, routA, rinB, routB   int64
		feeA, feeB                 int64
	}{
		{"reference", 100_000, 300, 300, 102_000, 30, 30},
		{"wide_edge", 50_000, 100, 100, 60_000, 30, 25},
		{"narrow_edge", 1_000_000, 2_000, 2_000, 1_010_000, 30, 30},
		{"asymmetric_fees", 200_000, 500, 510, 205_000, 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := makePool("venue-a", tokenX, tokenY, units(tt.rinA), units(tt.routA), tt.feeA)
			b := makePool("venue-b", tokenY, tokenX, units(tt.rinB), units(tt.routB), tt.feeB)
			c, err := NewCandidate(a, b)
			if err != nil {
				t.Fatal(err)
			}

			optimal := OptimalTwoHopInput(a, b)
			if optimal.Sign() <= 0 {
				t.Fatalf("expected a feasible trade, got %s", optimal)
			}
			best := cycleProfit(c, optimal)

			// Sample the profit curve across twice the optimal range.
			// The closed form is exact in continuous arithmetic, but
			// per-hop floor division makes the discrete curve bumpy
			// near the flat optimum, so sampled inputs may beat it by
			// rounding noise. Allow 0.1%.
			limit := new(big.Int).Mul(optimal, big.NewInt(2))
			step := new(big.Int).Div(limit, big.NewInt(2_000))
			if step.Sign() == 0 {
				step = big.NewInt(1)
			}
			margin := new(big.Int).Div(best, big.NewInt(1_000))
			if margin.Sign() == 0 {
				margin = big.NewInt(2)
			}
			for x := new(big.Int).Set(step); x.Cmp(limit) < 0; x.Add(x, step) {
				p := cycleProfit(c, new(big.Int).Set(x))
				allowed := new(big.Int).Add(best, margin)
				if p.Cmp(allowed) > 0 {
					t.Fatalf("sampled input %s yields profit %s, beating optimum %s at %s",
						x, p, best, optimal)
				}
			}
		})
	}
}

func TestOptimalInput_SafetyCap(t *testing.T) {
	a := makePool("venue-a", tokenX, tokenY, units(1_000), units(100), 30)
	b := makePool("venue-b", tokenY, tokenX, units(100), units(5_000), 30)
	c, err := NewCandidate(a, b)
	if err != nil {
		t.Fatal(err)
	}

	uncapped := OptimalInput(c, 0)
	capped := OptimalInput(c, 1_000) // 10% of reserve_in

	bound := new(big.Int).Div(units(1_000), big.NewInt(10))
	if capped.Cmp(bound) > 0 {
		t.Errorf("capped input %s exceeds 10%% of reserve_in %s", capped, bound)
	}
	if uncapped.Cmp(capped) < 0 {
		t.Errorf("cap must never increase the input: uncapped %s < capped %s", uncapped, capped)
	}
}

func TestOptimalInput_TriangularBindingLeg(t *testing.T) {
	// Deep first pair, shallow third leg: the second pair must bind.
	leg1 := makePool("venue-a", tokenX, tokenY, units(1_000_000), units(1_000_000), 30)
	leg2 := makePool("venue-b", tokenY, tokenZ, units(1_000_000), units(1_050_000), 30)
	leg3 := makePool("venue-c", tokenZ, tokenX, units(2_000), units(2_100), 30)
	c, err := NewCandidate(leg1, leg2, leg3)
	if err != nil {
		t.Fatal(err)
	}

	amount := OptimalInput(c, 0)
	if amount.Sign() <= 0 {
		t.Skip("no feasible triangular size for this fixture")
	}

	pairOnly := OptimalTwoHopInput(leg1, leg2)
	if amount.Cmp(pairOnly) > 0 {
		t.Errorf("binding-leg size %s exceeds the first pair optimum %s", amount, pairOnly)
	}
}

func TestSizingResult_MinOutputs(t *testing.T) {
	a := makePool("venue-a", tokenX, tokenY, units(100_000), units(300), 30)
	b := makePool("venue-b", tokenY, tokenX, units(300), units(102_000), 30)
	c, err := NewCandidate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	res := Size(c, OptimalTwoHopInput(a, b))
	if res == nil {
		t.Fatal("sizing failed")
	}

	mins := res.MinOutputs(50)
	if len(mins) != len(res.HopOutputs) {
		t.Fatalf("got %d minimums for %d hops", len(mins), len(res.HopOutputs))
	}
	for i, min := range mins {
		if min.Cmp(res.HopOutputs[i]) >= 0 {
			t.Errorf("hop %d minimum %s not below projection %s", i, min, res.HopOutputs[i])
		}
		// 0.5% bound: min = out·9950/10000
		want := new(big.Int).Mul(res.HopOutputs[i], big.NewInt(9_950))
		want.Div(want, big.NewInt(10_000))
		if min.Cmp(want) != 0 {
			t.Errorf("hop %d minimum = %s, want %s", i, min, want)
		}
	}
}

func TestNewCandidate_RejectsBrokenCycle(t *testing.T) {
	a := makePool("venue-a", tokenX, tokenY, units(100), units(100), 30)
	b := makePool("venue-b", tokenZ, tokenX, units(100), units(100), 30)

	if _, err := NewCandidate(a, b); err == nil {
		t.Error("legs that do not connect must be rejected")
	}
	if _, err := NewCandidate(a); err == nil {
		t.Error("single-leg candidates must be rejected")
	}
}
