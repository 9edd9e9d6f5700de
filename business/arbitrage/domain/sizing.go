package domain

import (
	"math/big"

	marketDomain "github.com/apexarb/flasharb/business/market/domain"
)

const bpsScale = 10_000

// SizingResult is a sized candidate: the chosen input, the projected
// output at every hop, and the projected gross profit before fees and
// gas. GrossProfit is final output minus input; venue fees are already
// folded into the hop projections.
type SizingResult struct {
	Candidate   *Candidate
	AmountIn    *big.Int
	HopOutputs  []*big.Int
	GrossProfit *big.Int
}

// OptimalTwoHopInput returns the input amount that maximizes profit for
// selling through a and buying back through b under constant-product
// price impact, with both pool fees applied:
//
//	x* = (sqrt(fa·fb·RoutA·RoutB·RinA·RinB) − RinA·RinB) / (fa·(RinB + fb·RoutA))
//
// where fa, fb are the fee-retention fractions (1 − fee). Returns a
// non-positive amount when the price differential cannot beat the fees.
func OptimalTwoHopInput(a, b *marketDomain.Pool) *big.Int {
	if !a.HasLiquidity() || !b.HasLiquidity() {
		return new(big.Int)
	}

	pa := big.NewInt(bpsScale - a.FeeBps)
	pb := big.NewInt(bpsScale - b.FeeBps)
	scale := big.NewInt(bpsScale)

	// sqrt(pa·pb·RoutA·RoutB·RinA·RinB), all in bps-scaled integers
	prod := new(big.Int).Mul(pa, pb)
	prod.Mul(prod, a.ReserveOut)
	prod.Mul(prod, b.ReserveOut)
	prod.Mul(prod, a.ReserveIn)
	prod.Mul(prod, b.ReserveIn)
	root := new(big.Int).Sqrt(prod)

	// numerator = root·10⁴ − RinA·RinB·10⁸
	num := new(big.Int).Mul(root, scale)
	sub := new(big.Int).Mul(a.ReserveIn, b.ReserveIn)
	sub.Mul(sub, scale)
	sub.Mul(sub, scale)
	num.Sub(num, sub)
	if num.Sign() <= 0 {
		return new(big.Int)
	}

	// denominator = pa·(10⁴·RinB + pb·RoutA)
	den := new(big.Int).Mul(scale, b.ReserveIn)
	den.Add(den, new(big.Int).Mul(pb, a.ReserveOut))
	den.Mul(den, pa)

	return num.Div(num, den)
}

// maxInputForOutput inverts AmountOut: the input to pool p that yields
// amountOut. Returns nil when the pool cannot produce that much.
func maxInputForOutput(p *marketDomain.Pool, amountOut *big.Int) *big.Int {
	if amountOut.Sign() <= 0 || amountOut.Cmp(p.ReserveOut) >= 0 {
		return nil
	}
	// in = Rin·out·10⁴ / ((Rout − out)·(10⁴ − fee))
	num := new(big.Int).Mul(p.ReserveIn, amountOut)
	num.Mul(num, big.NewInt(bpsScale))
	den := new(big.Int).Sub(p.ReserveOut, amountOut)
	den.Mul(den, big.NewInt(bpsScale-p.FeeBps))
	if den.Sign() <= 0 {
		return nil
	}
	return num.Div(num, den)
}

// OptimalInput sizes a candidate. For two hops it applies the closed
// form directly; for triangular cycles it optimizes each adjacent leg
// pair and takes the binding (smallest) size translated back to the
// entry token. safetyCap, when positive, bounds the input to a fraction
// of the first leg's in-reserve expressed in basis points.
func OptimalInput(c *Candidate, safetyCapBps int64) *big.Int {
	var amount *big.Int
	switch len(c.Legs) {
	case 2:
		amount = OptimalTwoHopInput(c.Legs[0], c.Legs[1])
	case 3:
		amount = optimalTriangularInput(c)
	default:
		return new(big.Int)
	}

	if amount.Sign() <= 0 {
		return new(big.Int)
	}

	if safetyCapBps > 0 {
		bound := new(big.Int).Mul(c.Legs[0].ReserveIn, big.NewInt(safetyCapBps))
		bound.Div(bound, big.NewInt(bpsScale))
		if amount.Cmp(bound) > 0 {
			amount = bound
		}
	}
	return amount
}

func optimalTriangularInput(c *Candidate) *big.Int {
	l1, l2, l3 := c.Legs[0], c.Legs[1], c.Legs[2]

	// Optimum for the first leg pair, already in entry-token units.
	x12 := OptimalTwoHopInput(l1, l2)

	// Optimum for the second pair is in leg-2 input units; translate it
	// back through leg 1.
	x23 := OptimalTwoHopInput(l2, l3)
	var x23Entry *big.Int
	if x23.Sign() > 0 {
		x23Entry = maxInputForOutput(l1, x23)
	}

	switch {
	case x12.Sign() <= 0:
		return new(big.Int)
	case x23Entry == nil || x23Entry.Sign() <= 0:
		return new(big.Int)
	case x23Entry.Cmp(x12) < 0:
		return x23Entry
	default:
		return x12
	}
}

// Size projects a candidate at the given input: output per hop and gross
// profit. Returns nil when the input is non-positive or a hop quotes zero.
func Size(c *Candidate, amountIn *big.Int) *SizingResult {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil
	}

	outputs := make([]*big.Int, 0, len(c.Legs))
	in := amountIn
	for _, leg := range c.Legs {
		out := leg.AmountOut(in)
		if out.Sign() <= 0 {
			return nil
		}
		outputs = append(outputs, out)
		in = out
	}

	gross := new(big.Int).Sub(outputs[len(outputs)-1], amountIn)
	return &SizingResult{
		Candidate:   c,
		AmountIn:    amountIn,
		HopOutputs:  outputs,
		GrossProfit: gross,
	}
}

// MinOutputs returns the slippage-bounded minimum acceptable output per
// hop: projection scaled down by slippageBps.
func (s *SizingResult) MinOutputs(slippageBps int64) []*big.Int {
	mins := make([]*big.Int, 0, len(s.HopOutputs))
	for _, out := range s.HopOutputs {
		min := new(big.Int).Mul(out, big.NewInt(bpsScale-slippageBps))
		min.Div(min, big.NewInt(bpsScale))
		mins = append(mins, min)
	}
	return mins
}
