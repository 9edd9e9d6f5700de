package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CostBreakdown itemizes everything subtracted from gross profit, all
// expressed in borrow-token units. Venue fees are informational: the
// sizing projections already net them out.
type CostBreakdown struct {
	CreditFee decimal.Decimal // borrowed · premium rate, borrow units
	VenueFees decimal.Decimal // nominal per-hop fees summed in raw hop units, logging only
	GasCost   decimal.Decimal // gas units · gas price, in borrow units
}

// Total returns the profit-reducing cost: credit fee plus gas. Venue
// fees are excluded because the projections are already net of them.
func (c CostBreakdown) Total() decimal.Decimal {
	return c.CreditFee.Add(c.GasCost)
}

// CreditFee computes the flash credit premium on a borrowed base amount.
func CreditFee(borrowed *big.Int, premiumBps int64) *big.Int {
	fee := new(big.Int).Mul(borrowed, big.NewInt(premiumBps))
	return fee.Div(fee, big.NewInt(bpsScale))
}

// VenueFees returns the nominal fee taken at each hop, in that hop's
// input token units. Logging only.
func VenueFees(s *SizingResult) []*big.Int {
	fees := make([]*big.Int, 0, len(s.Candidate.Legs))
	in := s.AmountIn
	for i, leg := range s.Candidate.Legs {
		fee := new(big.Int).Mul(in, big.NewInt(leg.FeeBps))
		fee.Div(fee, big.NewInt(bpsScale))
		fees = append(fees, fee)
		in = s.HopOutputs[i]
	}
	return fees
}
