package app

import (
	"github.com/apexarb/flasharb/business/arbitrage/domain"
	"github.com/apexarb/flasharb/internal/apperror"
)

// Sizer derives the profit-maximizing input for a candidate.
type Sizer struct {
	safetyCapBps int64
}

// NewSizer creates a Sizer. safetyFraction bounds the input to that
// share of the entry pool's in-reserve (0 disables the cap).
func NewSizer(safetyFraction float64) *Sizer {
	return &Sizer{safetyCapBps: int64(safetyFraction * 10_000)}
}

// Size returns the sized candidate, or INFEASIBLE_SIZE when no positive
// input produces a gross profit.
func (s *Sizer) Size(c *domain.Candidate) (*domain.SizingResult, error) {
	amount := domain.OptimalInput(c, s.safetyCapBps)
	if amount.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInfeasibleSize,
			apperror.WithContext(c.String()))
	}

	result := domain.Size(c, amount)
	if result == nil {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(c.String()))
	}
	if result.GrossProfit.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInfeasibleSize,
			apperror.WithMessage("no gross profit at optimal size"),
			apperror.WithContext(c.String()))
	}
	return result, nil
}
