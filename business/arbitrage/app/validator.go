package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/business/arbitrage/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/asset"
)

// ValidatorConfig holds profitability thresholds.
type ValidatorConfig struct {
	CreditFeeBps      int64
	SlippageBps       int64
	MinProfit         decimal.Decimal // borrow units, non-negative, acceptance is strictly above
	EstimatedGasUnits uint64
}

// Validator turns a SizingResult into a Decision by pricing the credit
// premium and gas against the projected gross profit.
type Validator struct {
	config ValidatorConfig
	gas    GasSource
	native PriceSource
	borrow *asset.Token
}

// NewValidator creates a Validator for the given borrow token.
func NewValidator(cfg ValidatorConfig, gas GasSource, native PriceSource, borrow *asset.Token) *Validator {
	return &Validator{config: cfg, gas: gas, native: native, borrow: borrow}
}

// Validate decides a sized candidate. An error means pricing inputs
// were unavailable and the candidate should simply be skipped this
// tick; a returned Decision is terminal (accepted or rejected).
func (v *Validator) Validate(ctx context.Context, sizing *domain.SizingResult) (*domain.Decision, error) {
	gas, err := v.gas.GasPrice(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeGasPriceUnavailable, "validate")
	}
	nativePrice, err := v.native.NativePrice(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeNativePriceUnknown, "validate")
	}

	// Every hop must tolerate the slippage bound with a positive floor.
	for _, min := range sizing.MinOutputs(v.config.SlippageBps) {
		if min.Sign() <= 0 {
			return domain.Reject(sizing, domain.RejectInsufficientLiquidity), nil
		}
	}

	gross := v.borrow.FromBase(sizing.GrossProfit)
	creditFee := v.borrow.FromBase(domain.CreditFee(sizing.AmountIn, v.config.CreditFeeBps))
	gasCost := gas.CostNative(v.config.EstimatedGasUnits).Mul(nativePrice)

	venueFeesDec := decimal.Zero
	for _, fee := range domain.VenueFees(sizing) {
		venueFeesDec = venueFeesDec.Add(decimal.NewFromBigInt(fee, 0))
	}

	costs := domain.CostBreakdown{
		CreditFee: creditFee,
		VenueFees: venueFeesDec,
		GasCost:   gasCost,
	}
	net := gross.Sub(costs.Total())

	decision := &domain.Decision{
		ID:        uuid.NewString(),
		Sizing:    sizing,
		Costs:     costs,
		GrossDec:  gross,
		NetProfit: net,
		DecidedAt: time.Now(),
	}

	switch {
	case net.Sign() <= 0:
		decision.Cause = domain.RejectNegativeNet
	case !net.GreaterThan(v.config.MinProfit):
		decision.Cause = domain.RejectBelowMinimum
	default:
		decision.Accepted = true
	}
	return decision, nil
}
