package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RejectCause classifies why a candidate was discarded.
type RejectCause string

const (
	RejectNone                  RejectCause = ""
	RejectInsufficientLiquidity RejectCause = "insufficient_liquidity"
	RejectInfeasibleSize        RejectCause = "infeasible_size"
	RejectNegativeNet           RejectCause = "negative_net_profit"
	RejectBelowMinimum          RejectCause = "below_minimum_profit"
	RejectStaleQuote            RejectCause = "stale_quote"
)

// Decision is the terminal verdict on a sized candidate: accepted
// decisions go to execution, rejected ones are logged and dropped.
type Decision struct {
	ID        string
	Sizing    *SizingResult
	Costs     CostBreakdown
	GrossDec  decimal.Decimal // gross profit in borrow units
	NetProfit decimal.Decimal
	Accepted  bool
	Cause     RejectCause
	DecidedAt time.Time
}

// Reject builds a rejected decision with the given cause.
func Reject(sizing *SizingResult, cause RejectCause) *Decision {
	return &Decision{
		Sizing:    sizing,
		Accepted:  false,
		Cause:     cause,
		DecidedAt: time.Now(),
	}
}
