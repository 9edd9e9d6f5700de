package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:      "Required field is missing",
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeServiceTimeout:     "Service request timeout",

	CodeQuoteStale:          "Pool quote is stale",
	CodeQuoteRefreshFailed:  "Failed to refresh pool quote",
	CodePoolNotFound:        "Pool not found on venue",
	CodeGasPriceUnavailable: "Gas price unavailable",
	CodeNativePriceUnknown:  "Native asset price unknown",

	CodeInfeasibleSize:        "Computed trade size is infeasible",
	CodeInsufficientLiquidity: "Insufficient pool liquidity",
	CodeBelowProfitThreshold:  "Net profit below configured threshold",
	CodeSlippageBoundViolated: "Projected output below slippage bound",

	CodeEndpointUnreachable: "Endpoint is unreachable",
	CodeEndpointStale:       "Endpoint chain head has stagnated",
	CodeEndpointsExhausted:  "All configured endpoints are unhealthy",
	CodeRPCError:            "RPC call failed",
	CodeCircuitOpen:         "Circuit breaker is open",

	CodeSequenceDrift:        "Local sequence drifted from network value",
	CodeReservationHeld:      "A sequence reservation is already in flight",
	CodeSubmissionRejected:   "Operation rejected before network acceptance",
	CodeSettlementTimeout:    "Settlement confirmation timed out",
	CodeSettlementReverted:   "Settlement aborted on ledger",
	CodeInsufficientGasFunds: "Operating account native balance below minimum",
	CodeInstanceGuardHeld:    "Another instance holds the account guard",
	CodeDeadlineExpired:      "Settlement request deadline expired",
	CodeCoordinatorBusy:      "An execution is already in flight",
}
