package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
)

// Market data error codes
const (
	CodeQuoteStale          Code = "QUOTE_STALE"
	CodeQuoteRefreshFailed  Code = "QUOTE_REFRESH_FAILED"
	CodePoolNotFound        Code = "POOL_NOT_FOUND"
	CodeGasPriceUnavailable Code = "GAS_PRICE_UNAVAILABLE"
	CodeNativePriceUnknown  Code = "NATIVE_PRICE_UNKNOWN"
)

// Sizing and validation error codes
const (
	CodeInfeasibleSize        Code = "INFEASIBLE_SIZE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeBelowProfitThreshold  Code = "BELOW_PROFIT_THRESHOLD"
	CodeSlippageBoundViolated Code = "SLIPPAGE_BOUND_VIOLATED"
)

// Endpoint and network error codes
const (
	CodeEndpointUnreachable Code = "ENDPOINT_UNREACHABLE"
	CodeEndpointStale       Code = "ENDPOINT_STALE"
	CodeEndpointsExhausted  Code = "ENDPOINTS_EXHAUSTED"
	CodeRPCError            Code = "RPC_ERROR"
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
)

// Execution error codes
const (
	CodeSequenceDrift         Code = "SEQUENCE_DRIFT"
	CodeReservationHeld       Code = "RESERVATION_HELD"
	CodeSubmissionRejected    Code = "SUBMISSION_REJECTED"
	CodeSettlementTimeout     Code = "SETTLEMENT_TIMEOUT"
	CodeSettlementReverted    Code = "SETTLEMENT_REVERTED"
	CodeInsufficientGasFunds  Code = "INSUFFICIENT_GAS_FUNDS"
	CodeInstanceGuardHeld     Code = "INSTANCE_GUARD_HELD"
	CodeDeadlineExpired       Code = "DEADLINE_EXPIRED"
	CodeCoordinatorBusy       Code = "COORDINATOR_BUSY"
)
