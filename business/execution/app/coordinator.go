package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbitrageDomain "github.com/apexarb/flasharb/business/arbitrage/domain"
	"github.com/apexarb/flasharb/business/execution/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

const (
	tracerName = "github.com/apexarb/flasharb/business/execution/app"
	meterName  = "github.com/apexarb/flasharb/business/execution/app"
)

// CoordinatorConfig holds execution settings.
type CoordinatorConfig struct {
	Account          common.Address
	Beneficiary      common.Address
	Routers          map[string]common.Address // venue name → router
	PremiumBps       int64
	SlippageBps      int64
	DeadlineWindow   time.Duration
	ConfirmTimeout   time.Duration
	SubmitRetries    int
	MinNativeBalance decimal.Decimal
}

type coordinatorMetrics struct {
	executions  metric.Int64Counter
	settlements metric.Int64Counter
	halts       metric.Int64Counter
}

// Coordinator drives accepted decisions through submission and
// confirmation. It is strictly single-flight: one settlement at a time,
// one sequence reservation at a time.
type Coordinator struct {
	config    CoordinatorConfig
	sequence  *SequenceManager
	submitter Submitter
	balances  BalanceSource
	health    EndpointHealth
	logger    logger.LoggerInterface
	tracer    trace.Tracer
	metrics   *coordinatorMetrics

	mu    sync.Mutex
	state domain.State
}

// NewCoordinator creates a Coordinator in the idle state.
func NewCoordinator(cfg CoordinatorConfig, seq *SequenceManager, submitter Submitter, balances BalanceSource, health EndpointHealth, log logger.LoggerInterface) (*Coordinator, error) {
	c := &Coordinator{
		config:    cfg,
		sequence:  seq,
		submitter: submitter,
		balances:  balances,
		health:    health,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		state:     domain.StateIdle,
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *Coordinator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &coordinatorMetrics{}

	c.metrics.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Execution attempts by final state"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	c.metrics.settlements, err = meter.Int64Counter(
		"settlements_total",
		metric.WithDescription("Mined settlements by outcome"),
		metric.WithUnit("{settlement}"),
	)
	if err != nil {
		return err
	}

	c.metrics.halts, err = meter.Int64Counter(
		"execution_halts_total",
		metric.WithDescription("Decisions refused before submission, by reason"),
		metric.WithUnit("{halt}"),
	)
	return err
}

// State returns the current execution state.
func (c *Coordinator) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s domain.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// enter moves IDLE → SIZED, failing when an execution is in progress.
func (c *Coordinator) enter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.StateIdle {
		return apperror.New(apperror.CodeCoordinatorBusy,
			apperror.WithContext(string(c.state)))
	}
	c.state = domain.StateSized
	return nil
}

// Execute carries one accepted decision to settlement. The returned
// outcome is nil when the decision was abandoned before the network
// accepted it.
func (c *Coordinator) Execute(ctx context.Context, decision *arbitrageDomain.Decision) (*domain.Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(attribute.String("decision_id", decision.ID)),
	)
	defer span.End()

	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.setState(domain.StateIdle)

	if err := c.preflight(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preflight failed")
		return nil, err
	}

	seq, err := c.sequence.ReserveNext(ctx)
	if err != nil {
		return nil, err
	}

	request := c.buildRequest(decision, seq)
	c.logger.Info(ctx, "settlement prepared",
		"request_id", request.ID,
		"decision_id", decision.ID,
		"sequence", seq,
		"amount", request.Amount.String(),
		"hops", len(request.Hops),
		"deadline", request.Deadline.Format(time.RFC3339),
	)

	hash, err := c.submitWithRetry(ctx, request)
	if err != nil {
		// Never accepted by the network: the slot is not consumed.
		if rerr := c.sequence.AbortAndResync(ctx); rerr != nil {
			c.logger.Error(ctx, "sequence resync failed after abandoned submission", "error", rerr)
		}
		c.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", "abandoned")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission abandoned")
		return nil, err
	}

	c.setState(domain.StateSubmitted)
	outcome, err := c.submitter.AwaitConfirmation(ctx, hash, c.config.ConfirmTimeout)
	if err != nil {
		// The operation may still land; the slot is treated as consumed
		// and no resubmission of the same request ever happens.
		c.setState(domain.StateTimedOut)
		c.sequence.Confirm()
		c.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", "timed_out")))
		c.logger.Warn(ctx, "confirmation timed out",
			"request_id", request.ID, "tx", hash.Hex())
		span.SetStatus(codes.Error, "confirmation timeout")
		return nil, apperror.Wrap(err, apperror.CodeSettlementTimeout, request.ID)
	}

	// Mined: the slot is consumed regardless of the business outcome.
	c.sequence.Confirm()

	if outcome.Committed() {
		c.setState(domain.StateConfirmed)
		c.logger.Info(ctx, "settlement committed",
			"request_id", request.ID,
			"tx", outcome.TxHash.Hex(),
			"residual", outcome.Residual.String(),
			"gas_used", outcome.GasUsed,
		)
	} else {
		c.setState(domain.StateReverted)
		c.logger.Warn(ctx, "settlement aborted on-ledger",
			"request_id", request.ID,
			"tx", outcome.TxHash.Hex(),
			"cause", outcome.Cause,
			"gas_used", outcome.GasUsed,
		)
	}
	c.metrics.settlements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome.Status))))
	c.metrics.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", string(c.State()))))
	span.SetStatus(codes.Ok, string(outcome.Status))
	return outcome, nil
}

// preflight refuses submissions while endpoints are exhausted or the
// account cannot pay for gas. Both conditions clear themselves, so they
// halt rather than fail the process.
func (c *Coordinator) preflight(ctx context.Context) error {
	if !c.health.Healthy() {
		c.metrics.halts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "endpoints_exhausted")))
		return apperror.New(apperror.CodeEndpointsExhausted,
			apperror.WithMessage("no serving endpoint, submissions halted pending recovery"))
	}

	balance, err := c.balances.NativeBalance(ctx, c.config.Account)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeRPCError, "balance preflight")
	}
	if balance.LessThan(c.config.MinNativeBalance) {
		c.metrics.halts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "insufficient_gas_funds")))
		return apperror.New(apperror.CodeInsufficientGasFunds,
			apperror.WithContext(fmt.Sprintf("balance %s below floor %s",
				balance.String(), c.config.MinNativeBalance.String())))
	}
	return nil
}

func (c *Coordinator) buildRequest(decision *arbitrageDomain.Decision, seq uint64) *domain.SettlementRequest {
	sizing := decision.Sizing
	mins := sizing.MinOutputs(c.config.SlippageBps)

	hops := make([]domain.Hop, 0, len(sizing.Candidate.Legs))
	for i, leg := range sizing.Candidate.Legs {
		hops = append(hops, domain.Hop{
			Venue:    leg.ID.Venue,
			Router:   c.config.Routers[leg.ID.Venue],
			TokenIn:  leg.ID.TokenIn,
			TokenOut: leg.ID.TokenOut,
			MinOut:   mins[i],
		})
	}

	return &domain.SettlementRequest{
		ID:          uuid.NewString(),
		Borrow:      sizing.Candidate.Legs[0].ID.TokenIn,
		Amount:      sizing.AmountIn,
		PremiumBps:  c.config.PremiumBps,
		Hops:        hops,
		Beneficiary: c.config.Beneficiary,
		Deadline:    time.Now().Add(c.config.DeadlineWindow),
		Sequence:    seq,
	}
}

// submitWithRetry tries the submission through successive primaries, a
// bounded number of times. Gateway rejections demote the endpoint that
// served them.
func (c *Coordinator) submitWithRetry(ctx context.Context, request *domain.SettlementRequest) (common.Hash, error) {
	attempts := c.config.SubmitRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		hash, err := c.submitter.Submit(ctx, request)
		if err == nil {
			return hash, nil
		}
		lastErr = err
		c.logger.Warn(ctx, "submission rejected",
			"request_id", request.ID, "attempt", attempt, "error", err)
		c.health.ReportPrimaryFailure(ctx)
		if !c.health.Healthy() {
			break
		}
	}
	return common.Hash{}, apperror.Wrap(lastErr, apperror.CodeSubmissionRejected, request.ID)
}
