package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/apexarb/flasharb/business/arbitrage/domain"
	marketDomain "github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/business/execution/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

type fakeSubmitter struct {
	submitErrs []error // consumed one per Submit call, nil entries accept
	submitted  []*domain.SettlementRequest
	outcome    *domain.Outcome
	awaitErr   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req *domain.SettlementRequest) (common.Hash, error) {
	var err error
	if len(f.submitErrs) > 0 {
		err, f.submitErrs = f.submitErrs[0], f.submitErrs[1:]
	}
	if err != nil {
		return common.Hash{}, err
	}
	f.submitted = append(f.submitted, req)
	return common.HexToHash("0xfeed"), nil
}

func (f *fakeSubmitter) AwaitConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*domain.Outcome, error) {
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.outcome, nil
}

type fakeBalances struct {
	balance decimal.Decimal
}

func (f *fakeBalances) NativeBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	return f.balance, nil
}

type fakeHealth struct {
	healthy bool
	reports int
}

func (f *fakeHealth) Healthy() bool                          { return f.healthy }
func (f *fakeHealth) ReportPrimaryFailure(ctx context.Context) { f.reports++ }

var (
	coordTokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	coordTokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func acceptedDecision(t *testing.T) *arbitrageDomain.Decision {
	t.Helper()
	legs := []*marketDomain.Pool{
		{
			ID:         marketDomain.PoolID{Venue: "quickswap", TokenIn: coordTokenA, TokenOut: coordTokenB},
			ReserveIn:  big.NewInt(1_000_000),
			ReserveOut: big.NewInt(2_000_000),
			FeeBps:     30,
		},
		{
			ID:         marketDomain.PoolID{Venue: "sushiswap", TokenIn: coordTokenB, TokenOut: coordTokenA},
			ReserveIn:  big.NewInt(2_000_000),
			ReserveOut: big.NewInt(1_050_000),
			FeeBps:     30,
		},
	}
	candidate, err := arbitrageDomain.NewCandidate(legs...)
	if err != nil {
		t.Fatal(err)
	}
	sizing := arbitrageDomain.Size(candidate, big.NewInt(10_000))
	return &arbitrageDomain.Decision{
		ID:       "dec-1",
		Sizing:   sizing,
		Accepted: true,
	}
}

type coordFixture struct {
	coordinator *Coordinator
	sequence    *SequenceManager
	syncer      *fakeSyncer
	submitter   *fakeSubmitter
	health      *fakeHealth
	balances    *fakeBalances
}

func newCoordinator(t *testing.T) *coordFixture {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	syncer := &fakeSyncer{value: 5}
	seq := NewSequenceManager(testAccount, syncer, log)
	submitter := &fakeSubmitter{
		outcome: &domain.Outcome{
			Status:   domain.OutcomeCommitted,
			TxHash:   common.HexToHash("0xfeed"),
			Residual: big.NewInt(42),
		},
	}
	health := &fakeHealth{healthy: true}
	balances := &fakeBalances{balance: decimal.NewFromInt(3)}

	cfg := CoordinatorConfig{
		Account:     testAccount,
		Beneficiary: common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		Routers: map[string]common.Address{
			"quickswap": common.HexToAddress("0x0000000000000000000000000000000000000011"),
			"sushiswap": common.HexToAddress("0x0000000000000000000000000000000000000022"),
		},
		PremiumBps:       9,
		SlippageBps:      50,
		DeadlineWindow:   time.Minute,
		ConfirmTimeout:   time.Second,
		SubmitRetries:    2,
		MinNativeBalance: decimal.NewFromInt(1),
	}
	coordinator, err := NewCoordinator(cfg, seq, submitter, balances, health, log)
	if err != nil {
		t.Fatal(err)
	}
	return &coordFixture{coordinator, seq, syncer, submitter, health, balances}
}

func TestCoordinator_CommitsAndAdvancesSequence(t *testing.T) {
	f := newCoordinator(t)

	outcome, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Committed() {
		t.Errorf("outcome = %s, want committed", outcome.Status)
	}
	if got := f.sequence.Next(); got != 6 {
		t.Errorf("sequence after commit = %d, want 6", got)
	}
	if got := f.coordinator.State(); got != domain.StateIdle {
		t.Errorf("state after execute = %s, want idle", got)
	}

	req := f.submitter.submitted[0]
	if req.Sequence != 5 {
		t.Errorf("submitted sequence = %d, want 5", req.Sequence)
	}
	if req.Borrow != coordTokenA {
		t.Errorf("borrow asset = %s, want first leg input", req.Borrow.Hex())
	}
	if len(req.Hops) != 2 {
		t.Fatalf("hops = %d, want 2", len(req.Hops))
	}
	if req.Hops[1].Router != common.HexToAddress("0x0000000000000000000000000000000000000022") {
		t.Errorf("second hop router = %s, want the sushiswap router", req.Hops[1].Router.Hex())
	}
	for i, hop := range req.Hops {
		if hop.MinOut == nil || hop.MinOut.Sign() <= 0 {
			t.Errorf("hop %d min output = %v, want positive", i, hop.MinOut)
		}
	}
}

func TestCoordinator_HaltsWhileEndpointsExhausted(t *testing.T) {
	f := newCoordinator(t)
	f.health.healthy = false

	_, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if !errors.Is(err, apperror.New(apperror.CodeEndpointsExhausted)) {
		t.Fatalf("error = %v, want ENDPOINTS_EXHAUSTED", err)
	}
	if f.syncer.calls != 0 {
		t.Errorf("sequence synced %d times during halt, want 0", f.syncer.calls)
	}

	// An endpoint recovered: the same coordinator resumes on its own.
	f.health.healthy = true
	if _, err := f.coordinator.Execute(context.Background(), acceptedDecision(t)); err != nil {
		t.Fatalf("execute after recovery: %v", err)
	}
}

func TestCoordinator_HaltsOnInsufficientGasFunds(t *testing.T) {
	f := newCoordinator(t)
	f.balances.balance = decimal.RequireFromString("0.5")

	_, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if !errors.Is(err, apperror.New(apperror.CodeInsufficientGasFunds)) {
		t.Fatalf("error = %v, want INSUFFICIENT_GAS_FUNDS", err)
	}
	if got := f.coordinator.State(); got != domain.StateIdle {
		t.Errorf("state after halt = %s, want idle", got)
	}
}

func TestCoordinator_AbandonedSubmissionDoesNotConsumeSlot(t *testing.T) {
	f := newCoordinator(t)
	rejected := errors.New("nonce too low")
	f.submitter.submitErrs = []error{rejected, rejected}

	// The network moved on while we were being rejected.
	f.syncer.value = 9

	_, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if !errors.Is(err, apperror.New(apperror.CodeSubmissionRejected)) {
		t.Fatalf("error = %v, want SUBMISSION_REJECTED", err)
	}
	if f.health.reports != 2 {
		t.Errorf("primary failure reports = %d, want one per attempt", f.health.reports)
	}
	if got := f.sequence.Next(); got != 9 {
		t.Errorf("sequence after abandon = %d, want resynced network value 9", got)
	}
}

func TestCoordinator_TimeoutConsumesSlotWithoutResubmission(t *testing.T) {
	f := newCoordinator(t)
	f.submitter.awaitErr = errors.New("no receipt")

	_, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if !errors.Is(err, apperror.New(apperror.CodeSettlementTimeout)) {
		t.Fatalf("error = %v, want SETTLEMENT_TIMEOUT", err)
	}
	// The operation may still land, so the slot is burned.
	if got := f.sequence.Next(); got != 6 {
		t.Errorf("sequence after timeout = %d, want 6", got)
	}
	if got := len(f.submitter.submitted); got != 1 {
		t.Errorf("submissions = %d, want exactly 1", got)
	}
}

func TestCoordinator_AbortedSettlementStillConsumesSlot(t *testing.T) {
	f := newCoordinator(t)
	f.submitter.outcome = &domain.Outcome{
		Status: domain.OutcomeAborted,
		TxHash: common.HexToHash("0xfeed"),
		Cause:  "hop 2 under-delivered",
	}

	outcome, err := f.coordinator.Execute(context.Background(), acceptedDecision(t))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Committed() {
		t.Error("aborted settlement reported as committed")
	}
	if got := f.sequence.Next(); got != 6 {
		t.Errorf("sequence after mined abort = %d, want 6", got)
	}
}
