package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	arbitrageApp "github.com/apexarb/flasharb/business/arbitrage/app"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

// InstanceHolder identifies this process for the single-instance guard.
func InstanceHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// GuardKeeper extends the active-instance lease while the pipeline runs.
type GuardKeeper interface {
	RefreshGuard(ctx context.Context, account, holder string, validity time.Duration) error
}

// RunnerConfig holds pipeline loop settings.
type RunnerConfig struct {
	ScanInterval  time.Duration
	GuardAccount  string
	GuardHolder   string
	GuardValidity time.Duration
}

// Runner drives the pipeline: scan on a fixed cadence, execute the best
// accepted decision, refresh the instance guard along the way.
type Runner struct {
	config      RunnerConfig
	arbitrage   *arbitrageApp.ArbitrageService
	coordinator *Coordinator
	guard       GuardKeeper
	logger      logger.LoggerInterface

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRunner creates a stopped Runner.
func NewRunner(cfg RunnerConfig, arbitrage *arbitrageApp.ArbitrageService, coordinator *Coordinator, guard GuardKeeper, log logger.LoggerInterface) *Runner {
	return &Runner{
		config:      cfg,
		arbitrage:   arbitrage,
		coordinator: coordinator,
		guard:       guard,
		logger:      log,
	}
}

// Start launches the pipeline loop in the background.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithMessage("pipeline already running"))
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx)
	return nil
}

// Stop halts the loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	scanTicker := time.NewTicker(r.config.ScanInterval)
	defer scanTicker.Stop()

	guardInterval := r.config.GuardValidity / 3
	if guardInterval <= 0 {
		guardInterval = time.Minute
	}
	guardTicker := time.NewTicker(guardInterval)
	defer guardTicker.Stop()

	r.logger.Info(ctx, "pipeline started",
		"scan_interval", r.config.ScanInterval.String())

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "pipeline stopped")
			return
		case <-guardTicker.C:
			if err := r.guard.RefreshGuard(ctx, r.config.GuardAccount, r.config.GuardHolder, r.config.GuardValidity); err != nil {
				r.logger.Error(ctx, "instance guard refresh failed", "error", err)
			}
		case <-scanTicker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one scan and, when a decision survives validation, carries
// it to settlement.
func (r *Runner) tick(ctx context.Context) {
	report, err := r.arbitrage.ScanTick(ctx)
	if err != nil {
		r.logger.Error(ctx, "scan tick failed", "error", err)
		return
	}

	best := report.Best()
	if best == nil {
		return
	}

	outcome, err := r.coordinator.Execute(ctx, best)
	if err != nil {
		switch apperror.CodeOf(err) {
		case apperror.CodeEndpointsExhausted, apperror.CodeInsufficientGasFunds:
			// Transient halts: the next tick retries from a fresh scan.
			r.logger.Warn(ctx, "execution halted", "error", err)
		case apperror.CodeCoordinatorBusy:
			r.logger.Debug(ctx, "settlement still in flight, skipping tick")
		default:
			r.logger.Error(ctx, "execution failed",
				"decision_id", best.ID, "error", err)
		}
		return
	}

	if outcome.Committed() {
		r.logger.Info(ctx, "arbitrage realized",
			"decision_id", best.ID,
			"net_profit", best.NetProfit.String(),
			"residual", outcome.Residual.String(),
		)
	}
}
