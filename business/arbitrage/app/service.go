package app

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexarb/flasharb/business/arbitrage/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

const (
	tracerName = "github.com/apexarb/flasharb/business/arbitrage/app"
	meterName  = "github.com/apexarb/flasharb/business/arbitrage/app"
)

// ScanReport summarizes one scan tick.
type ScanReport struct {
	Scanned  int
	Accepted []*domain.Decision // sorted by net profit, best first
	Rejected int
	Skipped  int // pricing or sizing inputs unavailable
}

// Best returns the most profitable accepted decision, or nil.
func (r *ScanReport) Best() *domain.Decision {
	if len(r.Accepted) == 0 {
		return nil
	}
	return r.Accepted[0]
}

type serviceMetrics struct {
	scanned  metric.Int64Counter
	accepted metric.Int64Counter
	rejected metric.Int64Counter
}

// ArbitrageService runs the scan → size → validate pipeline for one
// tick and reports the surviving decisions.
type ArbitrageService struct {
	scanner   *Scanner
	sizer     *Sizer
	validator *Validator
	logger    logger.LoggerInterface
	topK      int
	tracer    trace.Tracer
	metrics   *serviceMetrics
}

// NewArbitrageService creates the service. topK bounds how many
// accepted decisions are logged per tick.
func NewArbitrageService(scanner *Scanner, sizer *Sizer, validator *Validator, topK int, log logger.LoggerInterface) (*ArbitrageService, error) {
	s := &ArbitrageService{
		scanner:   scanner,
		sizer:     sizer,
		validator: validator,
		logger:    log,
		topK:      topK,
		tracer:    otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *ArbitrageService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.scanned, err = meter.Int64Counter(
		"candidates_scanned_total",
		metric.WithDescription("Candidates produced by the scanner"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return err
	}

	s.metrics.accepted, err = meter.Int64Counter(
		"decisions_accepted_total",
		metric.WithDescription("Decisions accepted for execution"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"decisions_rejected_total",
		metric.WithDescription("Candidates rejected, by cause"),
		metric.WithUnit("{decision}"),
	)
	return err
}

// ScanTick runs one full scan within the configured time budget.
// Partial scans are valid results, never errors.
func (s *ArbitrageService) ScanTick(ctx context.Context) (*ScanReport, error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan_tick")
	defer span.End()

	report := &ScanReport{}

	for candidate := range s.scanner.Candidates(ctx) {
		report.Scanned++
		s.metrics.scanned.Add(ctx, 1)

		sized, err := s.sizer.Size(candidate)
		if err != nil {
			report.Rejected++
			s.reject(ctx, candidate.String(), domain.RejectCause(apperror.CodeOf(err)))
			continue
		}

		decision, err := s.validator.Validate(ctx, sized)
		if err != nil {
			report.Skipped++
			s.logger.Debug(ctx, "candidate skipped, pricing unavailable",
				"candidate", candidate.String(), "error", err)
			continue
		}
		if !decision.Accepted {
			report.Rejected++
			s.reject(ctx, candidate.String(), decision.Cause)
			continue
		}

		report.Accepted = append(report.Accepted, decision)
		s.metrics.accepted.Add(ctx, 1)
	}

	sort.Slice(report.Accepted, func(i, j int) bool {
		return report.Accepted[i].NetProfit.GreaterThan(report.Accepted[j].NetProfit)
	})
	s.logTop(ctx, report)

	span.SetAttributes(
		attribute.Int("scan.candidates", report.Scanned),
		attribute.Int("scan.accepted", len(report.Accepted)),
	)
	return report, nil
}

func (s *ArbitrageService) reject(ctx context.Context, candidate string, cause domain.RejectCause) {
	s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cause", string(cause))))
	s.logger.Debug(ctx, "candidate rejected",
		"candidate", candidate, "cause", string(cause))
}

func (s *ArbitrageService) logTop(ctx context.Context, report *ScanReport) {
	n := len(report.Accepted)
	if s.topK > 0 && n > s.topK {
		n = s.topK
	}
	for i := 0; i < n; i++ {
		d := report.Accepted[i]
		s.logger.Info(ctx, "accepted decision",
			"rank", i+1,
			"decision_id", d.ID,
			"route", d.Sizing.Candidate.String(),
			"amount_in", d.Sizing.AmountIn.String(),
			"gross", d.GrossDec.String(),
			"credit_fee", d.Costs.CreditFee.String(),
			"gas_cost", d.Costs.GasCost.String(),
			"net_profit", d.NetProfit.String(),
		)
	}
}
