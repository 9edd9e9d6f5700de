package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/apexarb/flasharb/business/network/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/store"
)

const meterName = "github.com/apexarb/flasharb/business/network/app"

// MonitorConfig holds health monitor tuning.
type MonitorConfig struct {
	Endpoints        []string // preference order; first becomes primary at boot
	ProbeInterval    time.Duration
	ProbeTimeout     time.Duration
	StagnationWindow time.Duration
	FailureThreshold int
	RecoveryStreak   int
	FailoverCooldown time.Duration
	MetricsInterval  time.Duration
}

type monitorMetrics struct {
	probes    metric.Int64Counter
	failovers metric.Int64Counter
	latency   metric.Float64Histogram
}

type endpointState struct {
	record *domain.Endpoint
	client *ethclient.Client
}

// NetworkService owns the RPC endpoint set: it probes health, picks the
// primary, and hands out the primary's client to the other contexts.
type NetworkService struct {
	config  MonitorConfig
	prober  Prober
	heads   HeadSource // may be nil
	sink    MetricsSink
	logger  logger.LoggerInterface
	metrics *monitorMetrics

	mu        sync.RWMutex
	endpoints []*endpointState
	primary   int // index into endpoints, -1 when exhausted
}

// NewNetworkService creates the monitor. The first endpoint is primary
// until probing says otherwise.
func NewNetworkService(cfg MonitorConfig, prober Prober, heads HeadSource, sink MetricsSink, log logger.LoggerInterface) (*NetworkService, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("no RPC endpoints configured"))
	}

	states := make([]*endpointState, 0, len(cfg.Endpoints))
	for _, url := range cfg.Endpoints {
		states = append(states, &endpointState{record: domain.NewEndpoint(url)})
	}
	states[0].record.Promote()

	s := &NetworkService{
		config:    cfg,
		prober:    prober,
		heads:     heads,
		sink:      sink,
		logger:    log,
		endpoints: states,
		primary:   0,
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *NetworkService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &monitorMetrics{}

	s.metrics.probes, err = meter.Int64Counter(
		"endpoint_probes_total",
		metric.WithDescription("Endpoint health probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return err
	}

	s.metrics.failovers, err = meter.Int64Counter(
		"endpoint_failovers_total",
		metric.WithDescription("Primary endpoint switches"),
		metric.WithUnit("{failover}"),
	)
	if err != nil {
		return err
	}

	s.metrics.latency, err = meter.Float64Histogram(
		"endpoint_probe_latency_ms",
		metric.WithDescription("Probe round-trip latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// Client returns the current primary's RPC client. It fails with
// ENDPOINTS_EXHAUSTED while no endpoint is serving.
func (s *NetworkService) Client() (*ethclient.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.primary < 0 {
		return nil, apperror.New(apperror.CodeEndpointsExhausted)
	}
	state := s.endpoints[s.primary]
	if state.client == nil {
		return nil, apperror.New(apperror.CodeEndpointUnreachable,
			apperror.WithContext(state.record.URL))
	}
	return state.client, nil
}

// PrimaryURL returns the current primary endpoint URL, or "" when exhausted.
func (s *NetworkService) PrimaryURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.primary < 0 {
		return ""
	}
	return s.endpoints[s.primary].record.URL
}

// Healthy reports whether a primary endpoint is serving. Wired into the
// readiness endpoint.
func (s *NetworkService) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary >= 0
}

// Snapshot returns copies of all endpoint records for reporting.
func (s *NetworkService) Snapshot() []domain.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Endpoint, 0, len(s.endpoints))
	for _, st := range s.endpoints {
		out = append(out, *st.record)
	}
	return out
}

// Run drives the probe loop until ctx is done. It also consumes the
// head stream when one is configured and persists metrics on the
// configured cadence.
func (s *NetworkService) Run(ctx context.Context) error {
	probeTicker := time.NewTicker(s.config.ProbeInterval)
	defer probeTicker.Stop()

	var metricsC <-chan time.Time
	if s.sink != nil && s.config.MetricsInterval > 0 {
		metricsTicker := time.NewTicker(s.config.MetricsInterval)
		defer metricsTicker.Stop()
		metricsC = metricsTicker.C
	}

	var headC <-chan uint64
	if s.heads != nil {
		headC = s.heads.Heads()
		go func() {
			if err := s.heads.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn(ctx, "head stream stopped", "error", err)
			}
		}()
	}

	// Initial sweep so the service is usable before the first tick.
	s.ProbeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-probeTicker.C:
			s.ProbeAll(ctx)
		case block := <-headC:
			s.observeHead(block)
		case <-metricsC:
			s.persistMetrics(ctx)
		}
	}
}

// ProbeAll probes every endpoint once and re-evaluates the primary.
func (s *NetworkService) ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, st := range s.endpoints {
		wg.Add(1)
		go func(st *endpointState) {
			defer wg.Done()
			s.probeOne(ctx, st)
		}(st)
	}
	wg.Wait()

	s.evaluate(ctx)
}

func (s *NetworkService) probeOne(ctx context.Context, st *endpointState) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProbeTimeout)
	defer cancel()

	url := st.record.URL

	if st.client == nil {
		client, err := s.prober.Dial(ctx, url)
		if err != nil {
			s.recordFailure(ctx, st, err)
			return
		}
		s.mu.Lock()
		st.client = client
		s.mu.Unlock()
	}

	result, err := s.prober.Probe(ctx, url, st.client)
	if err != nil {
		s.recordFailure(ctx, st, err)
		return
	}

	s.mu.Lock()
	st.record.RecordSuccess(result.Latency, result.Block, time.Now())
	s.mu.Unlock()

	s.metrics.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", url),
		attribute.Bool("success", true),
	))
	s.metrics.latency.Record(ctx, float64(result.Latency.Milliseconds()),
		metric.WithAttributes(attribute.String("endpoint", url)))
}

func (s *NetworkService) recordFailure(ctx context.Context, st *endpointState, err error) {
	s.mu.Lock()
	st.record.RecordFailure(time.Now())
	failures := st.record.ConsecutiveFailures
	if st.client != nil && st.record.Failing(s.config.FailureThreshold) {
		// Drop the connection so the next success starts clean.
		st.client.Close()
		st.client = nil
	}
	s.mu.Unlock()

	s.metrics.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", st.record.URL),
		attribute.Bool("success", false),
	))
	s.logger.Debug(ctx, "endpoint probe failed",
		"endpoint", st.record.URL,
		"consecutive_failures", failures,
		"error", err,
	)
}

func (s *NetworkService) observeHead(block uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary >= 0 {
		s.endpoints[s.primary].record.ObserveBlock(block, time.Now())
	}
}

// evaluate demotes an unhealthy primary and promotes the best candidate.
func (s *NetworkService) evaluate(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.primary >= 0 {
		rec := s.endpoints[s.primary].record
		if rec.Failing(s.config.FailureThreshold) || rec.Stagnant(s.config.StagnationWindow, now) {
			reason := "failures"
			if !rec.Failing(s.config.FailureThreshold) {
				reason = "stagnation"
			}
			rec.Demote(s.config.FailoverCooldown, now)
			s.logger.Warn(ctx, "demoting primary endpoint",
				"endpoint", rec.URL, "reason", reason)
			s.primary = -1
		}
	}

	if s.primary >= 0 {
		return
	}

	best := s.bestCandidate(now)
	if best < 0 {
		s.logger.Error(ctx, "all endpoints unavailable")
		return
	}

	s.endpoints[best].record.Promote()
	s.primary = best
	s.metrics.failovers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", s.endpoints[best].record.URL)))
	s.logger.Info(ctx, "promoted primary endpoint",
		"endpoint", s.endpoints[best].record.URL,
		"avg_latency_ms", s.endpoints[best].record.AvgLatency.Milliseconds(),
	)
}

// bestCandidate ranks eligible endpoints by average latency, then by
// lifetime failures, then by configured order. Returns -1 when none
// qualify.
func (s *NetworkService) bestCandidate(now time.Time) int {
	best := -1
	for i, st := range s.endpoints {
		if !st.record.Eligible(s.config.FailureThreshold, s.config.RecoveryStreak, now) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur, cand := s.endpoints[best].record, st.record
		if cand.AvgLatency < cur.AvgLatency ||
			(cand.AvgLatency == cur.AvgLatency && cand.Failures < cur.Failures) {
			best = i
		}
	}
	return best
}

// ReportPrimaryFailure demotes the current primary after a failure
// observed outside the probe loop (e.g. a rejected submission) and
// immediately re-evaluates, so the caller's next attempt goes through a
// different endpoint.
func (s *NetworkService) ReportPrimaryFailure(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	if s.primary >= 0 {
		rec := s.endpoints[s.primary].record
		rec.RecordFailure(now)
		rec.Demote(s.config.FailoverCooldown, now)
		s.logger.Warn(ctx, "demoting primary endpoint", "endpoint", rec.URL, "reason", "reported failure")
		s.primary = -1
	}
	s.mu.Unlock()

	s.evaluate(ctx)
}

func (s *NetworkService) persistMetrics(ctx context.Context) {
	s.mu.RLock()
	now := time.Now()
	samples := make([]store.EndpointSample, 0, len(s.endpoints))
	for _, st := range s.endpoints {
		rec := st.record
		samples = append(samples, store.EndpointSample{
			URL:           rec.URL,
			RecordedAt:    now,
			AvgLatencyMs:  float64(rec.AvgLatency.Microseconds()) / 1000,
			LastLatencyMs: float64(rec.LastLatency.Microseconds()) / 1000,
			Probes:        rec.Probes,
			Failures:      rec.Failures,
			Switches:      rec.Switches,
			IsPrimary:     rec.Primary,
		})
	}
	s.mu.RUnlock()

	if err := s.sink.RecordEndpointMetrics(ctx, samples); err != nil {
		s.logger.Warn(ctx, "failed to persist endpoint metrics", "error", err)
	}
}

// Close releases all endpoint connections.
func (s *NetworkService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.endpoints {
		if st.client != nil {
			st.client.Close()
			st.client = nil
		}
	}
}
