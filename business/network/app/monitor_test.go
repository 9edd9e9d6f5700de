package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

// fakeProber scripts probe outcomes per endpoint URL.
type fakeProber struct {
	mu      sync.Mutex
	down    map[string]bool
	frozen  map[string]bool
	block   map[string]uint64
	latency map[string]time.Duration
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		down:    make(map[string]bool),
		frozen:  make(map[string]bool),
		block:   make(map[string]uint64),
		latency: make(map[string]time.Duration),
	}
}

func (f *fakeProber) setDown(url string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down[url] = down
}

func (f *fakeProber) setFrozen(url string, frozen bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen[url] = frozen
}

func (f *fakeProber) setLatency(url string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency[url] = d
}

func (f *fakeProber) Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[url] {
		return nil, errors.New("dial refused")
	}
	// Tests never issue RPC calls through the client; an in-process
	// connection gives the monitor something real to hold and close.
	return ethclient.NewClient(rpc.DialInProc(rpc.NewServer())), nil
}

func (f *fakeProber) Probe(ctx context.Context, url string, client *ethclient.Client) (ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[url] {
		return ProbeResult{}, errors.New("probe timeout")
	}
	if !f.frozen[url] {
		f.block[url]++
	}
	lat := f.latency[url]
	if lat == 0 {
		lat = 10 * time.Millisecond
	}
	return ProbeResult{Block: f.block[url], Latency: lat}, nil
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func testConfig(endpoints ...string) MonitorConfig {
	return MonitorConfig{
		Endpoints:        endpoints,
		ProbeInterval:    time.Hour, // tests drive sweeps manually
		ProbeTimeout:     time.Second,
		StagnationWindow: time.Hour,
		FailureThreshold: 3,
		RecoveryStreak:   3,
		FailoverCooldown: 0,
	}
}

func newTestService(t *testing.T, prober Prober, endpoints ...string) *NetworkService {
	t.Helper()
	svc, err := NewNetworkService(testConfig(endpoints...), prober, nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func sweep(s *NetworkService, n int) {
	for i := 0; i < n; i++ {
		s.ProbeAll(context.Background())
	}
}

func TestNetworkService_FailoverOnConsecutiveFailures(t *testing.T) {
	prober := newFakeProber()
	svc := newTestService(t, prober, "http://a", "http://b")

	sweep(svc, 1)
	if got := svc.PrimaryURL(); got != "http://a" {
		t.Fatalf("primary = %q, want http://a", got)
	}

	prober.setDown("http://a", true)
	sweep(svc, 2)
	if got := svc.PrimaryURL(); got != "http://a" {
		t.Fatalf("primary must not move before the failure threshold, got %q", got)
	}

	sweep(svc, 1)
	if got := svc.PrimaryURL(); got != "http://b" {
		t.Errorf("primary after failover = %q, want http://b", got)
	}
	if !svc.Healthy() {
		t.Error("service should stay healthy with a live secondary")
	}
}

func TestNetworkService_ExhaustionAndRecovery(t *testing.T) {
	prober := newFakeProber()
	svc := newTestService(t, prober, "http://a", "http://b")

	sweep(svc, 1)
	prober.setDown("http://a", true)
	prober.setDown("http://b", true)
	sweep(svc, 3)

	if svc.Healthy() {
		t.Fatal("service should report unhealthy with all endpoints down")
	}
	if _, err := svc.Client(); !errors.Is(err, apperror.New(apperror.CodeEndpointsExhausted)) {
		t.Errorf("Client() error = %v, want ENDPOINTS_EXHAUSTED", err)
	}

	// One endpoint comes back; it must rebuild its recovery streak
	// before promotion.
	prober.setDown("http://b", false)
	sweep(svc, 2)
	if svc.Healthy() {
		t.Error("endpoint should not be promoted before its recovery streak")
	}

	sweep(svc, 1)
	if got := svc.PrimaryURL(); got != "http://b" {
		t.Errorf("primary after recovery = %q, want http://b", got)
	}
}

func TestNetworkService_PromotionPrefersLowerLatency(t *testing.T) {
	prober := newFakeProber()
	prober.setLatency("http://b", 200*time.Millisecond)
	prober.setLatency("http://c", 50*time.Millisecond)
	svc := newTestService(t, prober, "http://a", "http://b", "http://c")

	sweep(svc, 1)
	prober.setDown("http://a", true)
	sweep(svc, 3)

	if got := svc.PrimaryURL(); got != "http://c" {
		t.Errorf("primary = %q, want the lower-latency http://c", got)
	}
}

func TestNetworkService_StagnationDemotesPrimary(t *testing.T) {
	prober := newFakeProber()
	cfg := testConfig("http://a", "http://b")
	cfg.StagnationWindow = 10 * time.Millisecond
	svc, err := NewNetworkService(cfg, prober, nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	sweep(svc, 1)

	// Freeze the primary's head while it keeps answering probes.
	prober.setFrozen("http://a", true)
	time.Sleep(20 * time.Millisecond)
	sweep(svc, 1)

	if got := svc.PrimaryURL(); got != "http://b" {
		t.Errorf("primary = %q, want failover to http://b on stagnation", got)
	}
}

func TestNetworkService_StagnationDemotionNeedsRecoveryStreak(t *testing.T) {
	prober := newFakeProber()
	cfg := testConfig("http://a", "http://b")
	cfg.StagnationWindow = 10 * time.Millisecond
	cfg.FailureThreshold = 1
	svc, err := NewNetworkService(cfg, prober, nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	sweep(svc, 1)
	prober.setFrozen("http://a", true)
	time.Sleep(20 * time.Millisecond)
	sweep(svc, 1)
	if got := svc.PrimaryURL(); got != "http://b" {
		t.Fatalf("primary = %q, want http://b after stagnation demotion", got)
	}

	// The stagnant endpoint thaws; its probes never failed, but a
	// single success after demotion must not restore eligibility.
	prober.setFrozen("http://a", false)
	prober.setDown("http://b", true)

	sweep(svc, 1)
	if svc.Healthy() {
		t.Fatal("demoted endpoint promoted before rebuilding its streak")
	}
	sweep(svc, 1)
	if svc.Healthy() {
		t.Fatal("two successes should still be short of the streak")
	}

	sweep(svc, 1)
	if got := svc.PrimaryURL(); got != "http://a" {
		t.Errorf("primary = %q, want http://a after its recovery streak", got)
	}
}
