// Package main is the entry point for the flash-loan arbitrage pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/apexarb/flasharb/business/arbitrage"
	"github.com/apexarb/flasharb/business/execution"
	executionApp "github.com/apexarb/flasharb/business/execution/app"
	executionDI "github.com/apexarb/flasharb/business/execution/di"
	"github.com/apexarb/flasharb/business/market"
	"github.com/apexarb/flasharb/business/network"
	networkDI "github.com/apexarb/flasharb/business/network/di"
	"github.com/apexarb/flasharb/internal/apm"
	"github.com/apexarb/flasharb/internal/asset"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/health"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/metrics"
	"github.com/apexarb/flasharb/internal/monolith"
	"github.com/apexarb/flasharb/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	forceGuard := flag.Bool("force-guard", false, "Take over a stale instance guard")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *forceGuard); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, forceGuard bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting flash-loan arbitrage pipeline",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Execution.DryRun,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		traceProvider, err = apm.NewTraceProvider(apm.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Provider:     apm.Provider(cfg.Telemetry.TraceProvider),
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
		log.Info(ctx, "telemetry initialized",
			"traces", cfg.Telemetry.TraceProvider,
			"prometheus_port", cfg.Telemetry.PrometheusPort,
		)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	// One live submitter per account. The guard outlives crashes via its
	// validity window; -force-guard takes over a stale one immediately.
	holder := executionApp.InstanceHolder()
	if !cfg.Execution.AllowMultipleInstances {
		if _, err := st.AcquireGuard(ctx, cfg.Chain.Account, holder, cfg.Execution.GuardValidity, forceGuard); err != nil {
			st.Close()
			return fmt.Errorf("instance guard: %w", err)
		}
		defer st.ReleaseGuard(context.Background(), cfg.Chain.Account, holder)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		st.Close()
		return err
	}

	mono := monolith.New(cfg, log, registry, st)
	defer mono.Close()

	// Modules in dependency order: network provides RPC clients, market
	// provides quotes, arbitrage detects, execution settles.
	modules := []monolith.Module{
		&network.Module{},
		&market.Module{},
		&arbitrage.Module{},
		&execution.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	netSvc := networkDI.GetNetworkService(mono.Services())
	healthServer.RegisterCheck("endpoints", func(ctx context.Context) (bool, string) {
		if !netSvc.Healthy() {
			return false, "all endpoints exhausted"
		}
		return true, ""
	})

	runner := executionDI.GetRunner(mono.Services())
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	runner.Stop()
	return nil
}

func buildRegistry(cfg *config.Config) (*asset.Registry, error) {
	registry := asset.NewRegistry()
	for _, t := range cfg.Tokens {
		addr := common.HexToAddress(t.Address)
		if t.Native {
			registry.Register(asset.NewNativeToken(t.Symbol, addr, t.Decimals))
		} else {
			registry.Register(asset.NewToken(t.Symbol, addr, t.Decimals))
		}
	}
	if _, ok := registry.Native(); !ok {
		return nil, fmt.Errorf("no native token configured")
	}
	return registry, nil
}
