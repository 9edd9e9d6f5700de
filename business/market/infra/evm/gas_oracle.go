package evm

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/cache"
	"github.com/apexarb/flasharb/internal/circuitbreaker"
	"github.com/apexarb/flasharb/internal/httpclient"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/ratelimit"
)

// GasOracleConfig holds gas oracle settings.
type GasOracleConfig struct {
	// TrackerURL is the chain explorer gas API. Empty disables the
	// tracker and the oracle goes straight to the node.
	TrackerURL      string
	PriorityFeeGwei float64
	MaxGasPriceGwei float64
	CacheTTL        time.Duration
	TrackerRPS      float64
}

// trackerResponse mirrors the explorer gastracker payload.
type trackerResponse struct {
	Status string `json:"status"`
	Result struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	} `json:"result"`
}

type gasOracleMetrics struct {
	fetches   metric.Int64Counter
	fallbacks metric.Int64Counter
	priceGwei metric.Float64Histogram
}

// GasOracle resolves the current gas price, preferring the explorer
// tracker API and falling back to the node's suggestion.
type GasOracle struct {
	config  GasOracleConfig
	source  ClientSource
	http    *httpclient.Client
	logger  logger.LoggerInterface
	cache   *cache.Cache[string, *domain.GasPrice]
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*domain.GasPrice]
	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a GasOracle.
func NewGasOracle(cfg GasOracleConfig, source ClientSource, http *httpclient.Client, log logger.LoggerInterface) (*GasOracle, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Second
	}
	if cfg.TrackerRPS <= 0 {
		cfg.TrackerRPS = 4
	}

	o := &GasOracle{
		config:  cfg,
		source:  source,
		http:    http,
		logger:  log,
		cache:   cache.New[string, *domain.GasPrice](time.Minute, func(k string) string { return k }),
		limiter: ratelimit.New(cfg.TrackerRPS),
		cb:      circuitbreaker.New[*domain.GasPrice](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:  otel.Tracer(tracerName),
	}
	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return o, nil
}

func (o *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &gasOracleMetrics{}

	o.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	o.metrics.fallbacks, err = meter.Int64Counter(
		"gas_price_fallbacks_total",
		metric.WithDescription("Tracker failures that fell back to the node"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	o.metrics.priceGwei, err = meter.Float64Histogram(
		"gas_price_gwei",
		metric.WithDescription("Observed effective gas price"),
		metric.WithUnit("gwei"),
	)
	return err
}

// GasPrice implements app.GasOracle.
func (o *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return o.cache.GetOrLoad(ctx, "gas", o.config.CacheTTL, func(ctx context.Context) (*domain.GasPrice, error) {
		return o.fetch(ctx)
	})
}

func (o *GasOracle) fetch(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := o.tracer.Start(ctx, "market.gas_price")
	defer span.End()

	o.metrics.fetches.Add(ctx, 1)

	price, err := o.cb.Execute(func() (*domain.GasPrice, error) {
		if o.config.TrackerURL != "" {
			if price, err := o.fetchTracker(ctx); err == nil {
				return price, nil
			} else {
				o.metrics.fallbacks.Add(ctx, 1)
				o.logger.Warn(ctx, "gas tracker failed, using node suggestion", "error", err)
			}
		}
		return o.fetchNode(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price unavailable")
		return nil, apperror.Wrap(err, apperror.CodeGasPriceUnavailable, "gas oracle")
	}

	if o.config.MaxGasPriceGwei > 0 && price.Gwei() > o.config.MaxGasPriceGwei {
		span.SetAttributes(attribute.Float64("gas.gwei", price.Gwei()))
		return nil, apperror.New(apperror.CodeGasPriceUnavailable,
			apperror.WithMessage("gas price above configured ceiling"),
			apperror.WithContext(fmt.Sprintf("%.2f > %.2f gwei", price.Gwei(), o.config.MaxGasPriceGwei)))
	}

	o.metrics.priceGwei.Record(ctx, price.Gwei())
	span.SetAttributes(attribute.Float64("gas.gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")
	return price, nil
}

func (o *GasOracle) fetchTracker(ctx context.Context) (*domain.GasPrice, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp trackerResponse
	if err := o.http.GetJSON(ctx, o.config.TrackerURL, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		return nil, fmt.Errorf("tracker status %q", resp.Status)
	}

	proposeGwei, err := strconv.ParseFloat(resp.Result.ProposeGasPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse propose gas price: %w", err)
	}

	return o.build(gweiToWei(proposeGwei)), nil
}

func (o *GasOracle) fetchNode(ctx context.Context) (*domain.GasPrice, error) {
	client, err := o.source.Client()
	if err != nil {
		return nil, err
	}
	baseWei, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return o.build(baseWei), nil
}

func (o *GasOracle) build(baseWei *big.Int) *domain.GasPrice {
	return domain.NewGasPrice(baseWei, gweiToWei(o.config.PriorityFeeGwei))
}

func gweiToWei(gwei float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	wei, _ := f.Int(nil)
	return wei
}
