// Package evm provides EVM-backed market data adapters.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/circuitbreaker"
	"github.com/apexarb/flasharb/internal/logger"
)

const (
	tracerName = "github.com/apexarb/flasharb/business/market/infra/evm"
	meterName  = "github.com/apexarb/flasharb/business/market/infra/evm"
)

const factoryABIJSON = `[
	{"name":"getPair","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
	 "outputs":[{"name":"pair","type":"address"}]}
]`

const pairABIJSON = `[
	{"name":"getReserves","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
	{"name":"token0","type":"function","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// ClientSource yields the currently preferred RPC client. The network
// context's health monitor implements it.
type ClientSource interface {
	Client() (*ethclient.Client, error)
}

// Venue describes one constant-product venue the reader can quote.
type Venue struct {
	Name    string
	Family  string
	Factory common.Address
	Router  common.Address
	FeeBps  int64
}

// ReserveReaderConfig holds reader settings.
type ReserveReaderConfig struct {
	Venues      []Venue
	CallTimeout time.Duration
}

type readerMetrics struct {
	reads      metric.Int64Counter
	readErrors metric.Int64Counter
	latency    metric.Float64Histogram
}

// ReserveReader reads V2-style pair reserves through the primary endpoint.
type ReserveReader struct {
	config ReserveReaderConfig
	source ClientSource
	logger logger.LoggerInterface

	venues     map[string]Venue
	factoryABI abi.ABI
	pairABI    abi.ABI

	// pair addresses never change for a token pair; resolved once
	pairMu    sync.RWMutex
	pairAddrs map[string]common.Address

	cb      *circuitbreaker.CircuitBreaker[*domain.Pool]
	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReserveReader creates a ReserveReader for the configured venues.
func NewReserveReader(cfg ReserveReaderConfig, source ClientSource, log logger.LoggerInterface) (*ReserveReader, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pair abi: %w", err)
	}

	venues := make(map[string]Venue, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venues[v.Name] = v
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}

	r := &ReserveReader{
		config:     cfg,
		source:     source,
		logger:     log,
		venues:     venues,
		factoryABI: factoryABI,
		pairABI:    pairABI,
		pairAddrs:  make(map[string]common.Address),
		cb:         circuitbreaker.New[*domain.Pool](circuitbreaker.DefaultConfig("reserve-reader")),
		tracer:     otel.Tracer(tracerName),
	}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return r, nil
}

func (r *ReserveReader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.reads, err = meter.Int64Counter(
		"reserve_reads_total",
		metric.WithDescription("Total reserve read attempts"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"reserve_read_errors_total",
		metric.WithDescription("Failed reserve reads"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"reserve_read_latency_ms",
		metric.WithDescription("Reserve read round-trip latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// ReadReserves implements app.ReserveReader.
func (r *ReserveReader) ReadReserves(ctx context.Context, id domain.PoolID) (*domain.Pool, error) {
	ctx, span := r.tracer.Start(ctx, "market.read_reserves",
		trace.WithAttributes(attribute.String("pool", id.String())),
	)
	defer span.End()

	r.metrics.reads.Add(ctx, 1)
	start := time.Now()

	pool, err := r.cb.Execute(func() (*domain.Pool, error) {
		return r.readOnce(ctx, id)
	})

	r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "read")
	return pool, nil
}

func (r *ReserveReader) readOnce(ctx context.Context, id domain.PoolID) (*domain.Pool, error) {
	venue, ok := r.venues[id.Venue]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unknown venue "+id.Venue))
	}

	client, err := r.source.Client()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()

	pairAddr, err := r.pairAddress(ctx, client, venue, id)
	if err != nil {
		return nil, err
	}

	reserve0, reserve1, err := r.getReserves(ctx, client, pairAddr)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRPCError,
			"getReserves "+id.String())
	}

	token0, err := r.token0(ctx, client, pairAddr)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRPCError,
			"token0 "+id.String())
	}

	reserveIn, reserveOut := reserve0, reserve1
	if token0 != id.TokenIn {
		reserveIn, reserveOut = reserve1, reserve0
	}

	return &domain.Pool{
		ID:         id,
		Pair:       pairAddr,
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		FeeBps:     venue.FeeBps,
		FetchedAt:  time.Now(),
	}, nil
}

func (r *ReserveReader) pairAddress(ctx context.Context, client *ethclient.Client, venue Venue, id domain.PoolID) (common.Address, error) {
	key := pairKey(venue.Name, id.TokenIn, id.TokenOut)

	r.pairMu.RLock()
	addr, ok := r.pairAddrs[key]
	r.pairMu.RUnlock()
	if ok {
		return addr, nil
	}

	data, err := r.factoryABI.Pack("getPair", id.TokenIn, id.TokenOut)
	if err != nil {
		return common.Address{}, err
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &venue.Factory, Data: data}, nil)
	if err != nil {
		return common.Address{}, apperror.Wrap(err, apperror.CodeRPCError,
			"getPair "+id.String())
	}

	results, err := r.factoryABI.Unpack("getPair", out)
	if err != nil {
		return common.Address{}, err
	}
	addr = results[0].(common.Address)

	if addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(id.String()))
	}

	r.pairMu.Lock()
	r.pairAddrs[key] = addr
	r.pairMu.Unlock()
	return addr, nil
}

func (r *ReserveReader) getReserves(ctx context.Context, client *ethclient.Client, pair common.Address) (*big.Int, *big.Int, error) {
	data, err := r.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, nil)
	if err != nil {
		return nil, nil, err
	}
	results, err := r.pairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, err
	}
	return results[0].(*big.Int), results[1].(*big.Int), nil
}

func (r *ReserveReader) token0(ctx context.Context, client *ethclient.Client, pair common.Address) (common.Address, error) {
	data, err := r.pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	results, err := r.pairABI.Unpack("token0", out)
	if err != nil {
		return common.Address{}, err
	}
	return results[0].(common.Address), nil
}

func pairKey(venue string, a, b common.Address) string {
	// The factory returns the same pair for both orderings.
	if strings.Compare(a.Hex(), b.Hex()) > 0 {
		a, b = b, a
	}
	return venue + ":" + a.Hex() + ":" + b.Hex()
}
