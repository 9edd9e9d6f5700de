// Package evm submits settlements through go-ethereum.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	marketDomain "github.com/apexarb/flasharb/business/market/domain"
	"github.com/apexarb/flasharb/business/execution/domain"
	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

const vaultABIJSON = `[
	{"name":"executeSettlement","type":"function","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"hops","type":"tuple[]","components":[
			{"name":"router","type":"address"},
			{"name":"tokenIn","type":"address"},
			{"name":"tokenOut","type":"address"},
			{"name":"minOut","type":"uint256"}
		]},
		{"name":"beneficiary","type":"address"},
		{"name":"deadline","type":"uint256"}
	 ],
	 "outputs":[]},
	{"name":"SettlementExecuted","type":"event","anonymous":false,
	 "inputs":[
		{"name":"asset","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"residual","type":"uint256","indexed":false}
	 ]}
]`

// abiHop mirrors the vault's hop tuple for ABI packing.
type abiHop struct {
	Router   common.Address
	TokenIn  common.Address
	TokenOut common.Address
	MinOut   *big.Int
}

// ClientSource yields the currently preferred RPC client.
type ClientSource interface {
	Client() (*ethclient.Client, error)
}

// GasSource prices the submission.
type GasSource interface {
	GasPrice(ctx context.Context) (*marketDomain.GasPrice, error)
}

// Signer signs settlement transactions. Key custody stays outside this
// package.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// SubmitterConfig holds submission settings.
type SubmitterConfig struct {
	ChainID      uint64
	Vault        common.Address
	GasLimit     uint64
	PollInterval time.Duration
}

// Submitter builds, signs, and sends settlement transactions, then
// tracks their receipts.
type Submitter struct {
	config   SubmitterConfig
	source   ClientSource
	gas      GasSource
	signer   Signer
	logger   logger.LoggerInterface
	vaultABI abi.ABI
}

// NewSubmitter creates a Submitter for the configured vault.
func NewSubmitter(cfg SubmitterConfig, source ClientSource, gas GasSource, signer Signer, log logger.LoggerInterface) (*Submitter, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Submitter{
		config:   cfg,
		source:   source,
		gas:      gas,
		signer:   signer,
		logger:   log,
		vaultABI: parsed,
	}, nil
}

// NextSequence implements app.SequenceSyncer using the pending nonce,
// so operations already accepted by the gateway are counted.
func (s *Submitter) NextSequence(ctx context.Context, account common.Address) (uint64, error) {
	client, err := s.source.Client()
	if err != nil {
		return 0, err
	}
	nonce, err := client.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeRPCError, "pending nonce")
	}
	return nonce, nil
}

// Submit implements app.Submitter.
func (s *Submitter) Submit(ctx context.Context, req *domain.SettlementRequest) (common.Hash, error) {
	client, err := s.source.Client()
	if err != nil {
		return common.Hash{}, err
	}

	data, err := s.packCall(req)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeInternalError, "pack settlement")
	}

	price, err := s.gas.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(s.config.ChainID),
		Nonce:     req.Sequence,
		GasTipCap: price.PriorityWei,
		GasFeeCap: price.EffectiveWei(),
		Gas:       s.config.GasLimit,
		To:        &s.config.Vault,
		Data:      data,
	})

	signed, err := s.signer.SignTx(tx, new(big.Int).SetUint64(s.config.ChainID))
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeInternalError, "sign settlement")
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeSubmissionRejected, req.ID)
	}

	s.logger.Debug(ctx, "settlement submitted",
		"request_id", req.ID, "tx", signed.Hash().Hex(), "sequence", req.Sequence)
	return signed.Hash(), nil
}

func (s *Submitter) packCall(req *domain.SettlementRequest) ([]byte, error) {
	hops := make([]abiHop, 0, len(req.Hops))
	for _, h := range req.Hops {
		hops = append(hops, abiHop{
			Router:   h.Router,
			TokenIn:  h.TokenIn,
			TokenOut: h.TokenOut,
			MinOut:   h.MinOut,
		})
	}
	return s.vaultABI.Pack("executeSettlement",
		req.Borrow, req.Amount, hops, req.Beneficiary,
		big.NewInt(req.Deadline.Unix()))
}

// AwaitConfirmation implements app.Submitter by polling for the receipt
// until the timeout elapses.
func (s *Submitter) AwaitConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, apperror.Wrap(ctx.Err(), apperror.CodeSettlementTimeout, hash.Hex())
		case <-ticker.C:
			client, err := s.source.Client()
			if err != nil {
				continue // endpoint churn; keep polling until the deadline
			}
			receipt, err := client.TransactionReceipt(ctx, hash)
			if err != nil {
				if err == ethereum.NotFound {
					continue
				}
				continue
			}
			return s.outcomeFromReceipt(receipt), nil
		}
	}
}

func (s *Submitter) outcomeFromReceipt(receipt *types.Receipt) *domain.Outcome {
	outcome := &domain.Outcome{
		TxHash:      receipt.TxHash,
		GasUsed:     receipt.GasUsed,
		Residual:    new(big.Int),
		ConfirmedAt: time.Now(),
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		outcome.Status = domain.OutcomeAborted
		outcome.Cause = "settlement reverted"
		return outcome
	}

	outcome.Status = domain.OutcomeCommitted
	if residual, ok := s.residualFromLogs(receipt.Logs); ok {
		outcome.Residual = residual
	}
	return outcome
}

// residualFromLogs extracts the beneficiary residual from the vault's
// SettlementExecuted event.
func (s *Submitter) residualFromLogs(logs []*types.Log) (*big.Int, bool) {
	event := s.vaultABI.Events["SettlementExecuted"]
	for _, l := range logs {
		if l.Address != s.config.Vault || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(l.Data)
		if err != nil || len(values) < 2 {
			return nil, false
		}
		residual, ok := values[1].(*big.Int)
		return residual, ok
	}
	return nil, false
}
