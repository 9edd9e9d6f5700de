package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/apexarb/flasharb/internal/apperror"
)

// BalanceReader reads native account balances through the primary endpoint.
type BalanceReader struct {
	source ClientSource
}

// NewBalanceReader creates a BalanceReader.
func NewBalanceReader(source ClientSource) *BalanceReader {
	return &BalanceReader{source: source}
}

// NativeBalance implements app.BalanceReader.
func (r *BalanceReader) NativeBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	client, err := r.source.Client()
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := client.BalanceAt(ctx, account, nil)
	if err != nil {
		return decimal.Zero, apperror.Wrap(err, apperror.CodeRPCError, "balance "+account.Hex())
	}
	return decimal.NewFromBigInt(wei, 0).Shift(-18), nil
}
