// Package asset provides token metadata and base-unit conversion.
package asset

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token represents an on-chain asset tracked by the pipeline.
// The address is identity; the symbol is display metadata.
type Token struct {
	symbol   string
	address  common.Address
	decimals uint8
	native   bool
}

// NewToken creates a Token with the given parameters.
func NewToken(symbol string, address common.Address, decimals uint8) *Token {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Token{symbol: symbol, address: address, decimals: decimals}
}

// NewNativeToken creates the chain's native gas asset (wrapped address).
func NewNativeToken(symbol string, wrapped common.Address, decimals uint8) *Token {
	t := NewToken(symbol, wrapped, decimals)
	t.native = true
	return t
}

// Symbol returns the ticker symbol (e.g. "USDC").
func (t *Token) Symbol() string { return t.symbol }

// Address returns the token contract address.
func (t *Token) Address() common.Address { return t.address }

// Decimals returns the number of decimal places.
func (t *Token) Decimals() uint8 { return t.decimals }

// IsNative reports whether this is the chain's gas asset.
func (t *Token) IsNative() bool { return t.native }

// ToBase converts a human-readable amount into base units (wei-scale).
func (t *Token) ToBase(amount decimal.Decimal) *big.Int {
	scaled := amount.Shift(int32(t.decimals))
	return scaled.BigInt()
}

// FromBase converts base units into a human-readable amount.
func (t *Token) FromBase(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, 0).Shift(-int32(t.decimals))
}
