package asset

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestToken_BaseUnitRoundTrip(t *testing.T) {
	usdc := NewToken("USDC", common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174"), 6)

	amount := decimal.RequireFromString("1234.567891")
	raw := usdc.ToBase(amount)
	if raw.Cmp(big.NewInt(1234567891)) != 0 {
		t.Fatalf("ToBase = %s; want 1234567891", raw)
	}

	back := usdc.FromBase(raw)
	if !back.Equal(amount) {
		t.Fatalf("FromBase = %s; want %s", back, amount)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	weth := NewToken("WETH", common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"), 18)
	wmatic := NewNativeToken("WMATIC", common.HexToAddress("0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270"), 18)
	r.Register(weth)
	r.Register(wmatic)

	if got, ok := r.BySymbol("weth"); !ok || got != weth {
		t.Fatal("BySymbol should be case-insensitive")
	}
	if got, ok := r.ByAddress(weth.Address()); !ok || got != weth {
		t.Fatal("ByAddress lookup failed")
	}
	if native, ok := r.Native(); !ok || native != wmatic {
		t.Fatal("Native should return the gas asset")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r := NewRegistry()
	addr := common.HexToAddress("0x01")
	r.Register(NewToken("DAI", addr, 18))
	r.Register(NewToken("DAI2", addr, 18))
}
