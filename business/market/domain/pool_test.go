package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenIn  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenOut = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func testPool(reserveIn, reserveOut int64, feeBps int64) *Pool {
	return &Pool{
		ID:         PoolID{Venue: "quickswap", TokenIn: tokenIn, TokenOut: tokenOut},
		ReserveIn:  big.NewInt(reserveIn),
		ReserveOut: big.NewInt(reserveOut),
		FeeBps:     feeBps,
	}
}

func TestPool_AmountOut(t *testing.T) {
	tests := []struct {
		name     string
		pool     *Pool
		amountIn int64
		want     int64
	}{
		{
			// 1000·0.997·2000000 / (1000000 + 1000·0.997) = 1992.01…
			name:     "standard_fee",
			pool:     testPool(1_000_000, 2_000_000, 30),
			amountIn: 1000,
			want:     1992,
		},
		{
			// Fee-free: 1000·2000000 / 1001000.
			name:     "zero_fee",
			pool:     testPool(1_000_000, 2_000_000, 0),
			amountIn: 1000,
			want:     1998,
		},
		{
			name:     "zero_input",
			pool:     testPool(1_000_000, 2_000_000, 30),
			amountIn: 0,
			want:     0,
		},
		{
			name:     "drained_pool",
			pool:     testPool(0, 2_000_000, 30),
			amountIn: 1000,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pool.AmountOut(big.NewInt(tt.amountIn))
			if got.Int64() != tt.want {
				t.Errorf("AmountOut(%d) = %d, want %d", tt.amountIn, got.Int64(), tt.want)
			}
		})
	}
}

func TestPool_AmountOutNeverExceedsReserve(t *testing.T) {
	pool := testPool(1_000, 5_000, 30)
	// Input far beyond the pool's depth.
	out := pool.AmountOut(big.NewInt(1_000_000_000))
	if out.Cmp(pool.ReserveOut) >= 0 {
		t.Errorf("output %s drained the %s reserve", out, pool.ReserveOut)
	}
}

func TestPool_Reversed(t *testing.T) {
	pool := testPool(1_000_000, 2_000_000, 30)
	rev := pool.Reversed()

	if rev.ID.TokenIn != pool.ID.TokenOut || rev.ID.TokenOut != pool.ID.TokenIn {
		t.Error("reversed pool did not swap the token pair")
	}
	if rev.ReserveIn.Cmp(pool.ReserveOut) != 0 || rev.ReserveOut.Cmp(pool.ReserveIn) != 0 {
		t.Error("reversed pool did not swap the reserves")
	}
	if back := rev.Reversed(); back.ID != pool.ID {
		t.Error("double reversal changed the pool identity")
	}
}
