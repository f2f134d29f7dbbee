package trade

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maelstrom "github.com/rohans02/maelstrom-go"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), maelstrom.OneEther)
}

var (
	testToken  = maelstrom.Token{Address: common.HexToAddress("0xa1"), Symbol: "TOKA", Decimals: 18}
	otherToken = maelstrom.Token{Address: common.HexToAddress("0xb2"), Symbol: "TOKB", Decimals: 18}
)

func noRefresh(t *testing.T) PriceRefreshFunc {
	t.Helper()
	return func(_ context.Context, _ maelstrom.Token) (*big.Int, *big.Int, error) {
		t.Fatal("unexpected price refresh")
		return nil, nil, nil
	}
}

func TestMinimumOut(t *testing.T) {
	t.Run("applies whole-percent tolerance", func(t *testing.T) {
		minOut, err := MinimumOut(big.NewInt(1000), 5, false)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(950), minOut)
	})

	t.Run("zero slippage floors at the full amount", func(t *testing.T) {
		minOut, err := MinimumOut(big.NewInt(1000), 5, true)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), minOut)
	})

	t.Run("zero percent means zero tolerance", func(t *testing.T) {
		minOut, err := MinimumOut(big.NewInt(1000), 0, false)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), minOut)
	})

	t.Run("rejects tolerance above 100", func(t *testing.T) {
		_, err := MinimumOut(big.NewInt(1000), 101, false)
		assert.Error(t, err)
	})
}

func TestBuildSellReserveCap(t *testing.T) {
	builder := NewBuilder(noRefresh(t))
	reserve := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(150)}
	sellPrice := ether(1)

	t.Run("within the cap", func(t *testing.T) {
		req, err := builder.BuildSell(context.Background(), testToken, reserve, sellPrice, ether(15), 1, false)
		require.NoError(t, err)
		assert.Equal(t, ether(15), req.AmountIn)
	})

	t.Run("over the cap names the maximum", func(t *testing.T) {
		// 20 of a 150-token reserve exceeds the 10% cap; the max is 15.
		_, err := builder.BuildSell(context.Background(), testToken, reserve, sellPrice, ether(20), 1, false)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(15), validationErr.MaxAllowed)
		assert.Contains(t, validationErr.Error(), "maximum allowed")
		assert.Contains(t, validationErr.Error(), "TOKA")
	})

	t.Run("base leg capped too", func(t *testing.T) {
		// At 10 base/token, selling 12 tokens draws 120 base from a
		// 1000-base reserve, over the 100-base cap.
		shallow := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(1000)}
		_, err := builder.BuildSell(context.Background(), testToken, shallow, ether(10), ether(12), 1, false)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(10), validationErr.MaxAllowed)
	})
}

func TestBuildBuy(t *testing.T) {
	builder := NewBuilder(noRefresh(t))
	reserve := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(500)}
	buyPrice := ether(2)

	t.Run("computes minimum out", func(t *testing.T) {
		req, err := builder.BuildBuy(context.Background(), testToken, reserve, buyPrice, ether(100), 5, false)
		require.NoError(t, err)
		// 100 base at 2 base/token is 50 tokens, minus 5% is 47.5.
		expected, _ := new(big.Int).SetString("47500000000000000000", 10)
		assert.Equal(t, expected, req.MinimumTokenOut)
	})

	t.Run("base inflow capped", func(t *testing.T) {
		_, err := builder.BuildBuy(context.Background(), testToken, reserve, buyPrice, ether(150), 5, false)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(100), validationErr.MaxAllowed)
	})

	t.Run("token outflow capped in input terms", func(t *testing.T) {
		// Cheap token: 100 base at 0.1 base/token would draw 1000 tokens
		// from a 500-token reserve. Max outflow is 50 tokens, so max input
		// is 5 base.
		cheap, _ := new(big.Int).SetString("100000000000000000", 10)
		_, err := builder.BuildBuy(context.Background(), testToken, reserve, cheap, ether(100), 5, false)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(5), validationErr.MaxAllowed)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := builder.BuildBuy(context.Background(), testToken, reserve, buyPrice, big.NewInt(0), 5, false)
		assert.Error(t, err)
		_, err = builder.BuildBuy(context.Background(), testToken, reserve, buyPrice, big.NewInt(-1), 5, false)
		assert.Error(t, err)
	})
}

func TestBuildBuyRefreshesMissingPrice(t *testing.T) {
	refreshed := false
	builder := NewBuilder(func(_ context.Context, token maelstrom.Token) (*big.Int, *big.Int, error) {
		refreshed = true
		return ether(2), ether(1), nil
	})
	reserve := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(500)}

	req, err := builder.BuildBuy(context.Background(), testToken, reserve, nil, ether(10), 0, true)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, ether(5), req.MinimumTokenOut)
}

func TestBuildBuyUnquotablePool(t *testing.T) {
	builder := NewBuilder(func(_ context.Context, _ maelstrom.Token) (*big.Int, *big.Int, error) {
		return big.NewInt(0), big.NewInt(0), nil
	})
	reserve := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(500)}

	_, err := builder.BuildBuy(context.Background(), testToken, reserve, big.NewInt(0), ether(10), 0, true)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "price unavailable")
}

func TestBuildSwap(t *testing.T) {
	builder := NewBuilder(noRefresh(t))
	reserveIn := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(500)}
	reserveOut := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(500)}

	t.Run("routes through base value", func(t *testing.T) {
		// 10 tokens at 2 base/token sell is 20 base, buying at 4 base/token
		// yields 5 tokens.
		req, err := builder.BuildSwap(context.Background(), testToken, otherToken,
			reserveIn, reserveOut, ether(2), ether(4), ether(10), 0, true)
		require.NoError(t, err)
		assert.Equal(t, ether(10), req.AmountIn)
		assert.Equal(t, ether(5), req.MinimumOut)
	})

	t.Run("rejects self swap", func(t *testing.T) {
		_, err := builder.BuildSwap(context.Background(), testToken, testToken,
			reserveIn, reserveOut, ether(2), ether(4), ether(10), 0, true)
		assert.Error(t, err)
	})

	t.Run("bought pool outflow capped in input terms", func(t *testing.T) {
		// 60 tokens in at 2 base/token is 120 base, buying at 2 base/token
		// draws 60 tokens from a 500-token reserve, over the 50-token cap.
		// Max input converts back: 50 * 2 / 2 = 50.
		_, err := builder.BuildSwap(context.Background(), testToken, otherToken,
			maelstrom.Reserve{BaseReserve: ether(10000), TokenReserve: ether(5000)},
			reserveOut, ether(2), ether(2), ether(60), 0, true)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(50), validationErr.MaxAllowed)
	})
}

func TestBuildDeposit(t *testing.T) {
	builder := NewBuilder(noRefresh(t))
	reserve := maelstrom.Reserve{BaseReserve: ether(1000), TokenReserve: ether(2000)}
	ratio := ether(2) // two tokens per unit of base

	t.Run("derives the token side", func(t *testing.T) {
		req, err := builder.BuildDeposit(testToken, reserve, ratio, ether(50))
		require.NoError(t, err)
		assert.Equal(t, ether(50), req.BaseAmount)
		assert.Equal(t, ether(100), req.TokenAmount)
	})

	t.Run("rejects missing ratio", func(t *testing.T) {
		_, err := builder.BuildDeposit(testToken, reserve, big.NewInt(0), ether(50))
		assert.Error(t, err)
	})

	t.Run("caps the derived token side", func(t *testing.T) {
		// 150 base derives 300 tokens, over the 200-token cap; max base
		// input is 100.
		_, err := builder.BuildDeposit(testToken, reserve, ratio, ether(150))
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(100), validationErr.MaxAllowed)
	})
}

func TestBuildWithdraw(t *testing.T) {
	builder := NewBuilder(noRefresh(t))
	lpToken := maelstrom.LiquidityPoolToken{
		Token:         maelstrom.Token{Address: common.HexToAddress("0xdd"), Symbol: "mTOKA"},
		TotalSupply:   ether(1000),
		HolderBalance: ether(80),
	}

	t.Run("within balance and cap", func(t *testing.T) {
		req, err := builder.BuildWithdraw(testToken, lpToken, ether(50))
		require.NoError(t, err)
		assert.Equal(t, ether(50), req.LPAmount)
	})

	t.Run("exceeds held shares", func(t *testing.T) {
		_, err := builder.BuildWithdraw(testToken, lpToken, ether(90))
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(80), validationErr.MaxAllowed)
	})

	t.Run("exceeds supply cap", func(t *testing.T) {
		whale := lpToken
		whale.HolderBalance = ether(500)
		_, err := builder.BuildWithdraw(testToken, whale, ether(200))
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, ether(100), validationErr.MaxAllowed)
	})
}

func TestBuildInitPool(t *testing.T) {
	builder := NewBuilder(noRefresh(t))

	t.Run("valid", func(t *testing.T) {
		req, err := builder.BuildInitPool(testToken, ether(100), ether(200), ether(2), ether(1))
		require.NoError(t, err)
		assert.Equal(t, ether(100), req.BaseAmount)
		assert.Equal(t, ether(200), req.TokenAmount)
	})

	t.Run("rejects inverted spread", func(t *testing.T) {
		_, err := builder.BuildInitPool(testToken, ether(100), ether(200), ether(1), ether(2))
		assert.Error(t, err)
		_, err = builder.BuildInitPool(testToken, ether(100), ether(200), ether(1), ether(1))
		assert.Error(t, err)
	})

	t.Run("rejects zero amounts", func(t *testing.T) {
		_, err := builder.BuildInitPool(testToken, big.NewInt(0), ether(200), ether(2), ether(1))
		assert.Error(t, err)
	})
}
