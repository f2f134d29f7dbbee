// Package trade validates user intent against pool state and builds the
// request structs the executor submits. All checks run client-side before any
// value moves: a request that leaves this package is solvent, within the
// reserve impact cap and carries an explicit slippage floor.
package trade

import (
	"context"
	"fmt"
	"math/big"

	maelstrom "github.com/rohans02/maelstrom-go"
)

// MaxReserveImpactPct caps how much of either reserve leg a single trade may
// move. Auction-priced pools reprice between trades, so one oversized trade
// would drain a leg at a stale price.
const MaxReserveImpactPct = 10

// PriceRefreshFunc re-reads the current buy and sell prices for a token.
// Builders call it only when the caller-supplied price is zero or missing.
type PriceRefreshFunc func(ctx context.Context, token maelstrom.Token) (buyPrice, sellPrice *big.Int, err error)

// ValidationError rejects a trade request before submission. When the
// rejection is a cap or solvency bound, MaxAllowed names the largest input
// amount that would pass.
type ValidationError struct {
	Reason     string
	Token      maelstrom.Token
	MaxAllowed *big.Int
}

func (e *ValidationError) Error() string {
	if e.MaxAllowed != nil {
		return fmt.Sprintf("%s: maximum allowed is %s %s", e.Reason, e.MaxAllowed, e.Token.Symbol)
	}
	return e.Reason
}

// Builder turns user intent into validated requests.
type Builder struct {
	refreshPrices PriceRefreshFunc
}

func NewBuilder(refreshPrices PriceRefreshFunc) *Builder {
	return &Builder{refreshPrices: refreshPrices}
}

// MinimumOut applies a whole-percent slippage tolerance to an expected
// output. Zero tolerance deliberately floors the minimum at the full
// expected amount; any price movement reverts the trade.
func MinimumOut(expectedOut *big.Int, slippagePct uint64, zeroSlippage bool) (*big.Int, error) {
	if zeroSlippage {
		return new(big.Int).Set(expectedOut), nil
	}
	if slippagePct > 100 {
		return nil, &ValidationError{Reason: fmt.Sprintf("slippage %d%% exceeds 100%%", slippagePct)}
	}
	minOut := new(big.Int).Mul(expectedOut, big.NewInt(int64(100-slippagePct)))
	return minOut.Div(minOut, big.NewInt(100)), nil
}

// BuildBuy validates a purchase of tokens with baseIn of the base asset.
func (b *Builder) BuildBuy(
	ctx context.Context,
	token maelstrom.Token,
	reserve maelstrom.Reserve,
	buyPrice *big.Int,
	baseIn *big.Int,
	slippagePct uint64,
	zeroSlippage bool,
) (maelstrom.BuyRequest, error) {
	if err := requirePositive(baseIn, "buy amount"); err != nil {
		return maelstrom.BuyRequest{}, err
	}
	buyPrice, err := b.ensurePrice(ctx, token, buyPrice, true)
	if err != nil {
		return maelstrom.BuyRequest{}, err
	}

	tokenOut := divPrice(baseIn, buyPrice)

	maxBaseIn := capAmount(reserve.BaseReserve)
	if baseIn.Cmp(maxBaseIn) > 0 {
		return maelstrom.BuyRequest{}, &ValidationError{
			Reason:     "buy moves too much of the pool's base reserve",
			Token:      token,
			MaxAllowed: maxBaseIn,
		}
	}
	maxTokenOut := capAmount(reserve.TokenReserve)
	if tokenOut.Cmp(maxTokenOut) > 0 {
		return maelstrom.BuyRequest{}, &ValidationError{
			Reason:     "buy moves too much of the pool's token reserve",
			Token:      token,
			MaxAllowed: mulPrice(maxTokenOut, buyPrice),
		}
	}

	minOut, err := MinimumOut(tokenOut, slippagePct, zeroSlippage)
	if err != nil {
		return maelstrom.BuyRequest{}, err
	}
	return maelstrom.BuyRequest{
		Token:           token,
		AmountIn:        new(big.Int).Set(baseIn),
		MinimumTokenOut: minOut,
	}, nil
}

// BuildSell validates a sale of tokenIn tokens for the base asset.
func (b *Builder) BuildSell(
	ctx context.Context,
	token maelstrom.Token,
	reserve maelstrom.Reserve,
	sellPrice *big.Int,
	tokenIn *big.Int,
	slippagePct uint64,
	zeroSlippage bool,
) (maelstrom.SellRequest, error) {
	if err := requirePositive(tokenIn, "sell amount"); err != nil {
		return maelstrom.SellRequest{}, err
	}
	sellPrice, err := b.ensurePrice(ctx, token, sellPrice, false)
	if err != nil {
		return maelstrom.SellRequest{}, err
	}

	baseOut := mulPrice(tokenIn, sellPrice)

	maxTokenIn := capAmount(reserve.TokenReserve)
	if tokenIn.Cmp(maxTokenIn) > 0 {
		return maelstrom.SellRequest{}, &ValidationError{
			Reason:     "sell moves too much of the pool's token reserve",
			Token:      token,
			MaxAllowed: maxTokenIn,
		}
	}
	maxBaseOut := capAmount(reserve.BaseReserve)
	if baseOut.Cmp(maxBaseOut) > 0 {
		return maelstrom.SellRequest{}, &ValidationError{
			Reason:     "sell moves too much of the pool's base reserve",
			Token:      token,
			MaxAllowed: divPrice(maxBaseOut, sellPrice),
		}
	}

	minOut, err := MinimumOut(baseOut, slippagePct, zeroSlippage)
	if err != nil {
		return maelstrom.SellRequest{}, err
	}
	return maelstrom.SellRequest{
		Token:          token,
		AmountIn:       new(big.Int).Set(tokenIn),
		MinimumBaseOut: minOut,
	}, nil
}

// BuildSwap validates a token-for-token exchange: amountIn of tokenIn is
// sold into its pool for base value, which then buys tokenOut from the other
// pool. Both pools' reserve caps apply.
func (b *Builder) BuildSwap(
	ctx context.Context,
	tokenIn, tokenOut maelstrom.Token,
	reserveIn, reserveOut maelstrom.Reserve,
	sellPriceIn, buyPriceOut *big.Int,
	amountIn *big.Int,
	slippagePct uint64,
	zeroSlippage bool,
) (maelstrom.SwapRequest, error) {
	if err := requirePositive(amountIn, "swap amount"); err != nil {
		return maelstrom.SwapRequest{}, err
	}
	if tokenIn.Address == tokenOut.Address {
		return maelstrom.SwapRequest{}, &ValidationError{Reason: "cannot swap a token for itself", Token: tokenIn}
	}
	sellPriceIn, err := b.ensurePrice(ctx, tokenIn, sellPriceIn, false)
	if err != nil {
		return maelstrom.SwapRequest{}, err
	}
	buyPriceOut, err = b.ensurePrice(ctx, tokenOut, buyPriceOut, true)
	if err != nil {
		return maelstrom.SwapRequest{}, err
	}

	baseValue := mulPrice(amountIn, sellPriceIn)
	expectedOut := divPrice(baseValue, buyPriceOut)

	maxTokenIn := capAmount(reserveIn.TokenReserve)
	if amountIn.Cmp(maxTokenIn) > 0 {
		return maelstrom.SwapRequest{}, &ValidationError{
			Reason:     "swap moves too much of the sold pool's token reserve",
			Token:      tokenIn,
			MaxAllowed: maxTokenIn,
		}
	}
	maxBaseLeg := capAmount(reserveIn.BaseReserve)
	if baseValue.Cmp(maxBaseLeg) > 0 {
		return maelstrom.SwapRequest{}, &ValidationError{
			Reason:     "swap moves too much of the sold pool's base reserve",
			Token:      tokenIn,
			MaxAllowed: divPrice(maxBaseLeg, sellPriceIn),
		}
	}
	maxTokenOut := capAmount(reserveOut.TokenReserve)
	if expectedOut.Cmp(maxTokenOut) > 0 {
		// Largest input whose output stays under the cap, converted back
		// through both prices. The 1e18 scales cancel.
		maxIn := new(big.Int).Mul(maxTokenOut, buyPriceOut)
		maxIn.Div(maxIn, sellPriceIn)
		return maelstrom.SwapRequest{}, &ValidationError{
			Reason:     "swap moves too much of the bought pool's token reserve",
			Token:      tokenIn,
			MaxAllowed: maxIn,
		}
	}

	minOut, err := MinimumOut(expectedOut, slippagePct, zeroSlippage)
	if err != nil {
		return maelstrom.SwapRequest{}, err
	}
	return maelstrom.SwapRequest{
		TokenIn:    tokenIn,
		TokenOut:   tokenOut,
		AmountIn:   new(big.Int).Set(amountIn),
		MinimumOut: minOut,
	}, nil
}

// BuildDeposit validates a liquidity deposit. The token side is derived from
// the base amount through the pool's fixed deposit ratio.
func (b *Builder) BuildDeposit(
	token maelstrom.Token,
	reserve maelstrom.Reserve,
	tokenRatio *big.Int,
	baseAmount *big.Int,
) (maelstrom.DepositRequest, error) {
	if err := requirePositive(baseAmount, "deposit amount"); err != nil {
		return maelstrom.DepositRequest{}, err
	}
	if tokenRatio == nil || tokenRatio.Sign() <= 0 {
		return maelstrom.DepositRequest{}, &ValidationError{Reason: "pool deposit ratio unavailable", Token: token}
	}

	tokenAmount := mulPrice(baseAmount, tokenRatio)

	maxBase := capAmount(reserve.BaseReserve)
	if baseAmount.Cmp(maxBase) > 0 {
		return maelstrom.DepositRequest{}, &ValidationError{
			Reason:     "deposit moves too much of the pool's base reserve",
			Token:      token,
			MaxAllowed: maxBase,
		}
	}
	maxToken := capAmount(reserve.TokenReserve)
	if tokenAmount.Cmp(maxToken) > 0 {
		return maelstrom.DepositRequest{}, &ValidationError{
			Reason:     "deposit moves too much of the pool's token reserve",
			Token:      token,
			MaxAllowed: divPrice(maxToken, tokenRatio),
		}
	}

	return maelstrom.DepositRequest{
		Token:       token,
		BaseAmount:  new(big.Int).Set(baseAmount),
		TokenAmount: tokenAmount,
	}, nil
}

// BuildWithdraw validates burning lpAmount of the pool's claim-share token.
func (b *Builder) BuildWithdraw(
	token maelstrom.Token,
	lpToken maelstrom.LiquidityPoolToken,
	lpAmount *big.Int,
) (maelstrom.WithdrawRequest, error) {
	if err := requirePositive(lpAmount, "withdraw amount"); err != nil {
		return maelstrom.WithdrawRequest{}, err
	}
	if lpToken.TotalSupply == nil || lpToken.TotalSupply.Sign() == 0 {
		return maelstrom.WithdrawRequest{}, &ValidationError{Reason: "pool has no claim shares outstanding", Token: token}
	}
	if lpToken.HolderBalance == nil || lpAmount.Cmp(lpToken.HolderBalance) > 0 {
		return maelstrom.WithdrawRequest{}, &ValidationError{
			Reason:     "withdraw exceeds held claim shares",
			Token:      token,
			MaxAllowed: lpToken.HolderBalance,
		}
	}
	maxBurn := capAmount(lpToken.TotalSupply)
	if lpAmount.Cmp(maxBurn) > 0 {
		return maelstrom.WithdrawRequest{}, &ValidationError{
			Reason:     "withdraw burns too much of the claim-share supply",
			Token:      token,
			MaxAllowed: maxBurn,
		}
	}

	return maelstrom.WithdrawRequest{
		Token:    token,
		LPToken:  lpToken,
		LPAmount: new(big.Int).Set(lpAmount),
	}, nil
}

// BuildInitPool validates the one-time creation of a pool: both sides of the
// initial liquidity and a coherent starting spread.
func (b *Builder) BuildInitPool(
	token maelstrom.Token,
	baseAmount, tokenAmount *big.Int,
	initialBuyPrice, initialSellPrice *big.Int,
) (maelstrom.InitPoolRequest, error) {
	if err := requirePositive(baseAmount, "initial base amount"); err != nil {
		return maelstrom.InitPoolRequest{}, err
	}
	if err := requirePositive(tokenAmount, "initial token amount"); err != nil {
		return maelstrom.InitPoolRequest{}, err
	}
	if err := requirePositive(initialBuyPrice, "initial buy price"); err != nil {
		return maelstrom.InitPoolRequest{}, err
	}
	if err := requirePositive(initialSellPrice, "initial sell price"); err != nil {
		return maelstrom.InitPoolRequest{}, err
	}
	if initialBuyPrice.Cmp(initialSellPrice) <= 0 {
		return maelstrom.InitPoolRequest{}, &ValidationError{
			Reason: "initial buy price must exceed initial sell price",
			Token:  token,
		}
	}

	return maelstrom.InitPoolRequest{
		Token:            token,
		BaseAmount:       new(big.Int).Set(baseAmount),
		TokenAmount:      new(big.Int).Set(tokenAmount),
		InitialBuyPrice:  new(big.Int).Set(initialBuyPrice),
		InitialSellPrice: new(big.Int).Set(initialSellPrice),
	}, nil
}

// ensurePrice returns the given price, or re-reads it when zero or nil. A
// price still zero after refresh means the pool cannot quote the trade.
func (b *Builder) ensurePrice(ctx context.Context, token maelstrom.Token, price *big.Int, buySide bool) (*big.Int, error) {
	if price != nil && price.Sign() > 0 {
		return price, nil
	}
	if b.refreshPrices == nil {
		return nil, &ValidationError{Reason: "pool price unavailable", Token: token}
	}
	buyPrice, sellPrice, err := b.refreshPrices(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh prices for %s: %w", token.Address.Hex(), err)
	}
	refreshed := sellPrice
	if buySide {
		refreshed = buyPrice
	}
	if refreshed == nil || refreshed.Sign() == 0 {
		return nil, &ValidationError{Reason: "pool price unavailable", Token: token}
	}
	return refreshed, nil
}

func requirePositive(amount *big.Int, what string) error {
	if amount == nil || amount.Sign() <= 0 {
		return &ValidationError{Reason: what + " must be positive"}
	}
	return nil
}

// capAmount is the largest movement the reserve impact cap allows on a leg.
func capAmount(reserveLeg *big.Int) *big.Int {
	capped := new(big.Int).Mul(reserveLeg, big.NewInt(MaxReserveImpactPct))
	return capped.Div(capped, big.NewInt(100))
}

// mulPrice converts a token amount to base value through an 18-decimal price.
func mulPrice(amount, price *big.Int) *big.Int {
	value := new(big.Int).Mul(amount, price)
	return value.Div(value, maelstrom.OneEther)
}

// divPrice converts a base value to a token amount through an 18-decimal
// price. Callers guarantee a non-zero price via ensurePrice.
func divPrice(value, price *big.Int) *big.Int {
	amount := new(big.Int).Mul(value, maelstrom.OneEther)
	return amount.Div(amount, price)
}
