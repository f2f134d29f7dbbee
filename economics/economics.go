// Package economics derives pool-level financial metrics from reserves,
// prices and historical events. Every function is pure: identical inputs give
// identical outputs, and wall-clock time is never read, only ever passed in
// by callers upstream.
//
// Ledger amounts stay in minimal-denomination big.Int throughout. Prices are
// base-per-token at an 18-decimal scale, so every price multiply is followed
// by a divide by 1e18. Only display-side rates (daily yield, APR) are floats;
// nothing floating-point ever feeds a mutating instruction.
package economics

import (
	"math/big"

	maelstrom "github.com/rohans02/maelstrom-go"
	"github.com/rohans02/maelstrom-go/logs"
)

const millisPerDay = 24 * 60 * 60 * 1000

// AveragePrice returns the midpoint of the independently-moving buy and sell
// prices. Commutative in its arguments.
func AveragePrice(buy, sell *big.Int) *big.Int {
	sum := new(big.Int).Add(buy, sell)
	return sum.Div(sum, big.NewInt(2))
}

// TotalLiquidity values a pool's reserves in the base asset:
// avgPrice * tokenReserve + baseReserve. The token reserve is scaled out of
// its minimal denomination before the price multiply so that mixing unit
// scales cannot lose precision.
func TotalLiquidity(avgPrice *big.Int, reserve maelstrom.Reserve, tokenDecimals uint8) *big.Int {
	tokenValue := new(big.Int).Mul(avgPrice, reserve.TokenReserve)
	tokenValue.Div(tokenValue, maelstrom.Pow10(tokenDecimals))
	return tokenValue.Add(tokenValue, reserve.BaseReserve)
}

// Yield estimates the pool's per-day fee yield from a window of fee samples:
// total fees divided by elapsed days between the first and last sample,
// divided by total liquidity. Fewer than two samples, zero elapsed time or
// zero liquidity make the rate undefined; it is reported as zero.
func Yield(feeEvents []maelstrom.PoolFeesEvent, totalLiquidity *big.Int) float64 {
	if len(feeEvents) < 2 {
		return 0
	}
	if totalLiquidity == nil || totalLiquidity.Sign() == 0 {
		return 0
	}
	elapsedMillis := feeEvents[len(feeEvents)-1].Timestamp - feeEvents[0].Timestamp
	if elapsedMillis <= 0 {
		return 0
	}

	totalFees := new(big.Int)
	for _, event := range feeEvents {
		totalFees.Add(totalFees, event.Fee)
	}

	// fees / (days * liquidity), kept rational until the final conversion.
	num := new(big.Int).Mul(totalFees, big.NewInt(millisPerDay))
	den := new(big.Int).Mul(big.NewInt(elapsedMillis), totalLiquidity)
	yield, _ := new(big.Rat).SetFrac(num, den).Float64()
	return yield
}

// APR annualizes a per-day yield into a percentage.
func APR(dailyYield float64) float64 {
	return dailyYield * 365 * 100
}

// SumVolume totals the base-asset-equivalent magnitude of the given trade
// events for one token: the direct base amount for buys and sells, and
// amount times the applicable leg price for swaps. Deposits and withdrawals
// are liquidity movements, not trades, and contribute nothing.
func SumVolume(token maelstrom.Token, events []logs.Event) *big.Int {
	volume := new(big.Int)
	for _, event := range events {
		switch ev := event.(type) {
		case *logs.BuyTrade:
			if ev.Token.Address == token.Address {
				volume.Add(volume, ev.BaseAmount)
			}
		case *logs.SellTrade:
			if ev.Token.Address == token.Address {
				volume.Add(volume, ev.BaseAmount)
			}
		case *logs.SwapTrade:
			if ev.TokenSold.Address == token.Address {
				leg := new(big.Int).Mul(ev.AmountSold, ev.TradeSellPrice)
				volume.Add(volume, leg.Div(leg, maelstrom.OneEther))
			} else if ev.TokenBought.Address == token.Address {
				leg := new(big.Int).Mul(ev.AmountBought, ev.TradeBuyPrice)
				volume.Add(volume, leg.Div(leg, maelstrom.OneEther))
			}
		case *logs.Deposit, *logs.Withdraw:
			// not trade volume
		}
	}
	return volume
}
