package client

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	maelstrom "github.com/rohans02/maelstrom-go"
	"github.com/rohans02/maelstrom-go/economics"
	"github.com/rohans02/maelstrom-go/logs"
)

// Pools assembles list-view rows for a page of pools. Per-pool reads fan out
// under the Reader's concurrency limit; any single failure fails the page,
// since a row with missing prices or liquidity would mislead downstream
// refresh logic into treating the pool as changed.
func (r *Reader) Pools(ctx context.Context, start, end uint64) ([]maelstrom.RowPool, error) {
	addrs, err := r.PoolList(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return r.assembleRows(ctx, addrs, nil)
}

// AllPools assembles rows for every pool the contract tracks. An empty
// contract yields an empty slice, not an error.
func (r *Reader) AllPools(ctx context.Context) ([]maelstrom.RowPool, error) {
	total, err := r.TotalPools(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []maelstrom.RowPool{}, nil
	}
	return r.Pools(ctx, 0, total-1)
}

// UserPools assembles rows for a page of the user's pools, including the
// user's claim-share position on each row.
func (r *Reader) UserPools(ctx context.Context, user common.Address, start, end uint64) ([]maelstrom.RowPool, error) {
	addrs, err := r.UserPoolList(ctx, user, start, end)
	if err != nil {
		return nil, err
	}
	return r.assembleRows(ctx, addrs, &user)
}

// assembleRows builds one RowPool per address concurrently. Results are
// written into index-parallel slots so output order matches input order.
func (r *Reader) assembleRows(ctx context.Context, addrs []common.Address, user *common.Address) ([]maelstrom.RowPool, error) {
	numPools := len(addrs)
	if numPools == 0 {
		return []maelstrom.RowPool{}, nil
	}

	rows := make([]maelstrom.RowPool, numPools)
	errs := make([]error, numPools)

	var wg sync.WaitGroup
	wg.Add(numPools)
	for i, addr := range addrs {
		r.semaphore <- struct{}{}
		go func(index int, tokenAddr common.Address) {
			defer func() {
				<-r.semaphore
				wg.Done()
			}()

			if ctx.Err() != nil {
				errs[index] = ctx.Err()
				return
			}
			row, err := r.assembleRow(ctx, tokenAddr, user)
			if err != nil {
				errs[index] = err
				return
			}
			rows[index] = row
		}(i, addr)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (r *Reader) assembleRow(ctx context.Context, tokenAddr common.Address, user *common.Address) (maelstrom.RowPool, error) {
	token, err := r.Token(ctx, tokenAddr)
	if err != nil {
		return maelstrom.RowPool{}, err
	}
	buyPrice, err := r.BuyPrice(ctx, token)
	if err != nil {
		return maelstrom.RowPool{}, err
	}
	sellPrice, err := r.SellPrice(ctx, token)
	if err != nil {
		return maelstrom.RowPool{}, err
	}
	reserve, err := r.Reserves(ctx, token)
	if err != nil {
		return maelstrom.RowPool{}, err
	}

	row := maelstrom.RowPool{
		Token:     token,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		TotalLiquidity: economics.TotalLiquidity(
			economics.AveragePrice(buyPrice, sellPrice), reserve, token.Decimals),
	}

	if user != nil {
		lpToken, err := r.LPToken(ctx, token, *user)
		if err != nil {
			return maelstrom.RowPool{}, err
		}
		row.LPToken = &lpToken
	}
	return row, nil
}

// Volume24h totals a token's trade volume in base-asset terms over the
// trailing 24 hours, located by block timestamp rather than a fixed block
// count so chains with different block times report the same window.
func (r *Reader) Volume24h(ctx context.Context, token maelstrom.Token, now time.Time) (*big.Int, error) {
	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return nil, &maelstrom.ReadError{Op: "read chain head", Err: err}
	}
	fromBlock, err := r.locator.PositionBefore(ctx, now, 24*time.Hour)
	if err != nil {
		return nil, &maelstrom.ReadError{Op: "locate 24h-ago block", Err: err}
	}

	events, err := r.aggregator.FetchRange(ctx, fromBlock, head, logs.TradeKinds, logs.Filter{Token: &token})
	if err != nil {
		return nil, &maelstrom.ReadError{Op: "fetch 24h trade events", Err: err}
	}
	return economics.SumVolume(token, events), nil
}

// Pool reconstructs the full economic state of one pool for one user:
// reserves, both prices and their midpoint, deposit ratio, claim-share
// position, trailing 24h volume and the fee-derived APR estimate.
func (r *Reader) Pool(ctx context.Context, tokenAddr common.Address, user common.Address) (maelstrom.Pool, error) {
	token, err := r.Token(ctx, tokenAddr)
	if err != nil {
		return maelstrom.Pool{}, err
	}

	var (
		reserve   maelstrom.Reserve
		buyPrice  *big.Int
		sellPrice *big.Int
		ratio     *big.Int
		lpToken   maelstrom.LiquidityPoolToken
		lastTrade int64
		volume    *big.Int
		feeEvents []maelstrom.PoolFeesEvent

		errs [7]error
		wg   sync.WaitGroup
	)

	wg.Add(7)
	go func() {
		defer wg.Done()
		reserve, errs[0] = r.Reserves(ctx, token)
	}()
	go func() {
		defer wg.Done()
		buyPrice, errs[1] = r.BuyPrice(ctx, token)
	}()
	go func() {
		defer wg.Done()
		sellPrice, errs[2] = r.SellPrice(ctx, token)
	}()
	go func() {
		defer wg.Done()
		ratio, errs[3] = r.TokenRatio(ctx, token)
	}()
	go func() {
		defer wg.Done()
		lpToken, errs[4] = r.LPToken(ctx, token, user)
	}()
	go func() {
		defer wg.Done()
		lastTrade, errs[5] = r.LastExchangeTimestamp(ctx, token)
	}()
	go func() {
		defer wg.Done()
		volume, errs[6] = r.Volume24h(ctx, token, time.Now())
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return maelstrom.Pool{}, err
		}
	}

	// A sliding window of trailing fee samples feeds the yield estimate.
	// Pools too young to have two samples report zero yield, not an error.
	feeEvents, err = r.trailingFeeSamples(ctx, token)
	if err != nil {
		return maelstrom.Pool{}, err
	}

	avgPrice := economics.AveragePrice(buyPrice, sellPrice)
	totalLiquidity := economics.TotalLiquidity(avgPrice, reserve, token.Decimals)
	apr := economics.APR(economics.Yield(feeEvents, totalLiquidity))

	return maelstrom.Pool{
		Token:                 token,
		Reserve:               reserve,
		LPToken:               lpToken,
		BuyPrice:              buyPrice,
		SellPrice:             sellPrice,
		AvgPrice:              avgPrice,
		TokenRatio:            ratio,
		Volume24h:             volume,
		TotalLiquidity:        totalLiquidity,
		APR:                   apr,
		LastExchangeTimestamp: lastTrade,
		LastUpdated:           time.Now().UnixMilli(),
	}, nil
}

// trailingFeeSamples fetches the newest feeSampleWindow fee samples.
func (r *Reader) trailingFeeSamples(ctx context.Context, token maelstrom.Token) ([]maelstrom.PoolFeesEvent, error) {
	count, err := r.PoolFeeEventsCount(ctx, token)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	var start uint64
	if count > feeSampleWindow {
		start = count - feeSampleWindow
	}
	return r.PoolFeeList(ctx, token, start, count-1)
}
