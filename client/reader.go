// Package client reads the economic state of auction-priced pools directly
// from the ledger. Every query is a stateless eth_call against the deployed
// contract; the Reader holds no mutable pool state of its own beyond a
// token-metadata cache.
package client

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	ethclients "github.com/Iwinswap/iwinswap-ethclients"
	"github.com/ethereum/go-ethereum"
	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	maelstrom "github.com/rohans02/maelstrom-go"
	mabi "github.com/rohans02/maelstrom-go/abi"
	"github.com/rohans02/maelstrom-go/blocktime"
	"github.com/rohans02/maelstrom-go/logs"
)

const (
	// defaultRPCTimeout bounds every individual eth_call.
	defaultRPCTimeout = 10 * time.Second

	// defaultMaxConcurrentCalls limits parallel RPC fan-out when assembling
	// pool lists.
	defaultMaxConcurrentCalls = 8

	// feeSampleWindow is how many trailing fee samples feed yield estimation.
	feeSampleWindow = 10
)

// Reader answers on-demand state queries for one chain's pool contract.
type Reader struct {
	client      ethclients.ETHClient
	contract    common.Address
	chainID     uint64
	native      maelstrom.Token
	logger      maelstrom.Logger
	semaphore   chan struct{}
	callTimeout time.Duration
	locator     *blocktime.Locator
	aggregator  *logs.Aggregator

	tokenCache sync.Map // common.Address -> maelstrom.Token
}

// NewReader builds a Reader for the given chain. It fails immediately when no
// contract is deployed there; nothing may fall back to a guessed address.
func NewReader(client ethclients.ETHClient, chainID uint64, maxConcurrentCalls int, logger maelstrom.Logger) (*Reader, error) {
	contract, err := maelstrom.ContractAddress(chainID)
	if err != nil {
		return nil, err
	}
	if maxConcurrentCalls <= 0 {
		maxConcurrentCalls = defaultMaxConcurrentCalls
	}

	r := &Reader{
		client:      client,
		contract:    contract,
		chainID:     chainID,
		native:      maelstrom.NativeToken(chainID),
		logger:      logger,
		semaphore:   make(chan struct{}, maxConcurrentCalls),
		callTimeout: defaultRPCTimeout,
	}
	r.locator = blocktime.NewLocator(client)
	r.aggregator = logs.NewAggregator(client, contract, r.Token, logger, 0, logs.DefaultPageDelay)
	return r, nil
}

// Contract returns the pool contract address this Reader is bound to.
func (r *Reader) Contract() common.Address {
	return r.contract
}

// call packs, executes and unpacks one contract read. All transport and
// decoding failures come back as a ReadError naming the operation.
func (r *Reader) call(ctx context.Context, op string, to common.Address, contractABI ethabi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, &maelstrom.ReadError{Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, &maelstrom.ReadError{Op: op, Err: err}
	}

	values, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, &maelstrom.ReadError{Op: op, Err: err}
	}
	return values, nil
}

// Token resolves token metadata. The zero address is the chain's native
// asset and is answered locally; everything else is read from the token
// contract once and cached for the Reader's lifetime.
func (r *Reader) Token(ctx context.Context, addr common.Address) (maelstrom.Token, error) {
	if addr == (common.Address{}) {
		return r.native, nil
	}
	if cached, ok := r.tokenCache.Load(addr); ok {
		return cached.(maelstrom.Token), nil
	}

	var (
		symbol   string
		name     string
		decimals uint8
		errs     [3]error
		wg       sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		values, err := r.call(ctx, "read token symbol", addr, mabi.ERC20ABI, "symbol")
		if err != nil {
			errs[0] = err
			return
		}
		symbol = values[0].(string)
	}()
	go func() {
		defer wg.Done()
		values, err := r.call(ctx, "read token name", addr, mabi.ERC20ABI, "name")
		if err != nil {
			errs[1] = err
			return
		}
		name = values[0].(string)
	}()
	go func() {
		defer wg.Done()
		values, err := r.call(ctx, "read token decimals", addr, mabi.ERC20ABI, "decimals")
		if err != nil {
			errs[2] = err
			return
		}
		decimals = values[0].(uint8)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return maelstrom.Token{}, err
		}
	}

	token := maelstrom.Token{Address: addr, Symbol: symbol, Name: name, Decimals: decimals}
	r.tokenCache.Store(addr, token)
	return token, nil
}

// Reserves reads the raw integer balances backing a pool.
func (r *Reader) Reserves(ctx context.Context, token maelstrom.Token) (maelstrom.Reserve, error) {
	values, err := r.call(ctx, "read pool reserves", r.contract, mabi.MaelstromABI, "reserves", token.Address)
	if err != nil {
		return maelstrom.Reserve{}, err
	}
	return maelstrom.Reserve{
		BaseReserve:  values[0].(*big.Int),
		TokenReserve: values[1].(*big.Int),
	}, nil
}

// BuyPrice reads the current purchase price, base-per-token at 18 decimals.
func (r *Reader) BuyPrice(ctx context.Context, token maelstrom.Token) (*big.Int, error) {
	values, err := r.call(ctx, "read buy price", r.contract, mabi.MaelstromABI, "priceBuy", token.Address)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// SellPrice reads the current sale price, base-per-token at 18 decimals.
func (r *Reader) SellPrice(ctx context.Context, token maelstrom.Token) (*big.Int, error) {
	values, err := r.call(ctx, "read sell price", r.contract, mabi.MaelstromABI, "priceSell", token.Address)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// TokenRatio reads the deposit ratio: token units required per unit of base
// asset, at 18 decimals.
func (r *Reader) TokenRatio(ctx context.Context, token maelstrom.Token) (*big.Int, error) {
	values, err := r.call(ctx, "read token ratio", r.contract, mabi.MaelstromABI, "tokenPerETHRatio", token.Address)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// UserBalances reads one user's withdrawable share of a pool's reserves.
func (r *Reader) UserBalances(ctx context.Context, token maelstrom.Token, user common.Address) (maelstrom.Reserve, error) {
	values, err := r.call(ctx, "read pool user balances", r.contract, mabi.MaelstromABI, "poolUserBalances", token.Address, user)
	if err != nil {
		return maelstrom.Reserve{}, err
	}
	// The contract returns (tokenBalance, etherBalance).
	return maelstrom.Reserve{
		BaseReserve:  values[1].(*big.Int),
		TokenReserve: values[0].(*big.Int),
	}, nil
}

// PoolTokenAddress reads the address of a pool's claim-share token. The zero
// address means the pool was never initialized.
func (r *Reader) PoolTokenAddress(ctx context.Context, token maelstrom.Token) (common.Address, error) {
	values, err := r.call(ctx, "read pool token address", r.contract, mabi.MaelstromABI, "poolToken", token.Address)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// IsPoolInstantiated reports whether a pool exists for the token.
func (r *Reader) IsPoolInstantiated(ctx context.Context, token maelstrom.Token) (bool, error) {
	lpAddr, err := r.PoolTokenAddress(ctx, token)
	if err != nil {
		return false, err
	}
	return lpAddr != (common.Address{}), nil
}

// LPToken assembles the full claim-share token state for one pool, including
// the user's balance.
func (r *Reader) LPToken(ctx context.Context, token maelstrom.Token, user common.Address) (maelstrom.LiquidityPoolToken, error) {
	lpAddr, err := r.PoolTokenAddress(ctx, token)
	if err != nil {
		return maelstrom.LiquidityPoolToken{}, err
	}
	if lpAddr == (common.Address{}) {
		return maelstrom.LiquidityPoolToken{}, &maelstrom.ReadError{
			Op:  "read lp token",
			Err: errors.New("pool not initialized for " + token.Address.Hex()),
		}
	}

	meta, err := r.Token(ctx, lpAddr)
	if err != nil {
		return maelstrom.LiquidityPoolToken{}, err
	}

	var (
		supply  *big.Int
		balance *big.Int
		errs    [2]error
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		values, err := r.call(ctx, "read lp total supply", lpAddr, mabi.ERC20ABI, "totalSupply")
		if err != nil {
			errs[0] = err
			return
		}
		supply = values[0].(*big.Int)
	}()
	go func() {
		defer wg.Done()
		values, err := r.call(ctx, "read lp holder balance", lpAddr, mabi.ERC20ABI, "balanceOf", user)
		if err != nil {
			errs[1] = err
			return
		}
		balance = values[0].(*big.Int)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return maelstrom.LiquidityPoolToken{}, err
		}
	}

	return maelstrom.LiquidityPoolToken{
		Token:         meta,
		TotalSupply:   supply,
		HolderBalance: balance,
	}, nil
}

// LastExchangeTimestamp reads the unix-millisecond time of a pool's most
// recent trade.
func (r *Reader) LastExchangeTimestamp(ctx context.Context, token maelstrom.Token) (int64, error) {
	values, err := r.call(ctx, "read pool record", r.contract, mabi.MaelstromABI, "pools", token.Address)
	if err != nil {
		return 0, err
	}
	return values[2].(*big.Int).Int64() * 1000, nil
}

// TotalPools reads the number of pools the contract tracks.
func (r *Reader) TotalPools(ctx context.Context) (uint64, error) {
	values, err := r.call(ctx, "read total pools", r.contract, mabi.MaelstromABI, "getTotalPools")
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// UserTotalPools reads how many pools a user holds a position in.
func (r *Reader) UserTotalPools(ctx context.Context, user common.Address) (uint64, error) {
	values, err := r.call(ctx, "read user total pools", r.contract, mabi.MaelstromABI, "getUserTotalPools", user)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// TotalFees reads the lifetime fee total across all pools.
func (r *Reader) TotalFees(ctx context.Context) (*big.Int, error) {
	values, err := r.call(ctx, "read total fees", r.contract, mabi.MaelstromABI, "totalFees")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// TotalPoolFees reads one pool's lifetime fee total.
func (r *Reader) TotalPoolFees(ctx context.Context, token maelstrom.Token) (*big.Int, error) {
	values, err := r.call(ctx, "read pool fees", r.contract, mabi.MaelstromABI, "totalPoolFees", token.Address)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// PoolFeeEventsCount reads how many fee samples the contract holds for a pool.
func (r *Reader) PoolFeeEventsCount(ctx context.Context, token maelstrom.Token) (uint64, error) {
	values, err := r.call(ctx, "read pool fee events count", r.contract, mabi.MaelstromABI, "getPoolFeeEventsCount", token.Address)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// feeRecord mirrors the contract's fee sample tuple for ABI conversion.
type feeRecord struct {
	Timestamp *big.Int
	Fee       *big.Int
}

// PoolFeeList reads a range of fee samples, inclusive on both ends, with
// contract-second timestamps widened to unix milliseconds.
func (r *Reader) PoolFeeList(ctx context.Context, token maelstrom.Token, start, end uint64) ([]maelstrom.PoolFeesEvent, error) {
	const op = "read pool fee list"
	if start > end {
		count, _ := r.PoolFeeEventsCount(ctx, token)
		return nil, &maelstrom.RangeError{Op: op, Start: start, End: end, Count: count}
	}

	values, err := r.call(ctx, op, r.contract, mabi.MaelstromABI, "getPoolFeeList",
		token.Address, new(big.Int).SetUint64(start), new(big.Int).SetUint64(end))
	if err != nil {
		return nil, err
	}

	records := *ethabi.ConvertType(values[0], new([]feeRecord)).(*[]feeRecord)
	events := make([]maelstrom.PoolFeesEvent, len(records))
	for i, record := range records {
		events[i] = maelstrom.PoolFeesEvent{
			Timestamp: record.Timestamp.Int64() * 1000,
			Fee:       record.Fee,
		}
	}
	return events, nil
}

// PoolList reads a page of pool token addresses by index range, inclusive on
// both ends. The range must lie inside [0, TotalPools).
func (r *Reader) PoolList(ctx context.Context, start, end uint64) ([]common.Address, error) {
	const op = "read pool list"
	total, err := r.TotalPools(ctx)
	if err != nil {
		return nil, err
	}
	if start > end || end >= total {
		return nil, &maelstrom.RangeError{Op: op, Start: start, End: end, Count: total}
	}

	values, err := r.call(ctx, op, r.contract, mabi.MaelstromABI, "getPoolList",
		new(big.Int).SetUint64(start), new(big.Int).SetUint64(end))
	if err != nil {
		return nil, err
	}
	return values[0].([]common.Address), nil
}

// UserPoolList reads a page of a user's pool token addresses by index range.
func (r *Reader) UserPoolList(ctx context.Context, user common.Address, start, end uint64) ([]common.Address, error) {
	const op = "read user pool list"
	total, err := r.UserTotalPools(ctx, user)
	if err != nil {
		return nil, err
	}
	if start > end || end >= total {
		return nil, &maelstrom.RangeError{Op: op, Start: start, End: end, Count: total}
	}

	values, err := r.call(ctx, op, r.contract, mabi.MaelstromABI, "getUserPools",
		user, new(big.Int).SetUint64(start), new(big.Int).SetUint64(end))
	if err != nil {
		return nil, err
	}
	return values[0].([]common.Address), nil
}

// Events exposes the underlying event aggregator for activity feeds.
func (r *Reader) Events(ctx context.Context, fromBlock, toBlock uint64, kinds []logs.Kind, filter logs.Filter) ([]logs.Event, error) {
	return r.aggregator.FetchRange(ctx, fromBlock, toBlock, kinds, filter)
}
