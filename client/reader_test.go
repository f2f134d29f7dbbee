package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	ethclients "github.com/Iwinswap/iwinswap-ethclients"
	"github.com/ethereum/go-ethereum"
	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maelstrom "github.com/rohans02/maelstrom-go"
	mabi "github.com/rohans02/maelstrom-go/abi"
)

var (
	tokenAddrA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenAddrB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	userAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// routedClient answers eth_calls from a routing table keyed by target
// contract and method selector. Unrouted calls fail the test loudly.
type routedClient struct {
	ethclients.ETHClient

	mu        sync.Mutex
	routes    map[string][]byte
	callCount map[string]int
	head      uint64
}

func newRoutedClient() *routedClient {
	return &routedClient{
		routes:    make(map[string][]byte),
		callCount: make(map[string]int),
		head:      100,
	}
}

func routeKey(to common.Address, selector []byte) string {
	return to.Hex() + ":" + hex.EncodeToString(selector)
}

func (c *routedClient) route(to common.Address, contractABI ethabi.ABI, method string, output []byte) {
	c.routes[routeKey(to, contractABI.Methods[method].ID)] = output
}

func (c *routedClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := routeKey(*msg.To, msg.Data[:4])
	output, ok := c.routes[key]
	if !ok {
		return nil, fmt.Errorf("unrouted call %s", key)
	}
	c.callCount[key]++
	return output, nil
}

func (c *routedClient) BlockNumber(_ context.Context) (uint64, error) {
	return c.head, nil
}

func (c *routedClient) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Time: number.Uint64(), Number: number}, nil
}

func (c *routedClient) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func packOut(t *testing.T, contractABI ethabi.ABI, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := contractABI.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

// routeERC20 wires the full metadata surface of one token contract.
func routeERC20(t *testing.T, c *routedClient, addr common.Address, symbol, name string, decimals uint8) {
	c.route(addr, mabi.ERC20ABI, "symbol", packOut(t, mabi.ERC20ABI, "symbol", symbol))
	c.route(addr, mabi.ERC20ABI, "name", packOut(t, mabi.ERC20ABI, "name", name))
	c.route(addr, mabi.ERC20ABI, "decimals", packOut(t, mabi.ERC20ABI, "decimals", decimals))
}

func newTestReader(t *testing.T, c *routedClient) *Reader {
	t.Helper()
	reader, err := NewReader(c, maelstrom.ChainEthereum, 4, nopLogger{})
	require.NoError(t, err)
	return reader
}

func TestNewReaderUnsupportedChain(t *testing.T) {
	_, err := NewReader(newRoutedClient(), 424242, 4, nopLogger{})
	var configErr *maelstrom.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, uint64(424242), configErr.ChainID)
}

func TestTokenNative(t *testing.T) {
	reader := newTestReader(t, newRoutedClient())

	token, err := reader.Token(context.Background(), common.Address{})
	require.NoError(t, err)
	assert.Equal(t, "ETH", token.Symbol)
	assert.True(t, token.IsNative())
}

func TestTokenMetadataCached(t *testing.T) {
	c := newRoutedClient()
	routeERC20(t, c, tokenAddrA, "TOKA", "Token A", 6)
	reader := newTestReader(t, c)

	token, err := reader.Token(context.Background(), tokenAddrA)
	require.NoError(t, err)
	assert.Equal(t, "TOKA", token.Symbol)
	assert.Equal(t, "Token A", token.Name)
	assert.Equal(t, uint8(6), token.Decimals)

	// Second lookup answers from the cache without another eth_call.
	_, err = reader.Token(context.Background(), tokenAddrA)
	require.NoError(t, err)
	assert.Equal(t, 1, c.callCount[routeKey(tokenAddrA, mabi.ERC20ABI.Methods["symbol"].ID)])
}

func TestReserves(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	c.route(reader.Contract(), mabi.MaelstromABI, "reserves",
		packOut(t, mabi.MaelstromABI, "reserves", big.NewInt(100), big.NewInt(50)))

	reserve, err := reader.Reserves(context.Background(), maelstrom.Token{Address: tokenAddrA})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), reserve.BaseReserve)
	assert.Equal(t, big.NewInt(50), reserve.TokenReserve)
}

func TestUserBalancesFieldOrder(t *testing.T) {
	// The contract returns (tokenBalance, etherBalance) in that order.
	c := newRoutedClient()
	reader := newTestReader(t, c)
	c.route(reader.Contract(), mabi.MaelstromABI, "poolUserBalances",
		packOut(t, mabi.MaelstromABI, "poolUserBalances", big.NewInt(7), big.NewInt(3)))

	balances, err := reader.UserBalances(context.Background(), maelstrom.Token{Address: tokenAddrA}, userAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), balances.BaseReserve)
	assert.Equal(t, big.NewInt(7), balances.TokenReserve)
}

func TestLastExchangeTimestampWidensToMillis(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	c.route(reader.Contract(), mabi.MaelstromABI, "pools",
		packOut(t, mabi.MaelstromABI, "pools", big.NewInt(1), big.NewInt(1), big.NewInt(1_700_000_000)))

	ts, err := reader.LastExchangeTimestamp(context.Background(), maelstrom.Token{Address: tokenAddrA})
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000_000), ts)
}

func TestPoolListRangeValidation(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	c.route(reader.Contract(), mabi.MaelstromABI, "getTotalPools",
		packOut(t, mabi.MaelstromABI, "getTotalPools", big.NewInt(5)))

	var rangeErr *maelstrom.RangeError

	_, err := reader.PoolList(context.Background(), 3, 7)
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, uint64(5), rangeErr.Count)

	_, err = reader.PoolList(context.Background(), 4, 2)
	assert.ErrorAs(t, err, &rangeErr)
}

func TestPoolFeeListWidensTimestamps(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)

	feeTupleType, err := ethabi.NewType("tuple[]", "", []ethabi.ArgumentMarshaling{
		{Name: "timestamp", Type: "uint256"},
		{Name: "fee", Type: "uint256"},
	})
	require.NoError(t, err)
	args := ethabi.Arguments{{Type: feeTupleType}}
	packed, err := args.Pack([]struct {
		Timestamp *big.Int
		Fee       *big.Int
	}{
		{big.NewInt(1000), big.NewInt(5)},
		{big.NewInt(2000), big.NewInt(6)},
	})
	require.NoError(t, err)
	c.route(reader.Contract(), mabi.MaelstromABI, "getPoolFeeList", packed)

	events, err := reader.PoolFeeList(context.Background(), maelstrom.Token{Address: tokenAddrA}, 0, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1_000_000), events[0].Timestamp)
	assert.Equal(t, big.NewInt(5), events[0].Fee)
	assert.Equal(t, int64(2_000_000), events[1].Timestamp)
}

func TestReadErrorWrapsTransportFailure(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	// No route for priceBuy: the fake returns an error.

	_, err := reader.BuyPrice(context.Background(), maelstrom.Token{Address: tokenAddrA})
	var readErr *maelstrom.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "read buy price", readErr.Op)
	assert.NotNil(t, errors.Unwrap(readErr))
}

func TestAllPoolsEmptyContract(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	c.route(reader.Contract(), mabi.MaelstromABI, "getTotalPools",
		packOut(t, mabi.MaelstromABI, "getTotalPools", big.NewInt(0)))

	rows, err := reader.AllPools(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPoolsAssemblesRowsInOrder(t *testing.T) {
	c := newRoutedClient()
	reader := newTestReader(t, c)
	contract := reader.Contract()

	routeERC20(t, c, tokenAddrA, "TOKA", "Token A", 18)
	routeERC20(t, c, tokenAddrB, "TOKB", "Token B", 18)

	c.route(contract, mabi.MaelstromABI, "getTotalPools",
		packOut(t, mabi.MaelstromABI, "getTotalPools", big.NewInt(2)))
	c.route(contract, mabi.MaelstromABI, "getPoolList",
		packOut(t, mabi.MaelstromABI, "getPoolList", []common.Address{tokenAddrA, tokenAddrB}))

	// 2 base/token buy, 1 base/token sell, 50 tokens and 100 base in reserve:
	// total liquidity is 1.5 * 50 + 100 = 175.
	ether := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), maelstrom.OneEther) }
	c.route(contract, mabi.MaelstromABI, "priceBuy", packOut(t, mabi.MaelstromABI, "priceBuy", ether(2)))
	c.route(contract, mabi.MaelstromABI, "priceSell", packOut(t, mabi.MaelstromABI, "priceSell", ether(1)))
	c.route(contract, mabi.MaelstromABI, "reserves",
		packOut(t, mabi.MaelstromABI, "reserves", ether(100), ether(50)))

	rows, err := reader.Pools(context.Background(), 0, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tokenAddrA, rows[0].Token.Address)
	assert.Equal(t, tokenAddrB, rows[1].Token.Address)
	assert.Equal(t, ether(175), rows[0].TotalLiquidity)
	assert.Nil(t, rows[0].LPToken)
}
