package tokenlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maelstrom "github.com/rohans02/maelstrom-go"
)

const listJSON = `[
  {"address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "symbol": "USDC", "name": "USD Coin", "decimals": 6},
  {"address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "symbol": "WETH", "name": "Wrapped Ether", "decimals": 18}
]`

func TestTokensFetchesAndCaches(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/ethereum-tokens.json", r.URL.Path)
		w.Write([]byte(listJSON))
	}))
	defer server.Close()

	cache := NewCacheWithBaseURL(server.Client(), server.URL)

	tokens, err := cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.Equal(t, uint8(6), tokens[0].Decimals)
	assert.Equal(t, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), tokens[0].Address)

	// Second call answers from the cache.
	_, err = cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestTokensRejectsTestnets(t *testing.T) {
	cache := NewCache(nil)

	_, err := cache.Tokens(context.Background(), maelstrom.ChainMordor)
	assert.ErrorContains(t, err, "testnet")

	_, err = cache.Tokens(context.Background(), maelstrom.ChainCitreaTestnet)
	assert.ErrorContains(t, err, "testnet")
}

func TestTokensRejectsUnknownChain(t *testing.T) {
	cache := NewCache(nil)

	_, err := cache.Tokens(context.Background(), 424242)
	var configErr *maelstrom.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestTokensUpstreamFailureNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(listJSON))
	}))
	defer server.Close()

	cache := NewCacheWithBaseURL(server.Client(), server.URL)

	_, err := cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.Error(t, err)

	// The failed fetch is retried, not cached.
	tokens, err := cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
	assert.Equal(t, int64(2), hits.Load())
}

func TestTokensReturnsCopies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(listJSON))
	}))
	defer server.Close()

	cache := NewCacheWithBaseURL(server.Client(), server.URL)

	first, err := cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.NoError(t, err)
	first[0].Symbol = "MUTATED"

	second, err := cache.Tokens(context.Background(), maelstrom.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, "USDC", second[0].Symbol)
}
