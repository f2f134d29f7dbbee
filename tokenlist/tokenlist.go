// Package tokenlist serves curated token metadata per chain from an upstream
// registry. Lists are fetched once per chain and cached for the process
// lifetime; curation changes rarely enough that a restart is an acceptable
// refresh.
package tokenlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	maelstrom "github.com/rohans02/maelstrom-go"
)

// DefaultBaseURL is the upstream curated registry.
const DefaultBaseURL = "https://raw.githubusercontent.com/StabilityNexus/TokenList/main"

// chainSlugs maps a chain ID to its list file slug upstream.
var chainSlugs = map[uint64]string{
	maelstrom.ChainEthereum:        "ethereum",
	maelstrom.ChainEthereumClassic: "ethereum-classic",
	maelstrom.ChainPolygon:         "polygon-pos",
	maelstrom.ChainBSC:             "binance-smart-chain",
	maelstrom.ChainBase:            "base",
}

// testnets have no curated list by design; asking for one is a caller bug.
var testnets = map[uint64]bool{
	maelstrom.ChainMordor:        true,
	maelstrom.ChainCitreaTestnet: true,
}

// Cache is a write-once, per-chain token list cache. A chain's list is
// fetched at most once; failures are not cached, so the next call retries.
type Cache struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.Mutex
	lists map[uint64][]maelstrom.Token
}

// NewCache builds a Cache over the default upstream. A nil httpClient
// selects a client with a sane timeout.
func NewCache(httpClient *http.Client) *Cache {
	return NewCacheWithBaseURL(httpClient, DefaultBaseURL)
}

func NewCacheWithBaseURL(httpClient *http.Client, baseURL string) *Cache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Cache{
		httpClient: httpClient,
		baseURL:    baseURL,
		lists:      make(map[uint64][]maelstrom.Token),
	}
}

// tokenRecord mirrors the upstream list entry shape.
type tokenRecord struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Tokens returns the curated list for a chain, fetching it on first use.
func (c *Cache) Tokens(ctx context.Context, chainID uint64) ([]maelstrom.Token, error) {
	if testnets[chainID] {
		return nil, fmt.Errorf("no curated token list for testnet chain %d", chainID)
	}
	if _, ok := chainSlugs[chainID]; !ok {
		return nil, &maelstrom.ConfigError{ChainID: chainID}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tokens, ok := c.lists[chainID]; ok {
		return copyTokens(tokens), nil
	}

	tokens, err := c.fetch(ctx, chainID)
	if err != nil {
		return nil, err
	}
	c.lists[chainID] = tokens
	return copyTokens(tokens), nil
}

func (c *Cache) fetch(ctx context.Context, chainID uint64) ([]maelstrom.Token, error) {
	url := fmt.Sprintf("%s/%s-tokens.json", c.baseURL, chainSlugs[chainID])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build token list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch token list for chain %d: %w", chainID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch token list for chain %d: upstream returned %s", chainID, resp.Status)
	}

	var records []tokenRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode token list for chain %d: %w", chainID, err)
	}

	tokens := make([]maelstrom.Token, len(records))
	for i, record := range records {
		tokens[i] = maelstrom.Token{
			Address:  common.HexToAddress(record.Address),
			Symbol:   record.Symbol,
			Name:     record.Name,
			Decimals: record.Decimals,
		}
	}
	return tokens, nil
}

func copyTokens(tokens []maelstrom.Token) []maelstrom.Token {
	out := make([]maelstrom.Token, len(tokens))
	copy(out, tokens)
	return out
}
