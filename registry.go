package maelstrom

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolRegistry manages the tracked pool rows using a data-oriented design.
// A pool's identity is its token address; a mapping layer separates the
// logical identity from the physical slice index.
type PoolRegistry struct {
	token          []Token
	buyPrice       []*big.Int
	sellPrice      []*big.Int
	totalLiquidity []*big.Int
	lpToken        []*LiquidityPoolToken

	addrToIndex map[common.Address]int
}

func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{
		addrToIndex: make(map[common.Address]int),
	}
}

// NewPoolRegistryFromViews reconstructs a PoolRegistry from a slice of RowPool
// views, the mechanism for restoring state from a snapshot. Mutable big.Int
// fields are deep-copied so later changes to the input cannot reach the
// registry's internal state.
func NewPoolRegistryFromViews(views []RowPool) *PoolRegistry {
	registry := &PoolRegistry{
		token:          make([]Token, 0, len(views)),
		buyPrice:       make([]*big.Int, 0, len(views)),
		sellPrice:      make([]*big.Int, 0, len(views)),
		totalLiquidity: make([]*big.Int, 0, len(views)),
		lpToken:        make([]*LiquidityPoolToken, 0, len(views)),
		addrToIndex:    make(map[common.Address]int, len(views)),
	}
	for _, view := range views {
		upsertPool(view, registry)
	}
	return registry
}

// upsertPool inserts a new row or overwrites the row already tracked for the
// same token. Refresh cycles re-read the whole list, so overwrite is the
// common path after the first cycle.
func upsertPool(row RowPool, registry *PoolRegistry) {
	if index, ok := registry.addrToIndex[row.Token.Address]; ok {
		registry.token[index] = row.Token
		registry.buyPrice[index].Set(row.BuyPrice)
		registry.sellPrice[index].Set(row.SellPrice)
		registry.totalLiquidity[index].Set(row.TotalLiquidity)
		registry.lpToken[index] = copyLPToken(row.LPToken)
		return
	}

	registry.token = append(registry.token, row.Token)
	registry.buyPrice = append(registry.buyPrice, new(big.Int).Set(row.BuyPrice))
	registry.sellPrice = append(registry.sellPrice, new(big.Int).Set(row.SellPrice))
	registry.totalLiquidity = append(registry.totalLiquidity, new(big.Int).Set(row.TotalLiquidity))
	registry.lpToken = append(registry.lpToken, copyLPToken(row.LPToken))
	registry.addrToIndex[row.Token.Address] = len(registry.token) - 1
}

// deletePool removes a pool with the swap-with-last trick so the physical
// slices stay dense.
func deletePool(tokenAddr common.Address, registry *PoolRegistry) error {
	indexToDelete, ok := registry.addrToIndex[tokenAddr]
	if !ok {
		return ErrPoolNotFound
	}

	lastIndex := len(registry.token) - 1
	lastAddr := registry.token[lastIndex].Address

	if indexToDelete != lastIndex {
		registry.token[indexToDelete] = registry.token[lastIndex]
		registry.buyPrice[indexToDelete] = registry.buyPrice[lastIndex]
		registry.sellPrice[indexToDelete] = registry.sellPrice[lastIndex]
		registry.totalLiquidity[indexToDelete] = registry.totalLiquidity[lastIndex]
		registry.lpToken[indexToDelete] = registry.lpToken[lastIndex]
		registry.addrToIndex[lastAddr] = indexToDelete
	}

	delete(registry.addrToIndex, tokenAddr)

	registry.token = registry.token[:lastIndex]
	registry.buyPrice = registry.buyPrice[:lastIndex]
	registry.sellPrice = registry.sellPrice[:lastIndex]
	registry.totalLiquidity = registry.totalLiquidity[:lastIndex]
	registry.lpToken = registry.lpToken[:lastIndex]

	return nil
}

func viewRegistry(registry *PoolRegistry) []RowPool {
	numPools := len(registry.token)
	if numPools == 0 {
		return nil
	}

	views := make([]RowPool, numPools)
	for i := 0; i < numPools; i++ {
		views[i] = RowPool{
			Token:          registry.token[i],
			BuyPrice:       new(big.Int).Set(registry.buyPrice[i]),
			SellPrice:      new(big.Int).Set(registry.sellPrice[i]),
			TotalLiquidity: new(big.Int).Set(registry.totalLiquidity[i]),
			LPToken:        copyLPToken(registry.lpToken[i]),
		}
	}
	return views
}

// getPoolByToken retrieves a single pool's view by its token address.
func getPoolByToken(tokenAddr common.Address, registry *PoolRegistry) (RowPool, error) {
	index, ok := registry.addrToIndex[tokenAddr]
	if !ok {
		return RowPool{}, ErrPoolNotFound
	}

	return RowPool{
		Token:          registry.token[index],
		BuyPrice:       new(big.Int).Set(registry.buyPrice[index]),
		SellPrice:      new(big.Int).Set(registry.sellPrice[index]),
		TotalLiquidity: new(big.Int).Set(registry.totalLiquidity[index]),
		LPToken:        copyLPToken(registry.lpToken[index]),
	}, nil
}

func hasPool(tokenAddr common.Address, registry *PoolRegistry) bool {
	_, ok := registry.addrToIndex[tokenAddr]
	return ok
}

func copyLPToken(lp *LiquidityPoolToken) *LiquidityPoolToken {
	if lp == nil {
		return nil
	}
	cp := *lp
	if lp.TotalSupply != nil {
		cp.TotalSupply = new(big.Int).Set(lp.TotalSupply)
	}
	if lp.HolderBalance != nil {
		cp.HolderBalance = new(big.Int).Set(lp.HolderBalance)
	}
	return &cp
}
