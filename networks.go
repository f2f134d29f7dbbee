package maelstrom

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs of the networks the contract is deployed on.
const (
	ChainEthereum        uint64 = 1
	ChainBSC             uint64 = 56
	ChainEthereumClassic uint64 = 61
	ChainMordor          uint64 = 63
	ChainPolygon         uint64 = 137
	ChainCitreaTestnet   uint64 = 5115
	ChainBase            uint64 = 8453
)

// contractAddresses maps a chain ID to the Maelstrom deployment on that chain.
// Absence of an entry is a configuration error, never a silent default.
var contractAddresses = map[uint64]common.Address{
	ChainEthereum:        common.HexToAddress("0x897CeF988A12AB77A12fd8f2Ca74F0B978d302CF"),
	ChainEthereumClassic: common.HexToAddress("0x897CeF988A12AB77A12fd8f2Ca74F0B978d302CF"),
	ChainMordor:          common.HexToAddress("0x39A04312F7640FA2B84833c96fC439D88207c9CD"),
	ChainPolygon:         common.HexToAddress("0x897CeF988A12AB77A12fd8f2Ca74F0B978d302CF"),
	ChainBSC:             common.HexToAddress("0x897CeF988A12AB77A12fd8f2Ca74F0B978d302CF"),
	ChainBase:            common.HexToAddress("0x897CeF988A12AB77A12fd8f2Ca74F0B978d302CF"),
	ChainCitreaTestnet:   common.HexToAddress("0x7B1E47C3C6b1eea13D06566f078DcBaEF5B63Ee5"),
}

// nativeCurrencies describes the base asset per supported chain.
var nativeCurrencies = map[uint64]Token{
	ChainEthereum:        {Symbol: "ETH", Name: "Ether", Decimals: 18},
	ChainEthereumClassic: {Symbol: "ETC", Name: "Ethereum Classic", Decimals: 18},
	ChainMordor:          {Symbol: "METC", Name: "Mordor Ether", Decimals: 18},
	ChainPolygon:         {Symbol: "POL", Name: "Polygon", Decimals: 18},
	ChainBSC:             {Symbol: "BNB", Name: "BNB", Decimals: 18},
	ChainBase:            {Symbol: "ETH", Name: "Ether", Decimals: 18},
	ChainCitreaTestnet:   {Symbol: "cBTC", Name: "Citrea Bitcoin", Decimals: 18},
}

// ContractAddress returns the Maelstrom deployment address for the given
// chain. Unsupported networks are fatal for the caller: no reader may be
// constructed against an undefined address.
func ContractAddress(chainID uint64) (common.Address, error) {
	addr, ok := contractAddresses[chainID]
	if !ok {
		return common.Address{}, &ConfigError{ChainID: chainID}
	}
	return addr, nil
}

// NativeToken returns the distinguished base-asset token for the chain. It
// carries the zero address and must never be looked up on-chain. Unknown
// chains fall back to Ether metadata; the zero-address identity is what
// callers rely on.
func NativeToken(chainID uint64) Token {
	if t, ok := nativeCurrencies[chainID]; ok {
		return t
	}
	return Token{Symbol: "ETH", Name: "Ether", Decimals: 18}
}

// OneEther is the fixed 18-decimal scale shared by prices and the native
// asset. Price arithmetic divides by this after every price multiply.
var OneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Pow10 returns 10^n as a big.Int, used to scale token amounts out of their
// minimal denomination.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
