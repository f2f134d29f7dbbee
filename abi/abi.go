// Package abi holds the parsed contract interfaces shared by every component
// that packs calldata or decodes event logs. Loading method and event IDs from
// a single parsed ABI keeps the rest of the codebase free of hardcoded hashes.
package abi

import (
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	// MaelstromABI is the interface of the Maelstrom auction-pool contract,
	// restricted to the functions and events this client consumes.
	MaelstromABI = mustParse(maelstromABIJSON)

	// ERC20ABI covers the standard token surface: metadata, balances and the
	// approval needed before any token moves into the contract.
	ERC20ABI = mustParse(erc20ABIJSON)
)

func mustParse(s string) ethabi.ABI {
	parsed, err := ethabi.JSON(strings.NewReader(s))
	if err != nil {
		panic("abi: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

const maelstromABIJSON = `[
  {"type":"function","name":"reserves","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"etherReserve","type":"uint256"},{"name":"tokenReserve","type":"uint256"}]},
  {"type":"function","name":"priceBuy","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"priceSell","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"tokenPerETHRatio","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"poolUserBalances","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"user","type":"address"}],"outputs":[{"name":"tokenBalance","type":"uint256"},{"name":"etherBalance","type":"uint256"}]},
  {"type":"function","name":"poolToken","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"pools","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"buyPrice","type":"uint256"},{"name":"sellPrice","type":"uint256"},{"name":"lastExchangeTimestamp","type":"uint256"}]},
  {"type":"function","name":"getPoolList","stateMutability":"view","inputs":[{"name":"start","type":"uint256"},{"name":"end","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getUserPools","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"start","type":"uint256"},{"name":"end","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getTotalPools","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getUserTotalPools","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalFees","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalPoolFees","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPoolFeeEventsCount","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPoolFeeList","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"start","type":"uint256"},{"name":"end","type":"uint256"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"timestamp","type":"uint256"},{"name":"fee","type":"uint256"}]}]},
  {"type":"function","name":"initializePool","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"tokenAmount","type":"uint256"},{"name":"initialBuyPrice","type":"uint256"},{"name":"initialSellPrice","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"deposit","stateMutability":"payable","inputs":[{"name":"token","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"lpAmount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[{"name":"tokenSell","type":"address"},{"name":"tokenBuy","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minimumOut","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buy","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"minimumTokenOut","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"sell","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minimumEtherOut","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"BuyTrade","inputs":[{"name":"token","type":"address","indexed":true},{"name":"trader","type":"address","indexed":true},{"name":"amountEther","type":"uint256","indexed":false},{"name":"amountToken","type":"uint256","indexed":false},{"name":"tradeBuyPrice","type":"uint256","indexed":false},{"name":"updatedBuyPrice","type":"uint256","indexed":false},{"name":"sellPrice","type":"uint256","indexed":false}]},
  {"type":"event","name":"SellTrade","inputs":[{"name":"token","type":"address","indexed":true},{"name":"trader","type":"address","indexed":true},{"name":"amountToken","type":"uint256","indexed":false},{"name":"amountEther","type":"uint256","indexed":false},{"name":"tradeSellPrice","type":"uint256","indexed":false},{"name":"updatedSellPrice","type":"uint256","indexed":false},{"name":"buyPrice","type":"uint256","indexed":false}]},
  {"type":"event","name":"SwapTrade","inputs":[{"name":"tokenSold","type":"address","indexed":true},{"name":"tokenBought","type":"address","indexed":true},{"name":"trader","type":"address","indexed":true},{"name":"amountTokenSold","type":"uint256","indexed":false},{"name":"amountTokenBought","type":"uint256","indexed":false},{"name":"tradeSellPrice","type":"uint256","indexed":false},{"name":"updatedSellPrice","type":"uint256","indexed":false},{"name":"tradeBuyPrice","type":"uint256","indexed":false},{"name":"updatedBuyPrice","type":"uint256","indexed":false}]},
  {"type":"event","name":"Deposit","inputs":[{"name":"token","type":"address","indexed":true},{"name":"user","type":"address","indexed":true},{"name":"amountEther","type":"uint256","indexed":false},{"name":"amountToken","type":"uint256","indexed":false},{"name":"lpTokensMinted","type":"uint256","indexed":false}]},
  {"type":"event","name":"Withdraw","inputs":[{"name":"token","type":"address","indexed":true},{"name":"user","type":"address","indexed":true},{"name":"amountEther","type":"uint256","indexed":false},{"name":"amountToken","type":"uint256","indexed":false},{"name":"lpTokensBurned","type":"uint256","indexed":false}]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`
