package maelstrom

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Token is the immutable metadata of an ERC-20 token. Identity is the address.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}

// IsNative reports whether the token is the chain's base asset. The native
// token carries the zero address and is never looked up on-chain.
func (t Token) IsNative() bool {
	return t.Address == (common.Address{})
}

// LiquidityPoolToken is the claim-share ERC-20 representing proportional
// ownership of a pool's reserves.
type LiquidityPoolToken struct {
	Token
	TotalSupply   *big.Int `json:"totalSupply"`
	HolderBalance *big.Int `json:"holderBalance"`
}

// Reserve holds the raw integer balances backing a pool, in minimal
// denomination. No implicit decimal scaling is ever applied.
type Reserve struct {
	BaseReserve  *big.Int `json:"baseReserve"`
	TokenReserve *big.Int `json:"tokenReserve"`
}

// Pool is the fully reconstructed economic state of a single trading venue.
// BuyPrice and SellPrice move independently; both are denominated
// base-per-token at 18 decimals of price precision. BuyPrice >= SellPrice is
// economically expected but not enforced here: a violation means stale or
// suspicious upstream data and is the caller's problem to surface.
type Pool struct {
	Token                 Token              `json:"token"`
	Reserve               Reserve            `json:"reserve"`
	LPToken               LiquidityPoolToken `json:"lpToken"`
	BuyPrice              *big.Int           `json:"buyPrice"`
	SellPrice             *big.Int           `json:"sellPrice"`
	AvgPrice              *big.Int           `json:"avgPrice"`
	TokenRatio            *big.Int           `json:"tokenRatio"`
	Volume24h             *big.Int           `json:"volume24h"`
	TotalLiquidity        *big.Int           `json:"totalLiquidity"`
	APR                   float64            `json:"apr"`
	LastExchangeTimestamp int64              `json:"lastExchangeTimestamp"` // unix ms
	LastUpdated           int64              `json:"lastUpdated"`           // unix ms
}

// RowPool is the lightweight projection of Pool used for list views.
type RowPool struct {
	Token          Token               `json:"token"`
	BuyPrice       *big.Int            `json:"buyPrice"`
	SellPrice      *big.Int            `json:"sellPrice"`
	TotalLiquidity *big.Int            `json:"totalLiquidity"`
	LPToken        *LiquidityPoolToken `json:"lpToken,omitempty"`
}

// PoolFeesEvent is one yield-accrual sample from the contract's per-pool fee
// ledger. Samples form an ordered sequence; a sliding window of them feeds
// yield estimation.
type PoolFeesEvent struct {
	Timestamp int64    `json:"timestamp"` // unix ms
	Fee       *big.Int `json:"fee"`
}

// --- Mutating-action request/result pairs ---
//
// Requests carry pre-validated user intent in minimal-denomination integers.
// A Result is produced exactly once per submitted request; a failed submission
// is never silently retried.

type InitPoolRequest struct {
	Token            Token
	BaseAmount       *big.Int
	TokenAmount      *big.Int
	InitialBuyPrice  *big.Int
	InitialSellPrice *big.Int
}

type DepositRequest struct {
	Token       Token
	BaseAmount  *big.Int
	TokenAmount *big.Int
}

type WithdrawRequest struct {
	Token    Token
	LPToken  LiquidityPoolToken
	LPAmount *big.Int
}

type SwapRequest struct {
	TokenIn    Token
	TokenOut   Token
	AmountIn   *big.Int
	MinimumOut *big.Int
}

type BuyRequest struct {
	Token           Token
	AmountIn        *big.Int // base asset paid in
	MinimumTokenOut *big.Int
}

type SellRequest struct {
	Token          Token
	AmountIn       *big.Int // tokens sold
	MinimumBaseOut *big.Int
}

// Result captures the outcome of one mutating action. Either the capability
// grant and the call both succeeded and TxHash is set, or the whole action
// reports failure through Err. Never partially populated.
type Result struct {
	Success   bool
	TxHash    common.Hash
	Timestamp int64 // unix ms
	Err       error
}

type InitPoolResult struct {
	Result
	Request InitPoolRequest
}

type DepositResult struct {
	Result
	Request DepositRequest
}

type WithdrawResult struct {
	Result
	Request WithdrawRequest
}

type SwapResult struct {
	Result
	Request SwapRequest
}

type BuyResult struct {
	Result
	Request BuyRequest
}

type SellResult struct {
	Result
	Request SellRequest
}
