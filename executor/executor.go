// Package executor submits validated trade requests to the pool contract.
// Token-moving actions grant the contract a spending capability first, then
// issue the main call; only a purchase with the native asset skips the grant
// because value rides on the call itself.
package executor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	maelstrom "github.com/rohans02/maelstrom-go"
	mabi "github.com/rohans02/maelstrom-go/abi"
)

// WriteContractFunc signs and submits one transaction, returning its hash.
// Wallet plumbing stays behind this seam; the executor never touches keys.
type WriteContractFunc func(ctx context.Context, to common.Address, value *big.Int, input []byte) (common.Hash, error)

// Executor turns requests into submitted transactions.
type Executor struct {
	contract common.Address
	write    WriteContractFunc
	logger   maelstrom.Logger
}

// NewExecutor builds an Executor for the given chain. An unsupported chain
// is fatal, matching the reader's construction contract.
func NewExecutor(chainID uint64, write WriteContractFunc, logger maelstrom.Logger) (*Executor, error) {
	contract, err := maelstrom.ContractAddress(chainID)
	if err != nil {
		return nil, err
	}
	return &Executor{contract: contract, write: write, logger: logger}, nil
}

// InitPool creates and seeds a new pool. The token side needs a grant; the
// base side rides as call value.
func (e *Executor) InitPool(ctx context.Context, req maelstrom.InitPoolRequest) maelstrom.InitPoolResult {
	result := maelstrom.InitPoolResult{Request: req}

	if err := e.approve(ctx, req.Token.Address, req.TokenAmount); err != nil {
		result.Result = failure("initialize pool", err)
		return result
	}

	input, err := mabi.MaelstromABI.Pack("initializePool",
		req.Token.Address, req.TokenAmount, req.InitialBuyPrice, req.InitialSellPrice)
	if err != nil {
		result.Result = failure("initialize pool", err)
		return result
	}
	result.Result = e.submit(ctx, "initialize pool", req.BaseAmount, input)
	return result
}

// Deposit adds liquidity to a pool.
func (e *Executor) Deposit(ctx context.Context, req maelstrom.DepositRequest) maelstrom.DepositResult {
	result := maelstrom.DepositResult{Request: req}

	if err := e.approve(ctx, req.Token.Address, req.TokenAmount); err != nil {
		result.Result = failure("deposit", err)
		return result
	}

	input, err := mabi.MaelstromABI.Pack("deposit", req.Token.Address)
	if err != nil {
		result.Result = failure("deposit", err)
		return result
	}
	result.Result = e.submit(ctx, "deposit", req.BaseAmount, input)
	return result
}

// Withdraw burns claim shares and returns the proportional reserves. The
// grant targets the claim-share token, not the pool token.
func (e *Executor) Withdraw(ctx context.Context, req maelstrom.WithdrawRequest) maelstrom.WithdrawResult {
	result := maelstrom.WithdrawResult{Request: req}

	if err := e.approve(ctx, req.LPToken.Address, req.LPAmount); err != nil {
		result.Result = failure("withdraw", err)
		return result
	}

	input, err := mabi.MaelstromABI.Pack("withdraw", req.Token.Address, req.LPAmount)
	if err != nil {
		result.Result = failure("withdraw", err)
		return result
	}
	result.Result = e.submit(ctx, "withdraw", nil, input)
	return result
}

// Swap exchanges one pool token for another.
func (e *Executor) Swap(ctx context.Context, req maelstrom.SwapRequest) maelstrom.SwapResult {
	result := maelstrom.SwapResult{Request: req}

	if err := e.approve(ctx, req.TokenIn.Address, req.AmountIn); err != nil {
		result.Result = failure("swap", err)
		return result
	}

	input, err := mabi.MaelstromABI.Pack("swap",
		req.TokenIn.Address, req.TokenOut.Address, req.AmountIn, req.MinimumOut)
	if err != nil {
		result.Result = failure("swap", err)
		return result
	}
	result.Result = e.submit(ctx, "swap", nil, input)
	return result
}

// Buy purchases pool tokens with the base asset. No grant: the payment is
// the call value.
func (e *Executor) Buy(ctx context.Context, req maelstrom.BuyRequest) maelstrom.BuyResult {
	result := maelstrom.BuyResult{Request: req}

	input, err := mabi.MaelstromABI.Pack("buy", req.Token.Address, req.MinimumTokenOut)
	if err != nil {
		result.Result = failure("buy", err)
		return result
	}
	result.Result = e.submit(ctx, "buy", req.AmountIn, input)
	return result
}

// Sell sells pool tokens for the base asset.
func (e *Executor) Sell(ctx context.Context, req maelstrom.SellRequest) maelstrom.SellResult {
	result := maelstrom.SellResult{Request: req}

	if err := e.approve(ctx, req.Token.Address, req.AmountIn); err != nil {
		result.Result = failure("sell", err)
		return result
	}

	input, err := mabi.MaelstromABI.Pack("sell", req.Token.Address, req.AmountIn, req.MinimumBaseOut)
	if err != nil {
		result.Result = failure("sell", err)
		return result
	}
	result.Result = e.submit(ctx, "sell", nil, input)
	return result
}

// approve grants the pool contract a spending capability on the token before
// the main call may move it.
func (e *Executor) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	input, err := mabi.ERC20ABI.Pack("approve", e.contract, amount)
	if err != nil {
		return &maelstrom.ExecError{Action: "token approval", Err: err}
	}
	txHash, err := e.write(ctx, token, nil, input)
	if err != nil {
		return &maelstrom.ExecError{Action: "token approval", Err: err}
	}
	e.logger.Debug("approved token spend", "token", token.Hex(), "amount", amount, "tx", txHash.Hex())
	return nil
}

// submit issues the main contract call and shapes the outcome.
func (e *Executor) submit(ctx context.Context, action string, value *big.Int, input []byte) maelstrom.Result {
	txHash, err := e.write(ctx, e.contract, value, input)
	if err != nil {
		return failure(action, err)
	}
	e.logger.Info("submitted transaction", "action", action, "tx", txHash.Hex())
	return maelstrom.Result{
		Success:   true,
		TxHash:    txHash,
		Timestamp: time.Now().UnixMilli(),
	}
}

// failure shapes a failed outcome. The hash stays zero and Success false;
// a result is never partially populated.
func failure(action string, err error) maelstrom.Result {
	execErr, ok := err.(*maelstrom.ExecError)
	if !ok {
		execErr = &maelstrom.ExecError{Action: action, Err: err}
	}
	return maelstrom.Result{
		Success:   false,
		Timestamp: time.Now().UnixMilli(),
		Err:       execErr,
	}
}
