// Package logs turns raw contract log entries into typed pool activity
// events and aggregates them across block ranges.
package logs

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	maelstrom "github.com/rohans02/maelstrom-go"
	mabi "github.com/rohans02/maelstrom-go/abi"
)

// Topic hashes of the activity events emitted by the pool contract.
var (
	BuyTradeEvent  = mabi.MaelstromABI.Events["BuyTrade"].ID
	SellTradeEvent = mabi.MaelstromABI.Events["SellTrade"].ID
	SwapTradeEvent = mabi.MaelstromABI.Events["SwapTrade"].ID
	DepositEvent   = mabi.MaelstromABI.Events["Deposit"].ID
	WithdrawEvent  = mabi.MaelstromABI.Events["Withdraw"].ID
)

// Kind discriminates the event variants.
type Kind uint8

const (
	KindBuyTrade Kind = iota
	KindSellTrade
	KindSwapTrade
	KindDeposit
	KindWithdraw
)

func (k Kind) String() string {
	switch k {
	case KindBuyTrade:
		return "buy_trade"
	case KindSellTrade:
		return "sell_trade"
	case KindSwapTrade:
		return "swap_trade"
	case KindDeposit:
		return "deposit"
	case KindWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// TradeKinds are the kinds that represent exchange activity and carry volume.
var TradeKinds = []Kind{KindBuyTrade, KindSellTrade, KindSwapTrade}

// AllKinds lists every event kind the contract emits.
var AllKinds = []Kind{KindBuyTrade, KindSellTrade, KindSwapTrade, KindDeposit, KindWithdraw}

// Event is one typed pool activity record. Timestamps are unix milliseconds.
type Event interface {
	Kind() Kind
	Time() int64
	dedupKey() dedupKey
}

// dedupKey identifies an event by its content so the same on-chain record
// fetched through overlapping ranges or overlapping topic filters collapses
// to a single entry.
type dedupKey struct {
	kind         Kind
	timestamp    int64
	primary      common.Address
	counterparty common.Address
	amountA      string
	amountB      string
}

// BuyTrade records a purchase of pool tokens with the base asset.
type BuyTrade struct {
	Token           maelstrom.Token
	Trader          common.Address
	BaseAmount      *big.Int
	TokenAmount     *big.Int
	TradeBuyPrice   *big.Int
	UpdatedBuyPrice *big.Int
	SellPrice       *big.Int
	Timestamp       int64
}

func (e *BuyTrade) Kind() Kind  { return KindBuyTrade }
func (e *BuyTrade) Time() int64 { return e.Timestamp }
func (e *BuyTrade) dedupKey() dedupKey {
	return dedupKey{KindBuyTrade, e.Timestamp, e.Token.Address, e.Trader, e.BaseAmount.String(), e.TokenAmount.String()}
}

// SellTrade records a sale of pool tokens for the base asset.
type SellTrade struct {
	Token            maelstrom.Token
	Trader           common.Address
	TokenAmount      *big.Int
	BaseAmount       *big.Int
	TradeSellPrice   *big.Int
	UpdatedSellPrice *big.Int
	BuyPrice         *big.Int
	Timestamp        int64
}

func (e *SellTrade) Kind() Kind  { return KindSellTrade }
func (e *SellTrade) Time() int64 { return e.Timestamp }
func (e *SellTrade) dedupKey() dedupKey {
	return dedupKey{KindSellTrade, e.Timestamp, e.Token.Address, e.Trader, e.BaseAmount.String(), e.TokenAmount.String()}
}

// SwapTrade records a token-for-token exchange routed through two pools.
// Both leg identities are always populated, whichever leg was queried for.
type SwapTrade struct {
	TokenSold        maelstrom.Token
	TokenBought      maelstrom.Token
	Trader           common.Address
	AmountSold       *big.Int
	AmountBought     *big.Int
	TradeSellPrice   *big.Int
	UpdatedSellPrice *big.Int
	TradeBuyPrice    *big.Int
	UpdatedBuyPrice  *big.Int
	Timestamp        int64
}

func (e *SwapTrade) Kind() Kind  { return KindSwapTrade }
func (e *SwapTrade) Time() int64 { return e.Timestamp }
func (e *SwapTrade) dedupKey() dedupKey {
	return dedupKey{KindSwapTrade, e.Timestamp, e.TokenSold.Address, e.TokenBought.Address, e.AmountSold.String(), e.AmountBought.String()}
}

// Deposit records liquidity added to a pool.
type Deposit struct {
	Token       maelstrom.Token
	User        common.Address
	BaseAmount  *big.Int
	TokenAmount *big.Int
	LPMinted    *big.Int
	Timestamp   int64
}

func (e *Deposit) Kind() Kind  { return KindDeposit }
func (e *Deposit) Time() int64 { return e.Timestamp }
func (e *Deposit) dedupKey() dedupKey {
	return dedupKey{KindDeposit, e.Timestamp, e.Token.Address, e.User, e.BaseAmount.String(), e.TokenAmount.String()}
}

// Withdraw records liquidity removed from a pool.
type Withdraw struct {
	Token       maelstrom.Token
	User        common.Address
	BaseAmount  *big.Int
	TokenAmount *big.Int
	LPBurned    *big.Int
	Timestamp   int64
}

func (e *Withdraw) Kind() Kind  { return KindWithdraw }
func (e *Withdraw) Time() int64 { return e.Timestamp }
func (e *Withdraw) dedupKey() dedupKey {
	return dedupKey{KindWithdraw, e.Timestamp, e.Token.Address, e.User, e.BaseAmount.String(), e.TokenAmount.String()}
}

// Merge unions two event slices, collapsing entries with identical content,
// and returns the result in ascending time order. Merging a slice with
// itself is the identity.
func Merge(existing, incoming []Event) []Event {
	byKey := make(map[dedupKey]Event, len(existing)+len(incoming))
	for _, ev := range existing {
		byKey[ev.dedupKey()] = ev
	}
	for _, ev := range incoming {
		byKey[ev.dedupKey()] = ev
	}
	return sortedEvents(byKey)
}

func sortedEvents(byKey map[dedupKey]Event) []Event {
	events := make([]Event, 0, len(byKey))
	for _, ev := range byKey {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time() != events[j].Time() {
			return events[i].Time() < events[j].Time()
		}
		ki, kj := events[i].dedupKey(), events[j].dedupKey()
		if ki.kind != kj.kind {
			return ki.kind < kj.kind
		}
		if cmp := bytes.Compare(ki.primary[:], kj.primary[:]); cmp != 0 {
			return cmp < 0
		}
		return ki.amountA < kj.amountA
	})
	return events
}
