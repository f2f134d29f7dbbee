package logs

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethclients "github.com/Iwinswap/iwinswap-ethclients"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	maelstrom "github.com/rohans02/maelstrom-go"
	mabi "github.com/rohans02/maelstrom-go/abi"
)

const (
	// DefaultWindowSize is the widest block span most public RPC providers
	// accept per log query, minus one for the inclusive bounds.
	DefaultWindowSize = 999

	// DefaultPageDelay spaces successive window queries to stay under
	// provider rate limits.
	DefaultPageDelay = 250 * time.Millisecond
)

// TokenResolverFunc resolves on-chain token metadata for an address.
// Implementations are expected to be cheap on repeat lookups.
type TokenResolverFunc func(ctx context.Context, addr common.Address) (maelstrom.Token, error)

// Filter narrows an event fetch to one pool token, one account, or both.
// Nil fields match everything.
type Filter struct {
	Token   *maelstrom.Token
	Account *common.Address
}

// Aggregator fetches typed pool activity events from the ledger's log index.
// Large block ranges are paginated into fixed-size windows and the results
// are merged by content, so overlapping fetches never double-count.
type Aggregator struct {
	client       ethclients.ETHClient
	contract     common.Address
	resolveToken TokenResolverFunc
	logger       maelstrom.Logger
	windowSize   uint64
	pageDelay    time.Duration
}

// NewAggregator builds an Aggregator over a ledger client. A zero windowSize
// or negative pageDelay selects the defaults.
func NewAggregator(
	client ethclients.ETHClient,
	contract common.Address,
	resolveToken TokenResolverFunc,
	logger maelstrom.Logger,
	windowSize uint64,
	pageDelay time.Duration,
) *Aggregator {
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	if pageDelay < 0 {
		pageDelay = DefaultPageDelay
	}
	return &Aggregator{
		client:       client,
		contract:     contract,
		resolveToken: resolveToken,
		logger:       logger,
		windowSize:   windowSize,
		pageDelay:    pageDelay,
	}
}

// FetchRange pulls every event of the requested kinds between fromBlock and
// toBlock inclusive, paginating the range into provider-sized windows. Any
// window failure fails the whole fetch; a partial history would silently
// understate volume and activity.
func (a *Aggregator) FetchRange(ctx context.Context, fromBlock, toBlock uint64, kinds []Kind, filter Filter) ([]Event, error) {
	if fromBlock > toBlock {
		return nil, fmt.Errorf("invalid block range [%d, %d]", fromBlock, toBlock)
	}

	headerTimes := make(map[uint64]int64)
	byKey := make(map[dedupKey]Event)

	for start := fromBlock; ; start += a.windowSize + 1 {
		end := start + a.windowSize
		if end > toBlock {
			end = toBlock
		}

		for _, kind := range kinds {
			events, err := a.fetchWindow(ctx, start, end, kind, filter, headerTimes)
			if err != nil {
				return nil, err
			}
			for _, ev := range events {
				byKey[ev.dedupKey()] = ev
			}
		}

		if end == toBlock {
			break
		}
		if a.pageDelay > 0 {
			select {
			case <-time.After(a.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	events := sortedEvents(byKey)
	a.logger.Debug("fetched pool events",
		"from", fromBlock, "to", toBlock, "kinds", len(kinds), "events", len(events),
	)
	return events, nil
}

// FetchRecent pulls events like FetchRange but walks the windows newest
// first and stops paginating once at least limit events are collected, so
// activity feeds showing the latest entries do not scan the whole range.
// A limit of zero means no early stop.
func (a *Aggregator) FetchRecent(ctx context.Context, fromBlock, toBlock uint64, kinds []Kind, filter Filter, limit int) ([]Event, error) {
	if fromBlock > toBlock {
		return nil, fmt.Errorf("invalid block range [%d, %d]", fromBlock, toBlock)
	}

	headerTimes := make(map[uint64]int64)
	byKey := make(map[dedupKey]Event)

	end := toBlock
	for {
		start := fromBlock
		if end >= fromBlock+a.windowSize {
			start = end - a.windowSize
		}

		for _, kind := range kinds {
			events, err := a.fetchWindow(ctx, start, end, kind, filter, headerTimes)
			if err != nil {
				return nil, err
			}
			for _, ev := range events {
				byKey[ev.dedupKey()] = ev
			}
		}

		if start == fromBlock || (limit > 0 && len(byKey) >= limit) {
			break
		}
		end = start - 1
		if a.pageDelay > 0 {
			select {
			case <-time.After(a.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return sortedEvents(byKey), nil
}

// fetchWindow queries one block window for one kind. A token-filtered swap
// fetch needs two queries because the token may appear on either leg.
func (a *Aggregator) fetchWindow(ctx context.Context, start, end uint64, kind Kind, filter Filter, headerTimes map[uint64]int64) ([]Event, error) {
	var queries [][]common.Hash
	switch {
	case kind == KindSwapTrade && filter.Token != nil:
		tokenTopic := addressTopic(filter.Token.Address)
		sold := []common.Hash{eventID(kind), tokenTopic, zeroHash, zeroHash}
		bought := []common.Hash{eventID(kind), zeroHash, tokenTopic, zeroHash}
		if filter.Account != nil {
			sold[3] = addressTopic(*filter.Account)
			bought[3] = addressTopic(*filter.Account)
		}
		queries = [][]common.Hash{sold, bought}
	case kind == KindSwapTrade:
		topics := []common.Hash{eventID(kind), zeroHash, zeroHash, zeroHash}
		if filter.Account != nil {
			topics[3] = addressTopic(*filter.Account)
		}
		queries = [][]common.Hash{topics}
	default:
		topics := []common.Hash{eventID(kind), zeroHash, zeroHash}
		if filter.Token != nil {
			topics[1] = addressTopic(filter.Token.Address)
		}
		if filter.Account != nil {
			topics[2] = addressTopic(*filter.Account)
		}
		queries = [][]common.Hash{topics}
	}

	var events []Event
	for _, topics := range queries {
		rawLogs, err := a.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{a.contract},
			Topics:    expandTopics(topics),
		})
		if err != nil {
			return nil, fmt.Errorf("filter %s logs in blocks [%d, %d]: %w", kind, start, end, err)
		}

		for _, rawLog := range rawLogs {
			event, err := a.parseLog(ctx, kind, rawLog, filter, headerTimes)
			if err != nil {
				return nil, err
			}
			if event == nil {
				continue
			}
			events = append(events, event)
		}
	}
	return events, nil
}

// parseLog decodes one raw log into its typed event. Malformed logs are
// skipped rather than failing the fetch.
func (a *Aggregator) parseLog(ctx context.Context, kind Kind, rawLog types.Log, filter Filter, headerTimes map[uint64]int64) (Event, error) {
	wantTopics := 3
	if kind == KindSwapTrade {
		wantTopics = 4
	}
	if len(rawLog.Topics) != wantTopics {
		a.logger.Warn("skipping malformed log", "kind", kind.String(), "topics", len(rawLog.Topics), "block", rawLog.BlockNumber)
		return nil, nil
	}

	data, err := mabi.MaelstromABI.Unpack(eventName(kind), rawLog.Data)
	if err != nil {
		a.logger.Warn("skipping undecodable log", "kind", kind.String(), "block", rawLog.BlockNumber, "error", err)
		return nil, nil
	}

	timestamp, err := a.timestampAt(ctx, rawLog.BlockNumber, headerTimes)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindBuyTrade:
		token, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[1]), filter.Token)
		if err != nil {
			return nil, err
		}
		return &BuyTrade{
			Token:           token,
			Trader:          topicAddress(rawLog.Topics[2]),
			BaseAmount:      data[0].(*big.Int),
			TokenAmount:     data[1].(*big.Int),
			TradeBuyPrice:   data[2].(*big.Int),
			UpdatedBuyPrice: data[3].(*big.Int),
			SellPrice:       data[4].(*big.Int),
			Timestamp:       timestamp,
		}, nil
	case KindSellTrade:
		token, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[1]), filter.Token)
		if err != nil {
			return nil, err
		}
		return &SellTrade{
			Token:            token,
			Trader:           topicAddress(rawLog.Topics[2]),
			TokenAmount:      data[0].(*big.Int),
			BaseAmount:       data[1].(*big.Int),
			TradeSellPrice:   data[2].(*big.Int),
			UpdatedSellPrice: data[3].(*big.Int),
			BuyPrice:         data[4].(*big.Int),
			Timestamp:        timestamp,
		}, nil
	case KindSwapTrade:
		sold, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[1]), filter.Token)
		if err != nil {
			return nil, err
		}
		bought, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[2]), filter.Token)
		if err != nil {
			return nil, err
		}
		return &SwapTrade{
			TokenSold:        sold,
			TokenBought:      bought,
			Trader:           topicAddress(rawLog.Topics[3]),
			AmountSold:       data[0].(*big.Int),
			AmountBought:     data[1].(*big.Int),
			TradeSellPrice:   data[2].(*big.Int),
			UpdatedSellPrice: data[3].(*big.Int),
			TradeBuyPrice:    data[4].(*big.Int),
			UpdatedBuyPrice:  data[5].(*big.Int),
			Timestamp:        timestamp,
		}, nil
	case KindDeposit:
		token, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[1]), filter.Token)
		if err != nil {
			return nil, err
		}
		return &Deposit{
			Token:       token,
			User:        topicAddress(rawLog.Topics[2]),
			BaseAmount:  data[0].(*big.Int),
			TokenAmount: data[1].(*big.Int),
			LPMinted:    data[2].(*big.Int),
			Timestamp:   timestamp,
		}, nil
	case KindWithdraw:
		token, err := a.tokenAt(ctx, topicAddress(rawLog.Topics[1]), filter.Token)
		if err != nil {
			return nil, err
		}
		return &Withdraw{
			Token:       token,
			User:        topicAddress(rawLog.Topics[2]),
			BaseAmount:  data[0].(*big.Int),
			TokenAmount: data[1].(*big.Int),
			LPBurned:    data[2].(*big.Int),
			Timestamp:   timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %d", kind)
	}
}

// tokenAt resolves token metadata, reusing the filter token when the address
// matches so filtered fetches cost no extra metadata reads.
func (a *Aggregator) tokenAt(ctx context.Context, addr common.Address, hint *maelstrom.Token) (maelstrom.Token, error) {
	if hint != nil && hint.Address == addr {
		return *hint, nil
	}
	token, err := a.resolveToken(ctx, addr)
	if err != nil {
		return maelstrom.Token{}, fmt.Errorf("resolve token %s: %w", addr.Hex(), err)
	}
	return token, nil
}

// timestampAt reads a block header's timestamp in unix milliseconds, caching
// per fetch since one block often carries many events.
func (a *Aggregator) timestampAt(ctx context.Context, blockNumber uint64, cache map[uint64]int64) (int64, error) {
	if ts, ok := cache[blockNumber]; ok {
		return ts, nil
	}
	header, err := a.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("header at %d: %w", blockNumber, err)
	}
	ts := int64(header.Time) * 1000
	cache[blockNumber] = ts
	return ts, nil
}

var zeroHash common.Hash

func eventID(kind Kind) common.Hash {
	switch kind {
	case KindBuyTrade:
		return BuyTradeEvent
	case KindSellTrade:
		return SellTradeEvent
	case KindSwapTrade:
		return SwapTradeEvent
	case KindDeposit:
		return DepositEvent
	default:
		return WithdrawEvent
	}
}

func eventName(kind Kind) string {
	switch kind {
	case KindBuyTrade:
		return "BuyTrade"
	case KindSellTrade:
		return "SellTrade"
	case KindSwapTrade:
		return "SwapTrade"
	case KindDeposit:
		return "Deposit"
	default:
		return "Withdraw"
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes())
}

// expandTopics converts a flat topic list into the filter query shape, where
// a zero hash at a position means "match anything there".
func expandTopics(topics []common.Hash) [][]common.Hash {
	expanded := make([][]common.Hash, len(topics))
	for i, topic := range topics {
		if topic == zeroHash {
			expanded[i] = nil
			continue
		}
		expanded[i] = []common.Hash{topic}
	}
	return expanded
}
