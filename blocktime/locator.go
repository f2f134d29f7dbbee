// Package blocktime locates the chain position closest to a wall-clock
// moment. Block timestamps increase monotonically with position, which makes
// the mapping binary-searchable in O(log head) header reads instead of a
// linear walk.
package blocktime

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethclients "github.com/Iwinswap/iwinswap-ethclients"
)

// TimestampFunc reports the unix-millisecond timestamp of a chain position.
type TimestampFunc func(ctx context.Context, position uint64) (int64, error)

// HeadFunc reports the latest chain position.
type HeadFunc func(ctx context.Context) (uint64, error)

// Locator answers "which position was current at time T" against a live
// chain. It holds no state between calls; all reads go through the injected
// functions.
type Locator struct {
	timestampAt TimestampFunc
	head        HeadFunc
}

// NewLocator builds a Locator over a ledger client, reporting header
// timestamps in unix milliseconds.
func NewLocator(client ethclients.ETHClient) *Locator {
	return &Locator{
		timestampAt: func(ctx context.Context, position uint64) (int64, error) {
			header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(position))
			if err != nil {
				return 0, fmt.Errorf("header at %d: %w", position, err)
			}
			return int64(header.Time) * 1000, nil
		},
		head: client.BlockNumber,
	}
}

// NewLocatorFromFuncs builds a Locator from raw lookup functions. Intended
// for tests and for callers that already cache headers.
func NewLocatorFromFuncs(timestampAt TimestampFunc, head HeadFunc) *Locator {
	return &Locator{timestampAt: timestampAt, head: head}
}

// PositionBefore returns the largest position whose timestamp is at or before
// now minus offset. If even position 0 is newer than that moment, the chain
// has no data for the window and 0 is returned so callers scan from genesis.
func (l *Locator) PositionBefore(ctx context.Context, now time.Time, offset time.Duration) (uint64, error) {
	target := now.UnixMilli() - offset.Milliseconds()

	hi, err := l.head(ctx)
	if err != nil {
		return 0, fmt.Errorf("read chain head: %w", err)
	}

	var (
		lo    uint64
		best  uint64
		found bool
	)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ts, err := l.timestampAt(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ts <= target {
			best = mid
			found = true
			lo = mid + 1
		} else {
			if mid == 0 {
				break
			}
			hi = mid - 1
		}
	}

	if !found {
		return 0, nil
	}
	return best, nil
}
