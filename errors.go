package maelstrom

import (
	"errors"
	"fmt"
)

// ErrPoolExists is returned when attempting to add a pool that is already in the registry.
var ErrPoolExists = errors.New("pool already exists in registry")

// ErrPoolNotFound is returned when attempting to access a pool that is not in the registry.
var ErrPoolNotFound = errors.New("pool not found in registry")

// ConfigError indicates an unsupported network: no contract address is known
// for the chain. It is fatal and must prevent any further ledger calls.
type ConfigError struct {
	ChainID uint64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no maelstrom contract deployed on chain %d", e.ChainID)
}

// ReadError wraps a failed ledger query with the operation that issued it.
// A missing value never resolves to a silent default.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// RangeError indicates an index-range query outside the valid bounds.
type RangeError struct {
	Op    string
	Start uint64
	End   uint64
	Count uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: range [%d, %d] invalid for %d pools", e.Op, e.Start, e.End, e.Count)
}

// ExecError wraps a failed mutating action (the capability grant or the main
// call) with an action-specific prefix, preserving the original message.
type ExecError struct {
	Action string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// RefreshError indicates a failure during a periodic pool-list refresh cycle.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("pool refresh: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// determineErrorType maps an error to a low-cardinality label for metrics.
func determineErrorType(err error) string {
	var (
		configErr  *ConfigError
		readErr    *ReadError
		execErr    *ExecError
		rangeErr   *RangeError
		refreshErr *RefreshError
	)
	switch {
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &rangeErr):
		return "range"
	case errors.As(err, &readErr):
		return "read"
	case errors.As(err, &execErr):
		return "exec"
	case errors.As(err, &refreshErr):
		return "refresh"
	case errors.Is(err, ErrPoolNotFound), errors.Is(err, ErrPoolExists):
		return "registry"
	default:
		return "unknown"
	}
}
