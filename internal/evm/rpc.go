// Package evm provides narrow read access to an EVM-style ledger over
// JSON-RPC, plus a websocket feed of new block heads.
package evm

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the ledger has no data for the request
// (unknown block, unmined transaction). Distinct from transient I/O
// failures, which are wrapped and retryable.
var ErrNotFound = errors.New("not found")

// IsTransient reports whether an error from a Reader call should be
// treated as a ledger hiccup and retried on a later tick.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound)
}

// Reader defines the ledger read capability the bot consumes.
type Reader interface {
	// LatestBlockNumber returns the current chain head height.
	LatestBlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber retrieves a block with full transactions.
	// Returns ErrNotFound if the block does not exist yet.
	BlockByNumber(ctx context.Context, number uint64) (*Block, error)

	// TransactionReceipt retrieves the receipt for a mined transaction.
	// Returns ErrNotFound if the transaction is unknown or pending.
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)

	// CallContract executes a read-only eth_call against the given
	// contract with ABI-packed calldata and returns the raw result.
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
}
