// Package ledger fetches balance and history for an account and keeps the
// last good result for the active account.
package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/velocity-wallet/velocity/pkg/types"
)

// DefaultHistoryLimit is the number of signatures requested per refresh.
const DefaultHistoryLimit = 10

// MaxHistoryLimit is the largest page the ledger accepts.
const MaxHistoryLimit = 1000

// Ledger errors.
var (
	ErrUnavailable         = errors.New("ledger unavailable")
	ErrStale               = errors.New("stale ledger result")
	ErrUnknownNetwork      = errors.New("no endpoint for network")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Transaction summarizes one signature affecting an account.
type Transaction struct {
	Signature string `json:"signature"`
	BlockTime *int64 `json:"blockTime"`
	Success   bool   `json:"success"`
}

// Client is the external ledger the wallet reads from.
type Client interface {
	// GetBalance returns the account balance in lamports.
	GetBalance(ctx context.Context, publicKey string, network types.Network) (Lamports, error)
	// GetSignatures returns up to limit transactions, newest first.
	GetSignatures(ctx context.Context, publicKey string, network types.Network, limit int) ([]Transaction, error)
	// GetTransaction returns the parsed transaction as raw JSON.
	GetTransaction(ctx context.Context, signature string, network types.Network) (json.RawMessage, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
