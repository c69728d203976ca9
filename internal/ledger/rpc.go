package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/velocity-wallet/velocity/internal/log"
	"github.com/velocity-wallet/velocity/internal/rpcclient"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// Default public endpoints.
const (
	MainnetEndpoint = "https://api.mainnet-beta.solana.com"
	DevnetEndpoint  = "https://api.devnet.solana.com"
	TestnetEndpoint = "https://api.testnet.solana.com"
)

// Breaker tuning. A network's breaker opens once at least
// BreakerMinRequests calls were made in the current interval and the
// failure ratio reached BreakerFailureRatio.
var (
	BreakerMinRequests  uint32 = 5
	BreakerFailureRatio        = 0.6
	BreakerOpenTimeout         = 30 * time.Second
)

// Endpoints maps each network to its JSON-RPC URL.
type Endpoints map[types.Network]string

// DefaultEndpoints returns the public cluster URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		types.Mainnet: MainnetEndpoint,
		types.Devnet:  DevnetEndpoint,
		types.Testnet: TestnetEndpoint,
	}
}

// RPCOptions configures an RPCClient.
type RPCOptions struct {
	Timeout   time.Duration
	RateLimit int // requests per second; 0 disables pacing
}

type network struct {
	rpc     *rpcclient.Client
	breaker *gobreaker.CircuitBreaker
}

// RPCClient implements Client over JSON-RPC. Calls are paced by a shared
// rate limiter and guarded by a circuit breaker per network.
type RPCClient struct {
	networks map[types.Network]*network
	limiter  ratelimit.Limiter
	logger   zerolog.Logger
}

// NewRPCClient creates a client for the given endpoints.
func NewRPCClient(endpoints Endpoints, opts RPCOptions) *RPCClient {
	c := &RPCClient{
		networks: make(map[types.Network]*network, len(endpoints)),
		limiter:  ratelimit.NewUnlimited(),
		logger:   log.Ledger,
	}
	if opts.RateLimit > 0 {
		c.limiter = ratelimit.New(opts.RateLimit)
	}
	for n, url := range endpoints {
		if url == "" {
			continue
		}
		c.networks[n] = &network{
			rpc:     rpcclient.NewWithTimeout(url, opts.Timeout),
			breaker: newBreaker(n, c.logger),
		}
	}
	return c
}

func newBreaker(n types.Network, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ledger-" + n.String(),
		Timeout: BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= BreakerMinRequests && ratio >= BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Ledger circuit state changed")
		},
	})
}

// call runs one JSON-RPC request against network. Every failure wraps
// ErrUnavailable except a missing endpoint.
func (c *RPCClient) call(ctx context.Context, n types.Network, method string, params, result any) error {
	nw, ok := c.networks[n]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, n)
	}

	c.limiter.Take()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, method, err)
	}

	var callErr error
	_, err := nw.breaker.Execute(func() (interface{}, error) {
		callErr = nw.rpc.CallContext(ctx, method, params, result)
		if callErr != nil && ctx.Err() != nil {
			// Abandoned by the caller; not a ledger failure.
			return nil, nil
		}
		return nil, callErr
	})
	if err == nil {
		err = callErr
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("network", n.String()).Msg("Ledger call failed")
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, method, err)
	}
	return nil
}

// GetBalance implements Client.
func (c *RPCClient) GetBalance(ctx context.Context, publicKey string, n types.Network) (Lamports, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, n, "getBalance", []any{publicKey}, &result); err != nil {
		return 0, err
	}
	return Lamports(result.Value), nil
}

// signatureInfo is one entry of a getSignaturesForAddress result.
type signatureInfo struct {
	Signature string          `json:"signature"`
	BlockTime *int64          `json:"blockTime"`
	Err       json.RawMessage `json:"err"`
}

// GetSignatures implements Client.
func (c *RPCClient) GetSignatures(ctx context.Context, publicKey string, n types.Network, limit int) ([]Transaction, error) {
	params := []any{publicKey, map[string]any{"limit": clampLimit(limit)}}
	var result []signatureInfo
	if err := c.call(ctx, n, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(result))
	for _, s := range result {
		txs = append(txs, Transaction{
			Signature: s.Signature,
			BlockTime: s.BlockTime,
			Success:   len(s.Err) == 0 || bytes.Equal(s.Err, []byte("null")),
		})
	}
	return txs, nil
}

// GetTransaction implements Client.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string, n types.Network) (json.RawMessage, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	}}
	var result json.RawMessage
	if err := c.call(ctx, n, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	return result, nil
}
