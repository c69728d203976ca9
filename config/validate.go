package config

import (
	"fmt"
	"net/url"
)

// maxHistoryLimit mirrors the ledger's page cap.
const maxHistoryLimit = 1000

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !cfg.Network.Valid() {
		return fmt.Errorf("network must be mainnet, devnet or testnet, got %q", cfg.Network)
	}
	if cfg.DataDir == "" && cfg.Wallet.Store == StoreBadger {
		return fmt.Errorf("datadir is required for wallet.store=badger")
	}

	switch cfg.Wallet.Store {
	case StoreBadger, StoreMemory:
	case "":
		cfg.Wallet.Store = StoreBadger
	default:
		return fmt.Errorf("wallet.store must be %q or %q", StoreBadger, StoreMemory)
	}

	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.RPC.RateLimit < 0 {
		return fmt.Errorf("rpc.ratelimit must be >= 0")
	}
	for n, endpoint := range cfg.Endpoints() {
		if err := validateEndpoint(endpoint); err != nil {
			return fmt.Errorf("rpc.%s: %w", n, err)
		}
	}

	if cfg.Ledger.HistoryLimit < 1 || cfg.Ledger.HistoryLimit > maxHistoryLimit {
		return fmt.Errorf("ledger.history_limit must be in range [1, %d]", maxHistoryLimit)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "disabled", "off":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, error or off")
	}
	return nil
}

func validateEndpoint(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q must be http or https", s)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", s)
	}
	return nil
}
