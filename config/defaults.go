package config

import (
	"time"

	"github.com/velocity-wallet/velocity/pkg/types"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Network: types.DefaultNetwork,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Timeout:   15 * time.Second,
			RateLimit: 10,
		},
		Wallet: WalletConfig{
			Store:         StoreBadger,
			PassphraseEnv: "VELOCITY_PASSPHRASE",
		},
		Ledger: LedgerConfig{
			HistoryLimit: 10,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
