// Package config handles application configuration.
//
// Values are resolved in order: built-in defaults, the .conf file in the
// data directory, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/velocity-wallet/velocity/pkg/types"
)

// StoreType selects the wallet storage backend.
type StoreType string

const (
	StoreBadger StoreType = "badger" // on-disk, survives restarts (default)
	StoreMemory StoreType = "memory" // process lifetime only
)

// Config holds runtime wallet configuration.
type Config struct {
	// Core
	Network types.Network `conf:"network"`
	DataDir string        `conf:"datadir"`

	// Ledger RPC
	RPC RPCConfig

	// Wallet storage
	Wallet WalletConfig

	// Ledger sync
	Ledger LedgerConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds ledger endpoint settings. An empty endpoint means the
// public default for that network.
type RPCConfig struct {
	Mainnet   string        `conf:"rpc.mainnet"`
	Devnet    string        `conf:"rpc.devnet"`
	Testnet   string        `conf:"rpc.testnet"`
	Timeout   time.Duration `conf:"rpc.timeout"`
	RateLimit int           `conf:"rpc.ratelimit"` // requests per second, 0 = unlimited
}

// WalletConfig holds wallet storage settings.
type WalletConfig struct {
	Store         StoreType `conf:"wallet.store"`
	Encrypt       bool      `conf:"wallet.encrypt"`
	PassphraseEnv string    `conf:"wallet.passphrase_env"` // env var holding the storage passphrase
}

// LedgerConfig holds ledger sync settings.
type LedgerConfig struct {
	HistoryLimit int `conf:"ledger.history_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.velocity
//	macOS:   ~/Library/Application Support/Velocity
//	Windows: %APPDATA%\Velocity
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".velocity"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Velocity")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Velocity")
		}
		return filepath.Join(home, "AppData", "Roaming", "Velocity")
	default:
		return filepath.Join(home, ".velocity")
	}
}

// Endpoints returns the configured endpoint overrides by network.
// Networks without an override are omitted.
func (c *Config) Endpoints() map[types.Network]string {
	out := make(map[types.Network]string, 3)
	for n, url := range map[types.Network]string{
		types.Mainnet: c.RPC.Mainnet,
		types.Devnet:  c.RPC.Devnet,
		types.Testnet: c.RPC.Testnet,
	} {
		if url != "" {
			out[n] = url
		}
	}
	return out
}

// SetEndpoint overrides the endpoint for one network.
func (c *Config) SetEndpoint(n types.Network, url string) {
	switch n {
	case types.Mainnet:
		c.RPC.Mainnet = url
	case types.Devnet:
		c.RPC.Devnet = url
	case types.Testnet:
		c.RPC.Testnet = url
	}
}

// WalletDir returns the wallet database directory. Accounts are shared
// across networks, so the directory is not network-specific.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallet")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "velocity.conf")
}
