package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/velocity-wallet/velocity/pkg/types"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		n, err := types.ParseNetwork(value)
		if err != nil {
			return err
		}
		cfg.Network = n
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.mainnet":
		cfg.RPC.Mainnet = value
	case "rpc.devnet":
		cfg.RPC.Devnet = value
	case "rpc.testnet":
		cfg.RPC.Testnet = value
	case "rpc.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.RPC.Timeout = d
	case "rpc.ratelimit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.RateLimit = n

	// Wallet
	case "wallet.store":
		cfg.Wallet.Store = StoreType(strings.ToLower(value))
	case "wallet.encrypt":
		cfg.Wallet.Encrypt = parseBool(value)
	case "wallet.passphrase_env":
		cfg.Wallet.PassphraseEnv = value

	// Ledger
	case "ledger.history_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.HistoryLimit = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseDuration accepts Go durations ("15s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# Velocity wallet configuration

# Network: mainnet, devnet or testnet
network = devnet

# Data directory (default: ~/.velocity)
# datadir = ~/.velocity

# ============================================================================
# Ledger RPC
# ============================================================================

# Endpoint overrides (defaults are the public cluster endpoints)
# rpc.mainnet = https://api.mainnet-beta.solana.com
# rpc.devnet = https://api.devnet.solana.com
# rpc.testnet = https://api.testnet.solana.com

rpc.timeout = 15s
# Requests per second (0 = unlimited)
rpc.ratelimit = 10

# ============================================================================
# Wallet
# ============================================================================

# Storage backend: badger or memory
wallet.store = badger

# Encrypt stored accounts with a passphrase (Argon2id + XChaCha20-Poly1305)
wallet.encrypt = false
# Environment variable read for the passphrase before prompting
# wallet.passphrase_env = VELOCITY_PASSPHRASE

# ============================================================================
# Ledger
# ============================================================================

ledger.history_limit = 10

# ============================================================================
# Logging
# ============================================================================

log.level = warn
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
