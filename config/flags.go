package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/velocity-wallet/velocity/pkg/types"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Ledger RPC
	RPCURL    string
	Timeout   time.Duration
	RateLimit int

	// Wallet
	Memory  bool
	Encrypt bool

	// Ledger
	HistoryLimit int

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (the subcommand and its arguments)
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetEncrypt   bool
	SetLogJSON   bool
	SetRateLimit bool
}

// ParseFlags parses global flags from args (without the program name).
// Parsing stops at the first non-flag argument, which begins the command.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("velocity", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network: mainnet, devnet or testnet")
	fs.StringVar(&f.Network, "n", "", "Network (shorthand)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Ledger RPC
	fs.StringVar(&f.RPCURL, "rpc", "", "Ledger RPC endpoint for the selected network")
	fs.DurationVar(&f.Timeout, "rpc-timeout", 0, "Ledger RPC timeout")
	fs.IntVar(&f.RateLimit, "rpc-ratelimit", 0, "Ledger requests per second (0 = unlimited)")

	// Wallet
	fs.BoolVar(&f.Memory, "memory", false, "Keep wallet state in memory only")
	fs.BoolVar(&f.Encrypt, "encrypt", false, "Encrypt wallet state with a passphrase")

	// Ledger
	fs.IntVar(&f.HistoryLimit, "history-limit", 0, "Number of recent transactions to fetch")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetEncrypt = isFlagSet(fs, "encrypt")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetRateLimit = isFlagSet(fs, "rpc-ratelimit")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) error {
	// Core
	if f.Network != "" {
		n, err := types.ParseNetwork(f.Network)
		if err != nil {
			return err
		}
		cfg.Network = n
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Ledger RPC
	if f.RPCURL != "" {
		cfg.SetEndpoint(cfg.Network, f.RPCURL)
	}
	if f.Timeout != 0 {
		cfg.RPC.Timeout = f.Timeout
	}
	if f.SetRateLimit {
		cfg.RPC.RateLimit = f.RateLimit
	}

	// Wallet
	if f.Memory {
		cfg.Wallet.Store = StoreMemory
	}
	if f.SetEncrypt {
		cfg.Wallet.Encrypt = f.Encrypt
	}

	// Ledger
	if f.HistoryLimit != 0 {
		cfg.Ledger.HistoryLimit = f.HistoryLimit
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
	return nil
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// FlagUsage describes the global flags for command help output.
const FlagUsage = `Global flags:
  --network, -n     mainnet, devnet (default) or testnet
  --datadir         Data directory (default: ~/.velocity)
  --config, -c      Config file path (default: <datadir>/velocity.conf)
  --rpc             Ledger RPC endpoint for the selected network
  --rpc-timeout     Ledger RPC timeout (default: 15s)
  --rpc-ratelimit   Ledger requests per second, 0 = unlimited (default: 10)
  --memory          Keep wallet state in memory only
  --encrypt         Encrypt wallet state with a passphrase
  --history-limit   Recent transactions to fetch (default: 10)
  --log-level       debug, info, warn (default), error or off
  --log-file        Log file path (default: stderr)
  --log-json        Output logs as JSON
`

// Load resolves configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
//
// When --help or --version is given, the returned Config is nil.
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// A memory-only session leaves nothing on disk.
	if !flags.Memory {
		if err := EnsureDataDirs(cfg); err != nil {
			return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
		}
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	if err := ApplyFlags(cfg, flags); err != nil {
		return nil, nil, fmt.Errorf("applying flags: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.WalletDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

// Passphrase returns the storage passphrase from the configured
// environment variable, if set.
func (c *Config) Passphrase() (string, bool) {
	if c.Wallet.PassphraseEnv == "" {
		return "", false
	}
	v, ok := os.LookupEnv(c.Wallet.PassphraseEnv)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
