// velocity-cli manages HD accounts and reads their ledger state.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/velocity-wallet/velocity/config"
	"github.com/velocity-wallet/velocity/internal/accounts"
	"github.com/velocity-wallet/velocity/internal/ledger"
	"github.com/velocity-wallet/velocity/internal/log"
	"github.com/velocity-wallet/velocity/internal/session"
	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/types"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Version {
		fmt.Printf("velocity-cli version %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if !flags.Help {
			os.Exit(1)
		}
		return
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]
	log.CLI.Debug().Str("command", cmd).Msg("Running command")

	// Commands that never touch wallet storage.
	switch cmd {
	case "mnemonic":
		cmdMnemonic(cmdArgs)
		return
	case "derive":
		cmdDerive(cmdArgs)
		return
	case "help":
		usage()
		return
	}

	s := openSession(cfg)
	defer s.Close()

	switch cmd {
	case "account":
		cmdAccount(s, cmdArgs)
	case "disconnect":
		cmdDisconnect(s, cmdArgs)
	case "network":
		cmdNetwork(s, cmdArgs)
	case "balance":
		cmdBalance(s)
	case "history":
		cmdHistory(s)
	case "tx":
		cmdTx(s, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: velocity-cli [global flags] <command> [flags]

%s
Commands:
  mnemonic new [--words 12|24]    Generate a recovery phrase
  mnemonic check                  Validate a recovery phrase

  account create [--label <l>]    Create an account from a fresh phrase
  account restore [--index <n>] [--label <l>] [--scan <n>]
                                  Restore an account from a phrase
  account list                    List accounts
  account show [<i>] [--secret]   Show an account (default: active)
  account switch <i>              Make account <i> active
  account rename <i> <label>      Rename account <i>
  account delete <i>              Delete account <i>
  disconnect --yes                Remove every account from this device

  network                         Show the selected network
  network set <name>              Select mainnet, devnet or testnet
  balance                         Show the active account's balance
  history                         Show recent transactions
  tx <signature>                  Show a transaction

  derive [--path <p>] [--index <n>]
                                  Derive a key without storing it
`, config.FlagUsage)
}

func openSession(cfg *config.Config) *session.Session {
	var passphrase []byte
	if cfg.Wallet.Encrypt {
		if p, ok := cfg.Passphrase(); ok {
			passphrase = []byte(p)
		} else {
			p, err := readSecret("Wallet passphrase: ")
			if err != nil {
				fatal("read passphrase: %v", err)
			}
			passphrase = p
		}
	}

	s, err := session.Open(cfg, passphrase)
	if errors.Is(err, accounts.ErrCorruptState) {
		fmt.Fprintf(os.Stderr, "Warning: stored accounts were unreadable and have been set aside (%v)\n", err)
	} else if err != nil {
		fatal("open wallet: %v", err)
	}
	return s
}

// ── mnemonic ────────────────────────────────────────────────────────────

func cmdMnemonic(args []string) {
	if len(args) < 1 {
		fatal("Usage: velocity-cli mnemonic <new|check>")
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("mnemonic new", flag.ExitOnError)
		words := fs.Int("words", 12, "Number of words (12, 15, 18, 21 or 24)")
		fs.Parse(args[1:])

		bits := *words / 3 * 32
		if wallet.WordCount(bits) != *words {
			fatal("unsupported word count %d", *words)
		}
		phrase, err := wallet.GenerateMnemonic(bits)
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		fmt.Println(phrase)
	case "check":
		phrase := readPhrase()
		if !wallet.ValidateMnemonic(phrase) {
			fatal("invalid mnemonic")
		}
		fmt.Printf("Valid %d-word mnemonic\n", len(strings.Fields(phrase)))
	default:
		fatal("Unknown mnemonic command: %s", args[0])
	}
}

// ── account ─────────────────────────────────────────────────────────────

func cmdAccount(s *session.Session, args []string) {
	if len(args) < 1 {
		fatal("Usage: velocity-cli account <create|restore|list|show|switch|rename|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdAccountCreate(s, args[1:])
	case "restore":
		cmdAccountRestore(s, args[1:])
	case "list":
		cmdAccountList(s)
	case "show":
		cmdAccountShow(s, args[1:])
	case "switch":
		i := parsePosition(args[1:], "Usage: velocity-cli account switch <i>")
		if err := s.Switch(i); err != nil {
			fatal("switch: %v", err)
		}
		acct, _ := s.Store.Active()
		fmt.Printf("Switched to %s\n", acct.DisplayName(i))
	case "rename":
		if len(args) < 3 {
			fatal("Usage: velocity-cli account rename <i> <label>")
		}
		i := parsePosition(args[1:2], "Usage: velocity-cli account rename <i> <label>")
		if err := s.Store.Rename(i, strings.Join(args[2:], " ")); err != nil {
			fatal("rename: %v", err)
		}
		fmt.Println("Account renamed.")
	case "delete":
		i := parsePosition(args[1:], "Usage: velocity-cli account delete <i>")
		if err := s.Delete(i); err != nil {
			if errors.Is(err, accounts.ErrLastAccount) {
				fatal("cannot delete the last account (use disconnect to remove everything)")
			}
			fatal("delete: %v", err)
		}
		fmt.Println("Account deleted.")
	default:
		fatal("Unknown account command: %s", args[0])
	}
}

func cmdAccountCreate(s *session.Session, args []string) {
	fs := flag.NewFlagSet("account create", flag.ExitOnError)
	label := fs.String("label", "", "Account label")
	fs.Parse(args)

	acct, err := s.Create(*label)
	if err != nil {
		fatal("create account: %v", err)
	}

	fmt.Println("Recovery phrase (write this down!):")
	fmt.Printf("  %s\n\n", acct.Mnemonic)
	fmt.Printf("Account:    %s\n", acct.DisplayName(s.Store.Len()-1))
	fmt.Printf("Public key: %s\n", acct.PublicKey)
}

func cmdAccountRestore(s *session.Session, args []string) {
	fs := flag.NewFlagSet("account restore", flag.ExitOnError)
	index := fs.Uint64("index", 0, "Derivation index")
	label := fs.String("label", "", "Account label")
	scan := fs.Uint64("scan", 0, "List the first <n> derived keys and exit")
	fs.Parse(args)

	idx := accountIndex(*index)
	if *scan > wallet.MaxScanWindow {
		fatal("--scan must be at most %d", wallet.MaxScanWindow)
	}

	phrase := readPhrase()
	if !wallet.ValidateMnemonic(phrase) {
		fatal("invalid mnemonic")
	}

	if *scan > 0 {
		accts, err := wallet.DeriveAccounts(phrase, idx, uint32(*scan))
		if err != nil {
			fatal("scan: %v", err)
		}
		for _, a := range accts {
			fmt.Printf("%6d  %s\n", a.Index, a.PublicKey)
		}
		return
	}

	acct, err := s.Restore(phrase, idx, *label)
	if err != nil {
		fatal("restore account: %v", err)
	}
	fmt.Printf("Account restored: %s\n", acct.DisplayName(s.Store.Len()-1))
	fmt.Printf("Public key:       %s\n", acct.PublicKey)
}

func cmdAccountList(s *session.Session) {
	accts := s.Store.Accounts()
	if len(accts) == 0 {
		fmt.Println("No accounts. Run 'velocity-cli account create' to make one.")
		return
	}
	active := s.Store.ActiveIndex()
	for i, a := range accts {
		marker := " "
		if i == active {
			marker = "*"
		}
		fmt.Printf("%s %2d  %-20s  %s  (index %d)\n", marker, i, a.DisplayName(i), a.PublicKey, a.Index)
	}
}

func cmdAccountShow(s *session.Session, args []string) {
	fs := flag.NewFlagSet("account show", flag.ExitOnError)
	secret := fs.Bool("secret", false, "Also print the recovery phrase and private key")
	fs.Parse(args)

	i := s.Store.ActiveIndex()
	if fs.NArg() > 0 {
		i = parsePosition(fs.Args(), "Usage: velocity-cli account show [<i>] [--secret]")
	}
	accts := s.Store.Accounts()
	if i < 0 || i >= len(accts) {
		fatal("no account at position %d", i)
	}
	a := accts[i]
	path, _ := wallet.AccountPath(a.Index)

	fmt.Printf("Account:    %s\n", a.DisplayName(i))
	fmt.Printf("Path:       %s\n", path)
	fmt.Printf("Public key: %s\n", a.PublicKey)
	if *secret {
		fmt.Printf("Mnemonic:   %s\n", a.Mnemonic)
		fmt.Printf("Private key: %s\n", a.PrivateKey)
	}
}

func cmdDisconnect(s *session.Session, args []string) {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm removal of every account")
	fs.Parse(args)

	if !*yes {
		fatal("disconnect removes every account and cannot be undone; re-run with --yes")
	}
	if err := s.Disconnect(); err != nil {
		fatal("disconnect: %v", err)
	}
	fmt.Println("Wallet disconnected.")
}

// ── network ─────────────────────────────────────────────────────────────

func cmdNetwork(s *session.Session, args []string) {
	if len(args) == 0 {
		fmt.Println(s.Store.Network())
		return
	}
	if args[0] != "set" || len(args) < 2 {
		fatal("Usage: velocity-cli network [set <mainnet|devnet|testnet>]")
	}
	n, err := types.ParseNetwork(args[1])
	if err != nil {
		fatal("%v", err)
	}
	if err := s.SetNetwork(n); err != nil {
		fatal("set network: %v", err)
	}
	fmt.Printf("Network set to %s\n", n)
}

// ── ledger ──────────────────────────────────────────────────────────────

func ledgerContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	return ctx, func() {
		cancel()
		stop()
	}
}

func refresh(s *session.Session) ledger.Snapshot {
	ctx, cancel := ledgerContext()
	defer cancel()

	snap, err := s.Refresh(ctx)
	if errors.Is(err, accounts.ErrNoAccounts) {
		fatal("no accounts")
	}
	if err != nil {
		fatal("%v", err)
	}
	return snap
}

func cmdBalance(s *session.Session) {
	snap := refresh(s)
	fmt.Printf("Address: %s\n", snap.PublicKey)
	fmt.Printf("Network: %s\n", snap.Network)
	fmt.Printf("Balance: %s\n", snap.Balance)
}

func cmdHistory(s *session.Session) {
	snap := refresh(s)
	if len(snap.Transactions) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, tx := range snap.Transactions {
		status := "ok"
		if !tx.Success {
			status = "failed"
		}
		when := "pending"
		if tx.BlockTime != nil {
			when = time.Unix(*tx.BlockTime, 0).UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-19s  %-6s  %s\n", when, status, tx.Signature)
	}
}

func cmdTx(s *session.Session, args []string) {
	if len(args) < 1 {
		fatal("Usage: velocity-cli tx <signature>")
	}
	ctx, cancel := ledgerContext()
	defer cancel()

	raw, err := s.Transaction(ctx, args[0])
	if err != nil {
		fatal("%v", err)
	}
	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fatal("decode transaction: %v", err)
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}

// ── derive ──────────────────────────────────────────────────────────────

func cmdDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	pathStr := fs.String("path", "", "Hardened derivation path (default: m/44'/501'/<index>'/0')")
	index := fs.Uint64("index", 0, "Account index when --path is not given")
	withPass := fs.Bool("passphrase", false, "Prompt for a BIP-39 passphrase")
	fs.Parse(args)

	phrase := readPhrase()
	if !wallet.ValidateMnemonic(phrase) {
		fatal("invalid mnemonic")
	}

	var (
		path wallet.Path
		err  error
	)
	if *pathStr != "" {
		path, err = wallet.ParsePath(*pathStr)
	} else {
		path, err = wallet.AccountPath(accountIndex(*index))
	}
	if err != nil {
		fatal("%v", err)
	}

	var passphrase string
	if *withPass {
		p, err := readSecret("BIP-39 passphrase: ")
		if err != nil {
			fatal("read passphrase: %v", err)
		}
		passphrase = string(p)
	}

	seed := wallet.SeedFromMnemonic(wallet.NormalizeMnemonic(phrase), passphrase)
	derived, err := wallet.DeriveSeed(seed, path)
	if err != nil {
		fatal("derive: %v", err)
	}
	kp, err := wallet.KeypairFromSeed(derived)
	if err != nil {
		fatal("keypair: %v", err)
	}
	fmt.Printf("Path:       %s\n", path)
	fmt.Printf("Public key: %s\n", wallet.EncodeKey(kp.PublicKey))
}

// ── Input helpers ───────────────────────────────────────────────────────

func parsePosition(args []string, usageMsg string) int {
	if len(args) < 1 {
		fatal("%s", usageMsg)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		fatal("invalid position %q", args[0])
	}
	return i
}

func accountIndex(v uint64) uint32 {
	idx, err := wallet.AccountIndex(v)
	if err != nil {
		fatal("--index: %v", err)
	}
	return idx
}

// readPhrase reads a recovery phrase without echo on a terminal, or one
// line from stdin otherwise.
func readPhrase() string {
	p, err := readSecret("Recovery phrase: ")
	if err != nil {
		fatal("read phrase: %v", err)
	}
	return wallet.NormalizeMnemonic(string(p))
}

func readSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
