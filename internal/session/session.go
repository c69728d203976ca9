// Package session wires the account store to ledger sync and turns every
// active-account change into a syncer retarget.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velocity-wallet/velocity/config"
	"github.com/velocity-wallet/velocity/internal/accounts"
	"github.com/velocity-wallet/velocity/internal/ledger"
	"github.com/velocity-wallet/velocity/internal/log"
	"github.com/velocity-wallet/velocity/internal/storage"
	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// Storage namespaces inside the wallet database.
var (
	walletPrefix = []byte("wallet/")
	prefsPrefix  = []byte("prefs/")
)

// ErrPassphraseRequired is returned by Open when encryption is enabled
// and no passphrase was supplied.
var ErrPassphraseRequired = errors.New("passphrase required for encrypted wallet")

// Session is one open wallet.
type Session struct {
	Store  *accounts.Store
	Syncer *ledger.Syncer
	client ledger.Client
	closer []func() error
}

// New composes a session from already-open parts.
func New(store *accounts.Store, client ledger.Client, historyLimit int) *Session {
	return &Session{
		Store:  store,
		Syncer: ledger.NewSyncer(client, historyLimit),
		client: client,
	}
}

// Open builds a session from configuration: it opens the storage backend,
// wraps it for encryption when enabled, loads accounts, and creates the
// ledger client. A corrupt-state warning from loading is returned
// alongside a usable session.
func Open(cfg *config.Config, passphrase []byte) (*Session, error) {
	var (
		db     storage.DB
		closer []func() error
	)
	switch cfg.Wallet.Store {
	case config.StoreMemory:
		db = storage.NewMemory()
	default:
		bdb, err := storage.NewBadger(cfg.WalletDir())
		if err != nil {
			return nil, err
		}
		db = bdb
	}
	closer = append(closer, db.Close)

	if cfg.Wallet.Encrypt {
		if len(passphrase) == 0 {
			db.Close()
			return nil, ErrPassphraseRequired
		}
		sealed := storage.NewSealedDB(db, passphrase, storage.DefaultParams())
		closer = append([]func() error{sealed.Close}, closer...)
		db = sealed
	}

	log.Storage.Debug().Str("store", string(cfg.Wallet.Store)).Bool("encrypted", cfg.Wallet.Encrypt).Msg("Storage opened")

	store := accounts.New(storage.NewPrefixDB(db, walletPrefix), storage.NewPrefixDB(db, prefsPrefix))
	if err := store.SetDefaultNetwork(cfg.Network); err != nil {
		for _, c := range closer {
			c()
		}
		return nil, err
	}
	loadErr := store.Load()
	if loadErr != nil && !errors.Is(loadErr, accounts.ErrCorruptState) {
		for _, c := range closer {
			c()
		}
		return nil, loadErr
	}

	endpoints := ledger.DefaultEndpoints()
	for n, url := range cfg.Endpoints() {
		endpoints[n] = url
	}
	client := ledger.NewRPCClient(endpoints, ledger.RPCOptions{
		Timeout:   cfg.RPC.Timeout,
		RateLimit: cfg.RPC.RateLimit,
	})

	s := New(store, client, cfg.Ledger.HistoryLimit)
	s.closer = closer
	s.retarget()
	log.Wallet.Debug().Int("accounts", store.Len()).Str("network", store.Network().String()).Msg("Session opened")
	return s, loadErr
}

// Close releases storage.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closer {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closer = nil
	return errors.Join(errs...)
}

// retarget points the syncer at the store's active account.
func (s *Session) retarget() {
	acct, err := s.Store.Active()
	if err != nil {
		s.Syncer.Reset()
		return
	}
	s.Syncer.Activate(acct.PublicKey, s.Store.Network())
}

// Create adds a fresh account and makes it active.
func (s *Session) Create(label string) (wallet.Account, error) {
	acct, err := s.Store.Create(label)
	if err == nil {
		s.retarget()
	}
	return acct, err
}

// Restore adds an account from a phrase and makes it active.
func (s *Session) Restore(phrase string, index uint32, label string) (wallet.Account, error) {
	acct, err := s.Store.Restore(phrase, index, label)
	if err == nil {
		s.retarget()
	}
	return acct, err
}

// Switch changes the active account.
func (s *Session) Switch(i int) error {
	if err := s.Store.Switch(i); err != nil {
		return err
	}
	s.retarget()
	return nil
}

// Delete removes an account.
func (s *Session) Delete(i int) error {
	if err := s.Store.Delete(i); err != nil {
		return err
	}
	s.retarget()
	return nil
}

// SetNetwork changes the selected network.
func (s *Session) SetNetwork(n types.Network) error {
	if err := s.Store.SetNetwork(n); err != nil {
		return err
	}
	s.retarget()
	return nil
}

// Disconnect removes every account.
func (s *Session) Disconnect() error {
	if err := s.Store.Disconnect(); err != nil {
		return err
	}
	s.Syncer.Reset()
	return nil
}

// Refresh syncs the active account on the selected network.
func (s *Session) Refresh(ctx context.Context) (ledger.Snapshot, error) {
	acct, err := s.Store.Active()
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return s.Syncer.Refresh(ctx, acct, s.Store.Network())
}

// Transaction looks up one transaction on the selected network.
func (s *Session) Transaction(ctx context.Context, signature string) (json.RawMessage, error) {
	if signature == "" {
		return nil, fmt.Errorf("signature is required")
	}
	return s.client.GetTransaction(ctx, signature, s.Store.Network())
}
