// Package accounts owns the ordered collection of derived accounts, the
// active-account pointer, and their persistence.
package accounts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/velocity-wallet/velocity/internal/log"
	"github.com/velocity-wallet/velocity/internal/storage"
	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// Storage keys.
const (
	// CollectionKey holds the serialized account collection.
	CollectionKey = "solana-wallets"
	// NetworkKey holds the selected network name.
	NetworkKey = "velocity_network"
	// corruptKey keeps the last unreadable collection for manual recovery.
	corruptKey = CollectionKey + ".corrupt"
)

// Store errors.
var (
	ErrIndexOutOfRange = errors.New("account index out of range")
	ErrLastAccount     = errors.New("cannot delete the last account")
	ErrCorruptState    = errors.New("corrupt persisted state")
	ErrNoAccounts      = errors.New("no accounts")
)

// Store is the single owner of the account collection. Every mutation
// runs under one lock and is persisted before it becomes visible.
type Store struct {
	mu       sync.Mutex
	db       storage.DB // wallet namespace
	prefs    storage.DB // preference namespace
	accounts []wallet.Account
	active   int
	network  types.Network
	fallback types.Network // used when no preference is stored
	generate func() (string, error)
	logger   zerolog.Logger
}

// New creates an empty store. Wallet state is read from and written to db,
// the network preference to prefs. Call Load to restore persisted state.
func New(db, prefs storage.DB) *Store {
	return &Store{
		db:       db,
		prefs:    prefs,
		network:  types.DefaultNetwork,
		fallback: types.DefaultNetwork,
		generate: func() (string, error) { return wallet.GenerateMnemonic(wallet.DefaultEntropyBits) },
		logger:   log.Accounts,
	}
}

// SetGenerator replaces the mnemonic source used by Create.
func (s *Store) SetGenerator(fn func() (string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generate = fn
}

// SetDefaultNetwork sets the network Load falls back to when no valid
// preference is stored.
func (s *Store) SetDefaultNetwork(n types.Network) error {
	if !n.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownNetwork, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = n
	return nil
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(l zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// Load replaces the in-memory collection with the persisted one.
//
// Unreadable state is never fatal: it is moved aside, the collection is
// left empty, and an error wrapping ErrCorruptState is returned as a
// warning. Other errors come from the storage layer.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.network = s.loadNetwork()

	data, err := s.db.Get([]byte(CollectionKey))
	if errors.Is(err, storage.ErrNotFound) {
		s.accounts, s.active = nil, 0
		return nil
	}
	if errors.Is(err, storage.ErrMalformed) {
		// Too short to be sealed data; no passphrase could open it.
		s.accounts, s.active = nil, 0
		if delErr := s.db.Delete([]byte(CollectionKey)); delErr != nil {
			s.logger.Error().Err(delErr).Msg("Failed to remove corrupt account state")
		}
		s.logger.Warn().Err(err).Msg("Discarded malformed account state")
		return fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	if err != nil {
		// Sealed stores report a wrong passphrase here; treat it like
		// any other read failure, not as corruption.
		return fmt.Errorf("read accounts: %w", err)
	}

	accts, active, decErr := decodeState(data)
	if decErr != nil {
		s.accounts, s.active = nil, 0
		s.quarantine(data)
		s.logger.Warn().Err(decErr).Msg("Discarded unreadable account state")
		return decErr
	}

	s.accounts, s.active = accts, active
	s.logger.Debug().Int("accounts", len(accts)).Int("active", active).Msg("Loaded accounts")
	return nil
}

func (s *Store) quarantine(data []byte) {
	if err := s.db.Put([]byte(corruptKey), data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to back up corrupt account state")
		return
	}
	if err := s.db.Delete([]byte(CollectionKey)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to remove corrupt account state")
	}
}

func (s *Store) loadNetwork() types.Network {
	raw, err := s.prefs.Get([]byte(NetworkKey))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read network preference")
		}
		return s.fallback
	}
	n, err := types.ParseNetwork(string(raw))
	if err != nil {
		s.logger.Warn().Str("stored", string(raw)).Msg("Unknown stored network, using default")
		return s.fallback
	}
	return n
}

// Save writes the current collection.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(s.accounts, s.active)
}

// persist writes accts and active. An empty collection removes the key.
// Must be called with s.mu held.
func (s *Store) persist(accts []wallet.Account, active int) error {
	if len(accts) == 0 {
		if err := s.db.Delete([]byte(CollectionKey)); err != nil {
			return fmt.Errorf("delete accounts: %w", err)
		}
		return nil
	}
	data, err := encodeState(accts, active)
	if err != nil {
		return err
	}
	if err := s.db.Put([]byte(CollectionKey), data); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

// commit persists the next state and only then swaps it in.
// Must be called with s.mu held.
func (s *Store) commit(accts []wallet.Account, active int) error {
	if err := s.persist(accts, active); err != nil {
		return err
	}
	s.accounts, s.active = accts, active
	return nil
}

// Create generates a fresh mnemonic, derives its account at index 0,
// appends it and makes it active.
func (s *Store) Create(label string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phrase, err := s.generate()
	if err != nil {
		return wallet.Account{}, fmt.Errorf("generate mnemonic: %w", err)
	}
	acct, err := wallet.DeriveAccount(phrase, 0, label)
	if err != nil {
		return wallet.Account{}, err
	}
	if err := s.appendLocked(acct); err != nil {
		return wallet.Account{}, err
	}
	s.logger.Info().Str("public_key", acct.PublicKey).Int("position", len(s.accounts)-1).Msg("Account created")
	return acct, nil
}

// Restore derives the account for phrase at index, appends it and makes
// it active. Returns wallet.ErrInvalidMnemonic for a bad phrase.
func (s *Store) Restore(phrase string, index uint32, label string) (wallet.Account, error) {
	acct, err := wallet.DeriveAccount(phrase, index, label)
	if err != nil {
		return wallet.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(acct); err != nil {
		return wallet.Account{}, err
	}
	s.logger.Info().Str("public_key", acct.PublicKey).Uint32("index", index).Msg("Account restored")
	return acct, nil
}

func (s *Store) appendLocked(acct wallet.Account) error {
	next := make([]wallet.Account, len(s.accounts), len(s.accounts)+1)
	copy(next, s.accounts)
	next = append(next, acct)
	return s.commit(next, len(next)-1)
}

func (s *Store) checkIndex(i int) error {
	if i < 0 || i >= len(s.accounts) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(s.accounts))
	}
	return nil
}

// Switch makes the account at position i active.
func (s *Store) Switch(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := s.commit(s.accounts, i); err != nil {
		return err
	}
	s.logger.Debug().Int("active", i).Msg("Switched account")
	return nil
}

// Rename replaces the label of the account at position i.
func (s *Store) Rename(i int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	next := make([]wallet.Account, len(s.accounts))
	copy(next, s.accounts)
	next[i].Label = label
	return s.commit(next, s.active)
}

// Delete removes the account at position i. The last remaining account
// cannot be deleted. When the removed position is at or before the active
// one, the active pointer moves back by one if it can.
func (s *Store) Delete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accounts) == 1 {
		return ErrLastAccount
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}

	next := make([]wallet.Account, 0, len(s.accounts)-1)
	next = append(next, s.accounts[:i]...)
	next = append(next, s.accounts[i+1:]...)

	active := s.active
	if active >= i && active > 0 {
		active--
	}
	if err := s.commit(next, active); err != nil {
		return err
	}
	s.logger.Info().Int("position", i).Int("active", active).Msg("Account deleted")
	return nil
}

// Disconnect clears every account and removes the persisted collection.
// The network preference is kept.
func (s *Store) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.db.(interface{ DeleteAll() error }); ok {
		if err := p.DeleteAll(); err != nil {
			return fmt.Errorf("clear wallet namespace: %w", err)
		}
	} else {
		for _, k := range []string{CollectionKey, corruptKey} {
			if err := s.db.Delete([]byte(k)); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
		}
	}
	s.accounts, s.active = nil, 0
	s.logger.Info().Msg("Wallet disconnected")
	return nil
}

// Accounts returns a copy of the collection in creation order.
func (s *Store) Accounts() []wallet.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wallet.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Active returns the active account, or ErrNoAccounts.
func (s *Store) Active() (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accounts) == 0 {
		return wallet.Account{}, ErrNoAccounts
	}
	return s.accounts[s.active], nil
}

// ActiveIndex returns the position of the active account.
func (s *Store) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Network returns the selected network.
func (s *Store) Network() types.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// SetNetwork selects and persists a network.
func (s *Store) SetNetwork(n types.Network) error {
	if !n.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownNetwork, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.Put([]byte(NetworkKey), []byte(n)); err != nil {
		return fmt.Errorf("write network: %w", err)
	}
	s.network = n
	return nil
}
