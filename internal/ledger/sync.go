package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/velocity-wallet/velocity/internal/log"
	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// Snapshot is the observable ledger state of one account on one network.
type Snapshot struct {
	PublicKey    string
	Network      types.Network
	Balance      Lamports
	Transactions []Transaction
	FetchedAt    time.Time
}

// clone returns a copy that shares no memory with snap.
func (snap Snapshot) clone() Snapshot {
	out := snap
	if snap.Transactions != nil {
		out.Transactions = make([]Transaction, len(snap.Transactions))
		for i, tx := range snap.Transactions {
			if tx.BlockTime != nil {
				bt := *tx.BlockTime
				tx.BlockTime = &bt
			}
			out.Transactions[i] = tx
		}
	}
	return out
}

type target struct {
	publicKey string
	network   types.Network
}

// Syncer refreshes ledger state for the active account.
//
// Each refresh takes a new generation and cancels the one in flight. A
// result whose generation was superseded, or whose account is no longer
// the target, is discarded with ErrStale. A failed refresh leaves the last
// good snapshot in place.
type Syncer struct {
	client Client
	limit  int
	now    func() time.Time
	logger zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	target target
	cancel context.CancelFunc
	last   *Snapshot
}

// NewSyncer creates a syncer. limit bounds the history page; zero means
// DefaultHistoryLimit.
func NewSyncer(client Client, limit int) *Syncer {
	return &Syncer{
		client: client,
		limit:  clampLimit(limit),
		now:    time.Now,
		logger: log.Ledger,
	}
}

// Activate points the syncer at a new account. Any refresh in flight is
// cancelled and, if the account or network changed, the held snapshot is
// dropped so it is never shown for the wrong account.
func (s *Syncer) Activate(publicKey string, network types.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retargetLocked(target{publicKey: publicKey, network: network})
}

// Reset forgets the target and any snapshot.
func (s *Syncer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retargetLocked(target{})
}

func (s *Syncer) retargetLocked(t target) {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if t != s.target {
		s.target = t
		s.last = nil
	}
}

// Last returns the most recent good snapshot for the current target.
func (s *Syncer) Last() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Snapshot{}, false
	}
	return s.last.clone(), true
}

// Refresh fetches the balance and then the recent history of acct on
// network. Both must succeed for the snapshot to be replaced.
//
// On a ledger failure the previous snapshot (if any) is returned with an
// error wrapping ErrUnavailable. If the refresh was superseded the error
// wraps ErrStale and the snapshot is zero.
func (s *Syncer) Refresh(ctx context.Context, acct wallet.Account, network types.Network) (Snapshot, error) {
	t := target{publicKey: acct.PublicKey, network: network}

	s.mu.Lock()
	s.retargetLocked(t)
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	snap, err := s.fetch(ctx, t)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug().Str("public_key", t.publicKey).Msg("Discarded superseded refresh")
		return Snapshot{}, fmt.Errorf("%w: refresh for %s superseded", ErrStale, t.publicKey)
	}
	s.cancel = nil

	if err != nil {
		s.logger.Warn().Err(err).Str("public_key", t.publicKey).Str("network", network.String()).Msg("Ledger refresh failed, keeping last snapshot")
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if s.last != nil {
			return s.last.clone(), err
		}
		return Snapshot{}, err
	}

	kept := snap.clone()
	s.last = &kept
	return snap, nil
}

func (s *Syncer) fetch(ctx context.Context, t target) (Snapshot, error) {
	balance, err := s.client.GetBalance(ctx, t.publicKey, t.network)
	if err != nil {
		return Snapshot{}, fmt.Errorf("balance: %w", err)
	}
	txs, err := s.client.GetSignatures(ctx, t.publicKey, t.network, s.limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("history: %w", err)
	}
	if len(txs) > s.limit {
		txs = txs[:s.limit]
	}
	return Snapshot{
		PublicKey:    t.publicKey,
		Network:      t.network,
		Balance:      balance,
		Transactions: txs,
		FetchedAt:    s.now(),
	}, nil
}
